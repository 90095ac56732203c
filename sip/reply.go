package sip

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/ghettovoice/sipsanity/internal/util"
)

// buildReply renders the minimal response to a rejected request.
// Via headers are echoed in order, a fresh To tag is added when the request has none.
func buildReply(req *Message, flds *MessageFields, sts ResponseStatus) []byte {
	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)

	sb.WriteString(protoVer)
	sb.WriteByte(' ')
	sb.WriteString(strconv.FormatUint(uint64(sts), 10))
	sb.WriteByte(' ')
	sb.WriteString(sts.Reason())
	sb.WriteString("\r\n")

	for _, via := range req.Headers.Get(HeaderVia) {
		sb.WriteString("Via: ")
		sb.WriteString(via)
		sb.WriteString("\r\n")
	}

	to, _ := req.Headers.First(HeaderTo)
	sb.WriteString("To: ")
	sb.WriteString(to)
	if flds.ToTag == "" {
		sb.WriteString(";tag=")
		sb.WriteString(NewTag())
	}
	sb.WriteString("\r\n")

	from, _ := req.Headers.First(HeaderFrom)
	sb.WriteString("From: ")
	sb.WriteString(from)
	sb.WriteString("\r\n")

	sb.WriteString("Call-ID: ")
	sb.WriteString(flds.CallID)
	sb.WriteString("\r\n")

	sb.WriteString("CSeq: ")
	sb.WriteString(strconv.FormatUint(uint64(flds.CSeq.Seq), 10))
	sb.WriteByte(' ')
	sb.WriteString(string(req.Method))
	sb.WriteString("\r\n\r\n")

	return []byte(sb.String())
}

// reply sends the response to a rejected request. Send errors are only logged.
func (c *SanityChecker) reply(
	ctx context.Context,
	req *Message,
	flds *MessageFields,
	sts ResponseStatus,
	tp MessageSender,
) {
	if tp == nil {
		c.log.LogAttrs(ctx, slog.LevelDebug, "no transport to send the reply",
			slog.Any("request", req),
			slog.Any("status", sts),
		)
		return
	}

	if err := tp.Send(ctx, buildReply(req, flds, sts)); err != nil {
		c.log.LogAttrs(ctx, slog.LevelDebug, "failed to send the reply",
			slog.Any("request", req),
			slog.Any("status", sts),
			slog.Any("error", err),
		)
	}
}
