package sip

import (
	"bytes"
	"strconv"
	"strings"

	"braces.dev/errtrace"
)

const protoVer = "SIP/2.0"

// ParsePacket parses a single SIP message received as one datagram or frame.
//
// Header line folding is unfolded, compact header names are expanded
// and comma-separated Via values are split into separate entries.
// Everything after the empty line is the body, Content-Length is not applied.
// Returned errors wrap [ErrInvalidMessage].
func ParsePacket(data []byte) (*Message, error) {
	data = bytes.TrimLeft(data, "\r\n")
	if len(data) == 0 {
		return nil, errtrace.Wrap(newInvalidMessageError("empty packet"))
	}

	head, body := data, []byte(nil)
	if i := bytes.Index(data, []byte("\r\n\r\n")); i >= 0 {
		head, body = data[:i], data[i+4:]
	} else if i := bytes.Index(data, []byte("\n\n")); i >= 0 {
		head, body = data[:i], data[i+2:]
	}

	lines := unfoldLines(string(head))
	msg := new(Message)
	if err := parseStartLine(msg, lines[0]); err != nil {
		return nil, errtrace.Wrap(err)
	}

	for _, ln := range lines[1:] {
		name, val, ok := strings.Cut(ln, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, errtrace.Wrap(newInvalidMessageError("malformed header line %q", ln))
		}
		name, val = CanonicName(name), strings.TrimSpace(val)
		if name == HeaderVia {
			for _, v := range splitHeaderValues(val) {
				msg.Headers.Append(name, v)
			}
			continue
		}
		msg.Headers.Append(name, val)
	}

	if len(body) > 0 {
		msg.Body = bytes.Clone(body)
	}
	return msg, nil
}

func unfoldLines(head string) []string {
	var lines []string
	for ln := range strings.SplitSeq(head, "\n") {
		ln = strings.TrimSuffix(ln, "\r")
		if len(lines) > 1 && len(ln) > 0 && (ln[0] == ' ' || ln[0] == '\t') {
			lines[len(lines)-1] += " " + strings.TrimSpace(ln)
			continue
		}
		lines = append(lines, ln)
	}
	return lines
}

func parseStartLine(msg *Message, ln string) error {
	if strings.HasPrefix(ln, "SIP/") {
		ver, rest, _ := strings.Cut(ln, " ")
		code, reason, _ := strings.Cut(rest, " ")
		if ver != protoVer {
			return errtrace.Wrap(newInvalidMessageError("unsupported version %q", ver))
		}
		sts, err := strconv.ParseUint(code, 10, 16)
		if err != nil || !ResponseStatus(sts).IsValid() {
			return errtrace.Wrap(newInvalidMessageError("malformed status line %q", ln))
		}
		msg.Kind = MessageKindResponse
		msg.Status = ResponseStatus(sts)
		msg.Reason = reason
		return nil
	}

	parts := strings.Split(ln, " ")
	if len(parts) != 3 {
		return errtrace.Wrap(newInvalidMessageError("malformed request line %q", ln))
	}
	if parts[2] != protoVer {
		return errtrace.Wrap(newInvalidMessageError("unsupported version %q", parts[2]))
	}
	if mtd := RequestMethod(parts[0]); !mtd.IsValid() {
		return errtrace.Wrap(newInvalidMessageError("invalid method %q", parts[0]))
	}
	if parts[1] == "" {
		return errtrace.Wrap(newInvalidMessageError("empty Request-URI"))
	}
	msg.Kind = MessageKindRequest
	msg.Method = RequestMethod(parts[0])
	msg.RequestURI = parts[1]
	return nil
}
