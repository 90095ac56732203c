package sip

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"braces.dev/errtrace"

	"github.com/ghettovoice/sipsanity/internal/util"
)

// MessageKind distinguishes requests from responses.
type MessageKind uint8

const (
	MessageKindRequest MessageKind = iota + 1
	MessageKindResponse
)

func (k MessageKind) String() string {
	switch k {
	case MessageKindRequest:
		return "request"
	case MessageKindResponse:
		return "response"
	default:
		return "unknown"
	}
}

// Message is a parsed inbound SIP message.
type Message struct {
	Kind MessageKind
	// Method is the request method. For responses it is empty.
	Method RequestMethod
	// RequestURI is the raw Request-URI. For responses it is empty.
	RequestURI string
	// Status and Reason are set for responses only.
	Status  ResponseStatus
	Reason  string
	Headers Headers
	Body    []byte
}

func (m *Message) IsRequest() bool { return m != nil && m.Kind == MessageKindRequest }

func (m *Message) IsResponse() bool { return m != nil && m.Kind == MessageKindResponse }

// StartLine renders the request or status line without the trailing CRLF.
func (m *Message) StartLine() string {
	switch {
	case m.IsRequest():
		return fmt.Sprintf("%s %s %s", m.Method, m.RequestURI, protoVer)
	case m.IsResponse():
		return fmt.Sprintf("%s %d %s", protoVer, uint(m.Status), m.Reason)
	default:
		return ""
	}
}

func (m *Message) LogValue() slog.Value {
	if m == nil {
		return slog.Value{}
	}
	callID, _ := m.Headers.First(HeaderCallID)
	return slog.GroupValue(
		slog.String("kind", m.Kind.String()),
		slog.String("start_line", util.Ellipsis(m.StartLine(), 80)),
		slog.String("call_id", callID),
		slog.Int("body_len", len(m.Body)),
	)
}

// CSeq is a parsed CSeq header value.
type CSeq struct {
	Seq    uint32
	Method RequestMethod
}

func (c CSeq) String() string { return strconv.FormatUint(uint64(c.Seq), 10) + " " + string(c.Method) }

// ParseCSeq parses a CSeq header value like "314159 INVITE".
func ParseCSeq(s string) (CSeq, error) {
	fs := strings.Fields(s)
	if len(fs) != 2 {
		return CSeq{}, errtrace.Wrap(newMalformedHeaderError("CSeq %q", s))
	}
	seq, err := strconv.ParseUint(fs[0], 10, 32)
	if err != nil {
		return CSeq{}, errtrace.Wrap(newMalformedHeaderError(fmt.Errorf("CSeq %q: %w", s, err)))
	}
	mtd := RequestMethod(fs[1])
	if !mtd.IsValid() {
		return CSeq{}, errtrace.Wrap(newMalformedHeaderError("CSeq %q: invalid method", s))
	}
	return CSeq{Seq: uint32(seq), Method: mtd}, nil
}

// MessageFields holds the header fields the sanity check decides on.
// It is resolved once per message by [Message.Fields].
type MessageFields struct {
	CallID    string
	CSeq      CSeq
	FromTag   string
	ToTag     string
	ViaBranch string
	// ToScheme is the lower-cased scheme of the To URI.
	ToScheme string
	// ContentLength is valid only when HasContentLength is true.
	ContentLength    int
	HasContentLength bool
}

// Fields resolves the fields of m examined by the sanity check.
// The first value wins for headers that may appear more than once.
func (m *Message) Fields() (*MessageFields, error) {
	if m == nil {
		return nil, errtrace.Wrap(NewInvalidArgumentError("nil message"))
	}

	var flds MessageFields

	if v, ok := m.Headers.First(HeaderCallID); ok {
		flds.CallID = strings.TrimSpace(v)
	}
	if v, ok := m.Headers.First(HeaderCSeq); ok {
		cseq, err := ParseCSeq(v)
		if err != nil {
			return nil, errtrace.Wrap(err)
		}
		flds.CSeq = cseq
	}
	if v, ok := m.Headers.First(HeaderFrom); ok {
		flds.FromTag, _ = headerParam(v, "tag")
	}
	if v, ok := m.Headers.First(HeaderTo); ok {
		flds.ToTag, _ = headerParam(v, "tag")
		flds.ToScheme = uriScheme(headerURI(v))
	}
	if v, ok := m.Headers.First(HeaderVia); ok {
		flds.ViaBranch, _ = headerParam(v, "branch")
	}
	if v, ok := m.Headers.First(HeaderContentLength); ok {
		s := strings.TrimSpace(v)
		n, err := strconv.Atoi(s)
		switch {
		case err == nil && n >= 0:
		case errors.Is(err, strconv.ErrRange) && isDigits(s):
			// longer than any body that can be received
			n = math.MaxInt
		default:
			return nil, errtrace.Wrap(newMalformedHeaderError("Content-Length %q", v))
		}
		flds.ContentLength = n
		flds.HasContentLength = true
	}
	return &flds, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
