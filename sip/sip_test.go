package sip_test

import (
	"slices"
	"strings"
	"testing"

	"go.uber.org/goleak"

	"github.com/ghettovoice/sipsanity/log"
	"github.com/ghettovoice/sipsanity/sip"
)

func TestMain(m *testing.M) {
	log.SetDefault(log.Noop())
	goleak.VerifyTestMain(m)
}

// rawMsg builds wire messages for tests.
type rawMsg struct {
	start string
	hdrs  [][2]string
	body  string
}

// set replaces all values of the header with a single one, appending it if missing.
func (m rawMsg) set(name, value string) rawMsg {
	hdrs := make([][2]string, 0, len(m.hdrs)+1)
	done := false
	for _, h := range m.hdrs {
		if !strings.EqualFold(h[0], name) {
			hdrs = append(hdrs, h)
			continue
		}
		if !done {
			hdrs = append(hdrs, [2]string{h[0], value})
			done = true
		}
	}
	if !done {
		hdrs = append(hdrs, [2]string{name, value})
	}
	m.hdrs = hdrs
	return m
}

func (m rawMsg) add(name, value string) rawMsg {
	m.hdrs = append(slices.Clone(m.hdrs), [2]string{name, value})
	return m
}

func (m rawMsg) del(name string) rawMsg {
	m.hdrs = slices.DeleteFunc(slices.Clone(m.hdrs), func(h [2]string) bool {
		return strings.EqualFold(h[0], name)
	})
	return m
}

func (m rawMsg) withBody(body string) rawMsg {
	m.body = body
	return m
}

func (m rawMsg) bytes() []byte {
	var sb strings.Builder
	sb.WriteString(m.start)
	sb.WriteString("\r\n")
	for _, h := range m.hdrs {
		sb.WriteString(h[0])
		sb.WriteString(": ")
		sb.WriteString(h[1])
		sb.WriteString("\r\n")
	}
	sb.WriteString("\r\n")
	sb.WriteString(m.body)
	return []byte(sb.String())
}

func (m rawMsg) parse(t *testing.T) *sip.Message {
	t.Helper()

	msg, err := sip.ParsePacket(m.bytes())
	if err != nil {
		t.Fatalf("sip.ParsePacket() error = %v, want nil", err)
	}
	return msg
}

const (
	inviteBranch = "z9hG4bK776asdhds"
	inviteCallID = "a84b4c76e66710@pc33.atlanta.com"
	aliceTag     = "1928301774"
	byeBranch    = "z9hG4bKnashds10"
	byeCallID    = "a84b4c76e66710@pc33.atlanta.com"
)

func invite() rawMsg {
	return rawMsg{
		start: "INVITE sip:bob@biloxi.com SIP/2.0",
		hdrs: [][2]string{
			{"Via", "SIP/2.0/UDP pc33.atlanta.com;branch=" + inviteBranch},
			{"Max-Forwards", "70"},
			{"To", "Bob <sip:bob@biloxi.com>"},
			{"From", "Alice <sip:alice@atlanta.com>;tag=" + aliceTag},
			{"Call-ID", inviteCallID},
			{"CSeq", "314159 INVITE"},
			{"Contact", "<sip:alice@pc33.atlanta.com>"},
			{"Content-Type", "application/sdp"},
			{"Content-Length", "4"},
		},
		body: "v=0\n",
	}
}

func bye() rawMsg {
	return rawMsg{
		start: "BYE sip:alice@pc33.atlanta.com SIP/2.0",
		hdrs: [][2]string{
			{"Via", "SIP/2.0/UDP 192.0.2.4;branch=" + byeBranch},
			{"Max-Forwards", "70"},
			{"From", "Bob <sip:bob@biloxi.com>;tag=a6c85cf"},
			{"To", "Alice <sip:alice@atlanta.com>;tag=" + aliceTag},
			{"Call-ID", byeCallID},
			{"CSeq", "231 BYE"},
			{"Content-Length", "0"},
		},
	}
}

func okResponse() rawMsg {
	return rawMsg{
		start: "SIP/2.0 200 OK",
		hdrs: [][2]string{
			{"Via", "SIP/2.0/UDP pc33.atlanta.com;branch=" + inviteBranch + ";received=192.0.2.1"},
			{"To", "Bob <sip:bob@biloxi.com>;tag=a6c85cf"},
			{"From", "Alice <sip:alice@atlanta.com>;tag=" + aliceTag},
			{"Call-ID", inviteCallID},
			{"CSeq", "314159 INVITE"},
			{"Contact", "<sip:bob@192.0.2.4>"},
			{"Content-Length", "0"},
		},
	}
}

func inviteRecord(branch string) sip.TransactionRecord {
	return sip.TransactionRecord{
		Kind:   sip.TransactionKindIST,
		Branch: branch,
		Request: sip.RequestSnapshot{
			FromTag: aliceTag,
			CallID:  inviteCallID,
			CSeq:    sip.CSeq{Seq: 314159, Method: sip.RequestMethodInvite},
		},
	}
}

func newStore(t *testing.T, recs ...sip.TransactionRecord) *sip.MemoryTransactionStore {
	t.Helper()

	txs := sip.NewMemoryTransactionStore()
	for _, rec := range recs {
		if err := txs.Put(rec); err != nil {
			t.Fatalf("txs.Put(%+v) error = %v, want nil", rec, err)
		}
	}
	return txs
}
