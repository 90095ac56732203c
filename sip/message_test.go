package sip_test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ghettovoice/sipsanity/sip"
)

func TestMessage_Fields(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		msg     rawMsg
		want    *sip.MessageFields
		wantErr error
	}{
		{
			"initial INVITE",
			invite(),
			&sip.MessageFields{
				CallID:           inviteCallID,
				CSeq:             sip.CSeq{Seq: 314159, Method: sip.RequestMethodInvite},
				FromTag:          aliceTag,
				ViaBranch:        inviteBranch,
				ToScheme:         "sip",
				ContentLength:    4,
				HasContentLength: true,
			},
			nil,
		},
		{
			"in-dialog BYE",
			bye(),
			&sip.MessageFields{
				CallID:           byeCallID,
				CSeq:             sip.CSeq{Seq: 231, Method: sip.RequestMethodBye},
				FromTag:          "a6c85cf",
				ToTag:            aliceTag,
				ViaBranch:        byeBranch,
				ToScheme:         "sip",
				HasContentLength: true,
			},
			nil,
		},
		{
			"URI parameters are not header parameters",
			invite().
				set("To", "<SIPS:bob@biloxi.com;tag=uri>").
				set("From", "sip:alice@atlanta.com;TAG=\"q1\"").
				set("CSeq", "  7   ACK ").
				del("Content-Length"),
			&sip.MessageFields{
				CallID:    inviteCallID,
				CSeq:      sip.CSeq{Seq: 7, Method: sip.RequestMethodAck},
				FromTag:   "q1",
				ViaBranch: inviteBranch,
				ToScheme:  "sips",
			},
			nil,
		},
		{
			"quoted display names",
			invite().
				set("To", `"Bob <Boss>;tag=fake" <sip:bob@biloxi.com>;tag=b1`).
				set("From", `"A \"<;tag=x>\"" <sip:alice@atlanta.com>;tag=a1`),
			&sip.MessageFields{
				CallID:           inviteCallID,
				CSeq:             sip.CSeq{Seq: 314159, Method: sip.RequestMethodInvite},
				FromTag:          "a1",
				ToTag:            "b1",
				ViaBranch:        inviteBranch,
				ToScheme:         "sip",
				ContentLength:    4,
				HasContentLength: true,
			},
			nil,
		},
		{
			"Content-Length out of range",
			invite().set("Content-Length", "99999999999999999999"),
			&sip.MessageFields{
				CallID:           inviteCallID,
				CSeq:             sip.CSeq{Seq: 314159, Method: sip.RequestMethodInvite},
				FromTag:          aliceTag,
				ViaBranch:        inviteBranch,
				ToScheme:         "sip",
				ContentLength:    math.MaxInt,
				HasContentLength: true,
			},
			nil,
		},
		{"negative Content-Length out of range", invite().set("Content-Length", "-99999999999999999999"), nil, sip.ErrMalformedHeader},
		{"CSeq overflow", invite().set("CSeq", "4294967296 INVITE"), nil, sip.ErrMalformedHeader},
		{"CSeq extra token", invite().set("CSeq", "1 INVITE x"), nil, sip.ErrMalformedHeader},
		{"bad Content-Length", invite().set("Content-Length", "1e3"), nil, sip.ErrMalformedHeader},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			got, err := c.msg.parse(t).Fields()
			if diff := cmp.Diff(err, c.wantErr, cmpopts.EquateErrors()); diff != "" {
				t.Errorf("msg.Fields() error = %v, want %v\ndiff (-got +want):\n%v", err, c.wantErr, diff)
			}
			if diff := cmp.Diff(got, c.want); diff != "" {
				t.Errorf("msg.Fields() = %+v, want %+v\ndiff (-got +want):\n%v", got, c.want, diff)
			}
		})
	}
}

func TestParseCSeq(t *testing.T) {
	t.Parallel()

	got, err := sip.ParseCSeq("101 REGISTER")
	if err != nil {
		t.Fatalf("sip.ParseCSeq() error = %v, want nil", err)
	}
	if want := (sip.CSeq{Seq: 101, Method: sip.RequestMethodRegister}); got != want {
		t.Errorf("sip.ParseCSeq() = %+v, want %+v", got, want)
	}
	if got.String() != "101 REGISTER" {
		t.Errorf("cseq.String() = %q, want %q", got.String(), "101 REGISTER")
	}

	for _, s := range []string{"", "REGISTER", "-1 REGISTER", "1 REG<ISTER"} {
		if _, err := sip.ParseCSeq(s); err == nil {
			t.Errorf("sip.ParseCSeq(%q) error = nil, want error", s)
		}
	}
}

func TestCanonicName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Via":            sip.HeaderVia,
		"v":              sip.HeaderVia,
		" I ":            sip.HeaderCallID,
		"CALL-ID":        sip.HeaderCallID,
		"l":              sip.HeaderContentLength,
		"X-Custom":       "x-custom",
		"Content-Length": sip.HeaderContentLength,
	}
	for in, want := range cases {
		if got := sip.CanonicName(in); got != want {
			t.Errorf("sip.CanonicName(%q) = %q, want %q", in, got, want)
		}
	}
}
