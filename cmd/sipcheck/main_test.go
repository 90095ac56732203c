package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ghettovoice/sipsanity/sip"
)

const inviteMsg = "INVITE sip:bob@biloxi.com SIP/2.0\r\n" +
	"Via: SIP/2.0/UDP pc33.atlanta.com;branch=z9hG4bK776asdhds\r\n" +
	"Max-Forwards: 70\r\n" +
	"To: Bob <sip:bob@biloxi.com>\r\n" +
	"From: Alice <sip:alice@atlanta.com>;tag=1928301774\r\n" +
	"Call-ID: a84b4c76e66710@pc33.atlanta.com\r\n" +
	"CSeq: 314159 INVITE\r\n" +
	"Content-Length: 0\r\n" +
	"\r\n"

func writeFile(t *testing.T, name, data string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("os.WriteFile(%q) error = %v, want nil", path, err)
	}
	return path
}

func TestRun_Check(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		msg        string
		args       []string
		cfg        string
		wantCode   int
		wantPrefix string
	}{
		{
			name:       "accepted",
			msg:        inviteMsg,
			wantCode:   exitAccepted,
			wantPrefix: "accepted\n",
		},
		{
			name:       "unsupported scheme",
			msg:        strings.Replace(inviteMsg, "To: Bob <sip:bob@biloxi.com>", "To: <tel:+15551234>", 1),
			wantCode:   exitDiscarded,
			wantPrefix: "discarded\nSIP/2.0 416 Unsupported URI Scheme\r\n",
		},
		{
			name:       "loop-back",
			msg:        strings.Replace(inviteMsg, "Call-ID: a84b4c76e66710", "Call-ID: k3x9qa84b4c76e66710", 1),
			args:       []string{"-instance-id", "k3x9q"},
			wantCode:   exitDiscarded,
			wantPrefix: "discarded\nSIP/2.0 482 Loop Detected\r\n",
		},
		{
			name: "merged request",
			msg:  strings.Replace(inviteMsg, "branch=z9hG4bK776asdhds", "branch=z9hG4bKother", 1),
			cfg: "transactions:\n" +
				"  - kind: ist\n" +
				"    branch: z9hG4bK776asdhds\n" +
				"    fromTag: \"1928301774\"\n" +
				"    callId: a84b4c76e66710@pc33.atlanta.com\n" +
				"    cseq: 314159 INVITE\n",
			wantCode:   exitDiscarded,
			wantPrefix: "discarded\nSIP/2.0 482 Loop Detected\r\n",
		},
		{
			name: "retransmission",
			msg:  inviteMsg,
			cfg: "transactions:\n" +
				"  - kind: IST\n" +
				"    branch: z9hG4bK776asdhds\n" +
				"    fromTag: \"1928301774\"\n" +
				"    callId: a84b4c76e66710@pc33.atlanta.com\n" +
				"    cseq: 314159 INVITE\n",
			wantCode:   exitDiscarded,
			wantPrefix: "discarded\n",
		},
		{
			name:       "unparsable",
			msg:        "garbage\r\n\r\n",
			wantCode:   exitDiscarded,
			wantPrefix: "discarded\n",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			args := append([]string{"-f", writeFile(t, "msg.txt", c.msg)}, c.args...)
			if c.cfg != "" {
				args = append(args, "-config", writeFile(t, "sipcheck.yaml", c.cfg))
			}

			var stdout, stderr bytes.Buffer
			if got := run(t.Context(), args, nil, &stdout, &stderr); got != c.wantCode {
				t.Errorf("run(%q) = %d, want %d\nstderr:\n%s", args, got, c.wantCode, stderr.String())
			}
			if got := stdout.String(); !strings.HasPrefix(got, c.wantPrefix) {
				t.Errorf("run(%q) stdout = %q, want prefix %q", args, got, c.wantPrefix)
			}
			if c.wantPrefix == "discarded\n" && stdout.Len() != len(c.wantPrefix) {
				t.Errorf("run(%q) stdout = %q, want no reply", args, stdout.String())
			}
		})
	}
}

func TestRun_CheckStdin(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	got := run(t.Context(), []string{"-f", "-"}, strings.NewReader(inviteMsg), &stdout, &stderr)
	if got != exitAccepted {
		t.Errorf("run() = %d, want %d\nstderr:\n%s", got, exitAccepted, stderr.String())
	}
	if diff := cmp.Diff(stdout.String(), "accepted\n"); diff != "" {
		t.Errorf("run() stdout = %q, want %q\ndiff (-got +want):\n%v", stdout.String(), "accepted\n", diff)
	}
}

func TestRun_UsageErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"-nope"}},
		{"no mode", nil},
		{"missing file", []string{"-f", filepath.Join(t.TempDir(), "missing.txt")}},
		{"missing config", []string{"-config", filepath.Join(t.TempDir(), "missing.yaml"), "-f", "-"}},
		{"bad config", []string{"-config", writeFile(t, "bad.yaml", "transactions: [\n"), "-f", "-"}},
		{"bad log level", []string{"-config", writeFile(t, "lvl.yaml", "logs:\n  level: loud\n"), "-f", "-"}},
		{"bad transaction", []string{"-config", writeFile(t, "tx.yaml", "transactions:\n  - kind: foo\n"), "-f", "-"}},
		{"bad remote", []string{"-remote", "no-port"}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			var stdout, stderr bytes.Buffer
			if got := run(t.Context(), c.args, strings.NewReader(""), &stdout, &stderr); got != exitUsage {
				t.Errorf("run(%q) = %d, want %d", c.args, got, exitUsage)
			}
		})
	}
}

func TestRun_Serve(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(t.Context(), 300*time.Millisecond)
	defer cancel()

	var stdout, stderr bytes.Buffer
	args := []string{"-remote", "127.0.0.1:5060", "-instance-id", "k3x9q"}
	if got := run(ctx, args, nil, &stdout, &stderr); got != exitAccepted {
		t.Fatalf("run(%q) = %d, want %d\nstderr:\n%s", args, got, exitAccepted, stderr.String())
	}

	var report sip.SanityReport
	if err := json.Unmarshal(stdout.Bytes(), &report); err != nil {
		t.Fatalf("json.Unmarshal(%q) error = %v, want nil", stdout.String(), err)
	}
	if report.Accepted != 0 || report.Dropped != 0 || report.Rejected != 0 {
		t.Errorf("report = %+v, want empty counters", report)
	}
}
