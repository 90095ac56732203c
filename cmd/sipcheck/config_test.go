package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ghettovoice/sipsanity/sip"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "sipcheck.yaml", ""+
		"instanceId: k3x9q\n"+
		"scheme: SIPS\n"+
		"remote: 192.0.2.10:5060\n"+
		"logs:\n"+
		"  level: debug\n"+
		"  format: json\n"+
		"  file: logs/sipcheck.log\n"+
		"  maxBackups: 2\n")

	got, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig(%q) error = %v, want nil", path, err)
	}
	want := config{
		InstanceID: "k3x9q",
		Scheme:     "SIPS",
		Remote:     "192.0.2.10:5060",
		Logs: logConfig{
			Level:      "debug",
			Format:     "json",
			File:       filepath.Join(filepath.Dir(path), "logs", "sipcheck.log"),
			MaxSizeMB:  25,
			MaxAgeDays: 7,
			MaxBackups: 2,
		},
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("loadConfig(%q) = %+v, want %+v\ndiff (-got +want):\n%v", path, got, want, diff)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Parallel()

	for _, path := range []string{"", writeFile(t, "empty.yaml", "")} {
		got, err := loadConfig(path)
		if err != nil {
			t.Fatalf("loadConfig(%q) error = %v, want nil", path, err)
		}
		want := config{
			Scheme: sip.DefaultScheme,
			Logs:   logConfig{Level: "info", MaxSizeMB: 25, MaxAgeDays: 7, MaxBackups: 5},
		}
		if diff := cmp.Diff(got, want); diff != "" {
			t.Errorf("loadConfig(%q) = %+v, want %+v\ndiff (-got +want):\n%v", path, got, want, diff)
		}
	}
}

func TestConfig_TransactionStore(t *testing.T) {
	t.Parallel()

	cfg := config{
		Transactions: []transactionConfig{
			{Kind: "ist", Branch: "z9hG4bK1", FromTag: "a", CallID: "c1", CSeq: "1 INVITE"},
			{Kind: "NIST", Branch: "z9hG4bK2", FromTag: "b", CallID: "c2", CSeq: "2 BYE"},
		},
	}
	txs, err := cfg.transactionStore()
	if err != nil {
		t.Fatalf("cfg.transactionStore() error = %v, want nil", err)
	}
	for _, kind := range []sip.TransactionKind{sip.TransactionKindIST, sip.TransactionKindNIST} {
		if got, want := txs.Len(kind), 1; got != want {
			t.Errorf("txs.Len(%v) = %d, want %d", kind, got, want)
		}
	}

	got, ok := txs.LookupTransaction(sip.TransactionKindNIST, "z9hG4bK2")
	if !ok {
		t.Fatalf("txs.LookupTransaction(NIST, %q) = _, false, want true", "z9hG4bK2")
	}
	want := sip.TransactionRecord{
		Kind:   sip.TransactionKindNIST,
		Branch: "z9hG4bK2",
		Request: sip.RequestSnapshot{
			FromTag: "b",
			CallID:  "c2",
			CSeq:    sip.CSeq{Seq: 2, Method: sip.RequestMethodBye},
		},
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("txs.LookupTransaction(NIST, %q) = %+v, want %+v\ndiff (-got +want):\n%v", "z9hG4bK2", got, want, diff)
	}
}

func TestConfig_TransactionStore_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		tx   transactionConfig
		want string
	}{
		{"unknown kind", transactionConfig{Kind: "foo", Branch: "z9hG4bK1", CSeq: "1 INVITE"}, `unknown kind "foo"`},
		{"bad cseq", transactionConfig{Kind: "ist", Branch: "z9hG4bK1", CSeq: "INVITE"}, "transactions[0]"},
		{"empty branch", transactionConfig{Kind: "ist", CSeq: "1 INVITE"}, "transactions[0]"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			cfg := config{Transactions: []transactionConfig{c.tx}}
			_, err := cfg.transactionStore()
			if err == nil || !strings.Contains(err.Error(), c.want) {
				t.Errorf("cfg.transactionStore() error = %v, want error containing %q", err, c.want)
			}
		})
	}
}

func TestSetupLogging(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "sipcheck.log")
	var stderr bytes.Buffer
	logger, closer, err := setupLogging(logConfig{
		Level:      "warn",
		Format:     "json",
		File:       path,
		MaxSizeMB:  1,
		MaxAgeDays: 1,
		MaxBackups: 1,
	}, &stderr)
	if err != nil {
		t.Fatalf("setupLogging() error = %v, want nil", err)
	}

	logger.Info("hidden")
	logger.Warn("shown", "rule", "loop_back")
	if err := closer.Close(); err != nil {
		t.Fatalf("closer.Close() error = %v, want nil", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("os.ReadFile(%q) error = %v, want nil", path, err)
	}
	for name, out := range map[string]string{"stderr": stderr.String(), "file": string(data)} {
		if strings.Contains(out, "hidden") {
			t.Errorf("%s output = %q, want no info records", name, out)
		}
		if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"rule":"loop_back"`) {
			t.Errorf("%s output = %q, want the warn record", name, out)
		}
	}
}

func TestSetupLogging_BadLevel(t *testing.T) {
	t.Parallel()

	if _, _, err := setupLogging(logConfig{Level: "loud"}, &bytes.Buffer{}); err == nil {
		t.Errorf("setupLogging() error = nil, want error")
	}
}
