package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"

	"github.com/ghettovoice/sipsanity/internal/log"
	"github.com/ghettovoice/sipsanity/sip"
)

type logConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	MaxBackups int    `yaml:"maxBackups"`
	Compress   bool   `yaml:"compress"`
}

type transactionConfig struct {
	Kind    string `yaml:"kind"`
	Branch  string `yaml:"branch"`
	FromTag string `yaml:"fromTag"`
	CallID  string `yaml:"callId"`
	CSeq    string `yaml:"cseq"`
}

type config struct {
	InstanceID string `yaml:"instanceId"`
	Scheme     string `yaml:"scheme"`
	// Remote and Local are UDP "host:port" addresses used in serve mode.
	Remote       string              `yaml:"remote"`
	Local        string              `yaml:"local"`
	Logs         logConfig           `yaml:"logs"`
	Transactions []transactionConfig `yaml:"transactions"`
}

func loadConfig(path string) (config, error) {
	var cfg config
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return cfg, fmt.Errorf("decode %s: %w", path, err)
		}
		if cfg.Logs.File != "" && !filepath.IsAbs(cfg.Logs.File) {
			cfg.Logs.File = filepath.Join(filepath.Dir(path), cfg.Logs.File)
		}
	}

	if cfg.Scheme == "" {
		cfg.Scheme = sip.DefaultScheme
	}
	if cfg.Logs.Level == "" {
		cfg.Logs.Level = "info"
	}
	if cfg.Logs.MaxSizeMB <= 0 {
		cfg.Logs.MaxSizeMB = 25
	}
	if cfg.Logs.MaxAgeDays <= 0 {
		cfg.Logs.MaxAgeDays = 7
	}
	if cfg.Logs.MaxBackups <= 0 {
		cfg.Logs.MaxBackups = 5
	}
	return cfg, nil
}

var txKinds = map[string]sip.TransactionKind{
	"ist":  sip.TransactionKindIST,
	"nist": sip.TransactionKindNIST,
	"ict":  sip.TransactionKindICT,
	"nict": sip.TransactionKindNICT,
}

// transactionStore fills a store with the configured live transactions.
func (cfg config) transactionStore() (*sip.MemoryTransactionStore, error) {
	txs := sip.NewMemoryTransactionStore()
	for i, tc := range cfg.Transactions {
		kind, ok := txKinds[strings.ToLower(tc.Kind)]
		if !ok {
			return nil, fmt.Errorf("transactions[%d]: unknown kind %q", i, tc.Kind)
		}
		cseq, err := sip.ParseCSeq(tc.CSeq)
		if err != nil {
			return nil, fmt.Errorf("transactions[%d]: %w", i, err)
		}
		err = txs.Put(sip.TransactionRecord{
			Kind:   kind,
			Branch: tc.Branch,
			Request: sip.RequestSnapshot{
				FromTag: tc.FromTag,
				CallID:  tc.CallID,
				CSeq:    cseq,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("transactions[%d]: %w", i, err)
		}
	}
	return txs, nil
}

// setupLogging builds the command logger writing to w and, if configured, to a rotated file.
// The returned closer releases the file.
func setupLogging(cfg logConfig, w io.Writer) (*slog.Logger, io.Closer, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxAge:     cfg.MaxAgeDays,
			MaxBackups: cfg.MaxBackups,
			Compress:   cfg.Compress,
		}
		w = io.MultiWriter(w, rotator)
		closer = rotator
	}

	h := log.NewHandler(w, &log.HandlerOptions{
		Format: log.ParseFormat(cfg.Format),
		Level:  lvl,
	})
	return slog.New(h), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
