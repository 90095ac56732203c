// Command sipcheck runs the SIP admission gate over a single message or a live UDP peer.
//
// Check a message saved to a file (or read from stdin with "-f -"):
//
//	sipcheck -config sipcheck.yaml -f invite.txt
//
// The first output line is "accepted" or "discarded", followed by the
// error response the gate would send, if any. The exit code is 0 for accepted
// messages, 1 for discarded ones and 2 for usage or configuration errors.
//
// Serve a UDP peer until interrupted:
//
//	sipcheck -config sipcheck.yaml -remote 192.0.2.10:5060
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ghettovoice/sipsanity/log"
	"github.com/ghettovoice/sipsanity/sip"
)

const (
	exitAccepted  = 0
	exitDiscarded = 1
	exitUsage     = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sipcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to configuration file")
	file := fs.String("f", "", `check a single message read from file, "-" for stdin`)
	remote := fs.String("remote", "", "serve a UDP peer at host:port (overrides config)")
	instanceID := fs.String("instance-id", "", "Call-ID prefix of this agent (overrides config)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return exitUsage
	}
	if *remote != "" {
		cfg.Remote = *remote
	}
	if *instanceID != "" {
		cfg.InstanceID = *instanceID
	}

	logger, closer, err := setupLogging(cfg.Logs, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "setup logging: %v\n", err)
		return exitUsage
	}
	defer closer.Close()
	log.SetDefault(logger)

	txs, err := cfg.transactionStore()
	if err != nil {
		fmt.Fprintf(stderr, "load transactions: %v\n", err)
		return exitUsage
	}

	switch {
	case *file != "":
		return checkFile(ctx, cfg, txs, *file, stdin, stdout, logger)
	case cfg.Remote != "":
		return serve(ctx, cfg, txs, stdout, logger)
	default:
		fmt.Fprintln(stderr, "either -f or -remote is required")
		fs.Usage()
		return exitUsage
	}
}

func checkFile(
	ctx context.Context,
	cfg config,
	txs sip.TransactionStore,
	path string,
	stdin io.Reader,
	stdout io.Writer,
	logger *slog.Logger,
) int {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failed to read the message", slog.Any("error", err))
		return exitUsage
	}

	msg, err := sip.ParsePacket(data)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelWarn, "failed to parse the message", slog.Any("error", err))
		fmt.Fprintln(stdout, "discarded")
		return exitDiscarded
	}

	checker := sip.NewSanityChecker(&sip.SanityCheckerOptions{
		InstanceID: cfg.InstanceID,
		Scheme:     cfg.Scheme,
		Logger:     logger,
	})
	var reply bytes.Buffer
	snd := sip.MessageSenderFunc(func(_ context.Context, data []byte) error {
		_, err := reply.Write(data)
		return err
	})

	if checker.Check(ctx, msg, txs, snd) {
		fmt.Fprintln(stdout, "accepted")
		return exitAccepted
	}
	fmt.Fprintln(stdout, "discarded")
	reply.WriteTo(stdout) //nolint:errcheck
	return exitDiscarded
}

func serve(ctx context.Context, cfg config, txs sip.TransactionStore, stdout io.Writer, logger *slog.Logger) int {
	stats := new(sip.SanityStats)
	ep, err := sip.NewEndpoint(
		sip.MessageReceiverFunc(func(ctx context.Context, msg *sip.Message) error {
			logger.LogAttrs(ctx, slog.LevelInfo, "message accepted", slog.Any("message", msg))
			return nil
		}),
		&sip.EndpointOptions{
			InstanceID:   cfg.InstanceID,
			Scheme:       cfg.Scheme,
			Transactions: txs,
			Stats:        stats,
			Logger:       logger,
		},
	)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failed to create the endpoint", slog.Any("error", err))
		return exitUsage
	}

	tp, err := sip.NewUDPTransport(cfg.Remote, &sip.UDPTransportOptions{LocalAddr: cfg.Local, Logger: logger})
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failed to create the transport", slog.Any("error", err))
		return exitUsage
	}
	if err := ep.AddTransport(tp); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failed to register the transport", slog.Any("error", err))
		return exitUsage
	}
	if err := tp.Connect(ctx); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failed to connect the transport", slog.Any("error", err))
		return exitUsage
	}
	defer tp.Close()

	logger.LogAttrs(ctx, slog.LevelInfo, "serving",
		slog.String("uri", tp.URI()),
		slog.String("instance_id", ep.InstanceID()),
		slog.Any("local_addr", tp.LocalAddr()),
	)

	err = tp.Serve(ctx, func(ctx context.Context, data []byte) {
		if err := ep.RecvPacket(ctx, tp, data); err != nil {
			logger.LogAttrs(ctx, slog.LevelDebug, "packet discarded", slog.Any("error", err))
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		logger.LogAttrs(ctx, slog.LevelError, "serve failed", slog.Any("error", err))
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(stats.Report()); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failed to write the report", slog.Any("error", err))
	}
	return exitAccepted
}
