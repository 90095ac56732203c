// Package log provides logging utilities.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/golang-cz/devslog"
	"github.com/phsym/console-slog"
	slogformatter "github.com/samber/slog-formatter"
)

var newHandler = slogformatter.NewFormatterHandler(
	slogformatter.ErrorFormatter("error"),
	slogformatter.FormatByType(func(c net.PacketConn) slog.Value {
		return slog.GroupValue(
			slog.String("type", fmt.Sprintf("%T", c)),
			slog.String("ptr", fmt.Sprintf("%p", c)),
			slog.Any("local_addr", c.LocalAddr()),
		)
	}),
	slogformatter.FormatByType(func(c net.Conn) slog.Value {
		return slog.GroupValue(
			slog.String("type", fmt.Sprintf("%T", c)),
			slog.String("ptr", fmt.Sprintf("%p", c)),
			slog.Any("local_addr", c.LocalAddr()),
			slog.Any("remote_addr", c.RemoteAddr()),
		)
	}),
)

// Format selects the output format of a handler.
type Format string

const (
	FormatConsole Format = "console"
	FormatDev     Format = "dev"
	FormatJSON    Format = "json"
)

// ParseFormat converts a configuration value to a [Format].
// Unknown values fall back to [FormatConsole].
func ParseFormat(s string) Format {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatDev, FormatJSON:
		return f
	default:
		return FormatConsole
	}
}

// HandlerOptions configures [NewHandler].
type HandlerOptions struct {
	// Format is the output format, console by default.
	Format Format
	// Level is the minimum enabled level, debug by default.
	Level slog.Leveler
	// AddSource adds source file and line to records.
	AddSource bool
}

func (o *HandlerOptions) format() Format {
	if o == nil || o.Format == "" {
		return FormatConsole
	}
	return o.Format
}

func (o *HandlerOptions) level() slog.Leveler {
	if o == nil || o.Level == nil {
		return slog.LevelDebug
	}
	return o.Level
}

func (o *HandlerOptions) addSource() bool {
	return o != nil && o.AddSource
}

// NewHandler creates a handler writing to w in the requested format.
// All handlers share the same attribute formatters.
func NewHandler(w io.Writer, opts *HandlerOptions) slog.Handler {
	switch opts.format() {
	case FormatDev:
		return newHandler(devslog.NewHandler(w, &devslog.Options{
			HandlerOptions: &slog.HandlerOptions{
				AddSource: opts.addSource(),
				Level:     opts.level(),
			},
			SortKeys:   true,
			TimeFormat: time.RFC3339Nano,
		}))
	case FormatJSON:
		return newHandler(slog.NewJSONHandler(w, &slog.HandlerOptions{
			AddSource: opts.addSource(),
			Level:     opts.level(),
		}))
	default:
		return newHandler(console.NewHandler(w, &console.HandlerOptions{
			AddSource:  opts.addSource(),
			Level:      opts.level(),
			TimeFormat: time.RFC3339Nano,
		}))
	}
}

// Def is a default logger.
var Def = slog.New(NewHandler(os.Stdout, &HandlerOptions{AddSource: true}))

// Dev is a developer logger.
var Dev = slog.New(NewHandler(os.Stdout, &HandlerOptions{Format: FormatDev, AddSource: true}))

type noopHandler struct{}

func (noopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (noopHandler) Handle(context.Context, slog.Record) error { return nil }

func (h noopHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h noopHandler) WithGroup(string) slog.Handler { return h }

// Noop is a noop logger.
var Noop = slog.New(noopHandler{})

type stringValue[T ~string | ~[]byte] struct {
	v T
}

func (v stringValue[T]) LogValue() slog.Value {
	return slog.StringValue(string(v.v))
}

// StringValue returns a value logger that formats v as string.
func StringValue[T ~string | ~[]byte](v T) slog.LogValuer { return stringValue[T]{v} }
