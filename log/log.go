// Package log holds the logger used by the module when no logger is configured explicitly.
package log

import (
	"log/slog"
	"sync/atomic"

	"github.com/ghettovoice/sipsanity/internal/log"
)

var def atomic.Pointer[slog.Logger]

func init() {
	def.Store(log.Def)
}

// Default returns the default logger.
func Default() *slog.Logger { return def.Load() }

// SetDefault replaces the default logger. Nil resets it to the console logger.
func SetDefault(l *slog.Logger) {
	if l == nil {
		l = log.Def
	}
	def.Store(l)
}

// Noop returns a logger that discards everything.
func Noop() *slog.Logger { return log.Noop }
