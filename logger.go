package framebridge

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/framebridge/backend"
	"github.com/gogpu/framebridge/backend/halshare"
	"github.com/gogpu/framebridge/backend/memshare"
	"github.com/gogpu/framebridge/surface"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// slogger returns the current package logger.
func slogger() *slog.Logger { return loggerPtr.Load() }

// SetLogger configures the logger for framebridge and all its sub-packages.
// By default, framebridge produces no log output.
//
// SetLogger is safe for concurrent use. Pass nil to restore silent logging.
//
// Log levels used by framebridge:
//   - [slog.LevelDebug]: per-frame diagnostics (fetches, negotiated output)
//   - [slog.LevelInfo]: lifecycle events (device ready, player created)
//   - [slog.LevelWarn]: recoverable failures (allocation failed, unknown
//     player, re-entrant initialize)
//
// Example:
//
//	framebridge.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	backend.SetLogger(l)
	surface.SetLogger(l)
	halshare.SetLogger(l)
	memshare.SetLogger(l)
}

// Logger returns the current logger used by framebridge.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
