package interop

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards every record and reports itself disabled so callers
// skip building attributes.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger configures the logger used by the interop layer. The layer is
// silent by default; pass nil to silence it again.
//
// Levels:
//   - [slog.LevelDebug]: transfers, wrap/detach bookkeeping
//   - [slog.LevelInfo]: context activation and teardown
//   - [slog.LevelWarn]: cleanup failures on error paths
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the logger used by the interop layer.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
