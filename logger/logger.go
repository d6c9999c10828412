// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package logger carries a [slog] logger in a context. Handlers can be
// attached to a [Logger] after it has been put into a context, so code that
// only holds the context keeps logging to all of them.
package logger

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

// Logger is an [slog.Logger] that fans records out to its attached handlers.
type Logger struct {
	*slog.Logger
	// Level is shared by the logger and the handlers it creates with
	// [Logger.Console].
	Level *slog.LevelVar

	fanout *fanout
}

// New returns a Logger without handlers. A nil level means info.
func New(level *slog.LevelVar) *Logger {
	if level == nil {
		level = new(slog.LevelVar)
	}
	f := new(fanout)
	return &Logger{Logger: slog.New(f), Level: level, fanout: f}
}

// Attach makes l also write to h.
func (l *Logger) Attach(h slog.Handler) {
	l.fanout.mu.Lock()
	l.fanout.hs = append(l.fanout.hs, h)
	l.fanout.mu.Unlock()
}

// Console returns a [tint] handler for w at the logger's level. It prints
// short times and uses ANSI colors only when color is set.
func (l *Logger) Console(w io.Writer, color bool) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		Level:      l.Level,
		TimeFormat: time.Kitchen,
		NoColor:    !color,
	})
}

type fanout struct {
	mu sync.RWMutex
	hs []slog.Handler
}

func (f *fanout) handlers() []slog.Handler {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.hs
}

func (f *fanout) Enabled(ctx context.Context, lvl slog.Level) bool {
	for _, h := range f.handlers() {
		if h.Enabled(ctx, lvl) {
			return true
		}
	}
	return false
}

func (f *fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f.handlers() {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func (f *fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f *fanout) WithGroup(name string) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f *fanout) each(wrap func(slog.Handler) slog.Handler) slog.Handler {
	hs := f.handlers()
	out := &fanout{hs: make([]slog.Handler, len(hs))}
	for i, h := range hs {
		out.hs[i] = wrap(h)
	}
	return out
}

type ctxKey struct{}

// discard is returned by [Get] for contexts without a Logger.
var discard = New(nil)

// Put returns a copy of ctx carrying l.
func Put(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// Get returns the Logger carried by ctx. Without one, it returns a Logger
// that drops everything.
func Get(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return discard
}

// IsDefault reports whether l is the Logger returned by [Get] for contexts
// that carry none.
func IsDefault(l *Logger) bool { return l == discard }

// Debug logs msg at debug level with the Logger from ctx.
func Debug(ctx context.Context, msg string, attrs ...slog.Attr) {
	Get(ctx).LogAttrs(ctx, slog.LevelDebug, msg, attrs...)
}

// Warn logs msg at warning level with the Logger from ctx.
func Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	Get(ctx).LogAttrs(ctx, slog.LevelWarn, msg, attrs...)
}
