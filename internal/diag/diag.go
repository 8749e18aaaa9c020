// Package diag is the ambient diagnostics façade: a slog.Handler that
// formats records the way the teacher's own plugin/vmlog handler does
// (via github.com/samber/slog-common's record-flattening helpers) but
// writes to a colorized console instead of a log storage backend, plus
// a MultiHandler fan-out mirroring the teacher's pkg/log.go so the
// CLI can attach additional handlers (e.g. a file sink) without
// replacing the console one.
package diag

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/fatih/color"
	slogcommon "github.com/samber/slog-common"
)

// ParseLevel mirrors the teacher's pkg.ParseLevel: an unrecognized level
// string falls back to slog's own zero value (Info) rather than erroring,
// since diagnostics must never block on a malformed -log-level flag.
func ParseLevel(level string) slog.Level {
	var lv slog.LevelVar
	lv.UnmarshalText([]byte(level))
	return lv.Level()
}

var (
	errorKeys = []string{"error", "err"}

	levelColor = map[slog.Level]func(format string, a ...any) string{
		slog.LevelDebug: color.New(color.FgCyan).SprintfFunc(),
		slog.LevelInfo:  color.New(color.FgGreen).SprintfFunc(),
		slog.LevelWarn:  color.New(color.FgYellow).SprintfFunc(),
		slog.LevelError: color.New(color.FgRed).SprintfFunc(),
	}
)

// ConsoleHandler is a slog.Handler that renders one colorized line per
// record: level, message, then any remaining attributes as compact JSON.
type ConsoleHandler struct {
	w      io.Writer
	opts   slog.HandlerOptions
	attrs  []slog.Attr
	groups []string
}

var _ slog.Handler = (*ConsoleHandler)(nil)

func NewConsoleHandler(w io.Writer, opts *slog.HandlerOptions) *ConsoleHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{Level: slog.LevelInfo}
	}
	return &ConsoleHandler{w: w, opts: *opts}
}

func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	min := slog.LevelInfo
	if h.opts.Level != nil {
		min = h.opts.Level.Level()
	}
	return level >= min
}

func (h *ConsoleHandler) Handle(ctx context.Context, r slog.Record) error {
	attrs := slogcommon.AppendRecordAttrsToAttrs(h.attrs, h.groups, &r)
	if h.opts.AddSource {
		attrs = append(attrs, slogcommon.Source("source", &r))
	}
	attrs = slogcommon.ReplaceAttrs(h.opts.ReplaceAttr, nil, attrs...)
	attrs = slogcommon.RemoveEmptyAttrs(attrs)
	extra := slogcommon.AttrsToMap(attrs...)

	for _, key := range errorKeys {
		if v, ok := extra[key]; ok {
			if err, ok := v.(error); ok {
				extra[key] = slogcommon.FormatError(err)
			}
		}
	}

	colorize := levelColor[r.Level]
	if colorize == nil {
		colorize = fmt.Sprintf
	}
	line := colorize("[%s] %s", r.Level.String(), r.Message)
	if len(extra) > 0 {
		b, err := json.Marshal(extra)
		if err != nil {
			return err
		}
		line = line + " " + string(b)
	}
	_, err := fmt.Fprintln(h.w, line)
	return err
}

func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ConsoleHandler{
		w:      h.w,
		opts:   h.opts,
		attrs:  append(slices.Clone(h.attrs), attrs...),
		groups: h.groups,
	}
}

func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	return &ConsoleHandler{
		w:      h.w,
		opts:   h.opts,
		attrs:  h.attrs,
		groups: append(slices.Clone(h.groups), name),
	}
}

// MultiHandler fans one record out to every attached handler, same shape
// as the teacher's pkg.MultiLogHandler, so additional sinks (a file, a
// test recorder) can be attached alongside ConsoleHandler.
type MultiHandler struct {
	handlers []slog.Handler
}

var _ slog.Handler = (*MultiHandler)(nil)

func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

func (m *MultiHandler) Add(h slog.Handler) {
	m.handlers = append(m.handlers, h)
}

func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: next}
}

func (m *MultiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithGroup(name)
	}
	return &MultiHandler{handlers: next}
}
