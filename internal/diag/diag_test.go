package diag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevelRecognizesStandardLevels(t *testing.T) {
	if got := ParseLevel("warn"); got != slog.LevelWarn {
		t.Errorf("got %v, want Warn", got)
	}
	if got := ParseLevel("not-a-level"); got != slog.LevelInfo {
		t.Errorf("got %v, want Info fallback", got)
	}
}

func TestConsoleHandlerWritesLevelAndMessage(t *testing.T) {
	var buf bytes.Buffer
	h := NewConsoleHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(h)
	logger.Info("descriptors finalized", "audio_elements", 2)

	out := buf.String()
	if !strings.Contains(out, "INFO") || !strings.Contains(out, "descriptors finalized") {
		t.Fatalf("got %q", out)
	}
	jsonStart := strings.IndexByte(out, '{')
	if jsonStart < 0 {
		t.Fatalf("expected trailing JSON attrs, got %q", out)
	}
	var attrs map[string]any
	if err := json.Unmarshal([]byte(out[jsonStart:]), &attrs); err != nil {
		t.Fatalf("unmarshal attrs: %v", err)
	}
	if attrs["audio_elements"].(float64) != 2 {
		t.Errorf("got %+v", attrs)
	}
}

func TestConsoleHandlerFormatsErrorAttr(t *testing.T) {
	var buf bytes.Buffer
	h := NewConsoleHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	slog.New(h).Error("write failed", "error", errors.New("disk full"))
	if !strings.Contains(buf.String(), "disk full") {
		t.Errorf("got %q", buf.String())
	}
}

func TestConsoleHandlerRespectsLevelFloor(t *testing.T) {
	var buf bytes.Buffer
	h := NewConsoleHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})
	slog.New(h).Info("should be dropped")
	if buf.Len() != 0 {
		t.Errorf("expected info below warn floor to be dropped, got %q", buf.String())
	}
}

type recordingHandler struct {
	records []slog.Record
}

func (r *recordingHandler) Enabled(ctx context.Context, level slog.Level) bool { return true }

func (r *recordingHandler) Handle(ctx context.Context, rec slog.Record) error {
	r.records = append(r.records, rec)
	return nil
}

func (r *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return r }
func (r *recordingHandler) WithGroup(name string) slog.Handler      { return r }

func TestMultiHandlerFansOutToAllHandlers(t *testing.T) {
	var buf bytes.Buffer
	console := NewConsoleHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	rec := &recordingHandler{}
	m := NewMultiHandler(console, rec)
	slog.New(m).Info("hello")
	if buf.Len() == 0 {
		t.Error("expected console handler to receive the record")
	}
	if len(rec.records) != 1 {
		t.Errorf("got %d records, want 1", len(rec.records))
	}
}
