// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

func Ptr[T any](v T) *T {
	return &v
}

func Time(layout, value string) time.Time {
	t, err := time.Parse(layout, value)
	if err != nil {
		panic(err)
	}
	return t
}

// LogRecorder is a slog.Handler that keeps every record it receives.
type LogRecorder struct {
	mu      sync.Mutex
	records []slog.Record
}

// NewLogger returns a logger writing into a fresh LogRecorder.
func NewLogger() (*slog.Logger, *LogRecorder) {
	rec := &LogRecorder{}
	return slog.New(&recordingHandler{recorder: rec}), rec
}

// Records returns the records logged with msg, or all records when msg is empty.
func (r *LogRecorder) Records(msg string) []slog.Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []slog.Record
	for _, rec := range r.records {
		if msg == "" || rec.Message == msg {
			out = append(out, rec)
		}
	}
	return out
}

// Count returns how many records were logged at level with msg.
func (r *LogRecorder) Count(level slog.Level, msg string) int {
	n := 0
	for _, rec := range r.Records(msg) {
		if rec.Level == level {
			n++
		}
	}
	return n
}

// Attr returns the value of the attribute key on rec.
func Attr(rec slog.Record, key string) (slog.Value, bool) {
	var (
		val   slog.Value
		found bool
	)
	rec.Attrs(func(a slog.Attr) bool {
		if a.Key == key {
			val, found = a.Value, true
			return false
		}
		return true
	})
	return val, found
}

type recordingHandler struct {
	recorder *LogRecorder
	attrs    []slog.Attr
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, rec slog.Record) error {
	rec = rec.Clone()
	rec.AddAttrs(h.attrs...)

	h.recorder.mu.Lock()
	defer h.recorder.mu.Unlock()
	h.recorder.records = append(h.recorder.records, rec)
	return nil
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &recordingHandler{recorder: h.recorder, attrs: merged}
}

func (h *recordingHandler) WithGroup(string) slog.Handler { return h }
