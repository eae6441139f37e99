// Package eventlog records operational events (payment callbacks, handler
// failures) for the health view. The database is the primary sink; a small
// in-memory ring keeps the latest entries visible when the database is not.
package eventlog

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/kouprey/storefront/internal/models"
)

const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Sink persists entries. *store.Store satisfies it.
type Sink interface {
	InsertLog(ctx context.Context, e models.LogEntry) error
	RecentLogs(ctx context.Context, limit int) ([]models.LogEntry, error)
	LastLogWithPrefix(ctx context.Context, prefix string) (time.Time, error)
}

type Recorder struct {
	sink   Sink
	ring   *Ring
	logger *slog.Logger
	now    func() time.Time
}

func NewRecorder(sink Sink, ring *Ring, logger *slog.Logger) *Recorder {
	if ring == nil {
		ring = NewRing(DefaultCapacity)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		sink:   sink,
		ring:   ring,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Record never fails: a persistence error is only logged.
func (r *Recorder) Record(ctx context.Context, level, message string) {
	e := models.LogEntry{Level: level, Message: message, CreatedAt: r.now()}
	r.logger.Log(ctx, slogLevel(level), "event recorded", "event", message)
	r.ring.Add(e)

	if r.sink == nil {
		return
	}
	if err := r.sink.InsertLog(ctx, e); err != nil {
		r.logger.Warn("Failed to persist event", "event", message, "error", err)
	}
}

func (r *Recorder) Info(ctx context.Context, message string)  { r.Record(ctx, LevelInfo, message) }
func (r *Recorder) Warn(ctx context.Context, message string)  { r.Record(ctx, LevelWarn, message) }
func (r *Recorder) Error(ctx context.Context, message string) { r.Record(ctx, LevelError, message) }

// Recent returns up to limit entries, oldest first, preferring the
// persisted history.
func (r *Recorder) Recent(ctx context.Context, limit int) []models.LogEntry {
	if r.sink != nil {
		logs, err := r.sink.RecentLogs(ctx, limit)
		if err == nil && len(logs) > 0 {
			return logs
		}
		if err != nil {
			r.logger.Warn("Falling back to in-memory event log", "error", err)
		}
	}

	snap := r.ring.Snapshot()
	if limit > 0 && len(snap) > limit {
		snap = snap[len(snap)-limit:]
	}
	return snap
}

// LastWithPrefix reports when an event starting with prefix last happened.
func (r *Recorder) LastWithPrefix(ctx context.Context, prefix string) (time.Time, bool) {
	if r.sink != nil {
		if at, err := r.sink.LastLogWithPrefix(ctx, prefix); err == nil {
			return at, true
		}
	}
	snap := r.ring.Snapshot()
	for i := len(snap) - 1; i >= 0; i-- {
		if strings.HasPrefix(snap[i].Message, prefix) {
			return snap[i].CreatedAt, true
		}
	}
	return time.Time{}, false
}

func slogLevel(level string) slog.Level {
	switch level {
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	}
	return slog.LevelInfo
}
