// Package audit keeps an append-only trail of every decision the pipeline
// makes. Entries are never mutated or deleted.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/receipt"
)

type Severity string

const (
	SeverityDebug Severity = "DEBUG"
	SeverityInfo  Severity = "INFO"
	SeverityError Severity = "ERROR"
)

// Entry is one audit record. Fingerprint and Decision are optional; Context
// carries free-form structured detail.
type Entry struct {
	ID          uuid.UUID
	Time        time.Time
	Severity    Severity
	Fingerprint receipt.Fingerprint
	Decision    string
	Message     string
	Context     map[string]any
}

type Repository interface {
	Append(ctx context.Context, e Entry) error
}

// Logger writes audit entries best-effort. A failing audit store must never
// take the pipeline down with it, so Append swallows store errors after
// reporting them operationally.
type Logger struct {
	repo Repository
	now  func() time.Time
}

func NewLogger(repo Repository) *Logger {
	return &Logger{repo: repo, now: time.Now}
}

// WithClock overrides the timestamp source. Used in tests.
func (l *Logger) WithClock(now func() time.Time) *Logger {
	l.now = now
	return l
}

func (l *Logger) Append(ctx context.Context, e Entry) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	if e.Time.IsZero() {
		e.Time = l.now()
	}

	if err := l.repo.Append(ctx, e); err != nil {
		slog.Debug("audit append failed",
			"error", err,
			"severity", e.Severity,
			"message", e.Message,
		)
	}
}

func (l *Logger) Info(ctx context.Context, fp receipt.Fingerprint, decision, message string, kv map[string]any) {
	l.Append(ctx, Entry{Severity: SeverityInfo, Fingerprint: fp, Decision: decision, Message: message, Context: kv})
}

func (l *Logger) Error(ctx context.Context, fp receipt.Fingerprint, message string, kv map[string]any) {
	l.Append(ctx, Entry{Severity: SeverityError, Fingerprint: fp, Message: message, Context: kv})
}

func (l *Logger) Debug(ctx context.Context, fp receipt.Fingerprint, message string, kv map[string]any) {
	l.Append(ctx, Entry{Severity: SeverityDebug, Fingerprint: fp, Message: message, Context: kv})
}
