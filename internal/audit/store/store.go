// Package store appends audit entries to Postgres.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/audit"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, e audit.Entry) error {
	payload, err := json.Marshal(e.Context)
	if err != nil {
		return fmt.Errorf("encoding audit context: %w", err)
	}

	query := `
		INSERT INTO audit_log (id, ts, severity, fingerprint, decision, message, context)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = s.db.ExecContext(ctx, query,
		e.ID, e.Time, e.Severity, string(e.Fingerprint), e.Decision, e.Message, payload,
	)
	if err != nil {
		return fmt.Errorf("appending audit entry: %w", err)
	}

	return nil
}
