// Package store persists learned vendor links in Postgres.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/matching"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) ListAccepted(ctx context.Context) ([]matching.LinkRow, error) {
	query := `
		SELECT counterparty, vendor, MAX(confidence), COUNT(*)
		FROM vendor_links
		GROUP BY counterparty, vendor
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing vendor links: %w", err)
	}
	defer rows.Close()

	var out []matching.LinkRow

	for rows.Next() {
		var row matching.LinkRow

		var counterparty, vendor sql.NullString

		if err := rows.Scan(&counterparty, &vendor, &row.Confidence, &row.Accepts); err != nil {
			return nil, fmt.Errorf("scanning vendor link: %w", err)
		}

		// NULL text is passed through as empty; the model's ingest
		// validation rejects it there.
		row.Counterparty = counterparty.String
		row.Vendor = vendor.String

		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading vendor links: %w", err)
	}

	return out, nil
}

func (s *Store) RecordAccepted(ctx context.Context, counterparty, vendor string, confidence float64) error {
	query := `
		INSERT INTO vendor_links (counterparty, vendor, confidence, created_at)
		VALUES ($1, $2, $3, NOW())
	`

	_, err := s.db.ExecContext(ctx, query, counterparty, vendor, confidence)
	if err != nil {
		return fmt.Errorf("recording vendor link: %w", err)
	}

	return nil
}
