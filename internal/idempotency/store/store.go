// Package store persists processed-receipt fingerprints and file digest
// history in Postgres.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/idempotency"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/receipt"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Reserve claims the fingerprint in a single statement so two runs racing on
// the same receipt cannot both proceed. Stale reservations (a previous run
// died mid-flight) are reclaimed after staleAfter.
func (s *Store) Reserve(ctx context.Context, fp receipt.Fingerprint, staleAfter time.Duration) (bool, idempotency.Outcome, error) {
	claimQuery := `
		INSERT INTO processed_receipts (fingerprint, outcome, reserved_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (fingerprint) DO UPDATE
			SET outcome = $2, reserved_at = NOW()
			WHERE processed_receipts.outcome = $2
			  AND processed_receipts.reserved_at < NOW() - $3::interval
	`

	interval := fmt.Sprintf("%d seconds", int(staleAfter.Seconds()))

	res, err := s.db.ExecContext(ctx, claimQuery, fp, idempotency.OutcomeReserved, interval)
	if err != nil {
		return false, "", fmt.Errorf("claiming fingerprint: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, "", fmt.Errorf("reading claim result: %w", err)
	}

	if affected == 1 {
		return true, idempotency.OutcomeReserved, nil
	}

	var outcome string

	err = s.db.QueryRowContext(ctx,
		`SELECT outcome FROM processed_receipts WHERE fingerprint = $1`, fp,
	).Scan(&outcome)
	if err != nil {
		return false, "", fmt.Errorf("reading existing outcome: %w", err)
	}

	return false, idempotency.Outcome(outcome), nil
}

// Reclaim takes a parked fingerprint back into reserved. Pending rows are
// claimable immediately; reserved rows only once older than staleAfter, the
// same staleness rule Reserve applies.
func (s *Store) Reclaim(ctx context.Context, fp receipt.Fingerprint, staleAfter time.Duration) (bool, idempotency.Outcome, error) {
	query := `
		UPDATE processed_receipts
		SET outcome = $2, reserved_at = NOW()
		WHERE fingerprint = $1
		  AND (outcome = $3
		       OR (outcome = $2 AND reserved_at < NOW() - $4::interval))
	`

	interval := fmt.Sprintf("%d seconds", int(staleAfter.Seconds()))

	res, err := s.db.ExecContext(ctx, query, fp,
		idempotency.OutcomeReserved, idempotency.OutcomePending, interval)
	if err != nil {
		return false, "", fmt.Errorf("reclaiming fingerprint: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, "", fmt.Errorf("reading reclaim result: %w", err)
	}

	if affected == 1 {
		return true, idempotency.OutcomeReserved, nil
	}

	var outcome string

	err = s.db.QueryRowContext(ctx,
		`SELECT outcome FROM processed_receipts WHERE fingerprint = $1`, fp,
	).Scan(&outcome)
	if err != nil {
		return false, "", fmt.Errorf("reading existing outcome: %w", err)
	}

	return false, idempotency.Outcome(outcome), nil
}

// SetOutcome only moves fingerprints that are still live. A terminal row
// stays exactly as its first resolver wrote it.
func (s *Store) SetOutcome(ctx context.Context, fp receipt.Fingerprint, outcome idempotency.Outcome) error {
	query := `
		UPDATE processed_receipts
		SET outcome = $2, completed_at = NOW()
		WHERE fingerprint = $1
		  AND outcome IN ($3, $4)
	`

	res, err := s.db.ExecContext(ctx, query, fp, outcome,
		idempotency.OutcomeReserved, idempotency.OutcomePending)
	if err != nil {
		return fmt.Errorf("setting outcome: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading outcome result: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("fingerprint %s has no live reservation to complete", fp)
	}

	return nil
}

func (s *Store) AppendDigest(ctx context.Context, digest string, fp receipt.Fingerprint) error {
	query := `
		INSERT INTO file_digest_history (digest, fingerprint, seen_at)
		VALUES ($1, $2, NOW())
	`

	if _, err := s.db.ExecContext(ctx, query, digest, fp); err != nil {
		return fmt.Errorf("appending digest history: %w", err)
	}

	return nil
}

func (s *Store) FingerprintsForDigest(ctx context.Context, digest string) ([]receipt.Fingerprint, error) {
	query := `
		SELECT fingerprint
		FROM file_digest_history
		WHERE digest = $1
		ORDER BY seen_at
	`

	rows, err := s.db.QueryContext(ctx, query, digest)
	if err != nil {
		return nil, fmt.Errorf("listing digest history: %w", err)
	}
	defer rows.Close()

	var out []receipt.Fingerprint

	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("scanning digest row: %w", err)
		}

		out = append(out, receipt.Fingerprint(fp))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading digest history: %w", err)
	}

	return out, nil
}
