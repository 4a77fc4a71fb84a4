// Package store persists approval interactions in Postgres.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/approval"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/ledger"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/receipt"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, req approval.Request) error {
	query := `
		INSERT INTO approvals (
			interaction_id, fingerprint, receipt_id, transaction_kind,
			transaction_id, counterparty, vendor, date, amount, score,
			state, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
	`

	_, err := s.db.ExecContext(ctx, query,
		req.InteractionID,
		string(req.Fingerprint),
		req.ReceiptID,
		req.TransactionKind,
		req.TransactionID,
		req.Counterparty,
		req.Vendor,
		req.Date,
		req.Amount,
		req.Score,
		approval.StateAwaitingApproval,
	)
	if err != nil {
		return fmt.Errorf("creating approval: %w", err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, interactionID uuid.UUID) (*approval.Request, error) {
	query := `
		SELECT interaction_id, fingerprint, receipt_id, transaction_kind,
		       transaction_id, counterparty, vendor, date, amount, score,
		       state, created_at
		FROM approvals
		WHERE interaction_id = $1
	`

	var req approval.Request

	var fp, kind, state string

	err := s.db.QueryRowContext(ctx, query, interactionID).Scan(
		&req.InteractionID, &fp, &req.ReceiptID, &kind,
		&req.TransactionID, &req.Counterparty, &req.Vendor, &req.Date,
		&req.Amount, &req.Score, &state, &req.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, fmt.Errorf("getting approval: %w", err)
	}

	req.Fingerprint = receipt.Fingerprint(fp)
	req.TransactionKind = ledger.Kind(kind)
	req.State = approval.State(state)

	return &req, nil
}

// Claim moves an awaiting interaction to an intermediate state. The WHERE
// clause makes concurrent deliveries race safely: exactly one wins.
func (s *Store) Claim(ctx context.Context, interactionID uuid.UUID, to approval.State) (bool, error) {
	query := `
		UPDATE approvals
		SET state = $2, resolved_at = NOW()
		WHERE interaction_id = $1 AND state = $3
	`

	res, err := s.db.ExecContext(ctx, query, interactionID, to, approval.StateAwaitingApproval)
	if err != nil {
		return false, fmt.Errorf("claiming approval: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading claim result: %w", err)
	}

	return affected == 1, nil
}

// Finalize moves a claimed interaction into a terminal state. applied is
// only reachable from approved or edited; a rejected interaction can never
// become applied. Interactions already terminal are left untouched.
func (s *Store) Finalize(ctx context.Context, interactionID uuid.UUID, to approval.State) (bool, error) {
	var (
		query string
		args  []any
	)

	if to == approval.StateApplied {
		query = `
			UPDATE approvals
			SET state = $2, finalized_at = NOW()
			WHERE interaction_id = $1
			  AND state IN ($3, $4)
		`
		args = []any{interactionID, to, approval.StateApproved, approval.StateEdited}
	} else {
		query = `
			UPDATE approvals
			SET state = $2, finalized_at = NOW()
			WHERE interaction_id = $1
			  AND state IN ($3, $4, $5)
		`
		args = []any{interactionID, to, approval.StateApproved, approval.StateEdited, approval.StateRejected}
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("finalizing approval: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading finalize result: %w", err)
	}

	return affected == 1, nil
}
