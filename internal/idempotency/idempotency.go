// Package idempotency gates receipt processing so each fingerprint is
// applied at most once, no matter how often a batch is retried.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/receipt"
)

// Outcome is the recorded result of processing one fingerprint.
type Outcome string

const (
	// OutcomeReserved marks a fingerprint a run is currently working on.
	// Not terminal: an abandoned reservation becomes reprocessable once its
	// TTL expires.
	OutcomeReserved Outcome = "reserved"
	// OutcomePending marks a fingerprint waiting on a human approval.
	OutcomePending Outcome = "pending"

	OutcomeApplied  Outcome = "applied"
	OutcomeRejected Outcome = "rejected"
	OutcomeManual   Outcome = "manual"
	OutcomeError    Outcome = "error"
)

// Terminal reports whether the outcome ends the fingerprint's lifecycle.
func (o Outcome) Terminal() bool {
	switch o {
	case OutcomeApplied, OutcomeRejected, OutcomeManual, OutcomeError:
		return true
	}

	return false
}

// State is the answer CheckAndReserve gives a caller.
type State int

const (
	// StateFresh means the caller now holds the reservation and must proceed.
	StateFresh State = iota
	// StateInFlight means another caller holds a live reservation; skip.
	StateInFlight
	// StateAlreadyProcessed means a terminal outcome exists; short-circuit.
	StateAlreadyProcessed
)

type Status struct {
	State   State
	Outcome Outcome // populated for StateInFlight and StateAlreadyProcessed
}

//go:generate mockgen -source=idempotency.go -destination=repository_mock.go -package=idempotency
type Repository interface {
	// Reserve atomically claims the fingerprint. It succeeds when no row
	// exists or when an existing reservation is older than staleAfter.
	// When it fails, existing reports the outcome currently on record.
	Reserve(ctx context.Context, fp receipt.Fingerprint, staleAfter time.Duration) (claimed bool, existing Outcome, err error)

	// Reclaim atomically takes back a fingerprint that left the batch run:
	// a pending one immediately, a reserved one only once it is older than
	// staleAfter. When it fails, existing reports the outcome on record.
	Reclaim(ctx context.Context, fp receipt.Fingerprint, staleAfter time.Duration) (claimed bool, existing Outcome, err error)

	// SetOutcome moves a live (reserved or pending) fingerprint to outcome.
	// It fails once a terminal outcome is on record.
	SetOutcome(ctx context.Context, fp receipt.Fingerprint, outcome Outcome) error

	// AppendDigest appends one (file digest, fingerprint) observation.
	AppendDigest(ctx context.Context, digest string, fp receipt.Fingerprint) error

	// FingerprintsForDigest returns the distinct fingerprints a file digest
	// has produced, in first-seen order.
	FingerprintsForDigest(ctx context.Context, digest string) ([]receipt.Fingerprint, error)
}

// Service is the single synchronization point of the pipeline: all receipt
// state mutation funnels through it.
type Service struct {
	repo           Repository
	reservationTTL time.Duration
}

func NewService(repo Repository, reservationTTL time.Duration) *Service {
	return &Service{repo: repo, reservationTTL: reservationTTL}
}

// CheckAndReserve decides whether the caller may process the fingerprint.
// Safe under concurrent invocation: at most one caller gets StateFresh for a
// given fingerprint at a time.
func (s *Service) CheckAndReserve(ctx context.Context, fp receipt.Fingerprint) (Status, error) {
	claimed, existing, err := s.repo.Reserve(ctx, fp, s.reservationTTL)
	if err != nil {
		return Status{}, fmt.Errorf("reserving fingerprint: %w", err)
	}

	if claimed {
		return Status{State: StateFresh, Outcome: OutcomeReserved}, nil
	}

	if existing.Terminal() {
		return Status{State: StateAlreadyProcessed, Outcome: existing}, nil
	}

	return Status{State: StateInFlight, Outcome: existing}, nil
}

// Reclaim takes a pending fingerprint back for resolution. Exactly one
// resolver wins it: a second interaction raised for the same receipt loses
// the claim and sees the outcome already on record. A reserved fingerprint
// (an earlier resolver died mid-apply) is only handed out again once its
// reservation TTL has passed.
func (s *Service) Reclaim(ctx context.Context, fp receipt.Fingerprint) (Status, error) {
	claimed, existing, err := s.repo.Reclaim(ctx, fp, s.reservationTTL)
	if err != nil {
		return Status{}, fmt.Errorf("reclaiming fingerprint: %w", err)
	}

	if claimed {
		return Status{State: StateFresh, Outcome: OutcomeReserved}, nil
	}

	if existing.Terminal() {
		return Status{State: StateAlreadyProcessed, Outcome: existing}, nil
	}

	return Status{State: StateInFlight, Outcome: existing}, nil
}

// Complete records the terminal outcome for a fingerprint the caller
// reserved earlier.
func (s *Service) Complete(ctx context.Context, fp receipt.Fingerprint, outcome Outcome) error {
	if !outcome.Terminal() {
		return fmt.Errorf("outcome %q is not terminal", outcome)
	}

	if err := s.repo.SetOutcome(ctx, fp, outcome); err != nil {
		return fmt.Errorf("recording outcome %q: %w", outcome, err)
	}

	return nil
}

// MarkPending parks a reserved fingerprint while a human approval is
// outstanding.
func (s *Service) MarkPending(ctx context.Context, fp receipt.Fingerprint) error {
	if err := s.repo.SetOutcome(ctx, fp, OutcomePending); err != nil {
		return fmt.Errorf("marking pending: %w", err)
	}

	return nil
}

// RecordFileDigest appends the digest observation and reports whether the
// digest now maps to more than one distinct fingerprint. A true result is a
// possible duplicate submission; the caller logs it and nothing more.
// Deletion of duplicates is deliberately out of scope.
func (s *Service) RecordFileDigest(ctx context.Context, digest string, fp receipt.Fingerprint) (duplicate bool, err error) {
	if err := s.repo.AppendDigest(ctx, digest, fp); err != nil {
		return false, fmt.Errorf("recording file digest: %w", err)
	}

	fps, err := s.repo.FingerprintsForDigest(ctx, digest)
	if err != nil {
		return false, fmt.Errorf("listing digest history: %w", err)
	}

	distinct := make(map[receipt.Fingerprint]struct{}, len(fps))
	for _, f := range fps {
		distinct[f] = struct{}{}
	}

	return len(distinct) >= 2, nil
}
