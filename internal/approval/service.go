package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/audit"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/backoff"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/idempotency"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/ledger"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/matching"
)

// ErrUnknownInteraction marks a delivery for an interaction that was never
// created (or already expired out of the store).
var ErrUnknownInteraction = errors.New("approval: unknown interaction")

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=approval
type Repository interface {
	Create(ctx context.Context, req Request) error
	Get(ctx context.Context, interactionID uuid.UUID) (*Request, error)

	// Claim conditionally moves the interaction out of awaiting_approval.
	// Exactly one concurrent caller succeeds; the rest get claimed=false.
	Claim(ctx context.Context, interactionID uuid.UUID, to State) (claimed bool, err error)

	// Finalize conditionally moves a claimed interaction into a terminal
	// state: applied is reachable only from approved or edited, discarded
	// from any claimed state. It reports finalized=false if a terminal
	// state was already set.
	Finalize(ctx context.Context, interactionID uuid.UUID, to State) (finalized bool, err error)
}

// Resolution reports what Resolve did with a delivery.
type Resolution string

const (
	ResolutionApplied   Resolution = "applied"
	ResolutionDiscarded Resolution = "discarded"
	ResolutionDuplicate Resolution = "duplicate"
)

type Service struct {
	repo    Repository
	client  ledger.Client
	retry   *backoff.Policy
	idem    *idempotency.Service
	links   matching.LinkRepository
	auditor *audit.Logger
}

func NewService(
	repo Repository,
	client ledger.Client,
	retry *backoff.Policy,
	idem *idempotency.Service,
	links matching.LinkRepository,
	auditor *audit.Logger,
) *Service {
	return &Service{
		repo:    repo,
		client:  client,
		retry:   retry,
		idem:    idem,
		links:   links,
		auditor: auditor,
	}
}

// Create registers a new awaiting interaction for an ASSIST decision.
func (s *Service) Create(ctx context.Context, req Request) error {
	req.State = StateAwaitingApproval

	if err := s.repo.Create(ctx, req); err != nil {
		return fmt.Errorf("creating approval request: %w", err)
	}

	s.auditor.Info(ctx, req.Fingerprint, string(matching.DispositionAssist),
		"approval requested", map[string]any{
			"interaction_id": req.InteractionID.String(),
			"transaction_id": req.TransactionID,
			"score":          req.Score,
		})

	return nil
}

// Resolve consumes one approval delivery. Concurrent or repeated deliveries
// of the same interaction are safe: the first terminal transition wins and
// every later delivery is a no-op.
func (s *Service) Resolve(ctx context.Context, ev Event) (Resolution, error) {
	req, err := s.repo.Get(ctx, ev.InteractionID)
	if err != nil {
		return "", fmt.Errorf("loading interaction: %w", err)
	}

	if req == nil {
		return "", ErrUnknownInteraction
	}

	if req.State.Terminal() {
		s.auditor.Debug(ctx, req.Fingerprint, "duplicate delivery ignored", map[string]any{
			"interaction_id": ev.InteractionID.String(),
			"state":          string(req.State),
		})

		return ResolutionDuplicate, nil
	}

	switch ev.Action {
	case ActionReject:
		return s.reject(ctx, req)
	case ActionApprove, ActionEdit:
		return s.apply(ctx, req, ev)
	default:
		// ParseEvent fails closed, so this is unreachable from the wire;
		// reject anyway for direct callers.
		return s.reject(ctx, req)
	}
}

func (s *Service) reject(ctx context.Context, req *Request) (Resolution, error) {
	claimed, err := s.repo.Claim(ctx, req.InteractionID, StateRejected)
	if err != nil {
		return "", fmt.Errorf("claiming interaction: %w", err)
	}

	if !claimed && req.State != StateRejected {
		// Lost to a concurrent delivery, or the interaction was claimed for
		// a different resolution; only that resolution's own redelivery may
		// resume it.
		return ResolutionDuplicate, nil
	}

	res, err := s.claimFingerprint(ctx, req)
	if err != nil || res != "" {
		return res, err
	}

	if _, err := s.repo.Finalize(ctx, req.InteractionID, StateDiscarded); err != nil {
		return "", fmt.Errorf("discarding interaction: %w", err)
	}

	if err := s.idem.Complete(ctx, req.Fingerprint, idempotency.OutcomeRejected); err != nil {
		return "", fmt.Errorf("recording rejection: %w", err)
	}

	s.auditor.Info(ctx, req.Fingerprint, "", "approval rejected", map[string]any{
		"interaction_id": req.InteractionID.String(),
	})

	return ResolutionDiscarded, nil
}

// claimFingerprint takes the receipt's fingerprint for this interaction.
// The interaction claim dedupes deliveries of one interaction; the
// fingerprint claim dedupes interactions, since a notification failure can
// leave two live interactions on one receipt. A non-empty Resolution means
// the receipt was already decided elsewhere and the caller must stop.
func (s *Service) claimFingerprint(ctx context.Context, req *Request) (Resolution, error) {
	status, err := s.idem.Reclaim(ctx, req.Fingerprint)
	if err != nil {
		return "", fmt.Errorf("reclaiming fingerprint: %w", err)
	}

	switch status.State {
	case idempotency.StateAlreadyProcessed:
		// Another interaction resolved this receipt first. This one can
		// never act, so it ends discarded.
		if _, err := s.repo.Finalize(ctx, req.InteractionID, StateDiscarded); err != nil {
			return "", fmt.Errorf("discarding superseded interaction: %w", err)
		}

		s.auditor.Info(ctx, req.Fingerprint, "", "superseded interaction discarded", map[string]any{
			"interaction_id": req.InteractionID.String(),
			"outcome":        string(status.Outcome),
		})

		return ResolutionDuplicate, nil
	case idempotency.StateInFlight:
		// A live reservation belongs to another resolver. Erroring keeps
		// the delivery redeliverable; the reservation TTL bounds the wait.
		return "", fmt.Errorf("fingerprint %s is being resolved elsewhere", req.Fingerprint)
	}

	return "", nil
}

func (s *Service) apply(ctx context.Context, req *Request, ev Event) (Resolution, error) {
	to := StateApproved
	if ev.Action == ActionEdit {
		to = StateEdited
	}

	// Claiming out of awaiting_approval is the idempotency gate for
	// deliveries; only the first one proceeds to the remote call. A claimed
	// but unapplied interaction (earlier apply attempt failed) is resumed
	// only by a redelivery of its own action.
	claimed, err := s.repo.Claim(ctx, req.InteractionID, to)
	if err != nil {
		return "", fmt.Errorf("claiming interaction: %w", err)
	}

	if !claimed && req.State != to {
		return ResolutionDuplicate, nil
	}

	if res, err := s.claimFingerprint(ctx, req); err != nil || res != "" {
		return res, err
	}

	// Edited overrides supersede the original candidate before application.
	vendor := req.Vendor
	if ev.Vendor != nil {
		vendor = *ev.Vendor
	}

	err = s.retry.Do(ctx, func(ctx context.Context) error {
		return s.client.AttachReceipt(ctx, req.TransactionKind, req.TransactionID, req.ReceiptID)
	})
	if err != nil {
		s.auditor.Error(ctx, req.Fingerprint, "approval apply failed", map[string]any{
			"interaction_id": req.InteractionID.String(),
			"error":          err.Error(),
		})

		return "", fmt.Errorf("attaching receipt: %w", err)
	}

	// The remote apply succeeded. Everything after this point must be
	// recorded; a divergence here needs human reconciliation.
	if _, err := s.repo.Finalize(ctx, req.InteractionID, StateApplied); err != nil {
		s.reconciliationRequired(ctx, req, err)
		return "", fmt.Errorf("finalizing interaction: %w", err)
	}

	if err := s.idem.Complete(ctx, req.Fingerprint, idempotency.OutcomeApplied); err != nil {
		s.reconciliationRequired(ctx, req, err)
		return "", fmt.Errorf("recording apply: %w", err)
	}

	if vendor != "" && req.Counterparty != "" {
		score := req.Score / 100
		if err := s.links.RecordAccepted(ctx, req.Counterparty, vendor, score); err != nil {
			// Learning is an optimization; a failed write never undoes an
			// otherwise clean apply.
			s.auditor.Debug(ctx, req.Fingerprint, "vendor link not recorded", map[string]any{
				"error": err.Error(),
			})
		}
	}

	// Edited amount and date never reach the ledger call, which links the
	// receipt by id alone; the audit trail keeps what the human corrected.
	details := map[string]any{
		"interaction_id": req.InteractionID.String(),
		"transaction_id": req.TransactionID,
		"edited":         ev.Action == ActionEdit,
	}

	if ev.Vendor != nil {
		details["edited_vendor"] = *ev.Vendor
	}

	if ev.Amount != nil {
		details["edited_amount"] = *ev.Amount
	}

	if ev.Date != nil {
		details["edited_date"] = ev.Date.Format(time.DateOnly)
	}

	s.auditor.Info(ctx, req.Fingerprint, "", "approval applied", details)

	return ResolutionApplied, nil
}

// reconciliationRequired records that the accounting service holds a link
// this system failed to register locally.
func (s *Service) reconciliationRequired(ctx context.Context, req *Request, cause error) {
	s.auditor.Error(ctx, req.Fingerprint, "reconciliation required: remote apply succeeded but local record failed", map[string]any{
		"interaction_id": req.InteractionID.String(),
		"transaction_id": req.TransactionID,
		"error":          cause.Error(),
	})
}
