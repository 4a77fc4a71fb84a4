// Package reconcile runs one batch pass of the receipt pipeline: generate
// candidates, score, classify, and dispatch each receipt to its disposition.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/approval"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/audit"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/backoff"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/config"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/idempotency"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/ledger"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/matching"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/receipt"
)

// Notifier delivers an approval request to a human. The notification channel
// (Slack, email) is an external collaborator behind this interface.
type Notifier interface {
	Notify(ctx context.Context, req approval.Request) error
}

// Report is the outcome summary of one batch run.
type Report struct {
	AutoApplied      int
	SentForApproval  int
	Manual           int
	Errors           int
	DuplicateFlagged int
	Skipped          int
}

type Service struct {
	cfg       *config.Config
	client    ledger.Client
	idem      *idempotency.Service
	links     matching.LinkRepository
	approvals *approval.Service
	notifier  Notifier
	auditor   *audit.Logger
	retry     *backoff.Policy
	now       func() time.Time
}

func NewService(
	cfg *config.Config,
	client ledger.Client,
	idem *idempotency.Service,
	links matching.LinkRepository,
	approvals *approval.Service,
	notifier Notifier,
	auditor *audit.Logger,
	retry *backoff.Policy,
) *Service {
	return &Service{
		cfg:       cfg,
		client:    client,
		idem:      idem,
		links:     links,
		approvals: approvals,
		notifier:  notifier,
		auditor:   auditor,
		retry:     retry,
		now:       time.Now,
	}
}

// WithClock overrides the time source. Used in tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Run processes every pending receipt once. Receipts are independent of one
// another, so they are fanned out across a bounded worker pool; the
// idempotency store is the only synchronization point between workers.
func (s *Service) Run(ctx context.Context) (Report, error) {
	receipts, err := s.client.ListPendingReceipts(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("listing pending receipts: %w", err)
	}

	if len(receipts) == 0 {
		return Report{}, nil
	}

	to := s.now()
	from := to.Add(-s.cfg.Batch.Window)

	pool, err := s.client.ListTransactions(ctx, from, to)
	if err != nil {
		return Report{}, fmt.Errorf("listing transactions: %w", err)
	}

	model, err := matching.BuildAffinityModel(ctx, s.links)
	if err != nil {
		// The learned-link store backs scoring; without it the run cannot
		// produce trustworthy decisions.
		return Report{}, fmt.Errorf("building affinity model: %w", err)
	}

	generator := matching.NewGenerator(s.cfg.Matching)
	scorer := matching.NewScorer(s.cfg.Matching, model)

	workers := s.cfg.Batch.Workers
	if workers < 1 {
		workers = 1
	}

	var (
		mu     sync.Mutex
		report Report
		wg     sync.WaitGroup
	)

	jobs := make(chan receipt.Record)

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for rec := range jobs {
				outcome := s.process(ctx, rec, pool, generator, scorer)

				mu.Lock()
				outcome.addTo(&report)
				mu.Unlock()
			}
		}()
	}

	for _, rec := range receipts {
		jobs <- rec
	}

	close(jobs)
	wg.Wait()

	slog.Info("batch run finished",
		"auto_applied", report.AutoApplied,
		"sent_for_approval", report.SentForApproval,
		"manual", report.Manual,
		"errors", report.Errors,
		"duplicate_flagged", report.DuplicateFlagged,
		"skipped", report.Skipped,
	)

	return report, nil
}

type outcome struct {
	auto      bool
	assist    bool
	manual    bool
	failed    bool
	duplicate bool
	skipped   bool
}

func (o outcome) addTo(r *Report) {
	if o.auto {
		r.AutoApplied++
	}

	if o.assist {
		r.SentForApproval++
	}

	if o.manual {
		r.Manual++
	}

	if o.failed {
		r.Errors++
	}

	if o.duplicate {
		r.DuplicateFlagged++
	}

	if o.skipped {
		r.Skipped++
	}
}

func (s *Service) process(
	ctx context.Context,
	rec receipt.Record,
	pool []ledger.Transaction,
	generator *matching.Generator,
	scorer *matching.Scorer,
) outcome {
	fp := receipt.NewFingerprint(rec)

	status, err := s.idem.CheckAndReserve(ctx, fp)
	if err != nil {
		s.auditor.Error(ctx, fp, "fingerprint check failed", map[string]any{"error": err.Error()})
		return outcome{failed: true}
	}

	switch status.State {
	case idempotency.StateAlreadyProcessed:
		s.auditor.Debug(ctx, fp, "already processed", map[string]any{"outcome": string(status.Outcome)})
		return outcome{skipped: true}
	case idempotency.StateInFlight:
		s.auditor.Debug(ctx, fp, "reservation held elsewhere", nil)
		return outcome{skipped: true}
	}

	var out outcome

	if rec.FileDigest != "" {
		dup, err := s.idem.RecordFileDigest(ctx, rec.FileDigest, fp)
		if err != nil {
			s.auditor.Error(ctx, fp, "digest history write failed", map[string]any{"error": err.Error()})
			return outcome{failed: true}
		}

		if dup {
			// Detection only. The same physical document under different
			// metadata is flagged for a human; nothing is deleted here.
			out.duplicate = true

			s.auditor.Info(ctx, fp, "", "possible duplicate file", map[string]any{
				"file_digest": rec.FileDigest,
				"receipt_id":  rec.ID,
			})
		}
	}

	candidates := scorer.Score(rec, generator.Generate(rec, pool))
	decision := matching.Classify(candidates, s.cfg.Matching, s.now())

	s.auditor.Info(ctx, fp, string(decision.Disposition), "decision", map[string]any{
		"receipt_id": rec.ID,
		"score":      decision.Score,
		"candidates": len(candidates),
		"downgraded": decision.Downgraded,
	})

	switch decision.Disposition {
	case matching.DispositionAuto:
		s.applyAuto(ctx, rec, fp, decision, &out)
	case matching.DispositionAssist:
		s.requestApproval(ctx, rec, fp, decision, &out)
	default:
		if err := s.idem.Complete(ctx, fp, idempotency.OutcomeManual); err != nil {
			s.auditor.Error(ctx, fp, "manual outcome not recorded", map[string]any{"error": err.Error()})
			out.failed = true

			return out
		}

		out.manual = true
	}

	return out
}

func (s *Service) applyAuto(ctx context.Context, rec receipt.Record, fp receipt.Fingerprint, decision matching.Decision, out *outcome) {
	best := decision.Best

	err := s.retry.Do(ctx, func(ctx context.Context) error {
		return s.client.AttachReceipt(ctx, best.Transaction.Kind, best.Transaction.ExternalID, rec.ID)
	})
	if err != nil {
		out.failed = true

		s.auditor.Error(ctx, fp, "auto apply failed", map[string]any{
			"transaction_id": best.Transaction.ExternalID,
			"error":          err.Error(),
		})

		// Transient exhaustion and credential failures leave the
		// reservation in place so the receipt is retried by a later run.
		// Anything else is recorded as a terminal error.
		var exhausted *backoff.ExhaustedError
		if errors.As(err, &exhausted) || errors.Is(err, ledger.ErrUnauthorized) {
			return
		}

		if cerr := s.idem.Complete(ctx, fp, idempotency.OutcomeError); cerr != nil {
			s.auditor.Error(ctx, fp, "error outcome not recorded", map[string]any{"error": cerr.Error()})
		}

		return
	}

	if err := s.idem.Complete(ctx, fp, idempotency.OutcomeApplied); err != nil {
		// The accounting service holds a link this system failed to record.
		out.failed = true

		s.auditor.Error(ctx, fp, "reconciliation required: remote apply succeeded but local record failed", map[string]any{
			"transaction_id": best.Transaction.ExternalID,
			"error":          err.Error(),
		})

		return
	}

	if best.Transaction.Counterparty != "" && rec.Vendor != "" {
		if err := s.links.RecordAccepted(ctx, best.Transaction.Counterparty, rec.Vendor, decision.Score/100); err != nil {
			s.auditor.Debug(ctx, fp, "vendor link not recorded", map[string]any{"error": err.Error()})
		}
	}

	out.auto = true

	s.auditor.Info(ctx, fp, string(matching.DispositionAuto), "receipt linked", map[string]any{
		"receipt_id":     rec.ID,
		"transaction_id": best.Transaction.ExternalID,
		"score":          decision.Score,
	})
}

func (s *Service) requestApproval(ctx context.Context, rec receipt.Record, fp receipt.Fingerprint, decision matching.Decision, out *outcome) {
	best := decision.Best

	req := approval.Request{
		InteractionID:   uuid.New(),
		Fingerprint:     fp,
		ReceiptID:       rec.ID,
		TransactionKind: best.Transaction.Kind,
		TransactionID:   best.Transaction.ExternalID,
		Counterparty:    best.Transaction.Counterparty,
		Vendor:          rec.Vendor,
		Date:            rec.Date,
		Amount:          rec.Amount,
		Score:           decision.Score,
		CreatedAt:       s.now(),
	}

	if err := s.approvals.Create(ctx, req); err != nil {
		out.failed = true

		s.auditor.Error(ctx, fp, "approval request not created", map[string]any{"error": err.Error()})

		return
	}

	// Notify before parking the fingerprint as pending. A failed
	// notification leaves the reservation reclaimable, so a later run
	// raises a fresh interaction instead of waiting on one nobody saw.
	if err := s.notifier.Notify(ctx, req); err != nil {
		out.failed = true

		s.auditor.Error(ctx, fp, "approval notification failed", map[string]any{
			"interaction_id": req.InteractionID.String(),
			"error":          err.Error(),
		})

		return
	}

	if err := s.idem.MarkPending(ctx, fp); err != nil {
		out.failed = true

		s.auditor.Error(ctx, fp, "pending outcome not recorded", map[string]any{"error": err.Error()})

		return
	}

	out.assist = true
}
