package reconcile_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/approval"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/audit"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/backoff"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/config"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/idempotency"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/ledger"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/matching"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/receipt"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/reconcile"
)

type memAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (m *memAudit) Append(_ context.Context, e audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)

	return nil
}

type noSleep struct{}

func (noSleep) Sleep(context.Context, time.Duration) error { return nil }

type stubNotifier struct {
	mu   sync.Mutex
	reqs []approval.Request
	err  error
}

func (n *stubNotifier) Notify(_ context.Context, req approval.Request) error {
	if n.err != nil {
		return n.err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.reqs = append(n.reqs, req)

	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Matching = config.Matching{
		AutoThreshold:           85,
		AssistThreshold:         65,
		TieEpsilon:              5,
		DayTolerance:            3,
		AmountTolerance:         100,
		AmountRelativeTolerance: 0.05,
		MaxCandidates:           3,
		WeightAmount:            0.4,
		WeightDate:              0.25,
		WeightVendor:            0.3,
		WeightAffinity:          0.05,
	}
	cfg.Batch.Workers = 1
	cfg.Batch.Window = 90 * 24 * time.Hour
	cfg.Batch.ReservationTTL = time.Hour

	return cfg
}

type fixture struct {
	client   *ledger.MockClient
	idemRepo *idempotency.MockRepository
	links    *matching.MockLinkRepository
	apprRepo *approval.MockRepository
	notifier *stubNotifier
	auditLog *memAudit
	svc      *reconcile.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	cfg := testConfig()
	client := ledger.NewMockClient(ctrl)
	idemRepo := idempotency.NewMockRepository(ctrl)
	links := matching.NewMockLinkRepository(ctrl)
	apprRepo := approval.NewMockRepository(ctrl)
	notifier := &stubNotifier{}
	auditLog := &memAudit{}
	auditor := audit.NewLogger(auditLog)
	retry := backoff.New(5, time.Second, 16*time.Second, ledger.Retryable).WithSleeper(noSleep{})
	idem := idempotency.NewService(idemRepo, cfg.Batch.ReservationTTL)
	approvals := approval.NewService(apprRepo, client, retry, idem, links, auditor)

	svc := reconcile.NewService(cfg, client, idem, links, approvals, notifier, auditor, retry).
		WithClock(func() time.Time { return time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC) })

	return &fixture{
		client:   client,
		idemRepo: idemRepo,
		links:    links,
		apprRepo: apprRepo,
		notifier: notifier,
		auditLog: auditLog,
		svc:      svc,
	}
}

func awsReceipt() receipt.Record {
	return receipt.Record{
		ID:         "rcpt-1",
		Vendor:     "AWS",
		Date:       time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Amount:     -5500,
		FileDigest: "d1f3",
	}
}

func awsTxn() ledger.Transaction {
	return ledger.Transaction{
		Kind:         ledger.KindWalletEntry,
		ExternalID:   "txn-1",
		Date:         time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Amount:       -5500,
		Counterparty: "AWS",
	}
}

func TestRunAutoAppliesExactMatch(t *testing.T) {
	f := newFixture(t)

	rec := awsReceipt()
	rec.Vendor = receipt.NormalizeVendor("Amazon Web Services")
	fp := receipt.NewFingerprint(rec)

	f.client.EXPECT().ListPendingReceipts(gomock.Any()).Return([]receipt.Record{rec}, nil)
	f.client.EXPECT().ListTransactions(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]ledger.Transaction{awsTxn()}, nil)
	f.links.EXPECT().ListAccepted(gomock.Any()).Return(nil, nil)

	f.idemRepo.EXPECT().Reserve(gomock.Any(), fp, time.Hour).Return(true, idempotency.Outcome(""), nil)
	f.idemRepo.EXPECT().AppendDigest(gomock.Any(), "d1f3", fp).Return(nil)
	f.idemRepo.EXPECT().FingerprintsForDigest(gomock.Any(), "d1f3").
		Return([]receipt.Fingerprint{fp}, nil)

	f.client.EXPECT().
		AttachReceipt(gomock.Any(), ledger.KindWalletEntry, "txn-1", "rcpt-1").
		Return(nil).
		Times(1)
	f.idemRepo.EXPECT().SetOutcome(gomock.Any(), fp, idempotency.OutcomeApplied).Return(nil)
	f.links.EXPECT().RecordAccepted(gomock.Any(), "AWS", rec.Vendor, gomock.Any()).Return(nil)

	report, err := f.svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.AutoApplied)
	assert.Zero(t, report.SentForApproval)
	assert.Zero(t, report.Manual)
	assert.Zero(t, report.Errors)
	assert.Zero(t, report.DuplicateFlagged)
	assert.Empty(t, f.notifier.reqs)
}

func TestRunNoCandidateGoesManual(t *testing.T) {
	f := newFixture(t)

	rec := awsReceipt()
	rec.FileDigest = ""
	fp := receipt.NewFingerprint(rec)

	f.client.EXPECT().ListPendingReceipts(gomock.Any()).Return([]receipt.Record{rec}, nil)
	f.client.EXPECT().ListTransactions(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
	f.links.EXPECT().ListAccepted(gomock.Any()).Return(nil, nil)

	f.idemRepo.EXPECT().Reserve(gomock.Any(), fp, time.Hour).Return(true, idempotency.Outcome(""), nil)
	f.idemRepo.EXPECT().SetOutcome(gomock.Any(), fp, idempotency.OutcomeManual).Return(nil)

	// No AttachReceipt expectation: a MANUAL decision must never write to
	// the accounting service.
	report, err := f.svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Manual)
	assert.Zero(t, report.AutoApplied)
	assert.Zero(t, report.Errors)
}

func TestRunMidConfidenceSentForApproval(t *testing.T) {
	f := newFixture(t)

	rec := awsReceipt()
	rec.FileDigest = ""
	fp := receipt.NewFingerprint(rec)

	// Same amount and date, weakly similar counterparty. Lands between the
	// assist and auto thresholds.
	txn := awsTxn()
	txn.Counterparty = "ABC"

	f.client.EXPECT().ListPendingReceipts(gomock.Any()).Return([]receipt.Record{rec}, nil)
	f.client.EXPECT().ListTransactions(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]ledger.Transaction{txn}, nil)
	f.links.EXPECT().ListAccepted(gomock.Any()).Return(nil, nil)

	f.idemRepo.EXPECT().Reserve(gomock.Any(), fp, time.Hour).Return(true, idempotency.Outcome(""), nil)

	var created approval.Request
	f.apprRepo.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req approval.Request) error {
			created = req
			return nil
		})
	f.idemRepo.EXPECT().SetOutcome(gomock.Any(), fp, idempotency.OutcomePending).Return(nil)

	report, err := f.svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.SentForApproval)
	assert.Zero(t, report.AutoApplied)
	assert.Zero(t, report.Errors)

	require.Len(t, f.notifier.reqs, 1)
	assert.Equal(t, created.InteractionID, f.notifier.reqs[0].InteractionID)
	assert.Equal(t, approval.StateAwaitingApproval, created.State)
	assert.Equal(t, fp, created.Fingerprint)
	assert.Equal(t, "txn-1", created.TransactionID)
	assert.Equal(t, "ABC", created.Counterparty)
	assert.GreaterOrEqual(t, created.Score, 65.0)
	assert.Less(t, created.Score, 85.0)
}

func TestRunAlreadyProcessedShortCircuits(t *testing.T) {
	f := newFixture(t)

	rec := awsReceipt()
	fp := receipt.NewFingerprint(rec)

	f.client.EXPECT().ListPendingReceipts(gomock.Any()).Return([]receipt.Record{rec}, nil)
	f.client.EXPECT().ListTransactions(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]ledger.Transaction{awsTxn()}, nil)
	f.links.EXPECT().ListAccepted(gomock.Any()).Return(nil, nil)

	f.idemRepo.EXPECT().Reserve(gomock.Any(), fp, time.Hour).
		Return(false, idempotency.OutcomeApplied, nil)

	report, err := f.svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Skipped)
	assert.Zero(t, report.AutoApplied)
	assert.Zero(t, report.Errors)
}

func TestRunFlagsDuplicateFile(t *testing.T) {
	f := newFixture(t)

	rec := awsReceipt()
	fp := receipt.NewFingerprint(rec)

	earlier := rec
	earlier.Vendor = "AMAZON"
	earlierFp := receipt.NewFingerprint(earlier)

	f.client.EXPECT().ListPendingReceipts(gomock.Any()).Return([]receipt.Record{rec}, nil)
	f.client.EXPECT().ListTransactions(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
	f.links.EXPECT().ListAccepted(gomock.Any()).Return(nil, nil)

	f.idemRepo.EXPECT().Reserve(gomock.Any(), fp, time.Hour).Return(true, idempotency.Outcome(""), nil)
	f.idemRepo.EXPECT().AppendDigest(gomock.Any(), "d1f3", fp).Return(nil)
	f.idemRepo.EXPECT().FingerprintsForDigest(gomock.Any(), "d1f3").
		Return([]receipt.Fingerprint{earlierFp, fp}, nil)
	f.idemRepo.EXPECT().SetOutcome(gomock.Any(), fp, idempotency.OutcomeManual).Return(nil)

	report, err := f.svc.Run(context.Background())
	require.NoError(t, err)

	// Flagged and still processed. Duplicate detection never drops a receipt.
	assert.Equal(t, 1, report.DuplicateFlagged)
	assert.Equal(t, 1, report.Manual)
}

func TestRunTransientExhaustionLeavesReservation(t *testing.T) {
	f := newFixture(t)

	rec := awsReceipt()
	rec.FileDigest = ""
	fp := receipt.NewFingerprint(rec)

	f.client.EXPECT().ListPendingReceipts(gomock.Any()).Return([]receipt.Record{rec}, nil)
	f.client.EXPECT().ListTransactions(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]ledger.Transaction{awsTxn()}, nil)
	f.links.EXPECT().ListAccepted(gomock.Any()).Return(nil, nil)

	f.idemRepo.EXPECT().Reserve(gomock.Any(), fp, time.Hour).Return(true, idempotency.Outcome(""), nil)
	f.client.EXPECT().
		AttachReceipt(gomock.Any(), ledger.KindWalletEntry, "txn-1", "rcpt-1").
		Return(&ledger.StatusError{Code: 503}).
		Times(5)

	// No SetOutcome expectation: the reservation stays claimable so a later
	// run picks the receipt up again.
	report, err := f.svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Errors)
	assert.Zero(t, report.AutoApplied)
}

func TestRunEmptyInbox(t *testing.T) {
	f := newFixture(t)

	f.client.EXPECT().ListPendingReceipts(gomock.Any()).Return(nil, nil)

	report, err := f.svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, reconcile.Report{}, report)
}

func TestRunProcessesWholeBatch(t *testing.T) {
	f := newFixture(t)

	recs := make([]receipt.Record, 8)
	for i := range recs {
		recs[i] = awsReceipt()
		recs[i].ID = "rcpt-" + string(rune('a'+i))
		recs[i].FileDigest = ""
	}

	f.client.EXPECT().ListPendingReceipts(gomock.Any()).Return(recs, nil)
	f.client.EXPECT().ListTransactions(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
	f.links.EXPECT().ListAccepted(gomock.Any()).Return(nil, nil)

	f.idemRepo.EXPECT().Reserve(gomock.Any(), gomock.Any(), time.Hour).
		Return(true, idempotency.Outcome(""), nil).
		Times(8)
	f.idemRepo.EXPECT().SetOutcome(gomock.Any(), gomock.Any(), idempotency.OutcomeManual).
		Return(nil).
		Times(8)

	report, err := f.svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, report.Manual)
}
