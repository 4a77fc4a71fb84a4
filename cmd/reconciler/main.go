package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/approval"
	approvalStore "github.com/DJ-RINO/freee-auto-bookkeeping/internal/approval/store"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/audit"
	auditStore "github.com/DJ-RINO/freee-auto-bookkeeping/internal/audit/store"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/backoff"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/config"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/database"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/idempotency"
	idempotencyStore "github.com/DJ-RINO/freee-auto-bookkeeping/internal/idempotency/store"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/ledger"
	matchingStore "github.com/DJ-RINO/freee-auto-bookkeeping/internal/matching/store"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/notify"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/reconcile"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		client  = ledger.NewHTTPClient(cfg.Ledger.BaseURL, cfg.Ledger.Token, cfg.Ledger.CompanyID, cfg.Ledger.Timeout)
		retry   = backoff.New(cfg.Retry.MaxAttempts, cfg.Retry.BaseDelay, cfg.Retry.MaxDelay, ledger.Retryable)
		idem    = idempotency.NewService(idempotencyStore.New(db), cfg.Batch.ReservationTTL)
		links   = matchingStore.New(db)
		auditor = audit.NewLogger(auditStore.New(db))
	)

	var notifier reconcile.Notifier = notify.LogNotifier{}
	if cfg.Notify.SlackWebhookURL != "" {
		notifier = notify.NewSlackNotifier(cfg.Notify.SlackWebhookURL, cfg.Notify.Timeout)
	}

	approvals := approval.NewService(approvalStore.New(db), client, retry, idem, links, auditor)
	runner := reconcile.NewService(cfg, client, idem, links, approvals, notifier, auditor, retry)

	report, err := runner.Run(ctx)
	if err != nil {
		slog.Error("batch run failed", "error", err)
		os.Exit(1)
	}

	if report.Errors > 0 {
		os.Exit(1)
	}
}
