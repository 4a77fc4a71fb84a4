package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/approval"
	approvalStore "github.com/DJ-RINO/freee-auto-bookkeeping/internal/approval/store"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/audit"
	auditStore "github.com/DJ-RINO/freee-auto-bookkeeping/internal/audit/store"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/backoff"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/config"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/database"
	appHttp "github.com/DJ-RINO/freee-auto-bookkeeping/internal/http"
	approvalHandler "github.com/DJ-RINO/freee-auto-bookkeeping/internal/http/approval"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/idempotency"
	idempotencyStore "github.com/DJ-RINO/freee-auto-bookkeeping/internal/idempotency/store"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/ledger"
	matchingStore "github.com/DJ-RINO/freee-auto-bookkeeping/internal/matching/store"
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

	var (
		client  = ledger.NewHTTPClient(cfg.Ledger.BaseURL, cfg.Ledger.Token, cfg.Ledger.CompanyID, cfg.Ledger.Timeout)
		retry   = backoff.New(cfg.Retry.MaxAttempts, cfg.Retry.BaseDelay, cfg.Retry.MaxDelay, ledger.Retryable)
		idem    = idempotency.NewService(idempotencyStore.New(db), cfg.Batch.ReservationTTL)
		links   = matchingStore.New(db)
		auditor = audit.NewLogger(auditStore.New(db))
	)

	approvalService := approval.NewService(approvalStore.New(db), client, retry, idem, links, auditor)

	router := appHttp.New(approvalHandler.NewHandler(approvalService))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	slog.Info("starting server", "addr", srv.Addr)

	if err := srv.ListenAndServe(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
