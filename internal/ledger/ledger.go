package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/receipt"
)

// Kind distinguishes the two transaction shapes the accounting service
// exposes: raw bank feed entries awaiting reconciliation and deals that were
// already booked.
type Kind string

const (
	KindWalletEntry Kind = "wallet_entry"
	KindBookedDeal  Kind = "booked_deal"
)

// Transaction is a read-only view of an accounting transaction. It is owned
// by the accounting service; this system only matches against it.
type Transaction struct {
	Kind         Kind
	ExternalID   string
	Date         time.Time
	Amount       int64 // minor units, signed
	Counterparty string
}

//go:generate mockgen -source=ledger.go -destination=client_mock.go -package=ledger
type Client interface {
	// ListTransactions returns both unreconciled wallet entries and booked
	// deals whose date falls inside [from, to].
	ListTransactions(ctx context.Context, from, to time.Time) ([]Transaction, error)

	// ListPendingReceipts returns uploaded receipts that are not yet linked
	// to any transaction.
	ListPendingReceipts(ctx context.Context) ([]receipt.Record, error)

	// AttachReceipt links a receipt to a transaction. This is the only write
	// the system performs against the accounting service.
	AttachReceipt(ctx context.Context, kind Kind, transactionID, receiptID string) error
}

// ErrUnauthorized marks an expired or revoked credential. Token refresh is
// owned by an external collaborator; callers surface this and move on.
var ErrUnauthorized = errors.New("ledger: credential rejected")

// StatusError is a non-2xx response from the accounting service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ledger: unexpected status %d: %s", e.Code, e.Body)
}

// Retryable reports whether err is worth retrying: rate limiting and
// server-side failures qualify, every other HTTP status does not.
func Retryable(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}

	return se.Code == 429 || se.Code >= 500
}
