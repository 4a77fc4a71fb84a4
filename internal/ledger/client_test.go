package ledger_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/ledger"
)

func TestHTTPClient_ListTransactions(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "77", r.URL.Query().Get("company_id"))
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		switch r.URL.Path {
		case "/wallet_txns":
			w.Write([]byte(`{"wallet_txns": [
				{"id": 101, "date": "2024-03-01", "amount": -5500, "description": "AWS"},
				{"id": 102, "date": "not-a-date", "amount": -100, "description": "broken"}
			]}`))
		case "/deals":
			w.Write([]byte(`{"deals": [
				{"id": 201, "issue_date": "2024-03-02", "partner_name": "ヤマト運輸", "details": [{"amount": -1200}]}
			]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	c := ledger.NewHTTPClient(ts.URL, "secret", 77, 5*time.Second)

	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	txs, err := c.ListTransactions(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, txs, 2) // malformed wallet row skipped

	assert.Equal(t, ledger.KindWalletEntry, txs[0].Kind)
	assert.Equal(t, "101", txs[0].ExternalID)
	assert.Equal(t, int64(-5500), txs[0].Amount)

	assert.Equal(t, ledger.KindBookedDeal, txs[1].Kind)
	assert.Equal(t, int64(-1200), txs[1].Amount)
	assert.Equal(t, "ヤマト運輸", txs[1].Counterparty)
}

func TestHTTPClient_AttachReceipt_StatusErrors(t *testing.T) {
	var status int

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer ts.Close()

	c := ledger.NewHTTPClient(ts.URL, "secret", 77, 5*time.Second)

	status = http.StatusTooManyRequests
	err := c.AttachReceipt(context.Background(), ledger.KindWalletEntry, "101", "900")
	require.Error(t, err)
	assert.True(t, ledger.Retryable(err))

	status = http.StatusBadGateway
	err = c.AttachReceipt(context.Background(), ledger.KindWalletEntry, "101", "900")
	require.Error(t, err)
	assert.True(t, ledger.Retryable(err))

	status = http.StatusBadRequest
	err = c.AttachReceipt(context.Background(), ledger.KindWalletEntry, "101", "900")
	require.Error(t, err)
	assert.False(t, ledger.Retryable(err))

	status = http.StatusUnauthorized
	err = c.AttachReceipt(context.Background(), ledger.KindWalletEntry, "101", "900")
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)
	assert.False(t, ledger.Retryable(err))
}

func TestHTTPClient_AttachReceipt_UnknownKind(t *testing.T) {
	c := ledger.NewHTTPClient("http://localhost:0", "secret", 77, time.Second)

	err := c.AttachReceipt(context.Background(), ledger.Kind("voucher"), "1", "2")
	assert.Error(t, err)
}
