package notify_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/approval"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/notify"
)

func testRequest() approval.Request {
	return approval.Request{
		InteractionID: uuid.MustParse("5f4f1ab2-9f59-4d5a-9421-15f4a1de86f5"),
		ReceiptID:     "rcpt-1",
		Counterparty:  "AMAZON WEB SERVICES",
		Vendor:        "AWS",
		Date:          time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Amount:        -5500,
		Score:         72,
	}
}

func TestNotifyPostsInteractionID(t *testing.T) {
	var got map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := notify.NewSlackNotifier(srv.URL, 5*time.Second)
	require.NoError(t, n.Notify(context.Background(), testRequest()))

	raw, err := json.Marshal(got)
	require.NoError(t, err)

	// Every button must carry the interaction id so the answer can be
	// routed back to the right interaction.
	assert.Contains(t, string(raw), "5f4f1ab2-9f59-4d5a-9421-15f4a1de86f5")
	assert.Contains(t, string(raw), "approve")
	assert.Contains(t, string(raw), "reject")
	assert.Contains(t, string(raw), "5500")
}

func TestNotifyRejectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	n := notify.NewSlackNotifier(srv.URL, 5*time.Second)
	err := n.Notify(context.Background(), testRequest())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}
