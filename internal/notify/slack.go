// Package notify delivers approval requests to a human reviewer over a Slack
// incoming webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/approval"
)

type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

func NewSlackNotifier(webhookURL string, timeout time.Duration) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: timeout},
	}
}

type block struct {
	Type     string    `json:"type"`
	Text     *text     `json:"text,omitempty"`
	Elements []element `json:"elements,omitempty"`
}

type text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type element struct {
	Type     string `json:"type"`
	Text     *text  `json:"text,omitempty"`
	Style    string `json:"style,omitempty"`
	ActionID string `json:"action_id,omitempty"`
	Value    string `json:"value,omitempty"`
}

type message struct {
	Text   string  `json:"text"`
	Blocks []block `json:"blocks"`
}

// Notify posts one approval card. The interaction id travels in the button
// values so the webhook endpoint can resolve the right interaction when the
// reviewer answers.
func (n *SlackNotifier) Notify(ctx context.Context, req approval.Request) error {
	body, err := json.Marshal(buildMessage(req))
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building notification request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("posting notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("notification rejected: status %d: %s", resp.StatusCode, raw)
	}

	return nil
}

func buildMessage(req approval.Request) message {
	amount := decimal.NewFromInt(req.Amount).Abs()

	summary := fmt.Sprintf("*店舗:* %s\n*金額:* ¥%s\n*日付:* %s\n*候補:* %s (スコア %.0f)",
		req.Vendor,
		amount.StringFixed(0),
		req.Date.Format(time.DateOnly),
		req.Counterparty,
		req.Score,
	)

	id := req.InteractionID.String()

	return message{
		Text: "レシートの確認が必要です",
		Blocks: []block{
			{
				Type: "header",
				Text: &text{Type: "plain_text", Text: "レシート確認"},
			},
			{
				Type: "section",
				Text: &text{Type: "mrkdwn", Text: summary},
			},
			{
				Type: "actions",
				Elements: []element{
					{
						Type:     "button",
						Text:     &text{Type: "plain_text", Text: "承認"},
						Style:    "primary",
						ActionID: "approve",
						Value:    id,
					},
					{
						Type:     "button",
						Text:     &text{Type: "plain_text", Text: "編集"},
						ActionID: "edit",
						Value:    id,
					},
					{
						Type:     "button",
						Text:     &text{Type: "plain_text", Text: "却下"},
						Style:    "danger",
						ActionID: "reject",
						Value:    id,
					},
				},
			},
		},
	}
}

// LogNotifier stands in when no webhook is configured. Requests still reach
// the approval store; only the push notification is skipped.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, req approval.Request) error {
	slog.Info("approval requested",
		"interaction_id", req.InteractionID.String(),
		"receipt_id", req.ReceiptID,
		"score", req.Score,
	)

	return nil
}
