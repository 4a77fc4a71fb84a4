package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/receipt"
)

// HTTPClient talks to the freee accounting API. All calls carry the
// configured timeout through the underlying http.Client.
type HTTPClient struct {
	baseURL   string
	token     string
	companyID int64
	client    *http.Client
}

func NewHTTPClient(baseURL, token string, companyID int64, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:   baseURL,
		token:     token,
		companyID: companyID,
		client:    &http.Client{Timeout: timeout},
	}
}

type walletTxn struct {
	ID          int64  `json:"id"`
	Date        string `json:"date"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

type dealDetail struct {
	Amount int64 `json:"amount"`
}

type deal struct {
	ID          int64        `json:"id"`
	IssueDate   string       `json:"issue_date"`
	PartnerName string       `json:"partner_name"`
	RefNumber   string       `json:"ref_number"`
	Details     []dealDetail `json:"details"`
}

type apiReceipt struct {
	ID          int64           `json:"id"`
	IssueDate   string          `json:"issue_date"`
	Amount      int64           `json:"amount"`
	PartnerName string          `json:"partner_name"`
	FileSHA256  string          `json:"file_sha256"`
	OCRResult   json.RawMessage `json:"qualified_invoice,omitempty"`
}

func (c *HTTPClient) ListTransactions(ctx context.Context, from, to time.Time) ([]Transaction, error) {
	var out []Transaction

	var walletResp struct {
		WalletTxns []walletTxn `json:"wallet_txns"`
	}

	params := url.Values{
		"status":     {"unmatched"},
		"start_date": {from.Format(time.DateOnly)},
		"end_date":   {to.Format(time.DateOnly)},
	}

	if err := c.get(ctx, "/wallet_txns", params, &walletResp); err != nil {
		return nil, fmt.Errorf("listing wallet txns: %w", err)
	}

	for _, w := range walletResp.WalletTxns {
		date, err := time.Parse(time.DateOnly, w.Date)
		if err != nil {
			continue // malformed rows are skipped, not fatal
		}

		out = append(out, Transaction{
			Kind:         KindWalletEntry,
			ExternalID:   strconv.FormatInt(w.ID, 10),
			Date:         date,
			Amount:       w.Amount,
			Counterparty: w.Description,
		})
	}

	var dealResp struct {
		Deals []deal `json:"deals"`
	}

	if err := c.get(ctx, "/deals", params, &dealResp); err != nil {
		return nil, fmt.Errorf("listing deals: %w", err)
	}

	for _, d := range dealResp.Deals {
		date, err := time.Parse(time.DateOnly, d.IssueDate)
		if err != nil {
			continue
		}

		var amount int64
		if len(d.Details) > 0 {
			amount = d.Details[0].Amount
		}

		counterparty := d.PartnerName
		if counterparty == "" {
			counterparty = d.RefNumber
		}

		out = append(out, Transaction{
			Kind:         KindBookedDeal,
			ExternalID:   strconv.FormatInt(d.ID, 10),
			Date:         date,
			Amount:       amount,
			Counterparty: counterparty,
		})
	}

	return out, nil
}

func (c *HTTPClient) ListPendingReceipts(ctx context.Context) ([]receipt.Record, error) {
	var resp struct {
		Receipts []apiReceipt `json:"receipts"`
	}

	if err := c.get(ctx, "/receipts", url.Values{"status": {"unlinked"}}, &resp); err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}

	records := make([]receipt.Record, 0, len(resp.Receipts))

	for _, r := range resp.Receipts {
		date, err := time.Parse(time.DateOnly, r.IssueDate)
		if err != nil {
			continue
		}

		records = append(records, receipt.Record{
			ID:         strconv.FormatInt(r.ID, 10),
			Vendor:     receipt.NormalizeVendor(r.PartnerName),
			Date:       date,
			Amount:     r.Amount,
			FileDigest: r.FileSHA256,
			OCRMeta:    r.OCRResult,
		})
	}

	return records, nil
}

func (c *HTTPClient) AttachReceipt(ctx context.Context, kind Kind, transactionID, receiptID string) error {
	if kind != KindWalletEntry && kind != KindBookedDeal {
		return fmt.Errorf("unknown transaction kind %q", kind)
	}

	path := fmt.Sprintf("/wallet_txns/%s/receipts/%s", transactionID, receiptID)
	if kind == KindBookedDeal {
		path = fmt.Sprintf("/deals/%s/receipts/%s", transactionID, receiptID)
	}

	req, err := c.newRequest(ctx, http.MethodPut, path, url.Values{})
	if err != nil {
		return err
	}

	return c.do(req, nil)
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, params)
	if err != nil {
		return err
	}

	return c.do(req, out)
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, params url.Values) (*http.Request, error) {
	params.Set("company_id", strconv.FormatInt(c.companyID, 10))

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	return req, nil
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", req.URL.Path, err)
	}

	return nil
}
