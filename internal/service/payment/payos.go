package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

// PayOS talks to the hosted-checkout provider: payment links are created
// against its API and webhook payloads are verified with the checksum key
// before anything is trusted.
type PayOS struct {
	ClientID    string
	APIKey      string
	ChecksumKey []byte
	BaseURL     string
	HTTP        *http.Client
}

type CheckoutRequest struct {
	OrderCode   uint    `json:"orderCode"`
	Amount      int64   `json:"amount"`
	Description string  `json:"description"`
	ReturnURL   string  `json:"returnUrl"`
	CancelURL   string  `json:"cancelUrl"`
	Signature   string  `json:"signature"`
}

type checkoutResponse struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
	Data struct {
		CheckoutURL   string `json:"checkoutUrl"`
		PaymentLinkID string `json:"paymentLinkId"`
	} `json:"data"`
}

// WebhookPayload is the body PayOS posts on transaction completion. Data
// fields participate in the signature; Signature does not.
type WebhookPayload struct {
	Code      string          `json:"code"`
	Desc      string          `json:"desc"`
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Signature string          `json:"signature"`
}

type WebhookData struct {
	OrderCode     uint   `json:"orderCode"`
	Amount        int64  `json:"amount"`
	Reference     string `json:"reference"`
	Code          string `json:"code"`
	TransactionID string `json:"paymentLinkId"`
}

func (p *PayOS) client() *http.Client {
	if p.HTTP != nil {
		return p.HTTP
	}
	return &http.Client{Timeout: 10 * time.Second}
}

// signFields canonicalizes the same way the provider does: sorted keys,
// key=value pairs joined with '&', HMAC-SHA256 hex.
func (p *PayOS) signFields(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+fields[k])
	}

	mac := hmac.New(sha256.New, p.ChecksumKey)
	mac.Write([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}

// CreatePaymentLink submits the order reference and amount and returns the
// provider's hosted checkout URL.
func (p *PayOS) CreatePaymentLink(ctx context.Context, req CheckoutRequest) (string, error) {
	req.Signature = p.signFields(map[string]string{
		"amount":      fmt.Sprintf("%d", req.Amount),
		"cancelUrl":   req.CancelURL,
		"description": req.Description,
		"orderCode":   fmt.Sprintf("%d", req.OrderCode),
		"returnUrl":   req.ReturnURL,
	})

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("payos: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/v2/payment-requests", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("payos: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-client-id", p.ClientID)
	httpReq.Header.Set("x-api-key", p.APIKey)

	resp, err := p.client().Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("payos: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("payos: API error (%d): %s", resp.StatusCode, raw)
	}

	var out checkoutResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("payos: parse response: %w", err)
	}
	if out.Code != "00" {
		return "", fmt.Errorf("payos: rejected: %s (%s)", out.Desc, out.Code)
	}
	if out.Data.CheckoutURL == "" {
		return "", fmt.Errorf("payos: empty checkout url")
	}
	return out.Data.CheckoutURL, nil
}

// VerifyWebhook checks the payload signature over the flattened data object.
// It must pass before orderCode is trusted.
func (p *PayOS) VerifyWebhook(payload WebhookPayload) (*WebhookData, error) {
	if payload.Signature == "" {
		return nil, fmt.Errorf("%w: missing signature", ErrInvalidSignature)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(payload.Data, &fields); err != nil {
		return nil, fmt.Errorf("%w: malformed data", ErrInvalidSignature)
	}

	flat := make(map[string]string, len(fields))
	for k, v := range fields {
		switch val := v.(type) {
		case nil:
			flat[k] = ""
		case string:
			flat[k] = val
		case float64:
			flat[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			flat[k] = fmt.Sprintf("%t", val)
		default:
			b, _ := json.Marshal(val)
			flat[k] = string(b)
		}
	}

	want := p.signFields(flat)
	if !hmac.Equal([]byte(want), []byte(strings.ToLower(payload.Signature))) {
		return nil, ErrInvalidSignature
	}

	var data WebhookData
	if err := json.Unmarshal(payload.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: malformed data", ErrInvalidSignature)
	}
	return &data, nil
}
