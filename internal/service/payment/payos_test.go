package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func testPayOS(baseURL string) *PayOS {
	return &PayOS{
		ClientID:    "test_client",
		APIKey:      "test_key",
		ChecksumKey: []byte("test_checksum"),
		BaseURL:     baseURL,
	}
}

func TestCreatePaymentLink(t *testing.T) {
	var got CheckoutRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/payment-requests", r.URL.Path)
		require.Equal(t, "test_client", r.Header.Get("x-client-id"))
		require.Equal(t, "test_key", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		fmt.Fprint(w, `{"code":"00","desc":"success","data":{"checkoutUrl":"https://pay.payos.vn/web/abc123","paymentLinkId":"abc123"}}`)
	}))
	defer srv.Close()

	p := testPayOS(srv.URL)
	url, err := p.CreatePaymentLink(context.Background(), CheckoutRequest{
		OrderCode:   7,
		Amount:      115000,
		Description: "Thanh toan don hang 7",
		ReturnURL:   "https://shop.example.com/payments/payOs/success",
		CancelURL:   "https://shop.example.com/payments/payOs/failed",
	})
	require.NoError(t, err)
	require.Equal(t, "https://pay.payos.vn/web/abc123", url)

	// the request carries a signature over the checkout fields
	want := p.signFields(map[string]string{
		"amount":      "115000",
		"cancelUrl":   got.CancelURL,
		"description": got.Description,
		"orderCode":   "7",
		"returnUrl":   got.ReturnURL,
	})
	require.Equal(t, want, got.Signature)
}

func TestCreatePaymentLinkRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"231","desc":"duplicate order code","data":{}}`)
	}))
	defer srv.Close()

	p := testPayOS(srv.URL)
	_, err := p.CreatePaymentLink(context.Background(), CheckoutRequest{OrderCode: 7, Amount: 115000})
	require.Error(t, err)
	require.Contains(t, err.Error(), "231")
}

func signedWebhook(t *testing.T, p *PayOS, data map[string]interface{}) WebhookPayload {
	raw, err := json.Marshal(data)
	require.NoError(t, err)

	flat := make(map[string]string, len(data))
	for k, v := range data {
		switch val := v.(type) {
		case string:
			flat[k] = val
		case int:
			flat[k] = fmt.Sprintf("%d", val)
		case float64:
			flat[k] = fmt.Sprintf("%v", val)
		default:
			t.Fatalf("unsupported field type %T", v)
		}
	}

	return WebhookPayload{
		Code:      "00",
		Desc:      "success",
		Success:   true,
		Data:      raw,
		Signature: p.signFields(flat),
	}
}

func TestVerifyWebhook(t *testing.T) {
	p := testPayOS("")

	payload := signedWebhook(t, p, map[string]interface{}{
		"orderCode":     7,
		"amount":        115000,
		"reference":     "FT123456",
		"code":          "00",
		"paymentLinkId": "abc123",
	})

	data, err := p.VerifyWebhook(payload)
	require.NoError(t, err)
	require.Equal(t, uint(7), data.OrderCode)
	require.Equal(t, int64(115000), data.Amount)
	require.Equal(t, "00", data.Code)
	require.Equal(t, "abc123", data.TransactionID)
}

func TestVerifyWebhookTamperedData(t *testing.T) {
	p := testPayOS("")

	payload := signedWebhook(t, p, map[string]interface{}{
		"orderCode": 7,
		"amount":    115000,
		"code":      "00",
	})
	payload.Data = json.RawMessage(`{"orderCode":7,"amount":1,"code":"00"}`)

	_, err := p.VerifyWebhook(payload)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyWebhookBogusSignature(t *testing.T) {
	p := testPayOS("")

	payload := WebhookPayload{
		Success:   true,
		Data:      json.RawMessage(`{"orderCode":7,"code":"00"}`),
		Signature: "deadbeef",
	}
	_, err := p.VerifyWebhook(payload)
	require.ErrorIs(t, err, ErrInvalidSignature)

	payload.Signature = ""
	_, err = p.VerifyWebhook(payload)
	require.ErrorIs(t, err, ErrInvalidSignature)
}
