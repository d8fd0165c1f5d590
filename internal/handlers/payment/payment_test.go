package payment

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/truongnx/plantshop/internal/models"
	ordersvc "github.com/truongnx/plantshop/internal/service/order"
	paysvc "github.com/truongnx/plantshop/internal/service/payment"
)

var testHashSecret = []byte("test_secret")

func InitTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
		return nil
	}

	if err := db.AutoMigrate(&models.Product{}, &models.CartItem{}, &models.Order{}, &models.Payment{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	return db
}

func newHandler(t *testing.T) (*PaymentHandler, *gorm.DB) {
	db := InitTestDB(t)
	h := &PaymentHandler{
		DB: db,
		VNPay: &paysvc.VNPay{
			TmnCode:    "TESTCODE",
			HashSecret: testHashSecret,
			BaseURL:    "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
			ReturnURL:  "https://shop.example.com/api/v1/payments/callback",
		},
		PayOS: &paysvc.PayOS{
			ClientID:    "test_client",
			APIKey:      "test_key",
			ChecksumKey: []byte("test_checksum"),
		},
		Orders: &ordersvc.Service{DB: db},
	}
	return h, db
}

func seedOrder(t *testing.T, db *gorm.DB, status string) models.Order {
	o := models.Order{
		UserID:        1,
		PaymentMethod: models.PaymentMethodBank,
		TotalPrice:    115000,
		Status:        status,
	}
	require.NoError(t, db.Create(&o).Error)

	pay := models.Payment{
		OrderID:       o.ID,
		Method:        "VNPAY",
		Amount:        o.TotalPrice,
		TransactionID: "initial",
		PaymentStatus: models.PaymentStatusPending,
	}
	require.NoError(t, db.Create(&pay).Error)
	return o
}

// signQuery mirrors the gateway: sorted key=value pairs joined with '&',
// HMAC-SHA256 hex with the shared secret.
func signQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	mac := hmac.New(sha256.New, testHashSecret)
	mac.Write([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}

func callbackQuery(txnRef, responseCode string, tampered bool) url.Values {
	params := map[string]string{
		"vnp_TxnRef":        txnRef,
		"vnp_ResponseCode":  responseCode,
		"vnp_TransactionNo": "14422574",
		"vnp_Amount":        "11500000",
	}
	sig := signQuery(params)
	if tampered {
		sig = "deadbeef"
	}

	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	q.Set("vnp_SecureHash", sig)
	return q
}

func doCallback(t *testing.T, h *PaymentHandler, query url.Values) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/callback?"+query.Encode(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, h.Callback(c))
	return rec
}

func TestCallbackTamperedSignatureMutatesNothing(t *testing.T) {
	h, db := newHandler(t)
	o := seedOrder(t, db, models.OrderStatusPending)

	rec := doCallback(t, h, callbackQuery("1", "00", true))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var got models.Order
	require.NoError(t, db.First(&got, o.ID).Error)
	require.Equal(t, models.OrderStatusPending, got.Status)

	var pay models.Payment
	require.NoError(t, db.Where("order_id = ?", o.ID).First(&pay).Error)
	require.Equal(t, models.PaymentStatusPending, pay.PaymentStatus)
	require.Equal(t, "initial", pay.TransactionID)
}

func TestCallbackSuccessCompletesPayment(t *testing.T) {
	h, db := newHandler(t)
	o := seedOrder(t, db, models.OrderStatusPending)

	rec := doCallback(t, h, callbackQuery("1", "00", false))
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Order
	require.NoError(t, db.First(&got, o.ID).Error)
	require.Equal(t, models.OrderStatusShipping, got.Status)

	var pay models.Payment
	require.NoError(t, db.Where("order_id = ?", o.ID).First(&pay).Error)
	require.Equal(t, models.PaymentStatusCompleted, pay.PaymentStatus)
	require.Equal(t, "14422574", pay.TransactionID)
}

func TestCallbackReplayIsIdempotent(t *testing.T) {
	h, db := newHandler(t)
	o := seedOrder(t, db, models.OrderStatusPending)

	query := callbackQuery("1", "00", false)
	rec := doCallback(t, h, query)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doCallback(t, h, query)
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Order
	require.NoError(t, db.First(&got, o.ID).Error)
	require.Equal(t, models.OrderStatusShipping, got.Status)

	var count int64
	require.NoError(t, db.Model(&models.Payment{}).
		Where("order_id = ? AND payment_status = ?", o.ID, models.PaymentStatusCompleted).
		Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestCallbackFailureCancelsOrder(t *testing.T) {
	h, db := newHandler(t)
	o := seedOrder(t, db, models.OrderStatusPending)

	rec := doCallback(t, h, callbackQuery("1", "24", false))
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Order
	require.NoError(t, db.First(&got, o.ID).Error)
	require.Equal(t, models.OrderStatusCancelled, got.Status)

	var pay models.Payment
	require.NoError(t, db.Where("order_id = ?", o.ID).First(&pay).Error)
	require.Equal(t, models.PaymentStatusPending, pay.PaymentStatus)
}

func TestCallbackUnknownOrderAcknowledged(t *testing.T) {
	h, _ := newHandler(t)

	rec := doCallback(t, h, callbackQuery("999", "00", false))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCreatePaymentUnknownOrder(t *testing.T) {
	h, _ := newHandler(t)

	body, _ := json.Marshal(map[string]any{"order_id": 999})
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.CreatePayment(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreatePaymentReturnsSignedURL(t *testing.T) {
	h, db := newHandler(t)
	o := seedOrder(t, db, models.OrderStatusPending)

	body, _ := json.Marshal(map[string]any{"order_id": o.ID})
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.CreatePayment(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		StatusCode int    `json:"statusCode"`
		Message    string `json:"message"`
		Data       struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Data.URL, "vnp_SecureHash=")
	require.Contains(t, resp.Data.URL, "vnp_Amount=11500000")

	// a second pending payment row was created for the new attempt
	var count int64
	require.NoError(t, db.Model(&models.Payment{}).Where("order_id = ?", o.ID).Count(&count).Error)
	require.EqualValues(t, 2, count)
}

func doPayOSRedirect(t *testing.T, h *PaymentHandler, success bool, query url.Values) *httptest.ResponseRecorder {
	target := "/api/v1/payments/payOs/failed"
	handler := h.PayOSFailed
	if success {
		target = "/api/v1/payments/payOs/success"
		handler = h.PayOSSuccess
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target+"?"+query.Encode(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, handler(c))
	return rec
}

func TestPayOSSuccessCompletesPayment(t *testing.T) {
	h, db := newHandler(t)
	o := seedOrder(t, db, models.OrderStatusPending)

	q := url.Values{}
	q.Set("orderCode", "1")
	q.Set("id", "lnk_123")
	rec := doPayOSRedirect(t, h, true, q)
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Order
	require.NoError(t, db.First(&got, o.ID).Error)
	require.Equal(t, models.OrderStatusDelivered, got.Status)

	var pay models.Payment
	require.NoError(t, db.Where("order_id = ?", o.ID).First(&pay).Error)
	require.Equal(t, models.PaymentStatusCompleted, pay.PaymentStatus)
	require.Equal(t, "lnk_123", pay.TransactionID)
}

func TestPayOSFailedCancelsOrder(t *testing.T) {
	h, db := newHandler(t)
	o := seedOrder(t, db, models.OrderStatusPending)

	q := url.Values{}
	q.Set("orderCode", "1")
	rec := doPayOSRedirect(t, h, false, q)
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Order
	require.NoError(t, db.First(&got, o.ID).Error)
	require.Equal(t, models.OrderStatusCancelled, got.Status)

	var pay models.Payment
	require.NoError(t, db.Where("order_id = ?", o.ID).First(&pay).Error)
	require.Equal(t, models.PaymentStatusPending, pay.PaymentStatus)
}

func TestPayOSRedirectUnknownOrder(t *testing.T) {
	h, _ := newHandler(t)

	q := url.Values{}
	q.Set("orderCode", "999")
	rec := doPayOSRedirect(t, h, true, q)
	require.Equal(t, http.StatusNotFound, rec.Code)

	q.Set("orderCode", "not-a-number")
	rec = doPayOSRedirect(t, h, true, q)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPayOSRedirectFollowsCallbackURL(t *testing.T) {
	h, db := newHandler(t)
	o := seedOrder(t, db, models.OrderStatusPending)
	require.NoError(t, db.Model(&o).Update("callback_url", "https://app.example.com/done").Error)

	q := url.Values{}
	q.Set("orderCode", "1")
	q.Set("id", "lnk_123")
	rec := doPayOSRedirect(t, h, true, q)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "https://app.example.com/done", rec.Header().Get(echo.HeaderLocation))

	var got models.Order
	require.NoError(t, db.First(&got, o.ID).Error)
	require.Equal(t, models.OrderStatusDelivered, got.Status)
}

func TestCallbackCompletesOnlyLatestAttempt(t *testing.T) {
	h, db := newHandler(t)
	o := seedOrder(t, db, models.OrderStatusPending)

	// a second checkout attempt for the same order
	second := models.Payment{
		OrderID:       o.ID,
		Method:        "VNPAY",
		Amount:        o.TotalPrice,
		TransactionID: "retry",
		PaymentStatus: models.PaymentStatusPending,
	}
	require.NoError(t, db.Create(&second).Error)

	rec := doCallback(t, h, callbackQuery("1", "00", false))
	require.Equal(t, http.StatusOK, rec.Code)

	var latest models.Payment
	require.NoError(t, db.First(&latest, second.ID).Error)
	require.Equal(t, models.PaymentStatusCompleted, latest.PaymentStatus)
	require.Equal(t, "14422574", latest.TransactionID)

	var first models.Payment
	require.NoError(t, db.Where("order_id = ? AND id <> ?", o.ID, second.ID).First(&first).Error)
	require.Equal(t, models.PaymentStatusPending, first.PaymentStatus)
	require.Equal(t, "initial", first.TransactionID)
}

func TestPayOSWebhookBadSignature(t *testing.T) {
	h, db := newHandler(t)
	o := seedOrder(t, db, models.OrderStatusPending)

	payload := map[string]any{
		"code":      "00",
		"desc":      "success",
		"success":   true,
		"data":      map[string]any{"orderCode": o.ID, "amount": 115000, "code": "00"},
		"signature": "deadbeef",
	}
	body, _ := json.Marshal(payload)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/payOs/webhook", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.PayOSWebhook(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var got models.Order
	require.NoError(t, db.First(&got, o.ID).Error)
	require.Equal(t, models.OrderStatusPending, got.Status)
}
