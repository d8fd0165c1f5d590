package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/truongnx/plantshop/internal/httpapi"
	"github.com/truongnx/plantshop/internal/logging"
	"github.com/truongnx/plantshop/internal/models"
	"github.com/truongnx/plantshop/internal/mykafka"
	ordersvc "github.com/truongnx/plantshop/internal/service/order"
	paysvc "github.com/truongnx/plantshop/internal/service/payment"
)

type PaymentHandler struct {
	DB       *gorm.DB
	VNPay    *paysvc.VNPay
	PayOS    *paysvc.PayOS
	Orders   *ordersvc.Service
	Producer *mykafka.Producer
}

func (h *PaymentHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "payment_events", fmt.Sprint(event["orderID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

// completePayment settles the newest pending payment attempt for the order.
// Earlier abandoned attempts stay pending so they never borrow the gateway's
// transaction id; a callback arriving with no pending attempt changes nothing.
func (h *PaymentHandler) completePayment(ctx context.Context, orderID uint, transactionID string) error {
	latest := h.DB.Model(&models.Payment{}).
		Select("MAX(id)").
		Where("order_id = ? AND payment_status = ?", orderID, models.PaymentStatusPending)

	return h.DB.WithContext(ctx).Model(&models.Payment{}).
		Where("id = (?)", latest).
		Updates(map[string]interface{}{
			"payment_status": models.PaymentStatusCompleted,
			"transaction_id": transactionID,
		}).Error
}

// CreatePayment initiates a VNPAY transaction and returns the signed
// redirect URL.
func (h *PaymentHandler) CreatePayment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.create")

	var req struct {
		OrderID uint    `json:"order_id"`
		Amount  float64 `json:"amount"`
	}
	if err := c.Bind(&req); err != nil {
		return httpapi.Fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.OrderID == 0 {
		return httpapi.Fail(c, http.StatusBadRequest, "order_id is required")
	}

	order, err := h.Orders.Get(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, ordersvc.ErrNotFound) {
			return httpapi.Fail(c, http.StatusNotFound, "Order not found")
		}
		l.Error("create_payment_error", "status", 500, "error", err)
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	amount := req.Amount
	if amount == 0 {
		amount = order.TotalPrice
	}

	pay := models.Payment{
		OrderID:       order.ID,
		Method:        "VNPAY",
		Amount:        amount,
		TransactionID: uuid.NewString(),
		PaymentStatus: models.PaymentStatusPending,
	}
	if err := h.DB.WithContext(ctx).Create(&pay).Error; err != nil {
		l.Error("create_payment_error", "status", 500, "error", err)
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	url := h.VNPay.BuildPaymentURL(order.ID, amount, c.RealIP(), time.Now())

	l.Info("create_payment_success", "orderID", order.ID, "paymentID", pay.ID)
	return httpapi.JSON(c, http.StatusOK, "Redirect to payment", echo.Map{"url": url})
}

// Callback handles the VNPAY return. The signature check runs before any
// database write; a tampered payload mutates nothing.
func (h *PaymentHandler) Callback(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.callback")

	query := c.QueryParams()
	if err := h.VNPay.VerifyCallback(query); err != nil {
		l.Warn("callback_rejected", "status", 400, "error", err)
		return httpapi.Fail(c, http.StatusBadRequest, "Invalid signature")
	}

	txnRef := query.Get("vnp_TxnRef")
	orderID, err := strconv.ParseUint(txnRef, 10, 64)
	if err != nil {
		l.Warn("callback_bad_ref", "txnRef", txnRef)
		return httpapi.JSON(c, http.StatusOK, "Payment callback received", echo.Map{
			"responseCode": query.Get("vnp_ResponseCode"),
		})
	}

	order, err := h.Orders.Get(ctx, uint(orderID))
	if err != nil {
		if errors.Is(err, ordersvc.ErrNotFound) {
			// The gateway retries on non-2xx, so an unknown reference is
			// logged and acknowledged.
			l.Warn("callback_unknown_order", "orderID", orderID)
			return httpapi.JSON(c, http.StatusOK, "Payment callback received", nil)
		}
		l.Error("callback_error", "status", 500, "error", err)
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	newStatus := models.OrderStatusCancelled
	if h.VNPay.Succeeded(query) {
		newStatus = models.OrderStatusShipping
	}

	if _, err := h.Orders.UpdateStatus(ctx, order.ID, newStatus); err != nil {
		l.Error("callback_error", "status", 500, "error", err)
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}
	if newStatus == models.OrderStatusShipping {
		if err := h.completePayment(ctx, order.ID, query.Get("vnp_TransactionNo")); err != nil {
			l.Error("callback_error", "status", 500, "error", err)
			return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
		}
	}

	h.publish(c, map[string]any{
		"type":    "payment_callback",
		"orderID": order.ID,
		"status":  newStatus,
	})

	l.Info("callback_applied", "orderID", order.ID, "newStatus", newStatus)
	return httpapi.JSON(c, http.StatusOK, "Payment callback received", echo.Map{
		"responseCode": query.Get("vnp_ResponseCode"),
	})
}

// CreatePayOSPayment submits the order to the hosted-checkout provider and
// returns its checkout URL.
func (h *PaymentHandler) CreatePayOSPayment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.payos.create")

	var req struct {
		OrderID     uint   `json:"order_id"`
		Description string `json:"description"`
		ReturnURL   string `json:"return_url"`
		CancelURL   string `json:"cancel_url"`
		CallbackURL string `json:"callback_url"`
	}
	if err := c.Bind(&req); err != nil {
		return httpapi.Fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.OrderID == 0 {
		return httpapi.Fail(c, http.StatusBadRequest, "order_id is required")
	}

	order, err := h.Orders.Get(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, ordersvc.ErrNotFound) {
			return httpapi.Fail(c, http.StatusNotFound, "Order not found")
		}
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	if req.CallbackURL != "" {
		if err := h.DB.WithContext(ctx).Model(order).Update("callback_url", req.CallbackURL).Error; err != nil {
			l.Error("payos_create_error", "status", 500, "error", err)
			return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
		}
	}

	description := req.Description
	if description == "" {
		description = fmt.Sprintf("Thanh toan don hang %d", order.ID)
	}

	checkoutURL, err := h.PayOS.CreatePaymentLink(ctx, paysvc.CheckoutRequest{
		OrderCode:   order.ID,
		Amount:      int64(order.TotalPrice),
		Description: description,
		ReturnURL:   req.ReturnURL,
		CancelURL:   req.CancelURL,
	})
	if err != nil {
		l.Error("payos_create_error", "status", 500, "error", err)
		return httpapi.Fail(c, http.StatusInternalServerError, "Error processing payment")
	}

	pay := models.Payment{
		OrderID:       order.ID,
		Method:        "PAYOS",
		Amount:        order.TotalPrice,
		TransactionID: uuid.NewString(),
		PaymentStatus: models.PaymentStatusPending,
	}
	if err := h.DB.WithContext(ctx).Create(&pay).Error; err != nil {
		l.Error("payos_create_error", "status", 500, "error", err)
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	l.Info("payos_create_success", "orderID", order.ID)
	return httpapi.JSON(c, http.StatusOK, "Redirect to payment", echo.Map{"url": checkoutURL})
}

// PayOSWebhook applies the provider's transaction outcome. Verification runs
// first; a verified payload with an unknown orderCode is acknowledged with
// 200 so the provider stops retrying.
func (h *PaymentHandler) PayOSWebhook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.payos.webhook")

	var payload paysvc.WebhookPayload
	if err := c.Bind(&payload); err != nil {
		return httpapi.Fail(c, http.StatusBadRequest, "invalid body")
	}

	data, err := h.PayOS.VerifyWebhook(payload)
	if err != nil {
		l.Warn("payos_webhook_rejected", "status", 400, "error", err)
		return httpapi.Fail(c, http.StatusBadRequest, "Invalid signature")
	}

	order, err := h.Orders.Get(ctx, data.OrderCode)
	if err != nil {
		if errors.Is(err, ordersvc.ErrNotFound) {
			l.Warn("payos_webhook_unknown_order", "orderCode", data.OrderCode)
			return httpapi.JSON(c, http.StatusOK, "Webhook received", nil)
		}
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	newStatus := models.OrderStatusCancelled
	if payload.Success && data.Code == "00" {
		newStatus = models.OrderStatusDelivered
	}

	if _, err := h.Orders.UpdateStatus(ctx, order.ID, newStatus); err != nil {
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}
	if newStatus == models.OrderStatusDelivered {
		if err := h.completePayment(ctx, order.ID, data.TransactionID); err != nil {
			return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
		}
	}

	h.publish(c, map[string]any{
		"type":    "payos_webhook",
		"orderID": order.ID,
		"status":  newStatus,
	})

	l.Info("payos_webhook_applied", "orderID", order.ID, "newStatus", newStatus)
	return httpapi.JSON(c, http.StatusOK, "Webhook received", nil)
}

func (h *PaymentHandler) payOSRedirect(c echo.Context, success bool) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.payos.redirect")

	orderCode, err := strconv.ParseUint(c.QueryParam("orderCode"), 10, 64)
	if err != nil {
		return httpapi.Fail(c, http.StatusBadRequest, "invalid orderCode")
	}

	// The order must be loaded before its callback URL is read; an unknown
	// orderCode gets a 404 rather than a nil dereference.
	order, err := h.Orders.Get(ctx, uint(orderCode))
	if err != nil {
		if errors.Is(err, ordersvc.ErrNotFound) {
			return httpapi.Fail(c, http.StatusNotFound, "Order not found")
		}
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	newStatus := models.OrderStatusCancelled
	if success {
		newStatus = models.OrderStatusDelivered
	}
	if _, err := h.Orders.UpdateStatus(ctx, order.ID, newStatus); err != nil {
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}
	if success {
		if err := h.completePayment(ctx, order.ID, c.QueryParam("id")); err != nil {
			return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
		}
	}

	l.Info("payos_redirect_applied", "orderID", order.ID, "newStatus", newStatus)

	if order.CallbackURL != "" {
		return c.Redirect(http.StatusFound, order.CallbackURL)
	}
	return httpapi.JSON(c, http.StatusOK, "Payment processed", echo.Map{"orderId": order.ID, "status": newStatus})
}

func (h *PaymentHandler) PayOSSuccess(c echo.Context) error {
	return h.payOSRedirect(c, true)
}

func (h *PaymentHandler) PayOSFailed(c echo.Context) error {
	return h.payOSRedirect(c, false)
}
