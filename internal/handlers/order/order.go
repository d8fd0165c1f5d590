package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/truongnx/plantshop/internal/httpapi"
	"github.com/truongnx/plantshop/internal/logging"
	"github.com/truongnx/plantshop/internal/middleware/auth"
	"github.com/truongnx/plantshop/internal/mykafka"
	ordersvc "github.com/truongnx/plantshop/internal/service/order"
	"github.com/truongnx/plantshop/internal/util"
)

type OrderHandler struct {
	Svc      *ordersvc.Service
	Producer *mykafka.Producer
}

func (h *OrderHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "order_events", fmt.Sprint(event["orderID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *OrderHandler) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create")

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var req struct {
		UserName        string  `json:"user_name"`
		UserPhone       string  `json:"user_phone"`
		ShippingAddress string  `json:"shipping_address"`
		ShippingFee     float64 `json:"shipping_fee"`
		Note            string  `json:"note"`
		PaymentMethod   string  `json:"payment_method"`
		CallbackURL     string  `json:"callback_url"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("create_order_error", "status", 400, "error", err)
		return httpapi.Fail(c, http.StatusBadRequest, "invalid body")
	}

	order, products, err := h.Svc.PlaceOrder(ctx, userID, ordersvc.ShippingInfo{
		RecipientName:   req.UserName,
		RecipientPhone:  req.UserPhone,
		ShippingAddress: req.ShippingAddress,
		ShippingFee:     req.ShippingFee,
		Note:            req.Note,
		PaymentMethod:   req.PaymentMethod,
		CallbackURL:     req.CallbackURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, ordersvc.ErrEmptyCart):
			l.Warn("create_order_error", "status", 400, "reason", "empty cart")
			return httpapi.Fail(c, http.StatusBadRequest, "Cart is empty")
		case errors.Is(err, ordersvc.ErrValidation):
			return httpapi.Fail(c, http.StatusBadRequest, "invalid body")
		case errors.Is(err, ordersvc.ErrNotFound):
			return httpapi.Fail(c, http.StatusNotFound, "Product not found")
		default:
			l.Error("create_order_error", "status", 500, "error", err)
			return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
		}
	}

	h.publish(c, map[string]any{
		"type":    "order_created",
		"orderID": order.ID,
		"userID":  userID,
		"total":   order.TotalPrice,
	})

	l.Info("create_order_success", "orderID", order.ID, "total", order.TotalPrice)
	return httpapi.JSON(c, http.StatusCreated, "Order created successfully", echo.Map{
		"order":    order,
		"products": products,
	})
}

// GetOrders is the admin listing: pagination plus optional email, order id
// and comma-separated status filters.
func (h *OrderHandler) GetOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list")

	filters := ordersvc.ListFilters{
		Email:      c.QueryParam("email"),
		OrderID:    c.QueryParam("orderId"),
		ListStatus: c.QueryParam("listStatus"),
		Page:       util.ParseIntDefault(c.QueryParam("page"), 1),
		Limit:      util.ParseIntDefault(c.QueryParam("limit"), util.DefaultPageSize),
	}

	result, err := h.Svc.ListOrders(ctx, filters)
	if err != nil {
		if errors.Is(err, ordersvc.ErrNotFound) {
			return httpapi.Fail(c, http.StatusNotFound, "User not found")
		}
		l.Error("list_orders_error", "status", 500, "error", err)
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	totalPages := (result.TotalElements + int64(result.Limit) - 1) / int64(result.Limit)
	return httpapi.JSON(c, http.StatusOK, "OK", echo.Map{
		"content":      result.Content,
		"totalRevenue": result.TotalRevenue,
		"pagination": echo.Map{
			"currentPage":   result.Page,
			"totalPages":    totalPages,
			"totalElements": result.TotalElements,
			"limit":         result.Limit,
		},
	})
}

func (h *OrderHandler) GetMyOrders(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	orders, err := h.Svc.ListForUser(ctx, userID)
	if err != nil {
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	return httpapi.JSON(c, http.StatusOK, "OK", orders)
}

func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.update_status")

	orderID, err := strconv.Atoi(c.Param("order_id"))
	if err != nil || orderID <= 0 {
		return httpapi.Fail(c, http.StatusBadRequest, "invalid order_id")
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return httpapi.Fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.Status == "" {
		return httpapi.Fail(c, http.StatusBadRequest, "status is required")
	}

	order, err := h.Svc.UpdateStatus(ctx, uint(orderID), req.Status)
	if err != nil {
		if errors.Is(err, ordersvc.ErrNotFound) {
			return httpapi.Fail(c, http.StatusNotFound, "Order not found")
		}
		l.Error("update_status_error", "status", 500, "error", err)
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	h.publish(c, map[string]any{
		"type":    "order_status_changed",
		"orderID": order.ID,
		"status":  order.Status,
	})

	l.Info("update_status_success", "orderID", order.ID, "newStatus", order.Status)
	return httpapi.JSON(c, http.StatusOK, "Order status updated", order)
}
