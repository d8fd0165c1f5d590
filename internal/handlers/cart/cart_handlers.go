package cart

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
	cartsvc "github.com/truongnx/plantshop/internal/service/cart"
)

type CartHandler struct {
	Store    *cartsvc.Store
	Producer *mykafka.Producer
}

func (h *CartHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "cart_events", fmt.Sprint(event["userID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

type cartLineResponse struct {
	ID          uint    `json:"id"`
	ProductID   uint    `json:"product_id"`
	ProductName string  `json:"product_name"`
	ImageURL    string  `json:"image_url"`
	Quantity    uint    `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Status      string  `json:"status"`
}

func (h *CartHandler) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get")

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	lines, err := h.Store.ListPending(ctx, userID)
	if err != nil {
		l.Error("get_cart_error", "status", 500, "error", err)
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	resp := make([]cartLineResponse, 0, len(lines))
	for _, line := range lines {
		resp = append(resp, cartLineResponse{
			ID:          line.Item.ID,
			ProductID:   line.Item.ProductID,
			ProductName: line.Product.Name,
			ImageURL:    line.Product.ImageURL,
			Quantity:    line.Item.Quantity,
			UnitPrice:   line.Product.Price,
			Status:      line.Item.Status,
		})
	}

	return httpapi.JSON(c, http.StatusOK, "OK", resp)
}

func (h *CartHandler) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var req struct {
		ProductID uint `json:"product_id"`
		Quantity  uint `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("add_to_cart_error", "status", 400, "error", err)
		return httpapi.Fail(c, http.StatusBadRequest, "invalid body")
	}

	item, err := h.Store.AddItem(ctx, userID, req.ProductID, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, cartsvc.ErrValidation):
			return httpapi.Fail(c, http.StatusBadRequest, "product_id is required")
		case errors.Is(err, cartsvc.ErrNotFound):
			return httpapi.Fail(c, http.StatusNotFound, "Product not found")
		default:
			l.Error("add_to_cart_error", "status", 500, "error", err)
			return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
		}
	}

	h.publish(c, map[string]any{
		"type":      "cart_item_added",
		"userID":    userID,
		"productID": item.ProductID,
		"quantity":  item.Quantity,
	})

	l.Info("add_to_cart_success", "cartItemID", item.ID)
	return httpapi.JSON(c, http.StatusOK, "Item added to cart", echo.Map{"cartItemId": item.ID, "item": item})
}

func (h *CartHandler) UpdateItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.update")

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	productID, err := strconv.Atoi(c.Param("product_id"))
	if err != nil || productID <= 0 {
		return httpapi.Fail(c, http.StatusBadRequest, "invalid product_id")
	}

	var req struct {
		Quantity uint `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return httpapi.Fail(c, http.StatusBadRequest, "invalid body")
	}

	item, err := h.Store.UpdateQuantity(ctx, userID, uint(productID), req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, cartsvc.ErrValidation):
			return httpapi.Fail(c, http.StatusBadRequest, "quantity must be > 0")
		case errors.Is(err, cartsvc.ErrNotFound):
			return httpapi.Fail(c, http.StatusNotFound, "Cart item not found")
		default:
			l.Error("update_cart_error", "status", 500, "error", err)
			return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
		}
	}

	h.publish(c, map[string]any{
		"type":      "cart_item_updated",
		"userID":    userID,
		"productID": item.ProductID,
		"quantity":  item.Quantity,
	})

	return httpapi.JSON(c, http.StatusOK, "Cart item updated", item)
}

func (h *CartHandler) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove")

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	productID, err := strconv.Atoi(c.Param("product_id"))
	if err != nil || productID <= 0 {
		return httpapi.Fail(c, http.StatusBadRequest, "invalid product_id")
	}

	if err := h.Store.RemoveItem(ctx, userID, uint(productID)); err != nil {
		if errors.Is(err, cartsvc.ErrNotFound) {
			return httpapi.Fail(c, http.StatusNotFound, "Cart item not found")
		}
		l.Error("remove_cart_error", "status", 500, "error", err)
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	h.publish(c, map[string]any{
		"type":      "cart_item_removed",
		"userID":    userID,
		"productID": productID,
	})

	return httpapi.JSON(c, http.StatusOK, "Item removed from cart", nil)
}
