package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/truongnx/plantshop/internal/httpapi"
	"github.com/truongnx/plantshop/internal/logging"
	"github.com/truongnx/plantshop/internal/models"
)

type DashboardHandler struct {
	DB *gorm.DB
}

// GetMetrics returns the admin dashboard summary. Revenue only counts orders
// whose status represents money actually in flight or settled.
func (h *DashboardHandler) GetMetrics(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "dashboard.metrics")

	var totalOrders int64
	if err := h.DB.WithContext(ctx).Model(&models.Order{}).Count(&totalOrders).Error; err != nil {
		l.Error("dashboard_error", "status", 500, "error", err)
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	var totalProducts int64
	if err := h.DB.WithContext(ctx).Model(&models.Product{}).Count(&totalProducts).Error; err != nil {
		l.Error("dashboard_error", "status", 500, "error", err)
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	validStatuses := []string{
		models.OrderStatusPending,
		models.OrderStatusShipping,
		models.OrderStatusDelivered,
	}
	var totalRevenue float64
	if err := h.DB.WithContext(ctx).Model(&models.Order{}).
		Where("status IN ?", validStatuses).
		Select("COALESCE(SUM(total_price), 0)").
		Scan(&totalRevenue).Error; err != nil {
		l.Error("dashboard_error", "status", 500, "error", err)
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	return httpapi.JSON(c, http.StatusOK, "OK", echo.Map{
		"totalOrders":   totalOrders,
		"totalProducts": totalProducts,
		"totalRevenue":  totalRevenue,
	})
}
