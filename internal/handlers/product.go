package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/truongnx/plantshop/internal/httpapi"
	"github.com/truongnx/plantshop/internal/logging"
	"github.com/truongnx/plantshop/internal/models"
	"github.com/truongnx/plantshop/internal/mykafka"
	"github.com/truongnx/plantshop/internal/service/search"
	"github.com/truongnx/plantshop/internal/util"
)

type ProductHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
	ES       *elasticsearch.Client
	ESIndex  string
}

func (h *ProductHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "product_events", fmt.Sprint(event["productID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *ProductHandler) index(c echo.Context, p models.Product) {
	if h.ES == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := search.IndexProduct(ctx, h.ES, h.ESIndex, p); err != nil {
		c.Logger().Errorf("ES index error: %v", err)
	}
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return httpapi.Fail(c, http.StatusBadRequest, "invalid id")
	}

	var product models.Product
	if err := h.DB.WithContext(c.Request().Context()).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpapi.Fail(c, http.StatusNotFound, "Product not found")
		}
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	return httpapi.JSON(c, http.StatusOK, "OK", product)
}

func (h *ProductHandler) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("limit"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var total int64
	if err := h.DB.WithContext(ctx).Model(&models.Product{}).Count(&total).Error; err != nil {
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	var items []models.Product
	if err := h.DB.WithContext(ctx).Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	return httpapi.JSON(c, http.StatusOK, "OK", echo.Map{
		"content": items,
		"pagination": echo.Map{
			"currentPage":   page,
			"totalPages":    (total + int64(limit) - 1) / int64(limit),
			"totalElements": total,
			"limit":         limit,
		},
	})
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create")

	var req struct {
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Price       float64 `json:"price"`
		ImageURL    string  `json:"image_url"`
		Count       uint    `json:"count"`
	}
	if err := c.Bind(&req); err != nil {
		return httpapi.Fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" || req.Price <= 0 {
		return httpapi.Fail(c, http.StatusBadRequest, "name and price are required")
	}

	prod := models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		ImageURL:    req.ImageURL,
		Count:       req.Count,
	}
	if err := h.DB.WithContext(ctx).Create(&prod).Error; err != nil {
		l.Error("create_product_error", "status", 500, "error", err)
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	h.publish(c, map[string]any{"type": "product_created", "productID": prod.ID, "name": prod.Name})
	h.index(c, prod)

	l.Info("create_product_success", "productID", prod.ID)
	return httpapi.JSON(c, http.StatusCreated, "Product created", prod)
}

func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.update")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return httpapi.Fail(c, http.StatusBadRequest, "invalid id")
	}

	var req struct {
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Price       float64 `json:"price"`
		ImageURL    string  `json:"image_url"`
		Count       uint    `json:"count"`
	}
	if err := c.Bind(&req); err != nil {
		return httpapi.Fail(c, http.StatusBadRequest, "invalid body")
	}

	var prod models.Product
	if err := h.DB.WithContext(ctx).First(&prod, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpapi.Fail(c, http.StatusNotFound, "Product not found")
		}
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	prod.Name = req.Name
	prod.Description = req.Description
	prod.Price = req.Price
	prod.ImageURL = req.ImageURL
	prod.Count = req.Count

	if err := h.DB.WithContext(ctx).Save(&prod).Error; err != nil {
		l.Error("update_product_error", "status", 500, "error", err)
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	h.publish(c, map[string]any{"type": "product_updated", "productID": prod.ID, "name": prod.Name})
	h.index(c, prod)

	return httpapi.JSON(c, http.StatusOK, "Product updated", prod)
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return httpapi.Fail(c, http.StatusBadRequest, "invalid id")
	}

	var prod models.Product
	if err := h.DB.WithContext(ctx).First(&prod, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpapi.Fail(c, http.StatusNotFound, "Product not found")
		}
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	if err := h.DB.WithContext(ctx).Delete(&models.Product{}, id).Error; err != nil {
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	h.publish(c, map[string]any{"type": "product_deleted", "productID": id})

	return httpapi.JSON(c, http.StatusOK, "Product deleted", nil)
}
