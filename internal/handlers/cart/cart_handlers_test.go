package cart

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/truongnx/plantshop/internal/models"
	cartsvc "github.com/truongnx/plantshop/internal/service/cart"
)

func InitTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
		return nil
	}

	if err := db.AutoMigrate(&models.Product{}, &models.CartItem{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	return db
}

func newHandler(t *testing.T) (*CartHandler, *gorm.DB) {
	db := InitTestDB(t)
	return &CartHandler{Store: &cartsvc.Store{DB: db}}, db
}

func doJSONRequest(t *testing.T, method, target string, payload any, userID uint) (*httptest.ResponseRecorder, echo.Context) {
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}

	e := echo.New()
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("userID", userID)
	c.Set("role", "user")
	return rec, c
}

func TestAddToCart(t *testing.T) {
	h, db := newHandler(t)

	p := models.Product{Name: "monstera", Description: "test_description", Price: 50000, Count: 10}
	require.NoError(t, db.Create(&p).Error)

	rec, c := doJSONRequest(t, http.MethodPost, "/api/v1/carts/add", map[string]any{
		"product_id": p.ID,
		"quantity":   2,
	}, 1)
	require.NoError(t, h.AddToCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var item models.CartItem
	require.NoError(t, db.Where("user_id = ?", 1).First(&item).Error)
	require.Equal(t, uint(2), item.Quantity)
	require.Equal(t, models.CartStatusNotPaid, item.Status)
}

func TestAddToCartUnknownProduct(t *testing.T) {
	h, _ := newHandler(t)

	rec, c := doJSONRequest(t, http.MethodPost, "/api/v1/carts/add", map[string]any{
		"product_id": 999,
	}, 1)
	require.NoError(t, h.AddToCart(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddToCartMissingProductID(t *testing.T) {
	h, _ := newHandler(t)

	rec, c := doJSONRequest(t, http.MethodPost, "/api/v1/carts/add", map[string]any{
		"quantity": 1,
	}, 1)
	require.NoError(t, h.AddToCart(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCart(t *testing.T) {
	h, db := newHandler(t)

	p := models.Product{Name: "monstera", Description: "test_description", Price: 50000, ImageURL: "img.png", Count: 10}
	require.NoError(t, db.Create(&p).Error)

	rec, c := doJSONRequest(t, http.MethodPost, "/api/v1/carts/add", map[string]any{
		"product_id": p.ID,
		"quantity":   2,
	}, 1)
	require.NoError(t, h.AddToCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, c = doJSONRequest(t, http.MethodGet, "/api/v1/carts", nil, 1)
	require.NoError(t, h.GetCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []struct {
			ProductName string  `json:"product_name"`
			ImageURL    string  `json:"image_url"`
			Quantity    uint    `json:"quantity"`
			UnitPrice   float64 `json:"unit_price"`
			Status      string  `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Equal(t, "monstera", resp.Data[0].ProductName)
	require.Equal(t, "img.png", resp.Data[0].ImageURL)
	require.Equal(t, uint(2), resp.Data[0].Quantity)
	require.Equal(t, 50000.0, resp.Data[0].UnitPrice)
	require.Equal(t, models.CartStatusNotPaid, resp.Data[0].Status)
}

func TestUpdateAndRemoveItem(t *testing.T) {
	h, db := newHandler(t)

	p := models.Product{Name: "monstera", Description: "test_description", Price: 50000, Count: 10}
	require.NoError(t, db.Create(&p).Error)

	rec, c := doJSONRequest(t, http.MethodPost, "/api/v1/carts/add", map[string]any{"product_id": p.ID}, 1)
	require.NoError(t, h.AddToCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, c = doJSONRequest(t, http.MethodPut, "/api/v1/carts/1", map[string]any{"quantity": 5}, 1)
	c.SetParamNames("product_id")
	c.SetParamValues("1")
	require.NoError(t, h.UpdateItem(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var item models.CartItem
	require.NoError(t, db.Where("user_id = ?", 1).First(&item).Error)
	require.Equal(t, uint(5), item.Quantity)

	rec, c = doJSONRequest(t, http.MethodDelete, "/api/v1/carts/1", nil, 1)
	c.SetParamNames("product_id")
	c.SetParamValues("1")
	require.NoError(t, h.RemoveItem(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var count int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("user_id = ?", 1).Count(&count).Error)
	require.Zero(t, count)
}
