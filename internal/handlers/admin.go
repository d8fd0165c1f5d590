package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/truongnx/plantshop/internal/hash"
	"github.com/truongnx/plantshop/internal/httpapi"
	"github.com/truongnx/plantshop/internal/logging"
	"github.com/truongnx/plantshop/internal/middleware/auth"
	"github.com/truongnx/plantshop/internal/models"
)

// AdminHandler serves the separate admin account table. Admin tokens carry
// the role claim the AdminOnly middleware checks.
type AdminHandler struct {
	DB        *gorm.DB
	JWTSecret []byte
}

func (h *AdminHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.register")

	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return httpapi.Fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.Email == "" || req.Password == "" {
		return httpapi.Fail(c, http.StatusBadRequest, "email and password are required")
	}

	var existing models.Admin
	if err := h.DB.WithContext(ctx).Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return httpapi.Fail(c, http.StatusBadRequest, "Admin already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		l.Error("admin_register_error", "status", 500, "error", err)
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	passwordHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	admin := models.Admin{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Role:         "admin",
	}
	if err := h.DB.WithContext(ctx).Create(&admin).Error; err != nil {
		l.Error("admin_register_error", "status", 500, "error", err)
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	l.Info("admin_register_success", "adminID", admin.ID)
	return httpapi.JSON(c, http.StatusOK, "Admin registered successfully", echo.Map{"adminId": admin.ID})
}

func (h *AdminHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.login")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return httpapi.Fail(c, http.StatusBadRequest, "invalid body")
	}

	var admin models.Admin
	if err := h.DB.WithContext(ctx).Where("email = ?", req.Email).First(&admin).Error; err != nil {
		return httpapi.Fail(c, http.StatusBadRequest, "Invalid credentials")
	}
	if !hash.CheckPassword(admin.PasswordHash, req.Password) {
		return httpapi.Fail(c, http.StatusBadRequest, "Invalid credentials")
	}

	token, err := auth.SignToken(admin.ID, admin.Role, h.JWTSecret, admin.Email)
	if err != nil {
		l.Error("admin_login_error", "status", 500, "error", err)
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	l.Info("admin_login_success", "adminID", admin.ID)
	return httpapi.JSON(c, http.StatusOK, "Login successful", echo.Map{"token": token})
}

func (h *AdminHandler) GetMe(c echo.Context) error {
	ctx := c.Request().Context()

	adminID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var admin models.Admin
	if err := h.DB.WithContext(ctx).First(&admin, adminID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpapi.Fail(c, http.StatusNotFound, "Admin not found")
		}
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	return httpapi.JSON(c, http.StatusOK, "OK", echo.Map{
		"id":       admin.ID,
		"username": admin.Username,
		"email":    admin.Email,
		"role":     admin.Role,
	})
}
