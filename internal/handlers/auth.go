package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/truongnx/plantshop/internal/hash"
	"github.com/truongnx/plantshop/internal/httpapi"
	"github.com/truongnx/plantshop/internal/logging"
	"github.com/truongnx/plantshop/internal/middleware/auth"
	"github.com/truongnx/plantshop/internal/models"
	"github.com/truongnx/plantshop/internal/mykafka"
)

type AuthHandler struct {
	DB        *gorm.DB
	JWTSecret []byte
	Producer  *mykafka.Producer
}

func (h *AuthHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "user_events", fmt.Sprint(event["userID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return httpapi.Fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.Email == "" || req.Password == "" {
		return httpapi.Fail(c, http.StatusBadRequest, "email and password are required")
	}

	var existing models.User
	if err := h.DB.WithContext(ctx).Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return httpapi.Fail(c, http.StatusBadRequest, "User already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		l.Error("register_error", "status", 500, "error", err)
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	passwordHash, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("register_error", "status", 500, "error", err)
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	user := models.User{Name: req.Name, Email: req.Email, PasswordHash: passwordHash}
	if err := h.DB.WithContext(ctx).Create(&user).Error; err != nil {
		l.Error("register_error", "status", 500, "error", err)
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	h.publish(c, map[string]any{"type": "user_registered", "userID": user.ID, "email": user.Email})

	l.Info("register_success", "userID", user.ID)
	return httpapi.JSON(c, http.StatusCreated, "User registered successfully", echo.Map{"userId": user.ID})
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return httpapi.Fail(c, http.StatusBadRequest, "invalid body")
	}

	var user models.User
	if err := h.DB.WithContext(ctx).Where("email = ?", req.Email).First(&user).Error; err != nil {
		return httpapi.Fail(c, http.StatusUnauthorized, "Invalid email or password")
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		return httpapi.Fail(c, http.StatusUnauthorized, "Invalid email or password")
	}

	token, err := auth.SignToken(user.ID, "user", h.JWTSecret, user.Email)
	if err != nil {
		l.Error("login_error", "status", 500, "error", err)
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	h.publish(c, map[string]any{"type": "user_logged_in", "userID": user.ID})

	l.Info("login_success", "userID", user.ID)
	return httpapi.JSON(c, http.StatusOK, "Login successful", echo.Map{"token": token})
}

func (h *AuthHandler) GetMe(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var user models.User
	if err := h.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpapi.Fail(c, http.StatusNotFound, "User not found")
		}
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	return httpapi.JSON(c, http.StatusOK, "OK", echo.Map{"username": user.Name, "email": user.Email})
}
