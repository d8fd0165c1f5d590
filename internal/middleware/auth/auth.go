package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type TokenService struct {
	JWTSecret []byte
}

func (t *TokenService) parse(c echo.Context) (jwt.MapClaims, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "No token entered")
	}
	raw := strings.TrimPrefix(header, "Bearer ")

	token, err := jwt.Parse(raw, func(tk *jwt.Token) (interface{}, error) {
		if _, ok := tk.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tk.Header["alg"])
		}
		return t.JWTSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Invalid token claims")
	}
	return claims, nil
}

func setUserContext(c echo.Context, claims jwt.MapClaims) error {
	sub, ok := claims["sub"].(float64)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid subject claim")
	}
	role, _ := claims["role"].(string)
	c.Set("userID", uint(sub))
	c.Set("role", role)
	return nil
}

// RequireLogin validates the bearer token and puts userID/role into context.
func (t *TokenService) RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := t.parse(c)
		if err != nil {
			return err
		}
		if err := setUserContext(c, claims); err != nil {
			return err
		}
		return next(c)
	}
}

// AdminOnly additionally requires the admin role.
func (t *TokenService) AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := t.parse(c)
		if err != nil {
			return err
		}
		if err := setUserContext(c, claims); err != nil {
			return err
		}
		if role, _ := c.Get("role").(string); role != "admin" && role != "superadmin" {
			return echo.NewHTTPError(http.StatusForbidden, "Forbidden: Only admins can access this resource")
		}
		return next(c)
	}
}

// UserID pulls the authenticated user's id out of context.
func UserID(c echo.Context) (uint, error) {
	id, ok := c.Get("userID").(uint)
	if !ok || id == 0 {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return id, nil
}

// SignToken issues an HS256 bearer token valid for one hour.
func SignToken(subject uint, role string, secret []byte, email string) (string, error) {
	claims := jwt.MapClaims{
		"sub":   subject,
		"role":  role,
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
