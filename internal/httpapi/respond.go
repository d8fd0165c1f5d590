package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Envelope is the response shape every endpoint returns, success or failure.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data,omitempty"`
}

func JSON(c echo.Context, code int, message string, data any) error {
	return c.JSON(code, Envelope{StatusCode: code, Message: message, Data: data})
}

func Fail(c echo.Context, code int, message string) error {
	return c.JSON(code, Envelope{StatusCode: code, Message: message})
}

// ErrorHandler converts uncaught errors into the envelope. Unknown routes get
// the generic 404 body; everything unexpected falls through to a 500.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "Internal server error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		}
		if code == http.StatusNotFound && errors.Is(err, echo.ErrNotFound) {
			message = "No such route exists"
		}
	}

	if err := Fail(c, code, message); err != nil {
		c.Logger().Errorf("error handler write failed: %v", err)
	}
}
