package web

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medrec/medrec/internal/platform/middleware"
	"github.com/medrec/medrec/internal/platform/remote"
)

// Reply writes a successful remote result with status, or returns its fault
// so the error handler renders the downstream class and message.
func Reply[T any](c echo.Context, status int, r remote.Result[T]) error {
	v, err := r.Unwrap()
	if err != nil {
		return err
	}
	if _, empty := any(v).(remote.Empty); empty || status == http.StatusNoContent {
		return c.NoContent(status)
	}
	return c.JSON(status, v)
}

// ForwardHeader copies the inbound headers a back service should see, such
// as the idempotency key of a create.
func ForwardHeader(c echo.Context) http.Header {
	h := http.Header{}
	if key := c.Request().Header.Get(middleware.IdempotencyKeyHeader); key != "" {
		h.Set(middleware.IdempotencyKeyHeader, key)
	}
	return h
}
