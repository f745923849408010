// Package web holds small echo helpers shared by the service handlers.
package web

import (
	"net/url"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medrec/medrec/internal/platform/apperr"
)

// Param returns the named path parameter, percent-decoded. Names such as
// "O'Brien" or "Anne Marie" arrive escaped.
func Param(c echo.Context, name string) string {
	raw := c.Param(name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// UUIDParam parses the named path parameter as a record id.
func UUIDParam(c echo.Context, name, resource string) (uuid.UUID, error) {
	raw := Param(c, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid %s id %q", resource, raw)
	}
	return id, nil
}

// Bind decodes the request body into dst, reporting failures as a 400.
func Bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return apperr.Validation("invalid request body")
	}
	return nil
}
