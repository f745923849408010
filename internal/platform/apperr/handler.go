package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Body is the wire shape of every error response.
type Body struct {
	Message string `json:"message"`
}

// HTTPErrorHandler returns an echo.HTTPErrorHandler that renders any error as
// {"message": "..."} with the status it carries. Errors without a status are
// reported as 500 with a generic message; their text is only logged.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, msg := resolve(err)
		if status >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).
				Str("request_id", rid).
				Str("path", c.Request().URL.Path).
				Int("status", status).
				Msg("request failed")
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, Body{Message: msg})
		}
		if writeErr != nil {
			logger.Error().Err(writeErr).Msg("write error response")
		}
	}
}

func resolve(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Internal != nil {
			if status, msg := resolve(he.Internal); status != http.StatusInternalServerError {
				return status, msg
			}
		}
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatus(), sc.Error()
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}
