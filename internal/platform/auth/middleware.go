package auth

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const bearerPrefix = "Bearer "

// TokenVerifier recovers the subject of a bearer token.
type TokenVerifier interface {
	VerifySubject(token string) (string, error)
}

// Gate returns middleware that resolves the bearer token of each request into
// a Principal stored on the request context. It never rejects a request: a
// missing, malformed or expired token, or a subject that no longer resolves,
// leaves the request anonymous and RequireRole decides whether that is
// acceptable for the matched route.
func Gate(verifier TokenVerifier, lookup PrincipalLookup, logger zerolog.Logger, skipper func(echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper != nil && skipper(c) {
				return next(c)
			}

			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(header, bearerPrefix) {
				return next(c)
			}

			ctx := c.Request().Context()
			if _, ok := PrincipalFromContext(ctx); ok {
				return next(c)
			}

			tokenStr := strings.TrimSpace(header[len(bearerPrefix):])
			subject, err := verifier.VerifySubject(tokenStr)
			if err != nil {
				logger.Debug().Err(err).Str("path", c.Request().URL.Path).Msg("bearer token rejected")
				return next(c)
			}

			principal, err := lookup.LookupPrincipal(ctx, subject)
			if err != nil {
				logger.Debug().Err(err).Str("subject", subject).Msg("token subject did not resolve")
				return next(c)
			}

			c.SetRequest(c.Request().WithContext(WithPrincipal(ctx, principal)))
			c.Set("principal_id", principal.ID.String())
			return next(c)
		}
	}
}
