package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole returns middleware that only admits requests carrying a
// principal with one of the given roles. With no roles, any authenticated
// principal is admitted. Anonymous requests get 403 access denied.
func RequireRole(roles ...Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFromContext(c.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusForbidden, "access denied")
			}
			if len(roles) == 0 {
				return next(c)
			}
			for _, r := range roles {
				if p.Role == r {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "access denied: requires "+roleList(roles))
		}
	}
}

// MustPrincipal returns the principal of a request that passed RequireRole.
func MustPrincipal(c echo.Context) (Principal, error) {
	p, ok := PrincipalFromContext(c.Request().Context())
	if !ok {
		return Principal{}, echo.NewHTTPError(http.StatusForbidden, "access denied")
	}
	return p, nil
}

func roleList(roles []Role) string {
	out := ""
	for i, r := range roles {
		if i > 0 {
			out += " or "
		}
		out += r.Authority()
	}
	return out
}
