// Package gateway is the edge router. It exposes the front services under
// a path prefix each; back services have no public route.
package gateway

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/medrec/medrec/internal/platform/middleware"
)

// Route maps a public prefix onto one upstream service.
type Route struct {
	Service string
	Prefix  string
	Target  string
	// Only, when non-empty, limits the route to these upstream paths.
	Only []string
}

// PatientIdentityPaths are the only patient-service paths reachable from the
// edge. Patient records are served to physicians through their own front.
var PatientIdentityPaths = []string{"/register", "/login", "/profile"}

// Routes builds the standard edge table from the front-service addresses.
func Routes(physicianURL, pharmacistURL, patientURL string) []Route {
	return []Route{
		{Service: "physician", Prefix: "/physician", Target: physicianURL},
		{Service: "pharmacist", Prefix: "/pharmacist", Target: pharmacistURL},
		{Service: "patient", Prefix: "/patient", Target: patientURL, Only: PatientIdentityPaths},
	}
}

// Mount registers one proxy group per route on e.
func Mount(e *echo.Echo, routes []Route, logger zerolog.Logger) error {
	for _, r := range routes {
		mw, err := proxy(r, logger)
		if err != nil {
			return err
		}
		e.Group(r.Prefix, mw)
		logger.Info().Str("service", r.Service).Str("prefix", r.Prefix).Str("target", r.Target).Msg("gateway route")
	}
	return nil
}

func proxy(r Route, logger zerolog.Logger) (echo.MiddlewareFunc, error) {
	target, err := url.Parse(r.Target)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("gateway route %s: invalid target %q", r.Prefix, r.Target)
	}

	allowed := make(map[string]bool, len(r.Only))
	for _, p := range r.Only {
		allowed[r.Prefix+p] = true
	}

	return echomw.ProxyWithConfig(echomw.ProxyConfig{
		Skipper: func(c echo.Context) bool {
			return len(allowed) > 0 && !allowed[c.Request().URL.Path]
		},
		Balancer: echomw.NewRoundRobinBalancer([]*echomw.ProxyTarget{
			{Name: r.Service, URL: target},
		}),
		Rewrite: map[string]string{
			r.Prefix + "/*": "/$1",
		},
		// The upstream echoes the forwarded request id; the gateway has
		// already set it on the response.
		ModifyResponse: func(resp *http.Response) error {
			resp.Header.Del(middleware.RequestIDHeader)
			return nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			logger.Warn().Err(err).
				Str("service", r.Service).
				Str("path", c.Request().URL.Path).
				Msg("upstream unavailable")
			return echo.NewHTTPError(http.StatusBadGateway, fmt.Sprintf("%s service unavailable", r.Service))
		},
	}), nil
}
