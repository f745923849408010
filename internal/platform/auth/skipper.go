package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths bypass the gate entirely: infrastructure probes and the
// credential endpoints that mint tokens.
var publicPaths = map[string]bool{
	"/health":    true,
	"/health/db": true,
	"/login":     true,
	"/register":  true,
}

// GateSkipper reports whether the matched route should skip token resolution.
func GateSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

// IsPublicPath reports whether path is one of the public endpoints.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
