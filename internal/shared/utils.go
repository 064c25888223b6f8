// Package shared
package shared

import (
	"os"
	"strings"

	"github.com/labstack/echo/v4"
)

func GetEnv(env, fallback string) string {
	if value, ok := os.LookupEnv(env); ok {
		return value
	}
	return fallback
}

// ExtractAPIKey pulls a bearer token from the Authorization header. Only the
// /metrics endpoint is gated; completion routes are unauthenticated.
func ExtractAPIKey(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get("Authorization")
	if auth == "" {
		return "", false
	}

	parts := strings.Split(auth, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", false
	}

	return parts[1], true
}
