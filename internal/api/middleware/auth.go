package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/makers/loans-api/internal/core/domain"
	"github.com/makers/loans-api/internal/core/ports"
)

const identityKey = "identity"

// Auth validates the bearer token and injects the caller identity into context.
func Auth(tokens ports.TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}
			if err := authenticate(c, tokens, authHeader); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// OptionalAuth injects the caller identity when the request carries a valid
// bearer token. Missing, malformed or expired tokens leave the request
// anonymous; the use case decides whether an identity was required.
func OptionalAuth(tokens ports.TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if authHeader := c.Request().Header.Get(echo.HeaderAuthorization); authHeader != "" {
				_ = authenticate(c, tokens, authHeader)
			}
			return next(c)
		}
	}
}

func authenticate(c echo.Context, tokens ports.TokenVerifier, authHeader string) error {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
	}

	identity, err := tokens.Parse(strings.TrimSpace(parts[1]))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	c.Set(identityKey, identity)
	return nil
}

// Identity returns the caller identity set by Auth or OptionalAuth.
func Identity(c echo.Context) (domain.Identity, bool) {
	id, ok := c.Get(identityKey).(domain.Identity)
	return id, ok && !id.Anonymous()
}
