package middleware

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"

	"github.com/makers/loans-api/internal/core/domain"
)

// RBAC admits only callers whose token carries one of allowedRoles. Mount it
// after Auth; a request without a verified identity is forbidden as well.
func RBAC(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := Identity(c)
			if !ok || !slices.Contains(allowedRoles, id.Role) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
