package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/makers/loans-api/internal/api/middleware"
	"github.com/makers/loans-api/internal/core/domain"
)

// callerIdentity returns the identity injected by the Auth middleware and
// fails fast with 401 when the route was mounted without it.
func callerIdentity(c echo.Context) (domain.Identity, error) {
	id, ok := middleware.Identity(c)
	if !ok {
		return domain.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return id, nil
}

// bindAndValidate decodes the JSON body into req and runs the validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return c.Validate(req)
}
