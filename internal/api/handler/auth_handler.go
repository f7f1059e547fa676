package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/makers/loans-api/internal/api/metrics"
	"github.com/makers/loans-api/internal/api/middleware"
	"github.com/makers/loans-api/internal/core/domain"
	"github.com/makers/loans-api/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates a new user account and returns a token for it.
//
// @Summary      Register a new user
// @Description  Anyone may register a User. Registering an Admin requires the bearer token of an active Admin.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	role, err := parseRole(req.Role)
	if err != nil {
		return err
	}

	caller, _ := middleware.Identity(c)
	res, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Role:     role,
		Caller:   caller,
	})
	if err != nil {
		return err
	}

	metrics.AuthRegistrationsTotal.WithLabelValues(string(res.Role)).Inc()
	return c.JSON(http.StatusCreated, toAuthResponse(res))
}

// Login authenticates a user and returns a JWT token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), ports.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAccountInactive):
			metrics.AuthLoginsTotal.WithLabelValues("inactive").Inc()
		case errors.Is(err, domain.ErrInvalidCredentials):
			metrics.AuthLoginsTotal.WithLabelValues("invalid_credentials").Inc()
		default:
			metrics.AuthLoginsTotal.WithLabelValues("error").Inc()
		}
		if domain.IsDomainError(err) {
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		}
		return err
	}

	metrics.AuthLoginsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, toAuthResponse(res))
}
