package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/makers/loans-api/docs"
	"github.com/makers/loans-api/internal/api/handler"
	"github.com/makers/loans-api/internal/api/middleware"
	"github.com/makers/loans-api/internal/core/domain"
	"github.com/makers/loans-api/internal/core/ports"
	"github.com/makers/loans-api/internal/infrastructure/http/handlers"
)

// Deps holds everything the HTTP layer needs.
type Deps struct {
	Log    zerolog.Logger
	Auth   ports.AuthService
	Loans  ports.LoanService
	Tokens ports.TokenVerifier
	// Idempotency is optional; nil disables replay of retried requests.
	Idempotency ports.IdempotencyStore
	// Checks feed the readiness probe, keyed by dependency name.
	Checks      map[string]handlers.Check
	CORSOrigins []string
	// Registry defaults to the global Prometheus registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echomiddleware.CORSWithConfig(corsConfig(d.CORSOrigins)))
	e.Use(prometheusMiddleware(d.Registry))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.Auth)
	loanHandler := handler.NewLoanHandler(d.Loans)
	authMiddleware := middleware.Auth(d.Tokens)
	idempotent := middleware.Idempotency(d.Idempotency, d.Log)

	// --- Auth routes ---
	auth := e.Group("/auth")
	auth.POST("/register", authHandler.Register, middleware.OptionalAuth(d.Tokens))
	auth.POST("/login", authHandler.Login)

	// --- Loan routes ---
	loan := e.Group("/loan", authMiddleware)
	loan.POST("/solicitar", loanHandler.Create, idempotent)
	loan.PUT("/cambiar-estado", loanHandler.ChangeState, idempotent)
	loan.GET("/mis-prestamos", loanHandler.ListMine)
	loan.GET("/usuario/:id", loanHandler.ListByUser, middleware.RBAC(domain.RoleAdmin))

	// --- Health probes (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(d.Checks)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)

	// --- Operations ---
	e.GET("/metrics", metricsHandler(d.Registry))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func corsConfig(origins []string) echomiddleware.CORSConfig {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return echomiddleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			middleware.HeaderIdempotencyKey,
		},
		ExposeHeaders: []string{echo.HeaderXRequestID, middleware.HeaderReplayed},
	}
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= http.StatusInternalServerError {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}

func prometheusMiddleware(reg *prometheus.Registry) echo.MiddlewareFunc {
	cfg := echoprometheus.MiddlewareConfig{
		Subsystem: "http",
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}
	if reg != nil {
		cfg.Registerer = reg
	}
	return echoprometheus.NewMiddlewareWithConfig(cfg)
}

func metricsHandler(reg *prometheus.Registry) echo.HandlerFunc {
	if reg == nil {
		return echoprometheus.NewHandler()
	}
	return echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: reg})
}
