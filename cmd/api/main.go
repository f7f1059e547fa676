// @title                       Loans API
// @version                     1.0
// @description                 Loan requests and administrator decisions behind JWT authentication.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the JWT.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/makers/loans-api/internal/api"
	"github.com/makers/loans-api/internal/core/ports"
	"github.com/makers/loans-api/internal/core/service"
	"github.com/makers/loans-api/internal/infrastructure/config"
	"github.com/makers/loans-api/internal/infrastructure/db/gormdb"
	mongostore "github.com/makers/loans-api/internal/infrastructure/db/mongo"
	redisstore "github.com/makers/loans-api/internal/infrastructure/db/redis"
	"github.com/makers/loans-api/internal/infrastructure/http/handlers"
	natsbus "github.com/makers/loans-api/internal/infrastructure/messaging/nats"
	"github.com/makers/loans-api/internal/infrastructure/queue"
	"github.com/makers/loans-api/internal/infrastructure/security"
	"github.com/makers/loans-api/pkg/logger"
)

func main() {
	// A missing .env is fine; real deployments inject the environment.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "loans-api",
	})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("loans-api stopped")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]handlers.Check{}
	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	// --- Store ---
	uow, err := openStore(ctx, cfg, log, checks, &closers)
	if err != nil {
		return err
	}

	// --- Idempotency ---
	var idem ports.IdempotencyStore
	if cfg.Redis.Addr != "" {
		client, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		closers = append(closers, func() { _ = client.Close() })
		checks["redis"] = func(ctx context.Context) error { return redisstore.Ping(ctx, client) }
		idem = redisstore.NewIdempotencyStore(client, cfg.Redis.IdempotencyTTL)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("idempotent replay enabled")
	}

	// --- Events ---
	var sink ports.LoanEventPublisher = natsbus.NewLogPublisher(logger.Component(log, "events"))
	if cfg.Events.NATSURL != "" {
		conn, err := natsbus.Connect(cfg.Events.NATSURL, logger.Component(log, "nats"))
		if err != nil {
			return err
		}
		closers = append(closers, func() { _ = conn.Drain() })
		checks["nats"] = func(ctx context.Context) error { return natsbus.Ping(ctx, conn) }
		sink = natsbus.NewPublisher(conn, cfg.Events.SubjectPrefix)
	}
	dispatcher := queue.NewDispatcher(cfg.Events.Workers, sink, logger.Component(log, "dispatcher"))
	// Workers outlive the signal context so Stop can drain queued events.
	dispatcher.Start(context.WithoutCancel(ctx))

	// --- Services ---
	hasher := security.NewBcryptHasher(0)
	tokens := security.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.TTL())
	authService := service.NewAuthService(uow, hasher, tokens, log)
	loanService := service.NewLoanService(uow, dispatcher, service.LoanOptions{
		AllowRedecision: cfg.Loans.AllowRedecision,
	}, log)

	if cfg.Bootstrap.Enabled() {
		if _, err := authService.EnsureAdmin(ctx, cfg.Bootstrap.AdminUsername, cfg.Bootstrap.AdminPassword); err != nil {
			return err
		}
	}

	e := api.NewRouter(api.Deps{
		Log:         log,
		Auth:        authService,
		Loans:       loanService,
		Tokens:      tokens,
		Idempotency: idem,
		Checks:      checks,
		CORSOrigins: cfg.CORSOrigins,
	})

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.Store.Driver).Msg("loans-api listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			dispatcher.Stop()
			return err
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	dispatcher.Stop()
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger, checks map[string]handlers.Check, closers *[]func()) (ports.UnitOfWork, error) {
	if cfg.Store.Driver == config.DriverMongo {
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, func() { _ = client.Disconnect(context.Background()) })
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			return nil, err
		}
		checks["store"] = func(ctx context.Context) error { return mongostore.Ping(ctx, db) }
		return mongostore.NewUnitOfWork(client, db, cfg.Mongo.UseTransactions), nil
	}

	db, err := gormdb.Open(gormdb.Config{
		Driver:       cfg.Store.Driver,
		DSN:          cfg.Store.DSN,
		MaxOpenConns: cfg.Store.MaxOpenConns,
		MaxIdleConns: cfg.Store.MaxIdleConns,
	}, logger.Component(log, "gorm"))
	if err != nil {
		return nil, err
	}
	*closers = append(*closers, func() { _ = gormdb.Close(db) })
	if cfg.Store.AutoMigrate {
		if err := gormdb.Migrate(db); err != nil {
			return nil, err
		}
	}
	checks["store"] = func(ctx context.Context) error { return gormdb.Ping(ctx, db) }
	return gormdb.NewUnitOfWork(db), nil
}
