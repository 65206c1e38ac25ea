// Package h5backend собирает зависимости приложения и запускает HTTP-сервер.
package h5backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/magabrotheeeer/h5-backend/internal/cache"
	"github.com/magabrotheeeer/h5-backend/internal/config"
	"github.com/magabrotheeeer/h5-backend/internal/events"
	"github.com/magabrotheeeer/h5-backend/internal/http/middlewarectx"
	"github.com/magabrotheeeer/h5-backend/internal/lib/jwt"
	"github.com/magabrotheeeer/h5-backend/internal/lib/password"
	"github.com/magabrotheeeer/h5-backend/internal/lib/sl"
	"github.com/magabrotheeeer/h5-backend/internal/metrics"
	"github.com/magabrotheeeer/h5-backend/internal/migrations"
	"github.com/magabrotheeeer/h5-backend/internal/services/auth"
	"github.com/magabrotheeeer/h5-backend/internal/services/users"
	"github.com/magabrotheeeer/h5-backend/internal/storage/repository"
)

const (
	shutdownTimeout = 15 * time.Second
	amqpRetries     = 5
	amqpRetryDelay  = 2 * time.Second
	userKeyPattern  = "user:*"
)

type eventPublisher interface {
	users.Publisher
	Close() error
}

// App приложение со всеми открытыми ресурсами.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
	events eventPublisher
}

// New подключается к хранилищу, кэшу и брокеру, применяет миграции и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "h5backend.New"

	db, err := repository.New(cfg.StorageConnectionString, cfg.StorageOpTimeout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("migrations applied")

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.FlushOnStart {
		n, err := cacheRedis.DeleteByPattern(ctx, userKeyPattern)
		if err != nil {
			logger.Warn("failed to flush user cache", sl.Err(err))
		} else {
			logger.Info("user cache flushed", slog.Int64("keys", n))
		}
	}

	publisher := newPublisher(cfg.RabbitMQ, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	hasher := password.NewHasher(cfg.BcryptCost)
	usersService := users.NewService(db, cacheRedis, hasher, publisher, m, logger)
	authService, err := auth.NewService(usersService, jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL), hasher, m, logger)
	if err != nil {
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Deps{
		Users:             usersService,
		Auth:              authService,
		Store:             db,
		Cache:             cacheRedis,
		Metrics:           m,
		Registry:          registry,
		LoginLimiter:      middlewarectx.NewIPRateLimiter(cfg.RPS, cfg.Burst),
		RequestTimeout:    cfg.TimeoutHTTP,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP + time.Second,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
		events: publisher,
	}, nil
}

// newPublisher подключается к RabbitMQ; без URL или при недоступном брокере события не публикуются.
func newPublisher(cfg config.RabbitMQ, logger *slog.Logger) eventPublisher {
	if cfg.URL == "" {
		logger.Info("rabbitmq url is empty, events disabled")
		return events.Noop{}
	}
	conn, err := events.Connect(cfg.URL, amqpRetries, amqpRetryDelay)
	if err != nil {
		logger.Warn("rabbitmq unavailable, events disabled", sl.Err(err))
		return events.Noop{}
	}
	p, err := events.NewPublisher(conn, cfg.Exchange, logger)
	if err != nil {
		_ = conn.Close()
		logger.Warn("failed to set up rabbitmq publisher, events disabled", sl.Err(err))
		return events.Noop{}
	}
	return p
}

// Run запускает HTTP-сервер и останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if err := a.events.Close(); err != nil {
		a.logger.Warn("failed to close event publisher", sl.Err(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("failed to close cache", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close storage", sl.Err(err))
	}
}
