package h5backend

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	// регистрирует swagger-спецификацию
	_ "github.com/magabrotheeeer/h5-backend/docs"
	"github.com/magabrotheeeer/h5-backend/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/h5-backend/internal/http/handlers/health"
	"github.com/magabrotheeeer/h5-backend/internal/http/handlers/user/info"
	"github.com/magabrotheeeer/h5-backend/internal/http/handlers/user/list"
	"github.com/magabrotheeeer/h5-backend/internal/http/handlers/user/register"
	"github.com/magabrotheeeer/h5-backend/internal/http/middlewarectx"
	"github.com/magabrotheeeer/h5-backend/internal/http/response"
	"github.com/magabrotheeeer/h5-backend/internal/metrics"
)

// UserDirectory всё, что маршрутам нужно от каталога пользователей.
type UserDirectory interface {
	register.Service
	info.Service
	list.Service
}

// TokenAuthority вход и проверка токенов.
type TokenAuthority interface {
	login.Service
	middlewarectx.Verifier
}

// Deps зависимости маршрутов.
type Deps struct {
	Users          UserDirectory
	Auth           TokenAuthority
	Store          health.Pinger
	Cache          health.Pinger
	Metrics        *metrics.Metrics
	Registry       *prometheus.Registry
	LoginLimiter   *middlewarectx.IPRateLimiter
	RequestTimeout time.Duration

	// Адрес клиента из X-Forwarded-For/X-Real-IP; иначе ограничитель входа
	// видит только адрес сокета.
	TrustProxyHeaders bool
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	r.Use(middleware.RequestID)
	if deps.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(
		middleware.Logger,
		middlewarectx.Recoverer(logger),
		deps.Metrics.Middleware,
		middleware.Timeout(deps.RequestTimeout),
	)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.WriteError(w, r, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.WriteError(w, r, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.With(middlewarectx.RateLimitMiddleware(logger, deps.LoginLimiter)).
			Post("/auth/login", login.New(logger, deps.Auth).ServeHTTP)

		r.Post("/user", register.New(logger, deps.Users).ServeHTTP)
		r.Get("/user/list", list.New(logger, deps.Users).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(deps.Auth, logger))
			r.Get("/user/info", info.New(logger, deps.Users).ServeHTTP)
		})
	})

	r.Get("/healthz", health.New(logger, deps.Store, deps.Cache).ServeHTTP)
	r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	r.Get("/api-docs/*", httpSwagger.Handler(httpSwagger.URL("/api-docs/doc.json")))
}
