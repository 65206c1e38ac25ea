// Package metrics собирает счётчики Prometheus для кэша, аутентификации,
// регистрации и HTTP-запросов.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Результаты обращений к кэшу.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Результаты регистрации.
const (
	RegistrationCreated   = "created"
	RegistrationDuplicate = "duplicate"
	RegistrationFailed    = "error"
)

// Metrics хранит зарегистрированные коллекторы.
type Metrics struct {
	cacheLookups  *prometheus.CounterVec
	authAttempts  *prometheus.CounterVec
	registrations *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New создаёт коллекторы и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "h5",
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by key family and result.",
		}, []string{"family", "result"}),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "h5",
			Name:      "auth_attempts_total",
			Help:      "Login and token verification attempts by result.",
		}, []string{"kind", "result"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "h5",
			Name:      "registrations_total",
			Help:      "User registrations by result.",
		}, []string{"result"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "h5",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.cacheLookups, m.authAttempts, m.registrations, m.httpDuration)
	return m
}

// ObserveCacheLookup учитывает обращение к кэшу.
func (m *Metrics) ObserveCacheLookup(family, result string) {
	m.cacheLookups.WithLabelValues(family, result).Inc()
}

// ObserveAuth учитывает попытку входа ("login") или проверки токена ("verify").
func (m *Metrics) ObserveAuth(kind string, ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	m.authAttempts.WithLabelValues(kind, result).Inc()
}

// ObserveRegistration учитывает результат регистрации.
func (m *Metrics) ObserveRegistration(result string) {
	m.registrations.WithLabelValues(result).Inc()
}

// Middleware замеряет длительность запросов по шаблону маршрута chi.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}
