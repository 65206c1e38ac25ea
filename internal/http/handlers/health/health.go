// Package health отвечает на проверку готовности: хранилище и кэш должны отвечать.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/h5-backend/internal/lib/sl"
)

const checkTimeout = 2 * time.Second

// Pinger проверяет доступность зависимости.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Response тело ответа проверки.
type Response struct {
	Status string            `json:"status" example:"ok"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler обрабатывает GET /healthz.
type Handler struct {
	log    *slog.Logger
	checks map[string]Pinger
}

// New создает Handler, проверяющий хранилище и кэш.
func New(log *slog.Logger, store, cache Pinger) *Handler {
	return &Handler{
		log:    log,
		checks: map[string]Pinger{"store": store, "cache": cache},
	}
}

// ServeHTTP godoc
// @Summary Проверка готовности
// @Tags Health
// @Produce  json
// @Success 200 {object} Response
// @Failure 503 {object} Response
// @Router /healthz [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"

	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	resp := Response{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			h.log.Warn("dependency unavailable", slog.String("op", op), slog.String("dependency", name), sl.Err(err))
			resp.Checks[name] = "unavailable"
			resp.Status = "unavailable"
			continue
		}
		resp.Checks[name] = "ok"
	}

	if resp.Status != "ok" {
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, resp)
}
