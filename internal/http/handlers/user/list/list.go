// Package list отдаёт профили всех пользователей, новые первыми.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/h5-backend/internal/http/response"
	"github.com/magabrotheeeer/h5-backend/internal/lib/sl"
	"github.com/magabrotheeeer/h5-backend/internal/models"
)

// Service источник списка пользователей.
type Service interface {
	ListAll(ctx context.Context) ([]models.PublicProfile, error)
}

// Handler обрабатывает GET /user/list.
type Handler struct {
	log   *slog.Logger
	users Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, users Service) *Handler {
	return &Handler{log: log, users: users}
}

// ServeHTTP godoc
// @Summary Список пользователей
// @Tags User
// @Produce  json
// @Success 200 {array} models.PublicProfile
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /user/list [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	profiles, err := h.users.ListAll(r.Context())
	if err != nil {
		log.Error("failed to list users", sl.Err(err))
		response.WriteError(w, r, http.StatusInternalServerError, response.MsgInternal)
		return
	}
	if profiles == nil {
		profiles = []models.PublicProfile{}
	}
	log.Debug("users listed", slog.Int("count", len(profiles)))
	render.JSON(w, r, profiles)
}
