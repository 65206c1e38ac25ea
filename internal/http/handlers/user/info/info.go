// Package info отдаёт профиль текущего пользователя по токену.
package info

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/h5-backend/internal/http/middlewarectx"
	"github.com/magabrotheeeer/h5-backend/internal/http/response"
	"github.com/magabrotheeeer/h5-backend/internal/lib/sl"
	"github.com/magabrotheeeer/h5-backend/internal/models"
)

// Service источник профилей.
type Service interface {
	GetPublicProfile(ctx context.Context, id int64) (*models.PublicProfile, bool, error)
}

// Handler обрабатывает GET /user/info.
type Handler struct {
	log   *slog.Logger
	users Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, users Service) *Handler {
	return &Handler{log: log, users: users}
}

// ServeHTTP godoc
// @Summary Профиль текущего пользователя
// @Tags User
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} models.PublicProfile
// @Failure 401 {object} response.ErrorResponse "Нет токена, токен недействителен или пользователь удалён"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /user/info [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.info"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	identity, ok := middlewarectx.IdentityFromContext(r.Context())
	if !ok {
		log.Error("identity missing from context")
		response.WriteError(w, r, http.StatusUnauthorized, middlewarectx.MsgUnauthorized)
		return
	}

	profile, found, err := h.users.GetPublicProfile(r.Context(), identity.ID)
	if err != nil {
		log.Error("failed to load profile", sl.UserID(identity.ID), sl.Err(err))
		response.WriteError(w, r, http.StatusInternalServerError, response.MsgInternal)
		return
	}
	if !found {
		log.Info("user no longer exists", sl.UserID(identity.ID))
		response.WriteError(w, r, http.StatusUnauthorized, middlewarectx.MsgUnauthorized)
		return
	}

	render.JSON(w, r, profile)
}
