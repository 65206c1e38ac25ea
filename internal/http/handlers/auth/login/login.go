// Package login реализует HTTP-обработчик входа по имени пользователя и паролю.
//
// При успехе возвращается подписанный токен и краткий профиль пользователя;
// неверные учётные данные и неизвестный пользователь дают одинаковый ответ 401.
package login

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/h5-backend/internal/http/response"
	"github.com/magabrotheeeer/h5-backend/internal/lib/sl"
	"github.com/magabrotheeeer/h5-backend/internal/models"
)

// MsgInvalidCredentials сообщение ответа 401 при входе.
const MsgInvalidCredentials = "Invalid username or password"

// Request учётные данные для входа.
type Request struct {
	Username string `json:"username" validate:"required" example:"alice"`
	Password string `json:"password" validate:"required" example:"secret1"`
}

// Service описывает аутентификацию.
type Service interface {
	Authenticate(ctx context.Context, username, password string) (*models.LoginResult, error)
}

// Handler обрабатывает запросы входа.
type Handler struct {
	log      *slog.Logger
	auth     Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, auth Service) *Handler {
	return &Handler{
		log:      log,
		auth:     auth,
		validate: response.NewValidator(),
	}
}

// ServeHTTP godoc
// @Summary Вход пользователя
// @Description Проверяет имя и пароль, возвращает JWT и профиль.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Учетные данные пользователя"
// @Success 200 {object} models.LoginResult
// @Failure 400 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 401 {object} response.ErrorResponse "Неверные учетные данные"
// @Failure 429 {object} response.ErrorResponse "Слишком много попыток"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Info("failed to decode request body", sl.Err(err))
		response.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		response.ValidationError(w, r, err)
		return
	}

	res, err := h.auth.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, models.ErrAuthFailure) {
			log.Info("login rejected", slog.String("username", req.Username))
			response.WriteError(w, r, http.StatusUnauthorized, MsgInvalidCredentials)
			return
		}
		log.Error("login failed", sl.Err(err))
		response.WriteError(w, r, http.StatusInternalServerError, response.MsgInternal)
		return
	}

	log.Info("login success", sl.UserID(res.UserInfo.ID))
	render.JSON(w, r, res)
}
