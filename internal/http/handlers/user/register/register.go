// Package register реализует HTTP-обработчик создания учётной записи.
package register

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

// Сообщения ответа 409.
const (
	MsgUsernameTaken = "Username already exists"
	MsgEmailTaken    = "Email already registered"
)

// Request входные данные для регистрации.
type Request struct {
	Username string `json:"username" validate:"required,min=3,max=50" example:"alice"`
	Email    string `json:"email" validate:"required,email,max=100" example:"alice@example.com"`
	Password string `json:"password" validate:"required,min=6,maxbytes=72" example:"secret1"`
}

// Service каталог пользователей.
type Service interface {
	FindByUsername(ctx context.Context, username string) (*models.User, bool, error)
	FindByEmail(ctx context.Context, email string) (*models.User, bool, error)
	Create(ctx context.Context, reg models.Registration) (*models.User, error)
}

// Handler обрабатывает регистрацию.
type Handler struct {
	log      *slog.Logger
	users    Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, users Service) *Handler {
	return &Handler{
		log:      log,
		users:    users,
		validate: response.NewValidator(),
	}
}

// ServeHTTP godoc
// @Summary Регистрация пользователя
// @Description Создаёт учётную запись. Имя пользователя и почта должны быть уникальны.
// @Tags User
// @Accept  json
// @Produce  json
// @Param request body Request true "Данные нового пользователя"
// @Success 201 {object} models.PublicProfile
// @Failure 400 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 409 {object} response.ErrorResponse "Имя или почта заняты"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /user [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.register"

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
	log = log.With(slog.String("username", req.Username))

	_, taken, err := h.users.FindByUsername(r.Context(), req.Username)
	if err != nil {
		h.internalError(w, r, log, err)
		return
	}
	if taken {
		log.Info("username already taken")
		response.WriteError(w, r, http.StatusConflict, MsgUsernameTaken)
		return
	}

	_, taken, err = h.users.FindByEmail(r.Context(), req.Email)
	if err != nil {
		h.internalError(w, r, log, err)
		return
	}
	if taken {
		log.Info("email already registered")
		response.WriteError(w, r, http.StatusConflict, MsgEmailTaken)
		return
	}

	user, err := h.users.Create(r.Context(), models.Registration{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		var dup *models.DuplicateIdentityError
		if errors.As(err, &dup) {
			log.Info("duplicate identity on insert", slog.String("field", dup.Field))
			response.WriteError(w, r, http.StatusConflict, conflictMessage(dup.Field))
			return
		}
		h.internalError(w, r, log, err)
		return
	}

	log.Info("user registered", sl.UserID(user.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, user.Public())
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	log.Error("registration failed", sl.Err(err))
	response.WriteError(w, r, http.StatusInternalServerError, response.MsgInternal)
}

func conflictMessage(field string) string {
	if field == models.FieldEmail {
		return MsgEmailTaken
	}
	return MsgUsernameTaken
}
