// Package middlewarectx содержит HTTP middleware: проверку bearer-токена,
// ограничение частоты запросов по IP и перехват паник.
//
// JWTMiddleware извлекает токен из заголовка Authorization, проверяет его через
// Verifier и кладёт models.Identity в контекст запроса. Отсутствующий или
// недействительный токен даёт 401.
package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/h5-backend/internal/http/response"
	"github.com/magabrotheeeer/h5-backend/internal/lib/sl"
	"github.com/magabrotheeeer/h5-backend/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// IdentityKey ключ models.Identity в контексте.
const IdentityKey Key = "identity"

const bearerPrefix = "Bearer "

// MsgUnauthorized сообщение ответа 401.
const MsgUnauthorized = "Unauthorized"

// Verifier проверяет токен и возвращает личность пользователя.
type Verifier interface {
	Verify(ctx context.Context, token string) (*models.Identity, error)
}

// JWTMiddleware возвращает middleware, пропускающий только запросы с действующим токеном.
func JWTMiddleware(verifier Verifier, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			token, ok := bearerToken(r)
			if !ok {
				log.Info("missing or malformed authorization header")
				response.WriteError(w, r, http.StatusUnauthorized, MsgUnauthorized)
				return
			}

			identity, err := verifier.Verify(r.Context(), token)
			if err != nil {
				if errors.Is(err, models.ErrAuthFailure) {
					log.Info("token rejected", sl.Err(err))
					response.WriteError(w, r, http.StatusUnauthorized, MsgUnauthorized)
					return
				}
				log.Error("failed to verify token", sl.Err(err))
				response.WriteError(w, r, http.StatusInternalServerError, response.MsgInternal)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), *identity)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// WithIdentity кладёт личность в контекст.
func WithIdentity(ctx context.Context, identity models.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// IdentityFromContext достаёт личность, положенную JWTMiddleware.
func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(models.Identity)
	return identity, ok
}
