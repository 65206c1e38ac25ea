// Package auth выдаёт токены доступа по имени и паролю и проверяет их,
// заново разрешая пользователя через каталог.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/h5-backend/internal/lib/jwt"
	"github.com/magabrotheeeer/h5-backend/internal/lib/password"
	"github.com/magabrotheeeer/h5-backend/internal/lib/sl"
	"github.com/magabrotheeeer/h5-backend/internal/models"
)

const (
	kindLogin  = "login"
	kindVerify = "verify"

	dummyPassword = "h5-dummy-password"
)

// UserDirectory источник пользователей.
type UserDirectory interface {
	FindByUsername(ctx context.Context, username string) (*models.User, bool, error)
	FindByID(ctx context.Context, id int64) (*models.User, bool, error)
}

// Passwords хеширует и сверяет пароли.
type Passwords interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// Recorder учитывает попытки входа и проверки токена.
type Recorder interface {
	ObserveAuth(kind string, ok bool)
}

// Service отвечает за вход и проверку токенов.
type Service struct {
	users     UserDirectory
	tokens    jwt.Maker
	passwords Passwords
	metrics   Recorder
	log       *slog.Logger

	// хеш для сравнения при неизвестном имени пользователя
	dummyHash string
}

// NewService создает новый экземпляр Service.
// Фиктивный хеш считается сразу, ошибка хеширования возвращается при запуске.
func NewService(users UserDirectory, tokens jwt.Maker, passwords Passwords, metrics Recorder, log *slog.Logger) (*Service, error) {
	const op = "auth.NewService"

	dummyHash, err := passwords.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("%s: dummy hash: %w", op, err)
	}
	return &Service{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		metrics:   metrics,
		log:       log,
		dummyHash: dummyHash,
	}, nil
}

// Authenticate проверяет имя и пароль и выдаёт токен.
//
// Неизвестный пользователь и неверный пароль неразличимы: оба дают models.ErrAuthFailure.
func (s *Service) Authenticate(ctx context.Context, username, rawPassword string) (*models.LoginResult, error) {
	const op = "auth.Authenticate"
	log := s.log.With(slog.String("op", op))

	user, found, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		s.metrics.ObserveAuth(kindLogin, false)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		// сравнение с фиктивным хешем выравнивает время ответа
		_ = s.passwords.Compare(s.dummyHash, rawPassword)
		s.metrics.ObserveAuth(kindLogin, false)
		return nil, fmt.Errorf("%s: %w", op, models.ErrAuthFailure)
	}
	if err := s.passwords.Compare(user.PasswordHash, rawPassword); err != nil {
		if !errors.Is(err, password.ErrMismatch) {
			log.Warn("stored password hash is unusable", sl.UserID(user.ID), sl.Err(err))
		}
		s.metrics.ObserveAuth(kindLogin, false)
		return nil, fmt.Errorf("%s: %w", op, models.ErrAuthFailure)
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Username)
	if err != nil {
		s.metrics.ObserveAuth(kindLogin, false)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.metrics.ObserveAuth(kindLogin, true)
	log.Info("user logged in", sl.UserID(user.ID))

	return &models.LoginResult{Token: token, UserInfo: user.Info()}, nil
}

// Verify проверяет токен и возвращает личность живого пользователя.
//
// Недействительный токен или удалённый пользователь дают models.ErrAuthFailure,
// ошибки каталога возвращаются как есть.
func (s *Service) Verify(ctx context.Context, token string) (*models.Identity, error) {
	const op = "auth.Verify"

	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		s.metrics.ObserveAuth(kindVerify, false)
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrAuthFailure, err)
	}
	id, err := claims.UserID()
	if err != nil {
		s.metrics.ObserveAuth(kindVerify, false)
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrAuthFailure, err)
	}

	user, found, err := s.users.FindByID(ctx, id)
	if err != nil {
		s.metrics.ObserveAuth(kindVerify, false)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		s.metrics.ObserveAuth(kindVerify, false)
		return nil, fmt.Errorf("%s: %w", op, models.ErrAuthFailure)
	}
	s.metrics.ObserveAuth(kindVerify, true)
	return &models.Identity{ID: user.ID, Username: user.Username}, nil
}
