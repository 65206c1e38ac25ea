// Package users реализует каталог пользователей: чтение через кэш (cache-aside)
// поверх хранилища учётных данных и создание учётных записей.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/h5-backend/internal/lib/sl"
	"github.com/magabrotheeeer/h5-backend/internal/metrics"
	"github.com/magabrotheeeer/h5-backend/internal/models"
)

const (
	// UserTTL время жизни записи одного пользователя.
	UserTTL = time.Hour
	// ListTTL время жизни кэшированного списка.
	ListTTL = 30 * time.Minute
)

// Repository хранилище учётных данных.
type Repository interface {
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
}

// Cache текстовый кэш с TTL.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Hasher хеширует пароль при регистрации.
type Hasher interface {
	Hash(password string) (string, error)
}

// Publisher публикует событие о регистрации.
type Publisher interface {
	PublishUserRegistered(ctx context.Context, user *models.User) error
}

// Recorder принимает метрики кэша и регистраций.
type Recorder interface {
	ObserveCacheLookup(family, result string)
	ObserveRegistration(result string)
}

// Service каталог пользователей.
type Service struct {
	repo    Repository
	cache   Cache
	hasher  Hasher
	events  Publisher
	metrics Recorder
	log     *slog.Logger
}

// NewService создаёт каталог пользователей.
func NewService(repo Repository, cache Cache, hasher Hasher, events Publisher, metrics Recorder, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		cache:   cache,
		hasher:  hasher,
		events:  events,
		metrics: metrics,
		log:     log,
	}
}

// FindByID ищет пользователя по идентификатору.
func (s *Service) FindByID(ctx context.Context, id int64) (*models.User, bool, error) {
	const op = "users.FindByID"
	return s.findUser(ctx, op, familyID, keyByID(id), false, func(ctx context.Context) (*models.User, error) {
		return s.repo.GetUserByID(ctx, id)
	})
}

// FindByUsername ищет пользователя по имени; при промахе прогревает и запись по id.
func (s *Service) FindByUsername(ctx context.Context, username string) (*models.User, bool, error) {
	const op = "users.FindByUsername"
	return s.findUser(ctx, op, familyUsername, keyByUsername(username), true, func(ctx context.Context) (*models.User, error) {
		return s.repo.GetUserByUsername(ctx, username)
	})
}

// FindByEmail ищет пользователя по почте; при промахе прогревает и запись по id.
func (s *Service) FindByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	const op = "users.FindByEmail"
	return s.findUser(ctx, op, familyEmail, keyByEmail(email), true, func(ctx context.Context) (*models.User, error) {
		return s.repo.GetUserByEmail(ctx, email)
	})
}

// GetPublicProfile возвращает профиль без хеша пароля.
func (s *Service) GetPublicProfile(ctx context.Context, id int64) (*models.PublicProfile, bool, error) {
	user, found, err := s.FindByID(ctx, id)
	if err != nil || !found {
		return nil, found, err
	}
	profile := user.Public()
	return &profile, true, nil
}

func (s *Service) findUser(
	ctx context.Context,
	op, family, key string,
	warmByID bool,
	load func(ctx context.Context) (*models.User, error),
) (*models.User, bool, error) {
	log := s.log.With(slog.String("op", op), slog.String("key", key))

	if raw, ok := s.cacheGet(ctx, log, family, key); ok {
		user, err := decodeUser(raw)
		if err == nil {
			s.metrics.ObserveCacheLookup(family, metrics.CacheHit)
			return user, true, nil
		}
		log.Warn("discarding corrupt cache entry", sl.Err(err))
		s.metrics.ObserveCacheLookup(family, metrics.CacheError)
	}

	user, err := load(ctx)
	if errors.Is(err, models.ErrUserNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	raw, err := encodeUser(user)
	if err != nil {
		log.Warn("failed to encode user for cache", sl.Err(err))
		return user, true, nil
	}
	s.cacheSet(ctx, log, key, raw, UserTTL)
	if warmByID {
		s.cacheSet(ctx, log, keyByID(user.ID), raw, UserTTL)
	}
	return user, true, nil
}

// ListAll возвращает профили всех пользователей, новые первыми.
func (s *Service) ListAll(ctx context.Context) ([]models.PublicProfile, error) {
	const op = "users.ListAll"
	log := s.log.With(slog.String("op", op), slog.String("key", keyListAll))

	if raw, ok := s.cacheGet(ctx, log, familyList, keyListAll); ok {
		profiles, err := decodeList(raw)
		if err == nil {
			s.metrics.ObserveCacheLookup(familyList, metrics.CacheHit)
			return profiles, nil
		}
		log.Warn("discarding corrupt cache entry", sl.Err(err))
		s.metrics.ObserveCacheLookup(familyList, metrics.CacheError)
	}

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	profiles := make([]models.PublicProfile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.Public())
	}

	raw, err := encodeList(profiles)
	if err != nil {
		log.Warn("failed to encode user list for cache", sl.Err(err))
		return profiles, nil
	}
	s.cacheSet(ctx, log, keyListAll, raw, ListTTL)
	return profiles, nil
}

// Create регистрирует пользователя. Повтор имени или почты возвращает *models.DuplicateIdentityError.
func (s *Service) Create(ctx context.Context, reg models.Registration) (*models.User, error) {
	const op = "users.Create"
	log := s.log.With(slog.String("op", op))

	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		s.metrics.ObserveRegistration(metrics.RegistrationFailed)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.repo.CreateUser(ctx, models.User{
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: hash,
	})
	if err != nil {
		var dup *models.DuplicateIdentityError
		if errors.As(err, &dup) {
			s.metrics.ObserveRegistration(metrics.RegistrationDuplicate)
		} else {
			s.metrics.ObserveRegistration(metrics.RegistrationFailed)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.metrics.ObserveRegistration(metrics.RegistrationCreated)
	log.Info("user created", sl.UserID(user.ID))

	if err := s.cache.Delete(ctx, keyListAll); err != nil {
		log.Warn("failed to invalidate user list", slog.String("key", keyListAll), sl.Err(err))
	}
	if err := s.events.PublishUserRegistered(ctx, user); err != nil {
		log.Warn("failed to publish user.registered", sl.UserID(user.ID), sl.Err(err))
	}
	return user, nil
}

func (s *Service) cacheGet(ctx context.Context, log *slog.Logger, family, key string) (string, bool) {
	raw, found, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Warn("cache read failed, falling back to store", sl.Err(err))
		s.metrics.ObserveCacheLookup(family, metrics.CacheError)
		return "", false
	}
	if !found {
		s.metrics.ObserveCacheLookup(family, metrics.CacheMiss)
		return "", false
	}
	return raw, true
}

func (s *Service) cacheSet(ctx context.Context, log *slog.Logger, key, value string, ttl time.Duration) {
	if err := s.cache.SetWithTTL(ctx, key, value, ttl); err != nil {
		log.Warn("failed to write cache", slog.String("key", key), sl.Err(err))
	}
}
