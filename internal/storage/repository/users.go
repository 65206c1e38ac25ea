package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/magabrotheeeer/h5-backend/internal/models"
)

const (
	usernameConstraint = "users_username_key"
	emailConstraint    = "users_email_key"

	userColumns = `id, username, email, password_hash, avatar, created_at, updated_at`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u      models.User
		avatar sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&avatar, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if avatar.Valid {
		u.Avatar = &avatar.String
	}
	return &u, nil
}

// duplicateField определяет, какое ограничение уникальности нарушено.
// Пустая строка означает, что ошибка не связана с уникальностью.
func duplicateField(err error) string {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return ""
	}
	switch pgErr.ConstraintName {
	case usernameConstraint:
		return models.FieldUsername
	case emailConstraint:
		return models.FieldEmail
	}
	if strings.Contains(pgErr.Detail, "(email)") {
		return models.FieldEmail
	}
	return models.FieldUsername
}

// CreateUser сохраняет нового пользователя и возвращает его с назначенными
// ID и временными метками. Нарушение уникальности возвращается как
// *models.DuplicateIdentityError.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `INSERT INTO users (username, email, password_hash, avatar)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id, created_at, updated_at`
	if err := s.DB.QueryRowContext(ctx, query,
		user.Username, user.Email, user.PasswordHash, user.Avatar,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if field := duplicateField(err); field != "" {
			return nil, fmt.Errorf("%s: %w", op, &models.DuplicateIdentityError{Field: field, Err: err})
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}

func (s *Storage) getUserBy(ctx context.Context, op, column string, arg any) (*models.User, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE ` + column + ` = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByID возвращает пользователя по ID.
func (s *Storage) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.getUserBy(ctx, "storage.GetUserByID", "id", id)
}

// GetUserByUsername возвращает пользователя по его username.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUserBy(ctx, "storage.GetUserByUsername", "username", username)
}

// GetUserByEmail возвращает пользователя по почте.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUserBy(ctx, "storage.GetUserByEmail", "email", email)
}

// ListUsers возвращает всех пользователей, новые первыми.
func (s *Storage) ListUsers(ctx context.Context) ([]*models.User, error) {
	const op = "storage.ListUsers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + userColumns + `
			  FROM users
			  ORDER BY created_at DESC, id DESC`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
