// Package repository реализует хранилище учётных записей пользователей
// на основе PostgreSQL. Хранилище является единственным источником истины и
// единственным писателем данных о пользователях; уникальность имени и почты
// гарантируется ограничениями таблицы.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB        *sql.DB
	opTimeout time.Duration
}

// New создаёт подключение к PostgreSQL и проверяет его.
// opTimeout ограничивает каждый запрос; нулевое значение отключает собственный таймаут.
func New(storageConnectionString string, opTimeout time.Duration) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB:        db,
		opTimeout: opTimeout,
	}, nil
}

func (s *Storage) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

// Ping проверяет доступность базы данных.
func (s *Storage) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

// Close закрывает пул соединений.
func (s *Storage) Close() error {
	return s.DB.Close()
}
