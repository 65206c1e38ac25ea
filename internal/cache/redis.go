// Package cache реализует типонезависимый слой кэша поверх Redis.
// Значения хранятся как текст, сериализацией занимается вызывающая сторона.
// Каждая операция выполняется со своим таймаутом, чтобы медленный кэш
// не задерживал обращение к основному хранилищу.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/h5-backend/internal/config"
)

const scanBatch = 100

// Cache обёртка над клиентом Redis.
type Cache struct {
	Db        *redis.Client
	opTimeout time.Duration
}

// InitServer подключается к Redis по настройкам и проверяет соединение.
func InitServer(ctx context.Context, cfg config.RedisConnection) (*Cache, error) {
	const op = "cache.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.OpTimeout,
		WriteTimeout: cfg.OpTimeout,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return New(db, cfg.OpTimeout), nil
}

// New оборачивает готовый клиент. Нулевой opTimeout отключает собственный таймаут.
func New(db *redis.Client, opTimeout time.Duration) *Cache {
	return &Cache{Db: db, opTimeout: opTimeout}
}

func (c *Cache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.opTimeout)
}

// Get возвращает значение по ключу; отсутствие ключа не является ошибкой.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	const op = "cache.Get"
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	val, err := c.Db.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}
	return val, true, nil
}

// SetWithTTL перезаписывает значение и сбрасывает его время жизни.
func (c *Cache) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	const op = "cache.SetWithTTL"
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.Db.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Delete удаляет ключи.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	const op = "cache.Delete"
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.Db.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteByPattern находит все ключи по шаблону и удаляет их одной транзакцией
// MULTI/EXEC, поэтому частичное удаление наружу не видно.
func (c *Cache) DeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	const op = "cache.DeleteByPattern"
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	seen := make(map[string]struct{})
	var keys []string
	iter := c.Db.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("%s: scan: %w", op, err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	var del *redis.IntCmd
	if _, err := c.Db.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, keys...)
		return nil
	}); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return del.Val(), nil
}

// Ping проверяет доступность Redis.
func (c *Cache) Ping(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.Db.Ping(ctx).Err()
}

// Close закрывает соединение.
func (c *Cache) Close() error {
	return c.Db.Close()
}
