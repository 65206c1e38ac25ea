// Package events публикует доменные события пользователей в RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/h5-backend/internal/models"
)

// RoutingKeyUserRegistered ключ маршрутизации события регистрации.
const RoutingKeyUserRegistered = "user.registered"

// UserRegistered тело события о новой учётной записи. Пароль и хеш не передаются.
type UserRegistered struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// channel подмножество *amqp.Channel, нужное издателю.
type channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher отправляет события в exchange типа topic.
type Publisher struct {
	mu       sync.Mutex
	ch       channel
	conn     *amqp.Connection
	exchange string
	log      *slog.Logger
}

// Connect устанавливает соединение с RabbitMQ, повторяя попытки с задержкой.
func Connect(url string, retries int, delay time.Duration) (*amqp.Connection, error) {
	const op = "events.Connect"
	var (
		conn *amqp.Connection
		err  error
	)
	for range max(retries, 1) {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		time.Sleep(delay)
	}
	return nil, fmt.Errorf("%s: %w", op, err)
}

// NewPublisher открывает канал и объявляет durable exchange.
func NewPublisher(conn *amqp.Connection, exchange string, log *slog.Logger) (*Publisher, error) {
	const op = "events.NewPublisher"
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p := newPublisher(ch, exchange, log)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchange string, log *slog.Logger) *Publisher {
	return &Publisher{ch: ch, exchange: exchange, log: log}
}

// PublishUserRegistered публикует событие user.registered.
func (p *Publisher) PublishUserRegistered(ctx context.Context, user *models.User) error {
	const op = "events.PublishUserRegistered"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	body, err := json.Marshal(UserRegistered{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.Publish(
		p.exchange,
		RoutingKeyUserRegistered,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	p.log.Debug("event published", slog.String("routing_key", RoutingKeyUserRegistered), slog.Int64("user_id", user.ID))
	return nil
}

// Close закрывает канал и соединение.
func (p *Publisher) Close() error {
	const op = "events.Close"
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}

// Noop используется, когда RabbitMQ не настроен.
type Noop struct{}

// PublishUserRegistered ничего не делает.
func (Noop) PublishUserRegistered(context.Context, *models.User) error { return nil }

// Close ничего не делает.
func (Noop) Close() error { return nil }
