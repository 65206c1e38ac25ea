// Package password хеширует и проверяет пароли пользователей через bcrypt.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrMismatch возвращается, когда пароль не соответствует хешу.
var ErrMismatch = errors.New("password does not match")

// Hasher хранит стоимость bcrypt, с которой создаются новые хеши.
type Hasher struct {
	cost int
}

// NewHasher создаёт Hasher. Стоимость вне диапазона bcrypt заменяется на bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash возвращает bcrypt-хеш пароля.
func (h *Hasher) Hash(password string) (string, error) {
	return GetHash(password, h.cost)
}

// Compare сверяет пароль с хешем.
func (h *Hasher) Compare(hash, password string) error {
	return CompareHash(hash, password)
}

// GetHash принимает пароль пользователя и возвращает его bcrypt-хеш с заданной стоимостью.
func GetHash(password string, cost int) (string, error) {
	const op = "password.GetHash"
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashedPassword), nil
}

// CompareHash сравнивает bcrypt-хеш с введённым паролем.
//
// Несовпадение возвращается как ErrMismatch, испорченный хеш как обёрнутая ошибка bcrypt.
func CompareHash(originalHash, externalPassword string) error {
	const op = "password.CompareHash"
	err := bcrypt.CompareHashAndPassword([]byte(originalHash), []byte(externalPassword))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return fmt.Errorf("%s: %w", op, ErrMismatch)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
