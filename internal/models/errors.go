package models

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound возвращается хранилищем, когда пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrAuthFailure единая ошибка аутентификации; причина наружу не раскрывается.
	ErrAuthFailure = errors.New("invalid credentials")
)

const (
	// FieldUsername поле имени пользователя
	FieldUsername = "username"
	// FieldEmail поле электронной почты
	FieldEmail = "email"
)

// DuplicateIdentityError нарушение уникальности имени пользователя или почты.
type DuplicateIdentityError struct {
	Field string
	Err   error
}

func (e *DuplicateIdentityError) Error() string {
	return fmt.Sprintf("duplicate %s", e.Field)
}

func (e *DuplicateIdentityError) Unwrap() error {
	return e.Err
}
