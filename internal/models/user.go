// Package models содержит доменную модель пользователя системы,
// её публичные проекции и типизированные ошибки, которыми обмениваются
// хранилище, сервисы и HTTP-слой.
package models

import "time"

// User представляет зарегистрированного пользователя системы.
type User struct {
	ID           int64     // Уникальный идентификатор, назначается хранилищем
	Username     string    // Имя пользователя (уникальное)
	Email        string    // Электронная почта (уникальная)
	PasswordHash string    // Хэш пароля, никогда не покидает сервисный слой
	Avatar       *string   // URL аватара, может отсутствовать
	CreatedAt    time.Time // Дата создания
	UpdatedAt    time.Time // Дата последнего изменения
}

// PublicProfile данные пользователя без хэша пароля.
type PublicProfile struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Avatar    *string   `json:"avatar"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserInfo проекция пользователя, возвращаемая при входе.
type UserInfo struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Avatar   *string `json:"avatar"`
}

// Registration проверенные входные данные регистрации.
type Registration struct {
	Username string
	Email    string
	Password string
}

// Identity минимальная личность, прикрепляемая к контексту запроса.
type Identity struct {
	ID       int64
	Username string
}

// LoginResult подписанный токен и профиль вошедшего пользователя.
type LoginResult struct {
	Token    string   `json:"token"`
	UserInfo UserInfo `json:"userInfo"`
}

// Public возвращает профиль пользователя без хэша пароля.
func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// Info возвращает проекцию для ответа на вход.
func (u *User) Info() UserInfo {
	return UserInfo{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Avatar:   u.Avatar,
	}
}
