package users

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/magabrotheeeer/h5-backend/internal/models"
)

const (
	kindUser     = "user"
	kindUserList = "user_list"

	keyPrefixID       = "user:id:"
	keyPrefixUsername = "user:username:"
	keyPrefixEmail    = "user:email:"
	keyListAll        = "user:list:all"

	// семейства ключей для метрик
	familyID       = "id"
	familyUsername = "username"
	familyEmail    = "email"
	familyList     = "list"
)

var errCorruptEntry = errors.New("corrupt cache entry")

func keyByID(id int64) string { return keyPrefixID + strconv.FormatInt(id, 10) }

func keyByUsername(username string) string { return keyPrefixUsername + username }

func keyByEmail(email string) string { return keyPrefixEmail + email }

// cachedUser полная запись пользователя в кэше; хеш нужен для входа.
type cachedUser struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	Avatar       *string   `json:"avatar"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type userEntry struct {
	Kind string      `json:"kind"`
	User *cachedUser `json:"user"`
}

type listEntry struct {
	Kind  string                 `json:"kind"`
	Users []models.PublicProfile `json:"users"`
}

func encodeUser(u *models.User) (string, error) {
	b, err := json.Marshal(userEntry{
		Kind: kindUser,
		User: &cachedUser{
			ID:           u.ID,
			Username:     u.Username,
			Email:        u.Email,
			PasswordHash: u.PasswordHash,
			Avatar:       u.Avatar,
			CreatedAt:    u.CreatedAt,
			UpdatedAt:    u.UpdatedAt,
		},
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeUser(raw string) (*models.User, error) {
	var e userEntry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, fmt.Errorf("%w: %w", errCorruptEntry, err)
	}
	if e.Kind != kindUser || e.User == nil {
		return nil, errCorruptEntry
	}
	u := e.User
	if u.ID <= 0 || u.Username == "" || u.Email == "" || u.PasswordHash == "" {
		return nil, errCorruptEntry
	}
	return &models.User{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Avatar:       u.Avatar,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}, nil
}

func encodeList(profiles []models.PublicProfile) (string, error) {
	if profiles == nil {
		profiles = []models.PublicProfile{}
	}
	b, err := json.Marshal(listEntry{Kind: kindUserList, Users: profiles})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeList(raw string) ([]models.PublicProfile, error) {
	var e listEntry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, fmt.Errorf("%w: %w", errCorruptEntry, err)
	}
	if e.Kind != kindUserList || e.Users == nil {
		return nil, errCorruptEntry
	}
	for _, p := range e.Users {
		if p.ID <= 0 || p.Username == "" {
			return nil, errCorruptEntry
		}
	}
	return e.Users, nil
}
