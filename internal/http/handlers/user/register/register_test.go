package register

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/h5-backend/internal/http/response"
	"github.com/magabrotheeeer/h5-backend/internal/models"
)

type UsersMock struct {
	mock.Mock
}

func (m *UsersMock) FindByUsername(ctx context.Context, username string) (*models.User, bool, error) {
	args := m.Called(ctx, username)
	u, _ := args.Get(0).(*models.User)
	return u, args.Bool(1), args.Error(2)
}

func (m *UsersMock) FindByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*models.User)
	return u, args.Bool(1), args.Error(2)
}

func (m *UsersMock) Create(ctx context.Context, reg models.Registration) (*models.User, error) {
	args := m.Called(ctx, reg)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

var validRequest = Request{Username: "alice", Email: "alice@example.com", Password: "secret1"}

func TestRegisterHandler_ServeHTTP(t *testing.T) {
	created := &models.User{
		ID:           9,
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "$2a$10$hash",
		CreatedAt:    time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	reg := models.Registration{Username: "alice", Email: "alice@example.com", Password: "secret1"}

	tests := []struct {
		name           string
		body           string
		setup          func(m *UsersMock)
		wantStatusCode int
		wantMessage    string
	}{
		{
			name: "created",
			setup: func(m *UsersMock) {
				m.On("FindByUsername", mock.Anything, "alice").Return(nil, false, nil).Once()
				m.On("FindByEmail", mock.Anything, "alice@example.com").Return(nil, false, nil).Once()
				m.On("Create", mock.Anything, reg).Return(created, nil).Once()
			},
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "invalid json",
			body:           "{",
			setup:          func(*UsersMock) {},
			wantStatusCode: http.StatusBadRequest,
			wantMessage:    "invalid request body",
		},
		{
			name:           "short username and bad email",
			body:           `{"username":"al","email":"nope","password":"secret1"}`,
			setup:          func(*UsersMock) {},
			wantStatusCode: http.StatusBadRequest,
			wantMessage:    "username must be at least 3 characters, email must be a valid email",
		},
		{
			name:           "short password",
			body:           `{"username":"alice","email":"alice@example.com","password":"12345"}`,
			setup:          func(*UsersMock) {},
			wantStatusCode: http.StatusBadRequest,
			wantMessage:    "password must be at least 6 characters",
		},
		{
			name:           "password longer than bcrypt accepts",
			body:           `{"username":"alice","email":"alice@example.com","password":"` + strings.Repeat("p", 73) + `"}`,
			setup:          func(*UsersMock) {},
			wantStatusCode: http.StatusBadRequest,
			wantMessage:    "password must be at most 72 bytes",
		},
		{
			name:           "multibyte password over the byte limit",
			body:           `{"username":"alice","email":"alice@example.com","password":"` + strings.Repeat("я", 37) + `"}`,
			setup:          func(*UsersMock) {},
			wantStatusCode: http.StatusBadRequest,
			wantMessage:    "password must be at most 72 bytes",
		},
		{
			name:           "username too long",
			body:           `{"username":"` + strings.Repeat("a", 51) + `","email":"alice@example.com","password":"secret1"}`,
			setup:          func(*UsersMock) {},
			wantStatusCode: http.StatusBadRequest,
			wantMessage:    "username must be at most 50 characters",
		},
		{
			name: "username taken",
			setup: func(m *UsersMock) {
				m.On("FindByUsername", mock.Anything, "alice").Return(created, true, nil).Once()
			},
			wantStatusCode: http.StatusConflict,
			wantMessage:    MsgUsernameTaken,
		},
		{
			name: "email taken",
			setup: func(m *UsersMock) {
				m.On("FindByUsername", mock.Anything, "alice").Return(nil, false, nil).Once()
				m.On("FindByEmail", mock.Anything, "alice@example.com").Return(created, true, nil).Once()
			},
			wantStatusCode: http.StatusConflict,
			wantMessage:    MsgEmailTaken,
		},
		{
			name: "lost race on insert",
			setup: func(m *UsersMock) {
				m.On("FindByUsername", mock.Anything, "alice").Return(nil, false, nil).Once()
				m.On("FindByEmail", mock.Anything, "alice@example.com").Return(nil, false, nil).Once()
				m.On("Create", mock.Anything, reg).
					Return(nil, &models.DuplicateIdentityError{Field: models.FieldEmail}).Once()
			},
			wantStatusCode: http.StatusConflict,
			wantMessage:    MsgEmailTaken,
		},
		{
			name: "store failure",
			setup: func(m *UsersMock) {
				m.On("FindByUsername", mock.Anything, "alice").Return(nil, false, errors.New("connection refused")).Once()
			},
			wantStatusCode: http.StatusInternalServerError,
			wantMessage:    response.MsgInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(UsersMock)
			tt.setup(users)
			handler := New(newNoopLogger(), users)

			body := tt.body
			if body == "" {
				b, err := json.Marshal(validRequest)
				require.NoError(t, err)
				body = string(b)
			}
			req := httptest.NewRequest(http.MethodPost, "/api/user", bytes.NewBufferString(body))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			users.AssertExpectations(t)

			if tt.wantStatusCode == http.StatusCreated {
				var got models.PublicProfile
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
				assert.Equal(t, created.Public(), got)
				assert.NotContains(t, rec.Body.String(), "$2a$")
				assert.NotContains(t, rec.Body.String(), "secret1")
				return
			}

			var got response.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.wantMessage, got.Message)
			assert.Equal(t, tt.wantStatusCode, got.StatusCode)
		})
	}
}
