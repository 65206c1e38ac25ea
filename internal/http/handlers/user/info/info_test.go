package info

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/h5-backend/internal/http/middlewarectx"
	"github.com/magabrotheeeer/h5-backend/internal/http/response"
	"github.com/magabrotheeeer/h5-backend/internal/models"
)

type UsersMock struct {
	mock.Mock
}

func (m *UsersMock) GetPublicProfile(ctx context.Context, id int64) (*models.PublicProfile, bool, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*models.PublicProfile)
	return p, args.Bool(1), args.Error(2)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestInfoHandler_ServeHTTP(t *testing.T) {
	profile := &models.PublicProfile{ID: 3, Username: "bob", Email: "bob@x.com"}

	tests := []struct {
		name           string
		identity       *models.Identity
		mockProfile    *models.PublicProfile
		mockFound      bool
		mockErr        error
		wantStatusCode int
	}{
		{
			name:           "profile returned",
			identity:       &models.Identity{ID: 3, Username: "bob"},
			mockProfile:    profile,
			mockFound:      true,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "no identity in context",
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "user deleted after token was issued",
			identity:       &models.Identity{ID: 3, Username: "bob"},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "store failure",
			identity:       &models.Identity{ID: 3, Username: "bob"},
			mockErr:        errors.New("connection refused"),
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(UsersMock)
			if tt.identity != nil {
				users.On("GetPublicProfile", mock.Anything, tt.identity.ID).
					Return(tt.mockProfile, tt.mockFound, tt.mockErr).Once()
			}

			req := httptest.NewRequest(http.MethodGet, "/api/user/info", nil)
			if tt.identity != nil {
				req = req.WithContext(middlewarectx.WithIdentity(req.Context(), *tt.identity))
			}
			rec := httptest.NewRecorder()

			New(newNoopLogger(), users).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			users.AssertExpectations(t)

			if rec.Code == http.StatusOK {
				var got models.PublicProfile
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
				assert.Equal(t, *profile, got)
				return
			}
			var got response.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.wantStatusCode, got.StatusCode)
		})
	}
}
