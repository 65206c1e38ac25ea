package jwt

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test_secret_key_1234567890"

func TestJWTMaker_GenerateAndParseToken_ValidCases(t *testing.T) {
	tokenTTL := 15 * time.Minute
	maker := NewJWTMaker(testSecret, tokenTTL)

	tests := []struct {
		name     string
		userID   int64
		username string
	}{
		{name: "regular user", userID: 1, username: "alice"},
		{name: "user with numbers in username", userID: 42, username: "user123"},
		{name: "large id", userID: 9_007_199_254_740_993, username: "bob"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := maker.GenerateToken(tt.userID, tt.username)
			require.NoError(t, err)
			assert.NotEmpty(t, token)

			claims, err := maker.ParseToken(token)
			require.NoError(t, err)

			id, err := claims.UserID()
			require.NoError(t, err)
			assert.Equal(t, tt.userID, id)
			assert.Equal(t, tt.username, claims.Username)
			assert.NotEmpty(t, claims.ID)
			assert.WithinDuration(t, time.Now(), claims.IssuedAt.Time, time.Second)
			assert.WithinDuration(t, time.Now().Add(tokenTTL), claims.ExpiresAt.Time, time.Second)
		})
	}
}

func TestJWTMaker_TokensAreUnique(t *testing.T) {
	maker := NewJWTMaker(testSecret, time.Hour)

	first, err := maker.GenerateToken(1, "alice")
	require.NoError(t, err)
	second, err := maker.GenerateToken(1, "alice")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestJWTMaker_ParseToken_InvalidTokens(t *testing.T) {
	maker := NewJWTMaker(testSecret, 15*time.Minute)

	validToken, err := maker.GenerateToken(1, "testuser")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "malformed token", token: "invalid.token.here"},
		{name: "expired token", token: createExpiredToken(t)},
		{name: "wrong secret key", token: createTokenWithWrongSecret(t)},
		{name: "tampered token", token: validToken + "tampered"},
		{name: "alg none", token: createUnsignedToken(t)},
		{name: "other hmac algorithm", token: createSignedToken(t, jwt.SigningMethodHS512, validClaims("1"))},
		{name: "missing expiry", token: createSignedToken(t, jwt.SigningMethodHS256, CustomClaims{
			Username:         "testuser",
			RegisteredClaims: jwt.RegisteredClaims{Subject: "1"},
		})},
		{name: "non numeric subject", token: createSignedToken(t, jwt.SigningMethodHS256, validClaims("alice"))},
		{name: "empty subject", token: createSignedToken(t, jwt.SigningMethodHS256, validClaims(""))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := maker.ParseToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Nil(t, claims)
		})
	}
}

func TestJWTMaker_DifferentSecretKeys(t *testing.T) {
	maker1 := NewJWTMaker("first_secret_key", 15*time.Minute)
	maker2 := NewJWTMaker("different_secret_key", 15*time.Minute)

	token, err := maker1.GenerateToken(7, "testuser")
	require.NoError(t, err)

	claims, err := maker2.ParseToken(token)
	assert.Error(t, err)
	assert.Nil(t, claims)

	claims, err = maker1.ParseToken(token)
	assert.NoError(t, err)
	assert.NotNil(t, claims)
}

func TestJWTMaker_TokenExpiration(t *testing.T) {
	maker := NewJWTMaker(testSecret, time.Hour)
	issued := time.Now()
	maker.now = func() time.Time { return issued }

	token, err := maker.GenerateToken(1, "testuser")
	require.NoError(t, err)

	_, err = maker.ParseToken(token)
	require.NoError(t, err)

	maker.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = maker.ParseToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func validClaims(subject string) CustomClaims {
	return CustomClaims{
		Username: "testuser",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func createSignedToken(t *testing.T, method jwt.SigningMethod, claims CustomClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func createUnsignedToken(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims("1")).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(token, "."))
	return token
}

func createExpiredToken(t *testing.T) string {
	t.Helper()
	maker := NewJWTMaker(testSecret, -time.Hour)
	token, err := maker.GenerateToken(1, "testuser")
	require.NoError(t, err)
	return token
}

func createTokenWithWrongSecret(t *testing.T) string {
	t.Helper()
	wrongMaker := NewJWTMaker("wrong_secret_key", 15*time.Minute)
	token, err := wrongMaker.GenerateToken(1, "testuser")
	require.NoError(t, err)
	return token
}
