//go:build integration

package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/h5-backend/internal/migrations"
	"github.com/magabrotheeeer/h5-backend/internal/models"
)

func setupTestDatabase(t *testing.T) *Storage {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(connStr, 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB))

	t.Cleanup(func() {
		_ = storage.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})
	return storage
}

func TestStorageIntegration_Users(t *testing.T) {
	storage := setupTestDatabase(t)
	ctx := context.Background()

	alice, err := storage.CreateUser(ctx, models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "h1"})
	require.NoError(t, err)
	assert.Positive(t, alice.ID)
	assert.False(t, alice.CreatedAt.IsZero())
	assert.False(t, alice.UpdatedAt.Before(alice.CreatedAt))

	bob, err := storage.CreateUser(ctx, models.User{Username: "bob", Email: "bob@example.com", PasswordHash: "h2"})
	require.NoError(t, err)

	t.Run("lookups", func(t *testing.T) {
		byID, err := storage.GetUserByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", byID.Username)
		assert.Nil(t, byID.Avatar)

		byName, err := storage.GetUserByUsername(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, bob.ID, byName.ID)

		byEmail, err := storage.GetUserByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, byEmail.ID)

		_, err = storage.GetUserByUsername(ctx, "ghost")
		assert.ErrorIs(t, err, models.ErrUserNotFound)
	})

	t.Run("duplicates", func(t *testing.T) {
		var dup *models.DuplicateIdentityError

		_, err := storage.CreateUser(ctx, models.User{Username: "alice", Email: "other@example.com", PasswordHash: "h"})
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, models.FieldUsername, dup.Field)

		_, err = storage.CreateUser(ctx, models.User{Username: "other", Email: "bob@example.com", PasswordHash: "h"})
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, models.FieldEmail, dup.Field)
	})

	t.Run("list newest first", func(t *testing.T) {
		users, err := storage.ListUsers(ctx)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, bob.ID, users[0].ID)
		assert.Equal(t, alice.ID, users[1].ID)
	})
}

func TestStorageIntegration_ConcurrentRegistration(t *testing.T) {
	storage := setupTestDatabase(t)
	ctx := context.Background()

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		dupes     int
	)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := storage.CreateUser(ctx, models.User{
				Username:     "racer",
				Email:        fmt.Sprintf("racer%d@example.com", i),
				PasswordHash: "h",
			})
			mu.Lock()
			defer mu.Unlock()
			var dup *models.DuplicateIdentityError
			switch {
			case err == nil:
				succeeded++
			case errors.As(err, &dup) && dup.Field == models.FieldUsername:
				dupes++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, dupes)
}
