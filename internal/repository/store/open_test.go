package store

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alcyxob/fitness-coach/internal/config"
	"alcyxob/fitness-coach/internal/domain"
)

func TestOpenMemory(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repos, closeFn, err := Open(context.Background(), config.DatabaseConfig{Driver: config.DriverMemory}, logger)
	require.NoError(t, err)
	defer closeFn()

	id, err := repos.Credentials.Create(context.Background(), &domain.Credential{Email: "a@example.com", PasswordHash: "hash"})
	require.NoError(t, err)
	got, err := repos.Credentials.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", got.Email)
}

func TestOpenUnknownDriver(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, _, err := Open(context.Background(), config.DatabaseConfig{Driver: "sqlite"}, logger)
	assert.Error(t, err)
}
