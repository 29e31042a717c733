package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load(context.Background(), missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "revoked:", cfg.Redis.KeyPrefix)
	assert.Equal(t, 500*time.Millisecond, cfg.Redis.OpTimeout)
	assert.Equal(t, 4, cfg.Audit.Workers)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")

	_, err := Load(context.Background(), missingEnvFile(t))
	require.Error(t, err)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TOKEN_TTL", "90m")
	t.Setenv("RATE_LIMIT_RPS", "0.5")
	t.Setenv("ENV", "production")

	cfg, err := Load(context.Background(), missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, 90*time.Minute, cfg.Auth.TokenTTL)
	assert.InDelta(t, 0.5, cfg.RateLimit.RPS, 1e-9)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_ReadsEnvFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")
	t.Setenv("MONGO_DB", "")
	os.Unsetenv("MONGO_DB")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET=from-file\nMONGO_DB=therapy_test\n"), 0o600))

	cfg, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, "therapy_test", cfg.Mongo.Database)

	os.Unsetenv("JWT_SECRET")
	os.Unsetenv("MONGO_DB")
}

func TestLoad_RejectsNonPositiveTTL(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TOKEN_TTL", "0s")

	_, err := Load(context.Background(), missingEnvFile(t))
	require.Error(t, err)
}
