package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreMongo, cfg.StoreDriver)
	assert.Equal(t, "TaskManager", cfg.MongoDatabase)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 240*time.Hour, cfg.RefreshTokenTTL)
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", "file:test.db")
	t.Setenv("ACCESS_TOKEN_TTL", "5m")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, StoreSQLite, cfg.StoreDriver)
	assert.Equal(t, "file:test.db", cfg.DatabaseDSN)
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"STORE_DRIVER": "postgres"}},
		{"bad duration", map[string]string{"ACCESS_TOKEN_TTL": "soon"}},
		{"zero ttl", map[string]string{"REFRESH_TOKEN_TTL": "0s"}},
		{"default key in production", map[string]string{"ENV": "production"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Parse()
			require.Error(t, err)
		})
	}
}

func TestParse_ProductionWithKey(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("TOKEN_SIGNING_KEY", "a-real-secret")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "a-real-secret", cfg.SigningKey)

	t.Setenv("TOKEN_SIGNING_KEY", defaultSigningKey)
	_, err = Parse()
	require.ErrorIs(t, err, ErrDefaultSigningKey)
}
