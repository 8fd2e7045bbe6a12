package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/backoffice_test")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, EnvLocal, cfg.Env)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "postgres", cfg.RateLimit.Backend)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, "Admin Panel", cfg.TwoFactor.Issuer)
	assert.Equal(t, "https://api.tabletcloud.com.br", cfg.PdvLegal.BaseURL)
	assert.Equal(t, "https://api-v2.contaazul.com", cfg.ContaAzul.APIURL)
	assert.Equal(t, 300*time.Millisecond, cfg.Sync.PageDelay)
	assert.Equal(t, 20, cfg.Sync.PageSize)
	assert.False(t, cfg.Kafka.Enabled())
	assert.False(t, cfg.Google.Enabled())
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_URL", "https://admin.example.com/")
	t.Setenv("RATE_LIMIT_BACKEND", "redis")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("CONTA_AZUL_CLIENT_ID", "ca-client")
	t.Setenv("SYNC_PAGE_DELAY", "0s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://admin.example.com", cfg.AppURL)
	assert.Equal(t, "https://admin.example.com", cfg.PublicURL)
	assert.Equal(t, "redis", cfg.RateLimit.Backend)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "ca-client", cfg.ContaAzul.ClientID)
	assert.Equal(t, time.Duration(0), cfg.Sync.PageDelay)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T)
	}{
		{
			name: "missing jwt secret",
			setup: func(t *testing.T) {
				setRequired(t)
				t.Setenv("JWT_SECRET", "")
			},
		},
		{
			name: "unknown rate limit backend",
			setup: func(t *testing.T) {
				setRequired(t)
				t.Setenv("RATE_LIMIT_BACKEND", "memcached")
			},
		},
		{
			name: "non-positive page size",
			setup: func(t *testing.T) {
				setRequired(t)
				t.Setenv("SYNC_PAGE_SIZE", "0")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup(t)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
