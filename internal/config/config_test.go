package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	t.Chdir(t.TempDir()) // no stray .env
	t.Setenv("PORT", "9100")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 8, cfg.MaxUploadMB)
	assert.Equal(t, "officine:events", cfg.RealtimeChannel)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins())
	assert.NoError(t, cfg.Validate())
}

func TestAllowedOrigins_Wildcard(t *testing.T) {
	assert.Nil(t, (&Config{CORSOrigins: "*"}).AllowedOrigins())
	assert.Nil(t, (&Config{}).AllowedOrigins())
}

func TestValidate(t *testing.T) {
	cfg := &Config{Port: 8000, DatabaseURL: "postgres://x", Env: "production", JWTSecret: "short"}
	assert.ErrorContains(t, cfg.Validate(), "32 bytes")

	cfg.JWTSecret = ""
	cfg.DatabaseURL = ""
	err := cfg.Validate()
	assert.ErrorContains(t, err, "JWT_SECRET is required")
	assert.ErrorContains(t, err, "DATABASE_URL is required")
}
