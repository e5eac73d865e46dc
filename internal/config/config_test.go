package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_MAX_OPEN_CONNS", "20")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("OTP_TTL", "5m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.MinIO.UseSSL)
	assert.Equal(t, 5*time.Minute, cfg.OTP.TTL)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Empty(t, cfg.AppHost)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "filevault-session", cfg.Session.CookieName)
	assert.Equal(t, "/sign-in", cfg.Session.SignInPath)
	assert.Equal(t, 6, cfg.OTP.Length)
	assert.Equal(t, int64(2<<30), cfg.Files.TotalCapacityBytes)
}

func TestDocsHost(t *testing.T) {
	cfg := &AppConfig{}
	assert.Equal(t, "10.0.0.5:8080", cfg.DocsHost("10.0.0.5:8080"))

	t.Setenv("APP_HOST", "files.example.com")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "files.example.com", cfg.DocsHost("10.0.0.5:8080"))
}

func TestLoadInvalid(t *testing.T) {
	t.Run("bad int", func(t *testing.T) {
		t.Setenv("DB_MAX_OPEN_CONNS", "invalid")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("otp length out of range", func(t *testing.T) {
		t.Setenv("OTP_LENGTH", "2")
		_, err := Load()
		assert.ErrorContains(t, err, "OTP_LENGTH")
	})

	t.Run("zero capacity", func(t *testing.T) {
		t.Setenv("TOTAL_CAPACITY_BYTES", "0")
		_, err := Load()
		assert.ErrorContains(t, err, "TOTAL_CAPACITY_BYTES")
	})
}
