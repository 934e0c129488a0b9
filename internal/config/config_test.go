package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.HTTP.Addr)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 8*time.Hour, cfg.Auth.StaffTokenTTL)
	assert.Equal(t, 24*time.Hour, cfg.Auth.ResidentTokenTTL)
	assert.Equal(t, 35*time.Second, cfg.LLM.StreamTimeout)
	assert.Equal(t, 20, cfg.LLM.HistoryLimit)
	assert.Equal(t, 2000, cfg.LLM.MaxMessageChars)
	assert.Equal(t, "none", cfg.Events.Backend)

	assert.Equal(t, DefaultCompanionModel, cfg.LLM.Companion.Model)
	assert.Equal(t, 200, cfg.LLM.Companion.MaxTokens)
	require.NotNil(t, cfg.LLM.Companion.Temperature)
	assert.InDelta(t, 0.8, *cfg.LLM.Companion.Temperature, 1e-9)

	assert.Equal(t, DefaultStaffModel, cfg.LLM.Staff.Model)
	assert.Equal(t, 800, cfg.LLM.Staff.MaxTokens)
	require.NotNil(t, cfg.LLM.Staff.Temperature)
	assert.InDelta(t, 0.3, *cfg.LLM.Staff.Temperature, 1e-9)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("LLM_STREAM_TIMEOUT", "2s")
	t.Setenv("LLM_COMPANION_MODEL", "claude-test")
	t.Setenv("LLM_STAFF_TEMPERATURE", "0")
	t.Setenv("EVENTS_BACKEND", "Redis")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.HTTP.Addr)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, 2*time.Second, cfg.LLM.StreamTimeout)
	assert.Equal(t, "claude-test", cfg.LLM.Companion.Model)
	require.NotNil(t, cfg.LLM.Staff.Temperature)
	assert.Zero(t, *cfg.LLM.Staff.Temperature)
	assert.Equal(t, "redis", cfg.Events.Backend)
}

func TestLoad_ProfilesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
profiles:
  companion:
    model: claude-from-file
    max_tokens: 150
  staff:
    temperature: 0.5
`), 0o600))
	t.Setenv("LLM_PROFILES_FILE", path)
	t.Setenv("LLM_COMPANION_MAX_TOKENS", "250")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "claude-from-file", cfg.LLM.Companion.Model)
	assert.Equal(t, 250, cfg.LLM.Companion.MaxTokens, "environment wins over the file")
	assert.InDelta(t, 0.8, *cfg.LLM.Companion.Temperature, 1e-9)
	assert.Equal(t, DefaultStaffModel, cfg.LLM.Staff.Model)
	assert.InDelta(t, 0.5, *cfg.LLM.Staff.Temperature, 1e-9)
}

func TestLoad_RejectsUnknownEventsBackend(t *testing.T) {
	t.Setenv("EVENTS_BACKEND", "kafka")
	_, err := Load()
	require.Error(t, err)
}

func TestValidateServe(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("AUTH_PIN_INDEX_KEY", "")
	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.ValidateServe()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")

	cfg.JWTSecret = strings.Repeat("s", 32)
	cfg.AnthropicAPIKey = "sk-test"
	assert.NoError(t, cfg.ValidateServe())
	assert.Equal(t, cfg.JWTSecret, cfg.PINIndexSecret())

	cfg.Auth.PINIndexKey = "other"
	assert.Equal(t, "other", cfg.PINIndexSecret())
}
