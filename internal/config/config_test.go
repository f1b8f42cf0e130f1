package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "TURN_SECONDS", "ALLOWED_ORIGINS", "LOG_LEVEL", "LOG_FILE", "CHAT_HISTORY"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, ":8080", cfg.Addr())

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, level)
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("TURN_SECONDS", "15")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FILE", "/tmp/server.log")
	t.Setenv("CHAT_HISTORY", "20")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 15, cfg.TurnSeconds)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, "/tmp/server.log", cfg.LogFile)
	assert.Equal(t, 20, cfg.ChatHistory)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, level)
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TURN_SECONDS=45\nLOG_LEVEL=warn\n"), 0o600))
	// godotenv.Load sets variables directly; restore them after the test
	t.Cleanup(func() {
		os.Unsetenv("TURN_SECONDS")
		os.Unsetenv("LOG_LEVEL")
	})
	os.Unsetenv("TURN_SECONDS")
	os.Unsetenv("LOG_LEVEL")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 45, cfg.TurnSeconds)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestEnvironmentWinsOverEnvFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7000")
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=7001\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"port not a number", "PORT", "eighty"},
		{"port out of range", "PORT", "70000"},
		{"turn too short", "TURN_SECONDS", "0"},
		{"turn not a number", "TURN_SECONDS", "1.5"},
		{"history negative", "CHAT_HISTORY", "-1"},
		{"unknown level", "LOG_LEVEL", "chatty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}
