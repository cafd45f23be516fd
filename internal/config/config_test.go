package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test in an empty directory with every setting that can
// leak in from the developer's shell cleared
func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, key := range []string{
		"CONFIG_FILE", "PORT", "PROVIDER", "PROVIDER_TIMEOUT",
		"GEMINI_API_KEY", "ANTHROPIC_API_KEY",
		"AZURE_STORAGE_ACCOUNT", "AZURE_STORAGE_KEY",
		"REDIS_URL", "RESOLVE_URLS", "ALLOW_PRIVATE_URLS",
		"OCR_ENABLED", "IMAGE_SIGNALS_ENABLED", "SIMULATED_DELAY",
		"CORS_ALLOWED_ORIGINS", "MAX_UPLOAD_SIZE", "HISTORY_DISPLAY_LIMIT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.ServerAddress())
	assert.Equal(t, int64(10*1024*1024), cfg.MaxUploadSize)
	assert.Equal(t, 3, cfg.HistoryDisplayLimit)
	assert.Equal(t, 2*time.Second, cfg.SimulatedDelay)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, ProviderSimulated, cfg.ResolvedProvider())
	assert.False(t, cfg.AzureEnabled())
	assert.False(t, cfg.OCREnabled)
	assert.True(t, cfg.ImageSignalsEnabled)
	assert.Zero(t, cfg.ProviderTimeout)
	assert.False(t, cfg.AllowPrivateURLs)
}

func TestLoadFromEnv_ProviderKeysFromShell(t *testing.T) {
	isolate(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, cfg.ResolvedProvider())
}

func TestLoadFromEnv_ProviderTimeout(t *testing.T) {
	isolate(t)
	t.Setenv("PROVIDER_TIMEOUT", "0")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Zero(t, cfg.ProviderTimeout)

	t.Setenv("PROVIDER_TIMEOUT", "30s")
	cfg, err = LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.ProviderTimeout)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "9090")
	t.Setenv("SIMULATED_DELAY", "250ms")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, https://veritas.example")
	t.Setenv("RESOLVE_URLS", "true")
	t.Setenv("ALLOW_PRIVATE_URLS", "true")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.SimulatedDelay)
	assert.Equal(t, ProviderGemini, cfg.ResolvedProvider())
	assert.Equal(t, []string{"http://localhost:3000", "https://veritas.example"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.ResolveURLs)
	assert.True(t, cfg.AllowPrivateURLs)
}

func TestLoadFromEnv_ConfigFile(t *testing.T) {
	isolate(t)
	dir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "veritas.yaml"), []byte("port: \"7070\"\nhistory_display_limit: 5\n"), 0o600))

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, 5, cfg.HistoryDisplayLimit)
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "bad port", env: map[string]string{"PORT": "http"}},
		{name: "port out of range", env: map[string]string{"PORT": "70000"}},
		{name: "zero upload size", env: map[string]string{"MAX_UPLOAD_SIZE": "0"}},
		{name: "unknown provider", env: map[string]string{"PROVIDER": "oracle"}},
		{name: "gemini without key", env: map[string]string{"PROVIDER": "gemini"}},
		{name: "anthropic without key", env: map[string]string{"PROVIDER": "anthropic"}},
		{name: "negative delay", env: map[string]string{"SIMULATED_DELAY": "-1s"}},
		{name: "negative provider timeout", env: map[string]string{"PROVIDER_TIMEOUT": "-1s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadFromEnv()
			assert.Error(t, err)
		})
	}
}

func TestResolvedProvider_Explicit(t *testing.T) {
	cfg := &Config{Provider: ProviderAnthropic, GeminiAPIKey: "g", AnthropicAPIKey: "a"}
	assert.Equal(t, ProviderAnthropic, cfg.ResolvedProvider())

	auto := &Config{Provider: ProviderAuto, AnthropicAPIKey: "a"}
	assert.Equal(t, ProviderAnthropic, auto.ResolvedProvider())
}
