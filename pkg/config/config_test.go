package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadForTest(t *testing.T, overrides map[string]any) (*Config, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("github.owner", "acme")
	viper.Set("github.repo", "factory")
	for k, v := range overrides {
		viper.Set(k, v)
	}
	return Load()
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := loadForTest(t, nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "https://api.telegram.org", cfg.Telegram.APIBaseURL)
	assert.Equal(t, "anthropic", cfg.AI.Provider)
	assert.Equal(t, 10, cfg.RateLimit.JobCreatePerMinute)
	assert.Equal(t, 20, cfg.RateLimit.ChatPerMinute)
	assert.False(t, cfg.Schedule.DigestEnabled)
}

func TestLoad_MissingRepo(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("github.owner", "acme")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "owner and repo")
}

func TestLoad_UnknownAIProvider(t *testing.T) {
	_, err := loadForTest(t, map[string]any{"ai.provider": "parrot"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestInit_NoConfigFileIsFine(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Cleanup(viper.Reset)

	require.NoError(t, Init(""))
}

func TestInit_MalformedDiscoveredFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "relayforge.toml"), []byte("server = [unclosed"), 0o600))
	t.Chdir(dir)
	t.Cleanup(viper.Reset)

	err := Init("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestInit_ExplicitFileMustExist(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Init(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.toml")
}

func TestCheckSecurityWarnings(t *testing.T) {
	cfg, err := loadForTest(t, nil)
	require.NoError(t, err)

	warnings := CheckSecurityWarnings(cfg)
	fields := make([]string, 0, len(warnings))
	for _, w := range warnings {
		fields = append(fields, w.Field)
	}
	assert.Contains(t, fields, "server.api_key")
	assert.Contains(t, fields, "telegram.webhook_secret")
	assert.Contains(t, fields, "github.webhook_secret")

	cfg.Server.APIKey = "s3cret"
	cfg.Telegram.WebhookSecret = "t"
	cfg.GitHub.WebhookSecret = "g"
	assert.Empty(t, CheckSecurityWarnings(cfg))
}
