// Package config loads relayforge configuration from environment variables
// and an optional TOML config file via viper. Environment variables always
// take precedence; secrets should never live in the config file.
package config

import (
	"strings"

	"github.com/spf13/viper"

	rferrors "github.com/relayforge/relayforge/pkg/errors"
)

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	GitHub    GitHubConfig    `mapstructure:"github"`
	AI        AIConfig        `mapstructure:"ai"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr      string `mapstructure:"addr"`       // Listen address, e.g. ":8080"
	APIKey    string `mapstructure:"api_key"`    // Shared secret for all non-webhook endpoints
	PublicURL string `mapstructure:"public_url"` // Externally reachable base URL, used for webhook registration
}

// TelegramConfig holds Telegram Bot API configuration.
type TelegramConfig struct {
	BotToken      string `mapstructure:"bot_token"`      // TELEGRAM_BOT_TOKEN takes precedence
	WebhookSecret string `mapstructure:"webhook_secret"` // Secret token echoed by Telegram on webhook delivery
	AllowedChatID int64  `mapstructure:"allowed_chat_id"`
	APIBaseURL    string `mapstructure:"api_base_url"` // Overridable for tests
}

// GitHubConfig holds CI platform configuration.
type GitHubConfig struct {
	Token         string `mapstructure:"token"` // GITHUB_TOKEN takes precedence
	Owner         string `mapstructure:"owner"`
	Repo          string `mapstructure:"repo"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

// AIConfig holds AI provider configuration.
type AIConfig struct {
	Provider string `mapstructure:"provider"` // "anthropic"
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"` // ANTHROPIC_API_KEY takes precedence
	Endpoint string `mapstructure:"endpoint"`
}

// RateLimitConfig holds per-route request caps, in requests per minute.
// Zero disables the cap for a route.
type RateLimitConfig struct {
	JobCreatePerMinute int `mapstructure:"job_create_per_minute"`
	RegisterPerMinute  int `mapstructure:"register_per_minute"`
	ChatPerMinute      int `mapstructure:"chat_per_minute"`
}

// ScheduleConfig holds cron-driven background job configuration.
type ScheduleConfig struct {
	CacheSweepCron  string `mapstructure:"cache_sweep_cron"`
	DigestCron      string `mapstructure:"digest_cron"`
	DigestEnabled   bool   `mapstructure:"digest_enabled"`
}

// SecurityWarning represents a configuration security issue.
type SecurityWarning struct {
	Field   string
	Message string
}

// Load loads the configuration from viper's current state (config file plus
// environment). Call Init first to wire the sources.
func Load() (*Config, error) {
	config := &Config{}

	setDefaults()
	bindEnvAliases()

	if err := viper.Unmarshal(config); err != nil {
		return nil, rferrors.Wrap(err, "failed to unmarshal config")
	}

	if err := config.Validate(); err != nil {
		return nil, rferrors.Wrap(err, "config validation failed")
	}

	return config, nil
}

// Init wires the config file (optional) and environment into viper.
func Init(cfgFile string) error {
	viper.Reset()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("/etc/relayforge")
		viper.AddConfigPath(".")
		viper.SetConfigType("toml")
		viper.SetConfigName("relayforge")
	}

	viper.SetEnvPrefix("RELAYFORGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// The config file is optional; env-only deployments are normal.
		// A file that exists but does not parse is an error either way.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && rferrors.As(err, &notFound) {
			return nil
		}
		used := viper.ConfigFileUsed()
		if used == "" {
			used = cfgFile
		}
		return rferrors.Wrapf(err, "failed to read config file %s", used)
	}
	return nil
}

// Validate validates the configuration and returns any validation errors.
// Only structurally required fields are enforced here; missing secrets are
// surfaced as warnings so an open dev deployment can still start.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return rferrors.NewConfigError("server.addr", "listen address is required")
	}
	if c.GitHub.Owner == "" || c.GitHub.Repo == "" {
		return rferrors.NewConfigError("github", "owner and repo are required")
	}
	if c.AI.Provider != "" && c.AI.Provider != "anthropic" {
		return rferrors.NewConfigError("ai.provider", "unknown provider: "+c.AI.Provider)
	}
	return nil
}

// CheckSecurityWarnings returns warnings for insecure configuration.
// Missing secrets downgrade authentication rather than failing startup,
// so they must be loudly visible in logs.
func CheckSecurityWarnings(config *Config) []SecurityWarning {
	var warnings []SecurityWarning

	if config.Server.APIKey == "" {
		warnings = append(warnings, SecurityWarning{
			Field:   "server.api_key",
			Message: "No API key configured. All authenticated endpoints are open. Set RELAYFORGE_SERVER_API_KEY.",
		})
	}
	if config.Telegram.WebhookSecret == "" {
		warnings = append(warnings, SecurityWarning{
			Field:   "telegram.webhook_secret",
			Message: "No Telegram webhook secret configured. Inbound updates are accepted unauthenticated.",
		})
	}
	if config.GitHub.WebhookSecret == "" {
		warnings = append(warnings, SecurityWarning{
			Field:   "github.webhook_secret",
			Message: "No GitHub webhook secret configured. Completion events are accepted unauthenticated.",
		})
	}

	return warnings
}

// setDefaults sets default configuration values.
func setDefaults() {
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.api_key", "")
	viper.SetDefault("server.public_url", "")

	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.webhook_secret", "")
	viper.SetDefault("telegram.allowed_chat_id", 0)
	viper.SetDefault("telegram.api_base_url", "https://api.telegram.org")

	viper.SetDefault("github.token", "")
	viper.SetDefault("github.owner", "")
	viper.SetDefault("github.repo", "")
	viper.SetDefault("github.webhook_secret", "")

	viper.SetDefault("ai.provider", "anthropic")
	viper.SetDefault("ai.model", "")
	viper.SetDefault("ai.api_key", "")
	viper.SetDefault("ai.endpoint", "")

	viper.SetDefault("rate_limit.job_create_per_minute", 10)
	viper.SetDefault("rate_limit.register_per_minute", 3)
	viper.SetDefault("rate_limit.chat_per_minute", 20)

	viper.SetDefault("schedule.cache_sweep_cron", "*/5 * * * *")
	viper.SetDefault("schedule.digest_cron", "0 * * * *")
	viper.SetDefault("schedule.digest_enabled", false)
}

// bindEnvAliases maps well-known environment variable names onto config
// keys so deployments do not need the RELAYFORGE_ prefix for standard
// platform credentials.
func bindEnvAliases() {
	_ = viper.BindEnv("telegram.bot_token", "RELAYFORGE_TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_TOKEN")
	_ = viper.BindEnv("github.token", "RELAYFORGE_GITHUB_TOKEN", "GITHUB_TOKEN")
	_ = viper.BindEnv("ai.api_key", "RELAYFORGE_AI_API_KEY", "ANTHROPIC_API_KEY")
}
