// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.guidebot/config.yaml or ./config.yaml)
//  3. Default values
//
// Security: secrets (bot token, API key) are never logged; MarshalJSON masks
// them explicitly. Validation uses sentinel errors for errors.Is() checks.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingBotToken indicates the Telegram bot token is not set.
	// This is fatal at startup: the bot cannot reach its transport.
	ErrMissingBotToken = errors.New("missing Telegram bot token")

	// ErrMissingWebhookURL indicates webhook mode was requested without a
	// reachable callback URL.
	ErrMissingWebhookURL = errors.New("missing webhook URL")

	// ErrInvalidModelName indicates the model name is empty or malformed.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidPollTimeout indicates the long-poll timeout is out of range.
	ErrInvalidPollTimeout = errors.New("invalid poll timeout")

	// ErrInvalidQueueSize indicates the webhook queue size is out of range.
	ErrInvalidQueueSize = errors.New("invalid queue size")
)

// Bounds for tunables validated in Validate.
const (
	// MinPollTimeout is the minimum long-poll timeout in seconds.
	MinPollTimeout = 1

	// MaxPollTimeout is the maximum long-poll timeout in seconds. The Bot
	// API rejects anything above 50 anyway.
	MaxPollTimeout = 50

	// MaxQueueSize is the absolute maximum webhook queue capacity.
	MaxQueueSize = 65536
)

// DefaultSystemPrompt is the fixed system instruction for every chat session.
const DefaultSystemPrompt = "You are a helpful and friendly Telegram bot. " +
	"You remember the conversation history. " +
	"Provide concise and informative responses."

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields, update MarshalJSON.
type Config struct {
	// Telegram transport configuration
	BotToken    string `mapstructure:"bot_token" json:"bot_token"` // SENSITIVE: masked in MarshalJSON
	WebhookURL  string `mapstructure:"webhook_url" json:"webhook_url"`
	PollTimeout int    `mapstructure:"poll_timeout" json:"poll_timeout"` // long-poll timeout (seconds)

	// AI backend configuration
	GeminiAPIKey string `mapstructure:"gemini_api_key" json:"gemini_api_key"` // SENSITIVE: masked in MarshalJSON
	ModelName    string `mapstructure:"model_name" json:"model_name"`
	SystemPrompt string `mapstructure:"system_prompt" json:"system_prompt"`

	// HTTP server configuration (liveness + webhook surface)
	ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`
	QueueSize  int    `mapstructure:"queue_size" json:"queue_size"`
	RateBurst  int    `mapstructure:"rate_burst" json:"rate_burst"` // per-IP webhook burst (0 = default)

	// Logging configuration
	LogLevel string `mapstructure:"log_level" json:"log_level"` // "debug", "info", "warn", "error"
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	v := viper.New()

	// Configuration directory: ~/.guidebot/
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".guidebot"))
	}
	v.AddConfigPath(".") // Also support current directory
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	setDefaults(v)
	bindEnvVariables(v)

	// Read configuration file (if exists)
	if err := v.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// CRITICAL: validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	// AI defaults (matching the recommended model for fast chat)
	v.SetDefault("model_name", "gemini-2.0-flash-lite")
	v.SetDefault("system_prompt", DefaultSystemPrompt)

	// Transport defaults
	v.SetDefault("poll_timeout", 30)

	// HTTP defaults
	v.SetDefault("listen_addr", ":10000")
	v.SetDefault("queue_size", 128)
	v.SetDefault("rate_burst", 0)

	// Logging defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// bindEnvVariables binds environment variables explicitly.
// Only four environment variables carry deployment-specific values:
//  1. TELEGRAM_BOT_TOKEN - bot credential, required at startup
//  2. GEMINI_API_KEY - AI credential, absence degrades AI features only
//  3. WEBHOOK_URL - externally reachable callback URL (webhook mode)
//  4. PORT - listen port override used by container platforms
func bindEnvVariables(v *viper.Viper) {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail).
	// If this panics, it's a BUG in our code, not a runtime error.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("bot_token", "TELEGRAM_BOT_TOKEN")
	mustBind("gemini_api_key", "GEMINI_API_KEY")
	mustBind("webhook_url", "WEBHOOK_URL")

	mustBind("model_name", "GUIDEBOT_MODEL_NAME")
	mustBind("log_level", "GUIDEBOT_LOG_LEVEL")
	mustBind("rate_burst", "GUIDEBOT_RATE_BURST")

	// PORT is how Render/Heroku style platforms hand us the listen port.
	if port := os.Getenv("PORT"); port != "" {
		v.SetDefault("listen_addr", ":"+port)
	}
}

// Validate checks invariants shared by both run modes.
// The bot token is fatal when absent; the Gemini key is deliberately NOT
// validated here — its absence degrades AI features but keeps the
// greeting/reset handlers and the liveness endpoint alive.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}
	if c.BotToken == "" {
		return fmt.Errorf("%w: set TELEGRAM_BOT_TOKEN", ErrMissingBotToken)
	}
	if c.ModelName == "" {
		return ErrInvalidModelName
	}
	if c.PollTimeout < MinPollTimeout || c.PollTimeout > MaxPollTimeout {
		return fmt.Errorf("%w: %d (allowed %d-%d)", ErrInvalidPollTimeout,
			c.PollTimeout, MinPollTimeout, MaxPollTimeout)
	}
	if c.QueueSize <= 0 || c.QueueSize > MaxQueueSize {
		return fmt.Errorf("%w: %d (allowed 1-%d)", ErrInvalidQueueSize,
			c.QueueSize, MaxQueueSize)
	}
	return nil
}

// ValidateWebhook checks the additional invariants of webhook mode.
func (c *Config) ValidateWebhook() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.WebhookURL == "" {
		return fmt.Errorf("%w: set WEBHOOK_URL", ErrMissingWebhookURL)
	}
	return nil
}

// Level translates LogLevel into a slog.Level. Unknown values fall back
// to info rather than failing startup.
func (c *Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks avoid accidental substring matches against real secrets.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 characters or fewer are fully masked; longer secrets keep the
// first and last 2 characters for debug utility. This defends against
// accidental logging, not against compromised logs — rotate if leaked.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - BotToken
//   - GeminiAPIKey
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.BotToken = maskSecret(a.BotToken)
	a.GeminiAPIKey = maskSecret(a.GeminiAPIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
