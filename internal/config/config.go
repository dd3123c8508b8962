package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ProviderConfig holds credentials and model selection for one model vendor.
type ProviderConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// AIConfig holds generation defaults. It is handed to the planner explicitly.
type AIConfig struct {
	DefaultProvider  string
	Temperature      float64
	RetryTemperature float64
	MaxTokens        int
	RequestTimeout   time.Duration

	OpenAI    ProviderConfig
	Anthropic ProviderConfig
	Gemini    ProviderConfig
	Groq      ProviderConfig
}

// Provider returns the settings for a provider name.
func (c AIConfig) Provider(name string) (ProviderConfig, bool) {
	switch name {
	case "openai":
		return c.OpenAI, true
	case "anthropic":
		return c.Anthropic, true
	case "gemini":
		return c.Gemini, true
	case "groq":
		return c.Groq, true
	}
	return ProviderConfig{}, false
}

// HTTPConfig holds API server settings.
type HTTPConfig struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
}

// TelegramConfig is optional for the API and CLI, required for the bot.
type TelegramConfig struct {
	BotToken       string
	WebhookURL     string
	AllowedUserIDs []int64
	AdminID        int64
}

// Config holds the configuration for the application.
type Config struct {
	DatabasePath string
	LogLevel     string
	LogFormat    string
	JWTSecret    string

	HTTP     HTTPConfig
	AI       AIConfig
	Telegram TelegramConfig

	RateLimitAIPerMinute int
	SessionSweepInterval time.Duration
	MetricsRetentionDays int
	DefaultHouseholdSize int
}

var envKeys = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"gemini":    "GEMINI_API_KEY",
	"groq":      "GROQ_API_KEY",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DATABASE_PATH", "data/meal-coach.db")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PORT", "8080")
	v.SetDefault("HTTP_READ_TIMEOUT", "15s")
	v.SetDefault("HTTP_WRITE_TIMEOUT", "120s")
	v.SetDefault("HTTP_REQUEST_TIMEOUT", "15s")

	v.SetDefault("AI_PROVIDER", "openai")
	v.SetDefault("AI_TEMPERATURE", 0.7)
	v.SetDefault("AI_RETRY_TEMPERATURE", 0.9)
	v.SetDefault("AI_MAX_TOKENS", 8192)
	v.SetDefault("AI_REQUEST_TIMEOUT", "90s")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("OPENAI_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("ANTHROPIC_MODEL", "claude-3-5-haiku-latest")
	v.SetDefault("ANTHROPIC_BASE_URL", "https://api.anthropic.com")
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	v.SetDefault("GROQ_MODEL", "llama-3.3-70b-versatile")
	v.SetDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1")

	v.SetDefault("RATE_LIMIT_AI_PER_MINUTE", 10)
	v.SetDefault("SESSION_SWEEP_INTERVAL", "1h")
	v.SetDefault("METRICS_RETENTION_DAYS", 30)
	v.SetDefault("DEFAULT_HOUSEHOLD_SIZE", 1)
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	provider := strings.ToLower(v.GetString("AI_PROVIDER"))
	keyName, ok := envKeys[provider]
	if !ok {
		return nil, fmt.Errorf("unsupported AI_PROVIDER %q", provider)
	}
	if v.GetString(keyName) == "" {
		return nil, fmt.Errorf("%s environment variable not set", keyName)
	}

	temperature := v.GetFloat64("AI_TEMPERATURE")
	if temperature < 0 || temperature > 1 {
		return nil, fmt.Errorf("AI_TEMPERATURE must be between 0 and 1, got %v", temperature)
	}

	allowed, err := parseIDs(v.GetString("TELEGRAM_ALLOWED_USER_IDS"))
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS: %w", err)
	}

	return &Config{
		DatabasePath: v.GetString("DATABASE_PATH"),
		LogLevel:     v.GetString("LOG_LEVEL"),
		LogFormat:    v.GetString("LOG_FORMAT"),
		JWTSecret:    v.GetString("JWT_SECRET"),
		HTTP: HTTPConfig{
			Addr:           ":" + v.GetString("PORT"),
			ReadTimeout:    v.GetDuration("HTTP_READ_TIMEOUT"),
			WriteTimeout:   v.GetDuration("HTTP_WRITE_TIMEOUT"),
			RequestTimeout: v.GetDuration("HTTP_REQUEST_TIMEOUT"),
		},
		AI: AIConfig{
			DefaultProvider:  provider,
			Temperature:      temperature,
			RetryTemperature: v.GetFloat64("AI_RETRY_TEMPERATURE"),
			MaxTokens:        v.GetInt("AI_MAX_TOKENS"),
			RequestTimeout:   v.GetDuration("AI_REQUEST_TIMEOUT"),
			OpenAI: ProviderConfig{
				APIKey:  v.GetString("OPENAI_API_KEY"),
				Model:   v.GetString("OPENAI_MODEL"),
				BaseURL: v.GetString("OPENAI_BASE_URL"),
			},
			Anthropic: ProviderConfig{
				APIKey:  v.GetString("ANTHROPIC_API_KEY"),
				Model:   v.GetString("ANTHROPIC_MODEL"),
				BaseURL: v.GetString("ANTHROPIC_BASE_URL"),
			},
			Gemini: ProviderConfig{
				APIKey: v.GetString("GEMINI_API_KEY"),
				Model:  v.GetString("GEMINI_MODEL"),
			},
			Groq: ProviderConfig{
				APIKey:  v.GetString("GROQ_API_KEY"),
				Model:   v.GetString("GROQ_MODEL"),
				BaseURL: v.GetString("GROQ_BASE_URL"),
			},
		},
		Telegram: TelegramConfig{
			BotToken:       v.GetString("TELEGRAM_BOT_TOKEN"),
			WebhookURL:     v.GetString("TELEGRAM_WEBHOOK_URL"),
			AllowedUserIDs: allowed,
			AdminID:        v.GetInt64("TELEGRAM_ADMIN_ID"),
		},
		RateLimitAIPerMinute: v.GetInt("RATE_LIMIT_AI_PER_MINUTE"),
		SessionSweepInterval: v.GetDuration("SESSION_SWEEP_INTERVAL"),
		MetricsRetentionDays: v.GetInt("METRICS_RETENTION_DAYS"),
		DefaultHouseholdSize: v.GetInt("DEFAULT_HOUSEHOLD_SIZE"),
	}, nil
}

// RequireAPI checks the settings only the HTTP server needs.
func (c *Config) RequireAPI() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable not set")
	}
	return nil
}

// RequireTelegram checks the settings only the bot needs.
func (c *Config) RequireTelegram() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable not set")
	}
	if c.Telegram.WebhookURL == "" {
		return fmt.Errorf("TELEGRAM_WEBHOOK_URL environment variable not set")
	}
	return nil
}

func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
