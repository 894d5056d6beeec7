package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string     `env:"PORT" envDefault:"8080"`
	Environment string     `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    slog.Level `env:"-"`
	RawLogLevel string     `env:"LOG_LEVEL" envDefault:"info"`

	DatabasePath string `env:"DATABASE_PATH" envDefault:"emerald-altar.db"`

	// RedisURL enables shared character locks. Empty means in-process locks.
	RedisURL string `env:"REDIS_URL"`
	// CharacterLockTTL must outlast a whole turn: the model call plus any
	// item images generated afterwards.
	CharacterLockTTL time.Duration `env:"CHARACTER_LOCK_TTL" envDefault:"5m"`

	OpenAIAPIKey       string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL      string `env:"OPENAI_BASE_URL"`
	ModelName          string `env:"MODEL_NAME" envDefault:"gpt-4"`
	ImageModelHigh     string `env:"IMAGE_MODEL_HIGH" envDefault:"dall-e-3"`
	ImageModelStandard string `env:"IMAGE_MODEL_STANDARD" envDefault:"dall-e-2"`

	// ImageSink is "remote" (keep provider URLs) or "local" (download).
	ImageSink           string `env:"IMAGE_SINK" envDefault:"remote"`
	ImageDir            string `env:"IMAGE_DIR" envDefault:"images"`
	ImagePublicBaseURL  string `env:"IMAGE_PUBLIC_BASE_URL" envDefault:"/images"`
	GenerateItemImages  bool   `env:"GENERATE_ITEM_IMAGES" envDefault:"true"`

	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	ContentRating      string `env:"CONTENT_RATING" envDefault:"PG13"`
	PromptHistoryLimit int    `env:"PROMPT_HISTORY_LIMIT" envDefault:"20"`
}

const devJWTSecret = "emerald-altar-dev-secret"

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return parse()
}

func parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.RawLogLevel)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		c.JWTSecret = devJWTSecret
	}
	switch c.ImageSink {
	case "remote", "local":
	default:
		return fmt.Errorf("IMAGE_SINK must be remote or local, got %q", c.ImageSink)
	}
	if c.PromptHistoryLimit <= 0 {
		return fmt.Errorf("PROMPT_HISTORY_LIMIT must be positive")
	}
	if c.CharacterLockTTL <= 0 {
		return fmt.Errorf("CHARACTER_LOCK_TTL must be positive")
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
