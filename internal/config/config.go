package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ModePolling = "polling"
	ModeWebhook = "webhook"

	StorageLocal = "local"
	StorageMinio = "minio"
)

type Config struct {
	Env            string        `mapstructure:"ENV"`
	TelegramToken  string        `mapstructure:"TELEGRAM_BOT_TOKEN"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	MigrationsPath string        `mapstructure:"MIGRATIONS_PATH"`
	RedisURL       string        `mapstructure:"REDIS_URL"`
	SessionTTL     time.Duration `mapstructure:"SESSION_TTL"`

	Mode          string `mapstructure:"BOT_MODE"`
	WebhookURL    string `mapstructure:"WEBHOOK_URL"`
	WebhookSecret string `mapstructure:"WEBHOOK_SECRET"`
	Port          string `mapstructure:"PORT"`
	Workers       int    `mapstructure:"WORKERS"`

	StorageBackend string `mapstructure:"STORAGE_BACKEND"`
	UploadDir      string `mapstructure:"UPLOAD_DIR"`
	MinioEndpoint  string `mapstructure:"MINIO_ENDPOINT"`
	MinioAccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	MinioBucket    string `mapstructure:"MINIO_BUCKET"`
	MinioUseSSL    bool   `mapstructure:"MINIO_USE_SSL"`

	PDFFontPath string `mapstructure:"PDF_FONT_PATH"`
}

var keys = []string{
	"ENV", "TELEGRAM_BOT_TOKEN", "DATABASE_URL", "MIGRATIONS_PATH", "REDIS_URL", "SESSION_TTL",
	"BOT_MODE", "WEBHOOK_URL", "WEBHOOK_SECRET", "PORT", "WORKERS",
	"STORAGE_BACKEND", "UPLOAD_DIR", "MINIO_ENDPOINT", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY",
	"MINIO_BUCKET", "MINIO_USE_SSL", "PDF_FONT_PATH",
}

// Load reads configuration from the process environment, optionally seeded
// from a .env file in the working directory.
func Load() (*Config, error) {
	// .env is optional, production injects the environment directly
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ENV", "production")
	v.SetDefault("MIGRATIONS_PATH", "file://migrations")
	v.SetDefault("SESSION_TTL", 24*time.Hour)
	v.SetDefault("BOT_MODE", ModePolling)
	v.SetDefault("PORT", "8080")
	v.SetDefault("WORKERS", 4)
	v.SetDefault("STORAGE_BACKEND", StorageLocal)
	v.SetDefault("UPLOAD_DIR", "uploaded_files")
	v.SetDefault("MINIO_BUCKET", "examinations")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	c.Mode = strings.ToLower(c.Mode)
	c.StorageBackend = strings.ToLower(c.StorageBackend)

	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	switch c.Mode {
	case ModePolling:
	case ModeWebhook:
		if c.WebhookURL == "" {
			return fmt.Errorf("WEBHOOK_URL is required in webhook mode")
		}
		if c.WebhookSecret == "" {
			return fmt.Errorf("WEBHOOK_SECRET is required in webhook mode")
		}
	default:
		return fmt.Errorf("invalid BOT_MODE: %s", c.Mode)
	}
	switch c.StorageBackend {
	case StorageLocal:
	case StorageMinio:
		if c.MinioEndpoint == "" {
			return fmt.Errorf("MINIO_ENDPOINT is required for minio storage")
		}
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND: %s", c.StorageBackend)
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
