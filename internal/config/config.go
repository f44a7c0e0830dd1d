// Package config содержит логику чтения конфигурации сервиса BookBazar.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	defaultRunAddress  = "localhost:8080"
	defaultCatalogPath = "data/books.json"

	maxPasswordMinLength = 6
)

// Config содержит параметры конфигурации сервиса BookBazar.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	CatalogPath string `env:"CATALOG_PATH"`

	CatalogBucket string `env:"CATALOG_S3_BUCKET"`
	CatalogKey    string `env:"CATALOG_S3_KEY" envDefault:"books.json"`
	CatalogSeed   bool   `env:"CATALOG_SEED" envDefault:"true"`

	MongoDatabase string `env:"MONGODB_DB" envDefault:"bookbazar"`

	AWSRegion          string `env:"AWS_REGION" envDefault:"ap-south-1"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`

	SNSTopicARN   string        `env:"SNS_TOPIC_ARN"`
	WebhookURL    string        `env:"NOTIFY_WEBHOOK_URL"`
	NotifyTimeout time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"5s"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	MailSender   string `env:"MAIL_SENDER"`

	SessionSecret     string        `env:"SESSION_SECRET"`
	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	PasswordMinLength int           `env:"PASSWORD_MIN_LENGTH" envDefault:"6"`
	Timezone          string        `env:"TIMEZONE" envDefault:"UTC"`
	LogLevel          string        `env:"LOG_LEVEL" envDefault:"info"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envCatalogPath := cfg.CatalogPath

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "storage URI (postgres://, mongodb://, sqlite://; empty for in-memory)")
	flag.StringVar(&cfg.CatalogPath, "c", defaultCatalogPath, "path to the books catalog JSON file")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envCatalogPath != "" {
		cfg.CatalogPath = envCatalogPath
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет допустимость значений конфигурации.
func (c *Config) Validate() error {
	if c.PasswordMinLength < 1 || c.PasswordMinLength > maxPasswordMinLength {
		return fmt.Errorf("PASSWORD_MIN_LENGTH must be between 1 and %d, got %d", maxPasswordMinLength, c.PasswordMinLength)
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.NotifyTimeout <= 0 {
		return errors.New("NOTIFY_TIMEOUT must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.SMTPHost != "" && c.MailSender == "" {
		return errors.New("MAIL_SENDER is required when SMTP_HOST is set")
	}
	return nil
}

// Location возвращает часовой пояс для отметок времени заказов и уведомлений.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
