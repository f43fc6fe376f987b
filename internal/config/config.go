package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process-wide configuration, read from the environment once at startup.
type Config struct {
	Port         string `env:"PORT" envDefault:"8080"`
	AppBaseURL   string `env:"APP_BASE_URL" envDefault:"http://localhost:3000"`
	APIBaseURL   string `env:"API_BASE_URL" envDefault:"http://localhost:8080"`
	CookieSecure bool   `env:"COOKIE_SECURE" envDefault:"false"`
	PostgresURL  string `env:"POSTGRES_URL"`

	Stripe    StripeConfig    `envPrefix:"STRIPE_"`
	JWT       JWTConfig       `envPrefix:"JWT_"`
	SMTP      SMTPConfig      `envPrefix:"SMTP_"`
	Catalog   CatalogConfig   `envPrefix:"CATALOG_"`
	Reconcile ReconcileConfig `envPrefix:"RECONCILE_"`
	Redis     RedisConfig     `envPrefix:"REDIS_"`
	Log       LogConfig       `envPrefix:"LOG_"`
}

type StripeConfig struct {
	SecretKey     string `env:"SECRET_KEY"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
	Currency      string `env:"CURRENCY" envDefault:"aud"`
	Country       string `env:"COUNTRY" envDefault:"AU"`
}

type JWTConfig struct {
	Secret string        `env:"SECRET"`
	TTL    time.Duration `env:"TTL" envDefault:"24h"`
}

// SMTPConfig is optional; mail is skipped when Host is empty.
type SMTPConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM"`
	FromName string `env:"FROM_NAME" envDefault:"School Billing"`
	UseSSL   bool   `env:"USE_SSL" envDefault:"false"`
}

type CatalogConfig struct {
	// CSVPath overrides the embedded default catalog.
	CSVPath string `env:"CSV_PATH"`
}

type ReconcileConfig struct {
	Schedule string `env:"SCHEDULE" envDefault:"@every 6h"`
	Enabled  bool   `env:"ENABLED" envDefault:"true"`
}

type RedisConfig struct {
	URL string `env:"URL"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

// Load reads .env (if present) and parses the environment into a Config.
func Load() (*Config, error) {
	// .env is optional outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings the HTTP server cannot run without.
func (c *Config) Validate() error {
	switch {
	case c.PostgresURL == "":
		return fmt.Errorf("POSTGRES_URL is required")
	case c.Stripe.SecretKey == "":
		return fmt.Errorf("STRIPE_SECRET_KEY is required")
	case c.Stripe.WebhookSecret == "":
		return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required")
	case c.JWT.Secret == "":
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}
