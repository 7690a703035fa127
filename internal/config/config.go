package config

import (
	"fmt"
	"time"
)

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	Database    Database `envPrefix:"DATABASE_"`
	Redis       Redis    `envPrefix:"REDIS_"`
	Auth        Auth
	Payment     Payment `envPrefix:"PAYMENT_"`

	Stripe Stripe `envPrefix:"STRIPE_"`
	Paypal Paypal `envPrefix:"PAYPAL_"`
	SMTP   SMTP   `envPrefix:"SMTP_"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

func (e Environment) IsDevelopment() bool {
	return e.Name == "development"
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}

type Database struct {
	Driver       string        `env:"DRIVER" envDefault:"sqlite"` // sqlite, mysql
	URL          string        `env:"URL" envDefault:"elearning.db"`
	MaxIdleConns int           `env:"MAX_IDLE_CONNS" envDefault:"10"`
	MaxOpenConns int           `env:"MAX_OPEN_CONNS" envDefault:"50"`
	ConnLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"1h"`
}

// Redis is optional. An empty URL disables caching.
type Redis struct {
	URL string        `env:"URL"`
	TTL time.Duration `env:"TTL" envDefault:"15m"`
}

type Auth struct {
	AccessTokenSecret string `env:"ACCESS_TOKEN"`
}

type Payment struct {
	Provider string `env:"PROVIDER" envDefault:"stripe"` // stripe, paypal
	Currency string `env:"CURRENCY" envDefault:"INR"`
}

type Stripe struct {
	SecretKey      string `env:"SECRET_KEY"`
	PublishableKey string `env:"PUBLISHABLE_KEY"`
	WebhookSecret  string `env:"WEBHOOK_SECRET"`
}

type Paypal struct {
	BaseApiURL   string `env:"BASE_API_URL" envDefault:"https://api-m.sandbox.paypal.com"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	WebhookID    string `env:"WEBHOOK_ID"`
}

type SMTP struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"587"`
	User     string `env:"USER"`
	Password string `env:"PASS"`
	From     string `env:"FROM" envDefault:"E-LEARNING"`
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	switch c.Payment.Provider {
	case "stripe", "paypal":
	default:
		return fmt.Errorf("unsupported payment provider %q", c.Payment.Provider)
	}

	if c.Auth.AccessTokenSecret == "" {
		return fmt.Errorf("ACCESS_TOKEN must be set")
	}

	return nil
}
