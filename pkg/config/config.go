// Package config loads engine configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type StripeConfig struct {
	ApiKey        string `envconfig:"API_KEY"`
	SigningSecret string `envconfig:"SIGNING_SECRET"`
}

type PaypalConfig struct {
	BaseURL      string `envconfig:"BASE_URL" default:"https://api-m.paypal.com"`
	ClientID     string `envconfig:"CLIENT_ID"`
	ClientSecret string `envconfig:"CLIENT_SECRET"`
}

type PaymentSpringConfig struct {
	BaseURL    string `envconfig:"BASE_URL" default:"https://api.paymentspring.com/api/v1"`
	PrivateKey string `envconfig:"PRIVATE_KEY"`
}

type QueueConfig struct {
	Workers     int           `envconfig:"WORKERS" default:"4"`
	Buffer      int           `envconfig:"BUFFER" default:"256"`
	MaxAttempts int           `envconfig:"MAX_ATTEMPTS" default:"5"`
	BaseBackoff time.Duration `envconfig:"BASE_BACKOFF" default:"500ms"`
	MaxBackoff  time.Duration `envconfig:"MAX_BACKOFF" default:"30s"`
}

type AppConfig struct {
	Env           string              `envconfig:"APP_ENV" default:"development"`
	BaseCurrency  string              `envconfig:"BASE_CURRENCY" default:"USD"`
	Stripe        StripeConfig        `envconfig:"STRIPE"`
	Paypal        PaypalConfig        `envconfig:"PAYPAL"`
	PaymentSpring PaymentSpringConfig `envconfig:"PAYMENTSPRING"`
	Queue         QueueConfig         `envconfig:"QUEUE"`
}

func maskApiKey(key string) string {
	if len(key) <= 6 {
		return "****"
	}
	return key[:2] + "****" + key[len(key)-4:]
}

func LoadAppConfig(logger *slog.Logger, envFilePath ...string) (*AppConfig, error) {
	var err error
	if len(envFilePath) > 0 && envFilePath[0] != "" {
		err = godotenv.Load(envFilePath[0])
	} else {
		err = godotenv.Load()
	}

	if err != nil {
		logger.Warn("No .env file found or specified, using system environment variables")
	} else {
		logger.Info("Environment variables loaded from .env file")
	}
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	logger.Info("App config loaded",
		"env", cfg.Env,
		"base_currency", cfg.BaseCurrency,
		"stripe_api_key", maskApiKey(cfg.Stripe.ApiKey),
		"queue_workers", cfg.Queue.Workers,
		"queue_max_attempts", cfg.Queue.MaxAttempts,
	)
	return &cfg, nil
}
