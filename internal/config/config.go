// Package config loads application settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Database drivers understood by pkg/database. "memory" keeps everything in
// process and is meant for local runs and tests.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config is the complete application configuration.
type Config struct {
	AppPort   string
	LogLevel  zerolog.Level
	JWTSecret string

	Database DatabaseConfig
	RabbitMQ RabbitMQConfig
	Notify   NotifyConfig
	SMTP     SMTPConfig
	Pricing  PricingConfig
	Returns  ReturnsConfig
	Admin    AdminConfig
}

type DatabaseConfig struct {
	Driver string
	DSN    string
}

// RabbitMQConfig is optional; an empty URL disables the broker.
type RabbitMQConfig struct {
	URL      string
	Exchange string
	Queue    string
}

type NotifyConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
	StoreName string
}

// SMTPConfig is optional; an empty host logs e-mails instead of sending them.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type PricingConfig struct {
	ShippingFee                  float64
	CODSurcharge                 float64
	SubscriptionFallbackDiscount float64
	SubscriptionDiscountMode     string
}

type ReturnsConfig struct {
	ReceivedRequiresApproval bool
}

// AdminConfig seeds an admin account at startup when Username is set.
type AdminConfig struct {
	Username string
	Email    string
	Password string
}

// devJWTSecret only signs tokens for the in-memory driver. Any persistent
// store needs JWT_SECRET set explicitly.
const devJWTSecret = "change-me"

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_SECRET", devJWTSecret)

	v.SetDefault("DATABASE_DRIVER", DriverMemory)
	v.SetDefault("DATABASE_DSN", "")

	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_EXCHANGE", "storefront.events")
	v.SetDefault("RABBITMQ_QUEUE", "storefront.notifications")

	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("NOTIFY_QUEUE_SIZE", 256)
	v.SetDefault("NOTIFY_TIMEOUT", "5s")
	v.SetDefault("STORE_NAME", "Storefront")

	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("MAIL_FROM", "no-reply@storefront.local")

	v.SetDefault("SHIPPING_FEE", 100)
	v.SetDefault("COD_SURCHARGE", 50)
	v.SetDefault("SUBSCRIPTION_FALLBACK_DISCOUNT", 250)
	v.SetDefault("SUBSCRIPTION_DISCOUNT_MODE", "subscription_cost")

	v.SetDefault("RETURNS_RECEIVED_REQUIRES_APPROVAL", false)

	v.SetDefault("ADMIN_USERNAME", "")
	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("ADMIN_PASSWORD", "")
}

// Load reads a .env file if present, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	level, err := zerolog.ParseLevel(strings.ToLower(v.GetString("LOG_LEVEL")))
	if err != nil {
		return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	cfg := Config{
		AppPort:   v.GetString("APP_PORT"),
		LogLevel:  level,
		JWTSecret: v.GetString("JWT_SECRET"),
		Database: DatabaseConfig{
			Driver: strings.ToLower(v.GetString("DATABASE_DRIVER")),
			DSN:    v.GetString("DATABASE_DSN"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      v.GetString("RABBITMQ_URL"),
			Exchange: v.GetString("RABBITMQ_EXCHANGE"),
			Queue:    v.GetString("RABBITMQ_QUEUE"),
		},
		Notify: NotifyConfig{
			Workers:   v.GetInt("NOTIFY_WORKERS"),
			QueueSize: v.GetInt("NOTIFY_QUEUE_SIZE"),
			Timeout:   v.GetDuration("NOTIFY_TIMEOUT"),
			StoreName: v.GetString("STORE_NAME"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("MAIL_FROM"),
		},
		Pricing: PricingConfig{
			ShippingFee:                  v.GetFloat64("SHIPPING_FEE"),
			CODSurcharge:                 v.GetFloat64("COD_SURCHARGE"),
			SubscriptionFallbackDiscount: v.GetFloat64("SUBSCRIPTION_FALLBACK_DISCOUNT"),
			SubscriptionDiscountMode:     v.GetString("SUBSCRIPTION_DISCOUNT_MODE"),
		},
		Returns: ReturnsConfig{
			ReceivedRequiresApproval: v.GetBool("RETURNS_RECEIVED_REQUIRES_APPROVAL"),
		},
		Admin: AdminConfig{
			Username: v.GetString("ADMIN_USERNAME"),
			Email:    v.GetString("ADMIN_EMAIL"),
			Password: v.GetString("ADMIN_PASSWORD"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings that would otherwise fail late at runtime.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("DATABASE_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.Database.Driver)
	}
	if c.Database.Driver != DriverMemory && (c.JWTSecret == "" || c.JWTSecret == devJWTSecret) {
		return fmt.Errorf("JWT_SECRET must be set for the %s driver", c.Database.Driver)
	}
	switch c.Pricing.SubscriptionDiscountMode {
	case "subscription_cost", "flat":
	default:
		return fmt.Errorf("unsupported SUBSCRIPTION_DISCOUNT_MODE %q", c.Pricing.SubscriptionDiscountMode)
	}
	if c.Pricing.ShippingFee < 0 || c.Pricing.CODSurcharge < 0 || c.Pricing.SubscriptionFallbackDiscount < 0 {
		return fmt.Errorf("pricing amounts cannot be negative")
	}
	if c.Notify.Workers < 1 || c.Notify.QueueSize < 1 {
		return fmt.Errorf("NOTIFY_WORKERS and NOTIFY_QUEUE_SIZE must be at least 1")
	}
	if c.Notify.Timeout <= 0 {
		return fmt.Errorf("NOTIFY_TIMEOUT must be positive")
	}
	if c.Admin.Username != "" && (c.Admin.Email == "" || len(c.Admin.Password) < 6) {
		return fmt.Errorf("ADMIN_EMAIL and an ADMIN_PASSWORD of at least 6 characters are required with ADMIN_USERNAME")
	}
	return nil
}
