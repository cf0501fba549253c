package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppPort)
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Empty(t, cfg.RabbitMQ.URL)
	assert.Equal(t, "storefront.events", cfg.RabbitMQ.Exchange)
	assert.Equal(t, 2, cfg.Notify.Workers)
	assert.Equal(t, 256, cfg.Notify.QueueSize)
	assert.Equal(t, 5*time.Second, cfg.Notify.Timeout)
	assert.Equal(t, 100.0, cfg.Pricing.ShippingFee)
	assert.Equal(t, 50.0, cfg.Pricing.CODSurcharge)
	assert.Equal(t, 250.0, cfg.Pricing.SubscriptionFallbackDiscount)
	assert.Equal(t, "subscription_cost", cfg.Pricing.SubscriptionDiscountMode)
	assert.False(t, cfg.Returns.ReceivedRequiresApproval)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("APP_PORT", ":9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", "file:test.db")
	t.Setenv("JWT_SECRET", "a-long-random-test-secret")
	t.Setenv("NOTIFY_TIMEOUT", "750ms")
	t.Setenv("SHIPPING_FEE", "80")
	t.Setenv("SUBSCRIPTION_DISCOUNT_MODE", "flat")
	t.Setenv("RETURNS_RECEIVED_REQUIRES_APPROVAL", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.AppPort)
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "file:test.db", cfg.Database.DSN)
	assert.Equal(t, "a-long-random-test-secret", cfg.JWTSecret)
	assert.Equal(t, 750*time.Millisecond, cfg.Notify.Timeout)
	assert.Equal(t, 80.0, cfg.Pricing.ShippingFee)
	assert.Equal(t, "flat", cfg.Pricing.SubscriptionDiscountMode)
	assert.True(t, cfg.Returns.ReceivedRequiresApproval)
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"DATABASE_DRIVER": "mongo"}},
		{"postgres without dsn", map[string]string{"DATABASE_DRIVER": "postgres", "JWT_SECRET": "a-long-random-test-secret"}},
		{"postgres without jwt secret", map[string]string{"DATABASE_DRIVER": "postgres", "DATABASE_DSN": "postgres://shop@localhost/shop"}},
		{"postgres with dev jwt secret", map[string]string{"DATABASE_DRIVER": "postgres", "DATABASE_DSN": "postgres://shop@localhost/shop", "JWT_SECRET": "change-me"}},
		{"sqlite with empty jwt secret", map[string]string{"DATABASE_DRIVER": "sqlite", "JWT_SECRET": ""}},
		{"unknown discount mode", map[string]string{"SUBSCRIPTION_DISCOUNT_MODE": "half"}},
		{"negative fee", map[string]string{"COD_SURCHARGE": "-5"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}},
		{"admin without password", map[string]string{"ADMIN_USERNAME": "root", "ADMIN_EMAIL": "root@example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_PostgresWithSecret(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_DSN", "postgres://shop@localhost/shop")
	t.Setenv("JWT_SECRET", "a-long-random-test-secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "a-long-random-test-secret", cfg.JWTSecret)
}
