package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "booking-engine", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Minute, cfg.Booking.HoldTTL)
	assert.Equal(t, "full", cfg.Booking.RefundPolicy)
	assert.Equal(t, "USD", cfg.Booking.BaseCurrency)
	assert.Equal(t, "wallet", cfg.Gateway.DefaultProvider)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.OTel.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("BOOKING_HOLD_TTL", "5m")
	t.Setenv("BOOKING_REFUND_POLICY", "tiered")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Booking.HoldTTL)
	assert.Equal(t, "tiered", cfg.Booking.RefundPolicy)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	t.Run("missing jwt secret", func(t *testing.T) {
		cfg := base()
		cfg.JWT.Secret = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("default secret rejected in production", func(t *testing.T) {
		cfg := base()
		cfg.App.Environment = "production"
		assert.Error(t, cfg.Validate())
	})

	t.Run("stripe provider requires key", func(t *testing.T) {
		cfg := base()
		cfg.Gateway.DefaultProvider = "stripe"
		assert.Error(t, cfg.Validate())

		cfg.Gateway.StripeSecretKey = "sk_test_123"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("unknown refund policy", func(t *testing.T) {
		cfg := base()
		cfg.Booking.RefundPolicy = "generous"
		assert.Error(t, cfg.Validate())
	})

	t.Run("hold ttl must be positive", func(t *testing.T) {
		cfg := base()
		cfg.Booking.HoldTTL = 0
		assert.Error(t, cfg.Validate())
	})
}

func TestConnectionStrings(t *testing.T) {
	db := &DatabaseConfig{
		Host: "db1", Port: 5432, User: "app", Password: "pw",
		DBName: "booking_engine", SSLMode: "disable",
	}
	assert.Equal(t,
		"host=db1 port=5432 user=app password=pw dbname=booking_engine sslmode=disable",
		db.DSN())

	r := &RedisConfig{Host: "cache1", Port: 6379}
	assert.Equal(t, "cache1:6379", r.Addr())
}
