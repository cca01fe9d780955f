package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("APP_DEBUG", "")
	t.Setenv("INVOICE_NUMBER_ATTEMPTS", "")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.False(t, cfg.Server.Debug)
	assert.Equal(t, "INV-", cfg.Business.InvoicePrefix)
	assert.Equal(t, 5, cfg.Business.InvoiceNumberAttempts)
	assert.Equal(t, 24*time.Hour, cfg.Business.IdempotencyTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_DEBUG", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("IDEMPOTENCY_TTL_SECONDS", "60")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := Load()
	assert.True(t, cfg.Server.Debug)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, time.Minute, cfg.Business.IdempotencyTTL)
	assert.Equal(t, 0, cfg.Redis.DB)
}

func TestValidateRequiresSecretInProduction(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	t.Setenv("ENV", "development")
	assert.NoError(t, Load().Validate())

	t.Setenv("ENV", "production")
	assert.Error(t, Load().Validate())

	t.Setenv("JWT_SECRET", "s3cr3t-from-vault")
	assert.NoError(t, Load().Validate())
}
