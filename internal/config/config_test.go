package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, 30*time.Second, cfg.HTTP.RequestTimeout)
	assert.Equal(t, "18.5", cfg.Checkout.ShippingFlatRate.String())
	assert.Equal(t, "snttbstt@01", cfg.Admin.Email)
	assert.NotEmpty(t, cfg.JWT.Secret)
	assert.False(t, cfg.Kafka.Enabled())
	assert.False(t, cfg.SMTP.Enabled())
	assert.False(t, cfg.S3.Enabled())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("POSTGRES_PORT", "6543")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("S3_USE_PATH_STYLE", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTP.Port)
	assert.Equal(t, 6543, cfg.Postgres.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 2*time.Hour, cfg.JWT.TTL)
	assert.False(t, cfg.S3.UsePathStyle)
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoad_InvalidPaymentApproval(t *testing.T) {
	t.Setenv("PAYMENT_APPROVAL", "sometimes")

	_, err := Load()
	require.ErrorContains(t, err, "PAYMENT_APPROVAL")
}

func TestLoad_InvalidFlatRate(t *testing.T) {
	t.Setenv("SHIPPING_FLAT_RATE", "abc")

	_, err := Load()
	require.ErrorContains(t, err, "SHIPPING_FLAT_RATE")
}

func TestPostgresDSN(t *testing.T) {
	c := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "shop", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=shop sslmode=disable", c.DSN())
}
