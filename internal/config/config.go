package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/natal_store/internal/shipping"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Env      string
	LogLevel string
	BaseURL  string

	HTTP     HTTPConfig
	Postgres PostgresConfig
	SQLite   SQLiteConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	JWT      JWTConfig
	Admin    AdminConfig
	SMTP     SMTPConfig
	S3       S3Config
	Checkout CheckoutConfig
	Payment  PaymentConfig
}

type HTTPConfig struct {
	Port               string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
	MaxUploadSize      int64
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns a lib/pq connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type SQLiteConfig struct {
	Path string
}

type MongoConfig struct {
	URI      string
	Database string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Enabled reports whether a broker list was configured.
func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

type JWTConfig struct {
	Secret   string
	Issuer   string
	TTL      time.Duration
	ResetTTL time.Duration
}

type AdminConfig struct {
	Name     string
	Email    string
	Password string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether outgoing mail should go through SMTP.
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

type S3Config struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
	PublicURL    string
}

// Enabled reports whether product images should be uploaded to S3.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

type CheckoutConfig struct {
	ShippingFlatRate decimal.Decimal
	ReservationTTL   time.Duration
	VerificationTTL  time.Duration
}

type PaymentConfig struct {
	Approval string // "always" or "random"
	Timeout  time.Duration
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	flatRate, err := decimal.NewFromString(getEnv("SHIPPING_FLAT_RATE", shipping.FlatRate().StringFixed(2)))
	if err != nil {
		return nil, fmt.Errorf("invalid SHIPPING_FLAT_RATE: %w", err)
	}

	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		BaseURL:  getEnv("BASE_URL", "http://localhost:8080"),
		HTTP: HTTPConfig{
			Port:               getEnv("HTTP_PORT", "8080"),
			RequestTimeout:     getEnvDuration("HTTP_REQUEST_TIMEOUT", 30*time.Second),
			ShutdownTimeout:    getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
			MaxRequestBodySize: int64(getEnvInt("HTTP_MAX_BODY_BYTES", 1<<20)),
			MaxUploadSize:      int64(getEnvInt("HTTP_MAX_UPLOAD_BYTES", 5<<20)),
		},
		Postgres: PostgresConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			DBName:   getEnv("POSTGRES_DB", "natal_store"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		SQLite: SQLiteConfig{
			Path: getEnv("CATALOG_DB_PATH", "catalog.db"),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DB", "natal_store"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS"),
			Topic:   getEnv("KAFKA_TOPIC", "storefront-orders"),
			GroupID: getEnv("KAFKA_GROUP_ID", "storefront-notifications"),
		},
		JWT: JWTConfig{
			Secret:   getEnv("JWT_SECRET", ""),
			Issuer:   getEnv("JWT_ISSUER", "natal-store"),
			TTL:      getEnvDuration("JWT_TTL", 24*time.Hour),
			ResetTTL: getEnvDuration("JWT_RESET_TTL", time.Hour),
		},
		Admin: AdminConfig{
			Name:     getEnv("ADMIN_NAME", "Administrador Master"),
			Email:    getEnv("ADMIN_EMAIL", "snttbstt@01"),
			Password: getEnv("ADMIN_PASSWORD", "$66S11B99$"),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "Natal Store <contato@natalstore.com.br>"),
		},
		S3: S3Config{
			Endpoint:     getEnv("S3_ENDPOINT", ""),
			Region:       getEnv("S3_REGION", "us-east-1"),
			Bucket:       getEnv("S3_BUCKET", ""),
			AccessKey:    getEnv("S3_ACCESS_KEY", ""),
			SecretKey:    getEnv("S3_SECRET_KEY", ""),
			UsePathStyle: getEnvBool("S3_USE_PATH_STYLE", true),
			PublicURL:    getEnv("S3_PUBLIC_URL", ""),
		},
		Checkout: CheckoutConfig{
			ShippingFlatRate: flatRate,
			ReservationTTL:   getEnvDuration("RESERVATION_TTL", 5*time.Minute),
			VerificationTTL:  getEnvDuration("VERIFICATION_CODE_TTL", 10*time.Minute),
		},
		Payment: PaymentConfig{
			Approval: getEnv("PAYMENT_APPROVAL", "always"),
			Timeout:  getEnvDuration("PAYMENT_TIMEOUT", 5*time.Second),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether APP_ENV is "production".
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		if c.IsProduction() {
			return errors.New("JWT_SECRET is required in production")
		}
		c.JWT.Secret = "dev-secret-change-me"
	}
	if c.Admin.Email == "" || c.Admin.Password == "" {
		return errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set")
	}
	if c.Payment.Approval != "always" && c.Payment.Approval != "random" {
		return fmt.Errorf("PAYMENT_APPROVAL must be \"always\" or \"random\", got %q", c.Payment.Approval)
	}
	if c.S3.Enabled() && (c.S3.AccessKey == "" || c.S3.SecretKey == "") {
		return errors.New("S3_ACCESS_KEY and S3_SECRET_KEY are required when S3_BUCKET is set")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
