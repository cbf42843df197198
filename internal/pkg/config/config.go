// Package config loads service settings from an optional YAML file and lets
// environment variables override any value.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/jcmexdev/storefront-orders/internal/pkg/telemetry"
)

// TxMode selects how the order service decides on multi-document
// transactions.
type TxMode string

const (
	TxAuto TxMode = "auto" // probe the store at startup
	TxOn   TxMode = "on"
	TxOff  TxMode = "off"
)

type Config struct {
	HTTPAddr string `yaml:"http_addr"`
	LogLevel string `yaml:"log_level"`

	// Store is "mongo" or "memory".
	Store   string `yaml:"store"`
	MongoDB Mongo  `yaml:"mongodb"`
	TxMode  TxMode `yaml:"tx_mode"`

	Idempotency Idempotency `yaml:"idempotency"`
	Redis       Redis       `yaml:"redis"`
	Kafka       Kafka       `yaml:"kafka"`
	// NotifyTimeout bounds one background change notification per sink.
	NotifyTimeout time.Duration `yaml:"notify_timeout"`
	Payment     Payment     `yaml:"payment"`
	Pricing     Pricing     `yaml:"pricing"`

	SagaLogPath string                 `yaml:"saga_log_path"`
	Tracing     telemetry.TracerConfig `yaml:"tracing"`
}

type Mongo struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type Idempotency struct {
	Window       time.Duration `yaml:"window"`
	InFlightWait time.Duration `yaml:"inflight_wait"`
}

// Redis is disabled when Addr is empty.
type Redis struct {
	Addr    string `yaml:"addr"`
	Channel string `yaml:"channel"`
}

// Kafka is disabled when Brokers is empty.
type Kafka struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Payment leaves the gateway disabled when StripeSecretKey is empty.
type Payment struct {
	StripeSecretKey string        `yaml:"stripe_secret_key"`
	StripeBaseURL   string        `yaml:"stripe_base_url"`
	Currency        string        `yaml:"currency"`
	Timeout         time.Duration `yaml:"timeout"`
}

type Pricing struct {
	Shipping decimal.Decimal `yaml:"shipping"`
	TaxRate  decimal.Decimal `yaml:"tax_rate"`
}

func Default() Config {
	return Config{
		HTTPAddr: ":8080",
		LogLevel: "info",
		Store:    "mongo",
		MongoDB: Mongo{
			URI:      "mongodb://localhost:27017",
			Database: "storefront",
		},
		TxMode: TxAuto,
		Idempotency: Idempotency{
			Window:       5 * time.Minute,
			InFlightWait: 3 * time.Second,
		},
		Redis: Redis{Channel: "storefront:events"},
		Kafka:         Kafka{Topic: "storefront.events"},
		NotifyTimeout: 2 * time.Second,
		Payment: Payment{
			StripeBaseURL: "https://api.stripe.com",
			Currency:      "pen",
			Timeout:       10 * time.Second,
		},
		Tracing: telemetry.TracerConfig{
			ServiceName: "order-service",
			Endpoint:    "localhost:4317",
			Environment: "local",
			SampleRatio: 1,
		},
	}
}

// Load reads path (when non-empty) over the defaults, then applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.Store {
	case "mongo", "memory":
	default:
		errs = append(errs, fmt.Errorf("config: store must be mongo or memory, got %q", c.Store))
	}
	switch c.TxMode {
	case TxAuto, TxOn, TxOff:
	default:
		errs = append(errs, fmt.Errorf("config: tx_mode must be auto, on or off, got %q", c.TxMode))
	}
	if c.Idempotency.Window <= 0 {
		errs = append(errs, errors.New("config: idempotency window must be positive"))
	}
	if c.Pricing.Shipping.IsNegative() || c.Pricing.TaxRate.IsNegative() {
		errs = append(errs, errors.New("config: shipping and tax rate must not be negative"))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("config: kafka topic is required when brokers are set"))
	}
	return errors.Join(errs...)
}

func applyEnv(c *Config) error {
	c.HTTPAddr = getEnv("HTTP_ADDR", c.HTTPAddr)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Store = getEnv("STORE", c.Store)
	c.MongoDB.URI = getEnv("MONGODB_URI", c.MongoDB.URI)
	c.MongoDB.Database = getEnv("MONGODB_DATABASE", c.MongoDB.Database)
	c.TxMode = TxMode(getEnv("TX_MODE", string(c.TxMode)))
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Channel = getEnv("REDIS_CHANNEL", c.Redis.Channel)
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	c.Kafka.Topic = getEnv("KAFKA_TOPIC", c.Kafka.Topic)
	c.Payment.StripeSecretKey = getEnv("STRIPE_SECRET_KEY", c.Payment.StripeSecretKey)
	c.Payment.StripeBaseURL = getEnv("STRIPE_BASE_URL", c.Payment.StripeBaseURL)
	c.Payment.Currency = getEnv("PAYMENT_CURRENCY", c.Payment.Currency)
	c.SagaLogPath = getEnv("SAGA_LOG_PATH", c.SagaLogPath)
	c.Tracing.ServiceName = getEnv("OTEL_SERVICE_NAME", c.Tracing.ServiceName)
	c.Tracing.Endpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.Tracing.Endpoint)
	c.Tracing.Environment = getEnv("OTEL_RESOURCE_ATTRIBUTES_ENV", c.Tracing.Environment)

	var err error
	if c.Idempotency.Window, err = getDuration("IDEMPOTENCY_WINDOW", c.Idempotency.Window); err != nil {
		return err
	}
	if c.Idempotency.InFlightWait, err = getDuration("IDEMPOTENCY_INFLIGHT_WAIT", c.Idempotency.InFlightWait); err != nil {
		return err
	}
	if c.Payment.Timeout, err = getDuration("PAYMENT_TIMEOUT", c.Payment.Timeout); err != nil {
		return err
	}
	if c.NotifyTimeout, err = getDuration("NOTIFY_TIMEOUT", c.NotifyTimeout); err != nil {
		return err
	}
	if c.Pricing.Shipping, err = getDecimal("SHIPPING_FLAT", c.Pricing.Shipping); err != nil {
		return err
	}
	if c.Pricing.TaxRate, err = getDecimal("TAX_RATE", c.Pricing.TaxRate); err != nil {
		return err
	}
	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		if c.Tracing.Enabled, err = strconv.ParseBool(v); err != nil {
			return fmt.Errorf("config: OTEL_ENABLED: %w", err)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

func getDecimal(key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
