package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	defaultRemoteTimeout = 3 * time.Second
	defaultPollInterval  = 5 * time.Second
	defaultFallbackDir   = ".orders-fallback"
	defaultVATRate       = "15"
)

type Config struct {
	DB       *Postgres `yaml:"database"`
	RMQ      *RabbitMQ `yaml:"rabbitmq"`
	OrderAPI *OrderAPI `yaml:"order_api"`
	Fallback *Fallback `yaml:"fallback"`
	Pricing  *Pricing  `yaml:"pricing"`
	Board    *Board    `yaml:"board"`
}

type Postgres struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type RabbitMQ struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	VHost    string `yaml:"vhost"`
}

// OrderAPI is the remote leg of the order store.
type OrderAPI struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Fallback is the client-local durable store used when the remote leg fails.
type Fallback struct {
	Dir string `yaml:"dir"`
}

type Pricing struct {
	VATRatePercent string `yaml:"vat_rate_percent"`
}

type Board struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

// LoadConfig reads the yaml file, applies environment overrides and fills defaults.
// Without a config file the whole config comes from the environment.
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return LoadDotEnv()
	}
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", configPath, err)
	}
	applyEnv(cfg)
	applyDefaults(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv builds the config from environment variables only.
func LoadDotEnv() (*Config, error) {
	cfg := &Config{
		DB: &Postgres{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     getEnv("POSTGRES_USER", "restaurant_user"),
			Password: getEnv("POSTGRES_PASSWORD", "restaurant_pass"),
			Database: getEnv("POSTGRES_DBNAME", "restaurant_db"),
		},
		RMQ: &RabbitMQ{
			Host:     getEnv("RABBITMQ_HOST", "localhost"),
			Port:     getEnv("RABBITMQ_PORT", "5672"),
			User:     getEnv("RABBITMQ_USER", "guest"),
			Password: getEnv("RABBITMQ_PASSWORD", "guest"),
			VHost:    getEnv("RABBITMQ_VHOST", ""),
		},
	}
	applyEnv(cfg)
	applyDefaults(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// VATRate returns the configured VAT percentage.
func (c *Config) VATRate() decimal.Decimal {
	rate, err := decimal.NewFromString(c.Pricing.VATRatePercent)
	if err != nil {
		return decimal.RequireFromString(defaultVATRate)
	}
	return rate
}

// DatabaseURL returns a PostgreSQL connection URL
func (p *Postgres) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		p.User, p.Password, p.Host, p.Port, p.Database)
}

// URL returns an AMQP connection URL
func (r *RabbitMQ) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/%s", r.User, r.Password, r.Host, r.Port, r.VHost)
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ORDER_API_BASE_URL"); v != "" {
		if cfg.OrderAPI == nil {
			cfg.OrderAPI = &OrderAPI{}
		}
		cfg.OrderAPI.BaseURL = v
	}
	if v := os.Getenv("ORDER_FALLBACK_DIR"); v != "" {
		if cfg.Fallback == nil {
			cfg.Fallback = &Fallback{}
		}
		cfg.Fallback.Dir = v
	}
	if v := os.Getenv("ORDER_VAT_RATE_PERCENT"); v != "" {
		if cfg.Pricing == nil {
			cfg.Pricing = &Pricing{}
		}
		cfg.Pricing.VATRatePercent = v
	}
	if v := os.Getenv("ORDER_API_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			if cfg.OrderAPI == nil {
				cfg.OrderAPI = &OrderAPI{}
			}
			cfg.OrderAPI.Timeout = time.Duration(ms) * time.Millisecond
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.OrderAPI == nil {
		cfg.OrderAPI = &OrderAPI{}
	}
	if cfg.OrderAPI.BaseURL == "" {
		cfg.OrderAPI.BaseURL = "http://localhost:3000"
	}
	if cfg.OrderAPI.Timeout <= 0 {
		cfg.OrderAPI.Timeout = defaultRemoteTimeout
	}
	if cfg.Fallback == nil {
		cfg.Fallback = &Fallback{}
	}
	if cfg.Fallback.Dir == "" {
		cfg.Fallback.Dir = defaultFallbackDir
	}
	if cfg.Pricing == nil {
		cfg.Pricing = &Pricing{}
	}
	if cfg.Pricing.VATRatePercent == "" {
		cfg.Pricing.VATRatePercent = defaultVATRate
	}
	if cfg.Board == nil {
		cfg.Board = &Board{}
	}
	if cfg.Board.PollInterval <= 0 {
		cfg.Board.PollInterval = defaultPollInterval
	}
}

func (c *Config) validate() error {
	rate, err := decimal.NewFromString(c.Pricing.VATRatePercent)
	if err != nil {
		return fmt.Errorf("pricing.vat_rate_percent: %w", err)
	}
	if rate.IsNegative() {
		return fmt.Errorf("pricing.vat_rate_percent must not be negative: %s", rate)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
