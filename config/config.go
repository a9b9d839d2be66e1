// Package config loads storefront settings from defaults, an optional YAML
// file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file search.
const ConfigPathEnvVar = "CONFIG_PATH"

var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/storefront/config.yaml",
}

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Backend   BackendConfig   `koanf:"backend"`
	Database  DatabaseConfig  `koanf:"database"`
	Cart      CartConfig      `koanf:"cart"`
	Payment   PaymentConfig   `koanf:"payment"`
	CORS      CORSConfig      `koanf:"cors"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Log       LogConfig       `koanf:"log"`
}

type ServerConfig struct {
	Addr string `koanf:"addr"`
}

type BackendConfig struct {
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

// DatabaseConfig selects session storage. An empty DSN keeps sessions in memory.
type DatabaseConfig struct {
	DSN string `koanf:"dsn"`
}

// CartConfig bounds how long an untouched cart is kept in memory.
type CartConfig struct {
	IdleTimeout   time.Duration `koanf:"idle_timeout"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

type PaymentConfig struct {
	KeyID        string `koanf:"key_id"`
	MerchantName string `koanf:"merchant_name"`
	Description  string `koanf:"description"`
	ThemeColor   string `koanf:"theme_color"`
}

type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `koanf:"requests_per_minute"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaultConfig() *Config {
	return &Config{
		Server:  ServerConfig{Addr: ":8082"},
		Backend: BackendConfig{BaseURL: "http://localhost:5000/api", Timeout: 15 * time.Second},
		Cart:    CartConfig{IdleTimeout: 24 * time.Hour, SweepInterval: 5 * time.Minute},
		Payment: PaymentConfig{
			MerchantName: "LUXE.",
			Description:  "Masterpiece Purchase",
			ThemeColor:   "#d4ff3f",
		},
		CORS:      CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		RateLimit: RateLimitConfig{RequestsPerMinute: 300},
		Log:       LogConfig{Level: "info", Format: "json"},
	}
}

// Load builds the configuration: struct defaults, then the config file if one
// is found, then environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var envMappings = map[string]string{
	"server_addr":                   "server.addr",
	"base_url":                      "backend.base_url",
	"backend_base_url":              "backend.base_url",
	"backend_timeout":               "backend.timeout",
	"database_dsn":                  "database.dsn",
	"cart_idle_timeout":             "cart.idle_timeout",
	"cart_sweep_interval":           "cart.sweep_interval",
	"payment_key_id":                "payment.key_id",
	"razorpay_key_id":               "payment.key_id",
	"payment_merchant_name":         "payment.merchant_name",
	"payment_description":           "payment.description",
	"payment_theme_color":           "payment.theme_color",
	"cors_allowed_origins":          "cors.allowed_origins",
	"ratelimit_requests_per_minute": "ratelimit.requests_per_minute",
	"log_level":                     "log.level",
	"log_format":                    "log.format",
}

// envTransformFunc maps BACKEND_BASE_URL to backend.base_url and so on.
// Unknown variables map to "" and are skipped by the provider.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

var sliceConfigPaths = []string{"cors.allowed_origins"}

// processSliceFields splits comma-separated env values into slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend.base_url %q is not an absolute URL", c.Backend.BaseURL)
	}
	if c.Backend.Timeout <= 0 {
		return errors.New("backend.timeout must be positive")
	}
	if c.Cart.IdleTimeout <= 0 || c.Cart.SweepInterval <= 0 {
		return errors.New("cart.idle_timeout and cart.sweep_interval must be positive")
	}
	if c.RateLimit.RequestsPerMinute < 0 {
		return errors.New("ratelimit.requests_per_minute cannot be negative")
	}
	return nil
}
