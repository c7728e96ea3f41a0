// Package config handles runtime configuration for the PhishGuard API:
// built-in defaults, an optional YAML file, and environment overrides,
// applied in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const envPrefix = "PHISHGUARD_"

// BootstrapConfig holds the default credentials used to seed the user table
// the first time the service starts against an empty database.
type BootstrapConfig struct {
	AdminEmail    string `yaml:"admin_email"`
	AdminUsername string `yaml:"admin_username"`
	AdminPassword string `yaml:"admin_password"`
	UserEmail     string `yaml:"user_email"`
	UserUsername  string `yaml:"user_username"`
	UserPassword  string `yaml:"user_password"`
}

// Config holds all runtime settings for the service.
type Config struct {
	Addr        string `yaml:"addr"`
	DatabaseDSN string `yaml:"database_dsn"`

	// AuthSecret signs session tokens. The default is only suitable for
	// local development.
	AuthSecret      string `yaml:"auth_secret"`
	AdminToken      string `yaml:"admin_token"`
	TokenTTLSeconds int    `yaml:"token_ttl_seconds"`

	ConnectRetries        int     `yaml:"connect_retries"`
	ConnectRetryDelaySecs float64 `yaml:"connect_retry_delay_seconds"`

	LogFullURLs      bool     `yaml:"log_full_urls"`
	MaxURLLength     int      `yaml:"max_url_length"`
	SuspiciousTokens []string `yaml:"suspicious_tokens"`

	EnableHeuristicModel bool `yaml:"enable_heuristic_model"`

	RateBurst     int `yaml:"rate_burst"`
	RatePerSecond int `yaml:"rate_per_second"`

	Bootstrap BootstrapConfig `yaml:"bootstrap"`
}

// TokenTTL returns the configured token lifetime as a time.Duration.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLSeconds) * time.Second
}

// ConnectRetryDelay returns the delay between store connection attempts.
func (c *Config) ConnectRetryDelay() time.Duration {
	return time.Duration(c.ConnectRetryDelaySecs * float64(time.Second))
}

// Defaults returns a Config populated with development defaults.
// NOTE: the secrets here are insecure and must be overridden in production.
func Defaults() *Config {
	return &Config{
		Addr:                  ":8081",
		AuthSecret:            "dev-secret-change-me",
		TokenTTLSeconds:       604800, // 7 days
		ConnectRetries:        5,
		ConnectRetryDelaySecs: 1.5,
		MaxURLLength:          2000,
		SuspiciousTokens:      []string{"login", "secure", "bank", "verify", "update", "account"},
		EnableHeuristicModel:  true,
		RateBurst:             50,
		RatePerSecond:         25,
		Bootstrap: BootstrapConfig{
			AdminEmail:    "admin@phishguard.local",
			AdminUsername: "admin",
			AdminPassword: "admin123",
			UserEmail:     "user@phishguard.local",
			UserUsername:  "user",
			UserPassword:  "user123",
		},
	}
}

// Load builds a Config by applying defaults, overlaying the YAML file at
// path (skipped when path is empty or the file does not exist), and finally
// applying PHISHGUARD_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// optional file
		default:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	envString(&c.Addr, "ADDR")
	envString(&c.DatabaseDSN, "PG_DSN")
	envString(&c.AuthSecret, "AUTH_SECRET")
	envString(&c.AdminToken, "ADMIN_TOKEN")
	envInt(&c.TokenTTLSeconds, "TOKEN_TTL_SECONDS")
	envInt(&c.ConnectRetries, "CONNECT_RETRIES")
	envFloat(&c.ConnectRetryDelaySecs, "CONNECT_RETRY_DELAY_SECONDS")
	envBool(&c.LogFullURLs, "LOG_FULL_URLS")
	envInt(&c.MaxURLLength, "MAX_URL_LENGTH")
	envBool(&c.EnableHeuristicModel, "ENABLE_HEURISTIC_MODEL")
	envInt(&c.RateBurst, "RATE_BURST")
	envInt(&c.RatePerSecond, "RATE_PER_SECOND")

	if raw, ok := lookupEnv("SUSPICIOUS_TOKENS"); ok {
		var tokens []string
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tokens = append(tokens, t)
			}
		}
		c.SuspiciousTokens = tokens
	}

	envString(&c.Bootstrap.AdminEmail, "ADMIN_EMAIL")
	envString(&c.Bootstrap.AdminUsername, "ADMIN_USERNAME")
	envString(&c.Bootstrap.AdminPassword, "ADMIN_PASSWORD")
	envString(&c.Bootstrap.UserEmail, "USER_EMAIL")
	envString(&c.Bootstrap.UserUsername, "USER_USERNAME")
	envString(&c.Bootstrap.UserPassword, "USER_PASSWORD")
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.AuthSecret) == "" {
		return fmt.Errorf("config: auth_secret is required")
	}
	if c.TokenTTLSeconds <= 0 {
		return fmt.Errorf("config: token_ttl_seconds must be positive")
	}
	if c.ConnectRetries < 1 {
		return fmt.Errorf("config: connect_retries must be at least 1")
	}
	if c.MaxURLLength < 1 {
		return fmt.Errorf("config: max_url_length must be positive")
	}
	return nil
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func envString(dst *string, key string) {
	if v, ok := lookupEnv(key); ok {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v, ok := lookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(dst *float64, key string) {
	if v, ok := lookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func envBool(dst *bool, key string) {
	if v, ok := lookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "yes":
			*dst = true
		case "0", "false", "no":
			*dst = false
		}
	}
}
