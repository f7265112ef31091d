package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string   `mapstructure:"PORT"`
	Env           string   `mapstructure:"ENV"`
	DatabaseURL   string   `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32    `mapstructure:"DB_MIN_CONNS"`
	DBSchema      string   `mapstructure:"DB_SCHEMA"`
	MigrationsDir string   `mapstructure:"MIGRATIONS_DIR"`
	CORSOrigins   []string `mapstructure:"CORS_ORIGINS"`
	Timezone      string   `mapstructure:"TIMEZONE"`
	BodyLimit     string   `mapstructure:"BODY_LIMIT"`
	// RequestTimeout bounds each API request, e.g. "30s".
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`

	BillingAutomationEnabled bool    `mapstructure:"BILLING_AUTOMATION_ENABLED"`
	BillingInitialHours      float64 `mapstructure:"BILLING_INITIAL_HOURS"`
	BillingProgressHours     float64 `mapstructure:"BILLING_PROGRESS_HOURS"`
	BillingClosureHours      float64 `mapstructure:"BILLING_CLOSURE_HOURS"`
	BillingDefaultRate       float64 `mapstructure:"BILLING_DEFAULT_RATE"`
}

var envKeys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "DB_SCHEMA",
	"MIGRATIONS_DIR", "CORS_ORIGINS", "TIMEZONE", "BODY_LIMIT",
	"REQUEST_TIMEOUT",
	"BILLING_AUTOMATION_ENABLED", "BILLING_INITIAL_HOURS", "BILLING_PROGRESS_HOURS",
	"BILLING_CLOSURE_HOURS", "BILLING_DEFAULT_RATE",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DB_SCHEMA", "public")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("TIMEZONE", "America/Boise")
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("BILLING_AUTOMATION_ENABLED", true)
	v.SetDefault("BILLING_INITIAL_HOURS", 1.0)
	v.SetDefault("BILLING_PROGRESS_HOURS", 0.5)
	v.SetDefault("BILLING_CLOSURE_HOURS", 0.5)
	v.SetDefault("BILLING_DEFAULT_RATE", 0)

	// Bind explicitly so Unmarshal sees env-only keys.
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}

	// A missing .env file is fine.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Location resolves TIMEZONE; "today" for report defaults is computed in it.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Validate rejects settings the report engine cannot run with.
func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("TIMEZONE %q is not a valid IANA zone: %w", c.Timezone, err)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	for name, h := range map[string]float64{
		"BILLING_INITIAL_HOURS":  c.BillingInitialHours,
		"BILLING_PROGRESS_HOURS": c.BillingProgressHours,
		"BILLING_CLOSURE_HOURS":  c.BillingClosureHours,
	} {
		if h <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, h)
		}
	}
	if c.BillingDefaultRate < 0 {
		return fmt.Errorf("BILLING_DEFAULT_RATE must not be negative, got %v", c.BillingDefaultRate)
	}
	return nil
}
