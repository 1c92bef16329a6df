// Package config loads service configuration from the environment (or an
// optional config file) and layers tunables from the settings table on top.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gorm.io/gorm"

	"github.com/MbBrainz/grantflow-dev-sub000/src/data"
	"github.com/MbBrainz/grantflow-dev-sub000/src/payout"
)

// Environment keys
const (
	KeyMySQLDSN        = "MYSQL_DSN"
	KeyRedisURL        = "REDIS_URL"
	KeyJWTSecret       = "JWT_SECRET"
	KeyPort            = "PORT"
	KeyAllowedOrigins  = "ALLOWED_ORIGINS"
	KeyExplorerURL     = "EXPLORER_URL_TEMPLATE"
	KeyRateLimit       = "RATE_LIMIT"
	KeyRateWindow      = "RATE_WINDOW"
	KeyShutdownTimeout = "SHUTDOWN_TIMEOUT"
)

type Config struct {
	MySQLDSN            string
	RedisURL            string
	JWTSecret           string
	Port                string
	AllowedOrigins      []string
	ExplorerURLTemplate string
	RateLimit           int
	RateWindow          time.Duration
	ShutdownTimeout     time.Duration
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyPort, "8080")
	v.SetDefault(KeyAllowedOrigins, "http://localhost:3000")
	v.SetDefault(KeyExplorerURL, payout.DefaultExplorerTemplate)
	v.SetDefault(KeyRateLimit, 30)
	v.SetDefault(KeyRateWindow, "1m")
	v.SetDefault(KeyShutdownTimeout, "10s")
	v.AutomaticEnv()
	return v
}

// Load reads configuration from the environment. When configFile is set its
// values are used for keys the environment leaves unset.
func Load(configFile string) (Config, error) {
	v := newViper()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	cfg := Config{
		MySQLDSN:            v.GetString(KeyMySQLDSN),
		RedisURL:            v.GetString(KeyRedisURL),
		JWTSecret:           v.GetString(KeyJWTSecret),
		Port:                v.GetString(KeyPort),
		AllowedOrigins:      parseCSV(v.GetString(KeyAllowedOrigins)),
		ExplorerURLTemplate: v.GetString(KeyExplorerURL),
		RateLimit:           v.GetInt(KeyRateLimit),
		RateWindow:          v.GetDuration(KeyRateWindow),
		ShutdownTimeout:     v.GetDuration(KeyShutdownTimeout),
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var missing []string
	if c.MySQLDSN == "" {
		missing = append(missing, KeyMySQLDSN)
	}
	if c.JWTSecret == "" {
		missing = append(missing, KeyJWTSecret)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing env %s", strings.Join(missing, ", "))
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("%s must be at least 32 characters", KeyJWTSecret)
	}
	if c.RateLimit <= 0 || c.RateWindow <= 0 {
		return fmt.Errorf("rate limit needs a positive %s and %s", KeyRateLimit, KeyRateWindow)
	}
	return nil
}

// ApplySettings overrides tunables with values from the settings table.
// Secrets and connection strings never come from the database.
func (c *Config) ApplySettings(db *gorm.DB) error {
	if err := data.LoadSettings(db); err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if origins := parseCSV(data.GetSetting(data.SettingAllowedOrigins)); len(origins) > 0 {
		c.AllowedOrigins = origins
	}
	if raw := data.GetSetting(data.SettingExplorerURLTemplate); strings.Count(raw, "%s") == 2 {
		c.ExplorerURLTemplate = raw
	}
	if n, ok := data.PositiveIntSetting(data.SettingRateLimit); ok {
		c.RateLimit = n
	}
	if secs, ok := data.PositiveIntSetting(data.SettingRateWindowSeconds); ok {
		c.RateWindow = time.Duration(secs) * time.Second
	}
	return nil
}

func parseCSV(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == ' '
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
