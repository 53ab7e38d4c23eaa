package config

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds runtime configuration loaded from env.
type Config struct {
	Port               string        `envconfig:"PORT" default:"8080"`
	Env                string        `envconfig:"ENV" default:"development"`
	StoreDriver        string        `envconfig:"STORE_DRIVER" default:"sqlite"`
	DatabaseURL        string        `envconfig:"DATABASE_URL"`
	SQLitePath         string        `envconfig:"SQLITE_PATH" default:"data/mediadiary.db"`
	ValkeyAddr         string        `envconfig:"VALKEY_ADDR"`
	ValkeyPassword     string        `envconfig:"VALKEY_PASSWORD"`
	CursorSecret       string        `envconfig:"CURSOR_SECRET"`
	CORSAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS"`
	LogLevel           string        `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty          bool          `envconfig:"LOG_PRETTY" default:"false"`
	AuditInterval      time.Duration `envconfig:"AUDIT_INTERVAL" default:"10m"`

	// CursorKey is CursorSecret as bytes, or a random key when the secret is unset.
	CursorKey []byte `ignored:"true"`
	// GeneratedCursorKey reports that CursorKey is random, so cursors will not survive a restart.
	GeneratedCursorKey bool `ignored:"true"`
}

// FromEnv loads an optional .env file, then reads the environment.
func FromEnv() (Config, error) {
	_ = godotenv.Load() // best-effort
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	c.CORSAllowedOrigins = trimAll(c.CORSAllowedOrigins)
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))

	if c.CursorSecret != "" {
		c.CursorKey = []byte(c.CursorSecret)
	} else {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return Config{}, fmt.Errorf("generate cursor secret: %w", err)
		}
		c.CursorKey = buf
		c.GeneratedCursorKey = true
	}
	return c, c.Validate()
}

// Validate rejects configurations the process cannot start with.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("config: SQLITE_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("config: unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	if c.AuditInterval < 0 {
		return fmt.Errorf("config: AUDIT_INTERVAL must not be negative")
	}
	return nil
}

func trimAll(in []string) []string {
	var out []string
	for _, p := range in {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
