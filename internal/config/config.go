// Package config reads server settings from the environment, with an
// optional .env file in the working directory.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Port     string
	LogLevel logrus.Level

	StoreBackend string
	DataDir      string
	PostgresURL  string
	SQLitePath   string

	DexBaseURL     string
	DexChain       string
	DexMinInterval time.Duration
	HTTPTimeout    time.Duration
	ProbeInterval  time.Duration

	PasswordHasher string
	SessionTTL     time.Duration
}

// LoadDefaults populates c with development defaults.
func (c *Config) LoadDefaults() {
	c.Port = "4000"
	c.LogLevel = logrus.DebugLevel
	c.StoreBackend = "file"
	c.DataDir = "./data"
	c.SQLitePath = "./data/dexfolio.db"
	c.DexBaseURL = "https://api.dexscreener.com"
	c.DexChain = "solana"
	c.DexMinInterval = time.Second
	c.HTTPTimeout = 10 * time.Second
	c.PasswordHasher = "sha256"
}

// Load applies defaults, then .env (if present), then the process
// environment. Values already in the environment win over .env.
func Load() (*Config, error) {
	// missing .env is fine, e.g. in production
	_ = godotenv.Load()

	c := &Config{}
	c.LoadDefaults()
	if err := c.overlayEnv(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) overlayEnv() error {
	str(&c.Port, "PORT")
	str(&c.StoreBackend, "STORE_BACKEND")
	str(&c.DataDir, "DATA_DIR")
	str(&c.PostgresURL, "POSTGRES_URL")
	str(&c.SQLitePath, "SQLITE_PATH")
	str(&c.DexBaseURL, "DEX_BASE_URL")
	str(&c.DexChain, "DEX_CHAIN")
	str(&c.PasswordHasher, "PASSWORD_HASHER")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		lvl, err := logrus.ParseLevel(v)
		if err != nil {
			return fmt.Errorf("LOG_LEVEL: %w", err)
		}
		c.LogLevel = lvl
	}

	for _, d := range []struct {
		dst *time.Duration
		key string
	}{
		{&c.DexMinInterval, "DEX_MIN_INTERVAL"},
		{&c.HTTPTimeout, "HTTP_TIMEOUT"},
		{&c.ProbeInterval, "PROBE_INTERVAL"},
		{&c.SessionTTL, "SESSION_TTL"},
	} {
		if err := duration(d.dst, d.key); err != nil {
			return err
		}
	}
	return nil
}

func str(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// duration accepts Go duration strings or a plain number of seconds.
func duration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
		return nil
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return fmt.Errorf("%s: invalid duration %q", key, v)
	}
	*dst = time.Duration(secs) * time.Second
	return nil
}
