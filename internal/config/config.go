// Package config loads gateway configuration from the environment and
// optional YAML override files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/blade-dance/gateway/internal/app/domain/identity"
	"github.com/blade-dance/gateway/internal/app/services/auth"
	"github.com/blade-dance/gateway/internal/errors"
)

// Config is the gateway runtime configuration.
type Config struct {
	Port            int
	Env             string
	LogLevel        string
	JWTSecret       string
	TokenTTL        time.Duration
	UpstreamURL     string
	UpstreamTimeout time.Duration
	TiersFile       string
	HoldersFile     string
}

// Production reports whether the gateway runs in production mode. In
// production the boundary never leaks internal error detail.
func (c *Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

// Load reads configuration from the environment. A .env file is honored
// when present. A missing signing secret is a configuration error: callers
// must abort startup rather than continue unsigned.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            envInt("PORT", 3000),
		Env:             envString("ENV", "development"),
		LogLevel:        envString("LOG_LEVEL", "info"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		TokenTTL:        envDuration("TOKEN_TTL", auth.DefaultTokenTTL),
		UpstreamURL:     envString("UPSTREAM_URL", "http://localhost:4000"),
		UpstreamTimeout: envDuration("UPSTREAM_TIMEOUT", 10*time.Second),
		TiersFile:       os.Getenv("TIERS_FILE"),
		HoldersFile:     os.Getenv("HOLDERS_FILE"),
	}

	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, errors.Configuration("JWT_SECRET is required")
	}
	return cfg, nil
}

// LoadTierCatalog builds the tier catalog, either from the configured YAML
// file or from the built-in defaults. File problems and invariant
// violations are configuration errors.
func (c *Config) LoadTierCatalog() (*identity.Catalog, error) {
	if strings.TrimSpace(c.TiersFile) == "" {
		return identity.DefaultCatalog(), nil
	}

	data, err := os.ReadFile(c.TiersFile)
	if err != nil {
		return nil, errors.Configuration(fmt.Sprintf("read tier catalog %s: %v", c.TiersFile, err))
	}

	var file struct {
		Tiers []identity.TierDefinition `yaml:"tiers"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Configuration(fmt.Sprintf("parse tier catalog %s: %v", c.TiersFile, err))
	}
	return identity.NewCatalog(file.Tiers)
}

// LoadHolderRegistry builds the holder registry, either from the configured
// YAML file or from the development fixtures.
func (c *Config) LoadHolderRegistry() (auth.HolderRegistry, error) {
	if strings.TrimSpace(c.HoldersFile) == "" {
		return auth.DefaultRegistry(), nil
	}

	data, err := os.ReadFile(c.HoldersFile)
	if err != nil {
		return nil, errors.Configuration(fmt.Sprintf("read holder registry %s: %v", c.HoldersFile, err))
	}

	var file struct {
		Holders map[string]auth.HolderInfo `yaml:"holders"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Configuration(fmt.Sprintf("parse holder registry %s: %v", c.HoldersFile, err))
	}
	return auth.NewStaticRegistry(file.Holders), nil
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
