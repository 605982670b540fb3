// Package config loads the service configuration from an optional YAML file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bloom-app/progression/pkg/logger"
)

// Config is the root configuration for the progression service.
type Config struct {
	Server      ServerConfig         `yaml:"server"`
	Database    DatabaseConfig       `yaml:"database"`
	Redis       RedisConfig          `yaml:"redis"`
	Logging     logger.LoggingConfig `yaml:"logging"`
	Progression ProgressionConfig    `yaml:"progression"`
	Audit       AuditConfig          `yaml:"audit"`
	AuthTokens  []string             `yaml:"auth_tokens"`
}

// AuditConfig controls the mutating-request audit trail.
type AuditConfig struct {
	MaxEntries int    `yaml:"max_entries"`
	FilePath   string `yaml:"file_path"` // optional JSONL mirror
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig controls the Postgres connection. An empty DSN selects the
// in-memory store.
type DatabaseConfig struct {
	DSN             string `yaml:"dsn"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"` // seconds
}

// RedisConfig controls the optional progress cache. An empty Addr disables
// caching.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ProgressionConfig carries ledger policy knobs.
type ProgressionConfig struct {
	// StreakAnchor is "today" (strict) or "yesterday" (today still in
	// progress does not break the streak).
	StreakAnchor string `yaml:"streak_anchor"`
}

// Load reads the config file named by CONFIG_PATH (default config.yaml when
// present) and applies environment overrides.
func Load() (*Config, error) {
	cfg := &Config{
		Server:      ServerConfig{Host: "0.0.0.0", Port: 8080},
		Logging:     logger.LoggingConfig{Level: "info", Format: "text", Output: "stdout"},
		Progression: ProgressionConfig{StreakAnchor: "today"},
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if os.Getenv("CONFIG_PATH") != "" {
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnv(cfg)

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	switch cfg.Progression.StreakAnchor {
	case "", "today", "yesterday":
	default:
		return nil, fmt.Errorf("invalid streak_anchor %q", cfg.Progression.StreakAnchor)
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("AUDIT_LOG_PATH"); v != "" {
		cfg.Audit.FilePath = v
	}
	if v := os.Getenv("STREAK_ANCHOR"); v != "" {
		cfg.Progression.StreakAnchor = v
	}
	if v := os.Getenv("AUTH_TOKENS"); v != "" {
		var tokens []string
		for _, tok := range strings.Split(v, ",") {
			if tok = strings.TrimSpace(tok); tok != "" {
				tokens = append(tokens, tok)
			}
		}
		cfg.AuthTokens = tokens
	}
}
