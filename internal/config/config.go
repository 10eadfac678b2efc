/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	DBBackend   DatabaseBackend
	DBDSN       string
	MetricsBind string

	// Roster presentation
	DefaultUnit string // control unit used when a roster carries none (e.g. LECM)
	PaletteFile string // optional YAML palette overriding the built-in colors

	// Snapshot cache
	CacheEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// EventRelayEnabled mirrors roster events across instances over Redis.
	EventRelayEnabled bool

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	LegacyEnvWarnings []string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnvAny([]string{"ATCAPP_ENV", "CAMBIOS_ENV"}, "development"),
		HTTPBind:    getEnvAny([]string{"ATCAPP_HTTP_BIND", "CAMBIOS_HTTP_BIND"}, "0.0.0.0"),
		HTTPPort:    getEnvIntAny([]string{"ATCAPP_HTTP_PORT", "CAMBIOS_HTTP_PORT"}, 8080),
		DBBackend:   DatabaseBackend(getEnvAny([]string{"ATCAPP_DB_BACKEND", "CAMBIOS_DB_BACKEND"}, string(DatabaseSQLite))),
		DBDSN:       getEnvAny([]string{"ATCAPP_DB_DSN", "CAMBIOS_DB_DSN"}, "atcapp.db"),
		MetricsBind: getEnvAny([]string{"ATCAPP_METRICS_BIND", "CAMBIOS_METRICS_BIND"}, "127.0.0.1:9000"),

		DefaultUnit: strings.ToUpper(getEnvAny([]string{"ATCAPP_DEFAULT_UNIT", "CAMBIOS_DEFAULT_UNIT"}, "LECM")),
		PaletteFile: getEnvAny([]string{"ATCAPP_PALETTE_FILE"}, ""),

		CacheEnabled:  getEnvBoolAny([]string{"ATCAPP_CACHE_ENABLED"}, false),
		RedisAddr:     getEnvAny([]string{"ATCAPP_REDIS_ADDR", "REDIS_ADDR"}, "localhost:6379"),
		RedisPassword: getEnvAny([]string{"ATCAPP_REDIS_PASSWORD", "REDIS_PASSWORD"}, ""),
		RedisDB:       getEnvIntAny([]string{"ATCAPP_REDIS_DB", "REDIS_DB"}, 0),
		CacheTTL:      time.Duration(getEnvIntAny([]string{"ATCAPP_CACHE_TTL_SECONDS"}, 300)) * time.Second,

		EventRelayEnabled: getEnvBoolAny([]string{"ATCAPP_EVENT_RELAY_ENABLED"}, false),

		TracingEnabled:    getEnvBoolAny([]string{"ATCAPP_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"ATCAPP_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"ATCAPP_TRACING_SAMPLE_RATE"}, 1.0),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("ATCAPP_DB_DSN or CAMBIOS_DB_DSN must be provided")
	}

	if cfg.TracingSampleRate < 0 || cfg.TracingSampleRate > 1 {
		return nil, fmt.Errorf("ATCAPP_TRACING_SAMPLE_RATE must be between 0 and 1, got %v", cfg.TracingSampleRate)
	}

	if strings.EqualFold(cfg.Environment, "production") && cfg.DBBackend == DatabaseSQLite {
		return nil, fmt.Errorf("sqlite backend is not supported in production; set ATCAPP_DB_BACKEND")
	}
	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings()

	return cfg, nil
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"SQLALCHEMY_DATABASE_URI": "use ATCAPP_DB_BACKEND and ATCAPP_DB_DSN",
		"FLASK_ENV":               "use ATCAPP_ENV",
		"ATC_TIMEZONE":            "timezones are derived from the roster unit; use ATCAPP_DEFAULT_UNIT",
	}

	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("legacy env key %s is set; %s", key, recommendation))
		}
	}
	return warnings
}

// HTTPAddr returns the bind address of the API server.
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTPBind, c.HTTPPort)
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}
