// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package config

import (
	"errors"
	"net"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/sigil-dev/ontograph/internal/graphstore"
	"github.com/sigil-dev/ontograph/internal/ontology"
	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

// Config is the top-level ontograph configuration.
type Config struct {
	Networking NetworkingConfig `mapstructure:"networking"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Ontology   OntologyConfig   `mapstructure:"ontology"`
	Events     EventsConfig     `mapstructure:"events"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// NetworkingConfig controls the HTTP listener.
type NetworkingConfig struct {
	Listen         string   `mapstructure:"listen"`
	CORSOrigins    []string `mapstructure:"cors_origins"`
	RateLimitRPS   float64  `mapstructure:"rate_limit_rps"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst"`
}

// StorageConfig selects and configures the graph store backend.
type StorageConfig struct {
	Backend  string         `mapstructure:"backend"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Neo4j    Neo4jConfig    `mapstructure:"neo4j"`
}

// SQLiteConfig configures the embedded backend. An empty path means
// <data_dir>/ontology.db.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// PostgresConfig configures the PostgreSQL backend.
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// Neo4jConfig configures the Neo4j backend. Password may be a keyring://
// reference.
type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// OntologyConfig holds the engine policies.
type OntologyConfig struct {
	ValidationMode string `mapstructure:"validation_mode"`
	SignatureScope string `mapstructure:"signature_scope"`
	KeyLength      int    `mapstructure:"key_length"`
}

// EventsConfig controls change-event publishing. An empty NATS URL disables it.
type EventsConfig struct {
	NATSURL       string `mapstructure:"nats_url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// MetricsConfig controls the /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoggingConfig controls the default slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("networking.listen", "127.0.0.1:18790")
	v.SetDefault("networking.cors_origins", []string{})
	v.SetDefault("networking.rate_limit_rps", 0.0)
	v.SetDefault("networking.rate_limit_burst", 0)
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.sqlite.path", "")
	v.SetDefault("storage.postgres.dsn", "")
	v.SetDefault("storage.neo4j.uri", "neo4j://localhost:7687")
	v.SetDefault("storage.neo4j.username", "neo4j")
	v.SetDefault("storage.neo4j.password", "")
	v.SetDefault("storage.neo4j.database", "")
	v.SetDefault("ontology.validation_mode", string(ontology.ValidationDrop))
	v.SetDefault("ontology.signature_scope", string(ontology.ScopeInherited))
	v.SetDefault("ontology.key_length", 12)
	v.SetDefault("events.nats_url", "")
	v.SetDefault("events.subject_prefix", "ontograph")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// SetupEnv binds ONTOGRAPH_* environment variables, mapping "." in keys to
// "_" (ONTOGRAPH_STORAGE_BACKEND -> storage.backend).
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("ONTOGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix ONTOGRAPH_).
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, ontoerr.Errorf(ontoerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}
	return FromViper(v)
}

// FromViper unmarshals and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, ontoerr.Errorf(ontoerr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ontoerr.Errorf(ontoerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}
	return &cfg, nil
}

// GraphStore converts the storage section into the store factory's config.
// An empty SQLite path resolves to ontology.db under dataDir.
func (s StorageConfig) GraphStore(dataDir string) *graphstore.StorageConfig {
	path := s.SQLite.Path
	if path == "" && dataDir != "" {
		path = filepath.Join(dataDir, "ontology.db")
	}
	return &graphstore.StorageConfig{
		Backend:     s.Backend,
		SQLitePath:  path,
		PostgresDSN: s.Postgres.DSN,
		Neo4j: graphstore.Neo4jConfig{
			URI:      s.Neo4j.URI,
			Username: s.Neo4j.Username,
			Password: s.Neo4j.Password,
			Database: s.Neo4j.Database,
		},
	}
}

// Validate checks the configuration for logical errors.
// It returns a slice of all validation errors found, collecting all issues
// rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateNetworking()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateOntology()...)
	errs = append(errs, c.validateEvents()...)
	errs = append(errs, c.validateLogging()...)

	return errs
}

func invalid(format string, args ...any) error {
	return ontoerr.Errorf(ontoerr.CodeConfigValidateInvalidValue, "config: "+format, args...)
}

func (c *Config) validateNetworking() []error {
	var errs []error

	if c.Networking.Listen == "" {
		errs = append(errs, invalid("networking.listen must not be empty"))
	} else if _, portStr, err := net.SplitHostPort(c.Networking.Listen); err != nil {
		errs = append(errs, invalid("networking.listen must be a valid host:port address, got %q: %w", c.Networking.Listen, err))
	} else if port, err := strconv.Atoi(portStr); err != nil {
		errs = append(errs, invalid("networking.listen port must be a number, got %q", portStr))
	} else if port < 1 || port > 65535 {
		errs = append(errs, invalid("networking.listen port must be between 1 and 65535, got %d", port))
	}

	for i, origin := range c.Networking.CORSOrigins {
		if origin == "*" {
			continue
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, invalid("networking.cors_origins[%d] must be an absolute origin or \"*\", got %q", i, origin))
		}
	}

	if c.Networking.RateLimitRPS < 0 {
		errs = append(errs, invalid("networking.rate_limit_rps must not be negative, got %g", c.Networking.RateLimitRPS))
	}
	if c.Networking.RateLimitRPS > 0 && c.Networking.RateLimitBurst <= 0 {
		errs = append(errs, invalid("networking.rate_limit_burst must be positive when rate_limit_rps is set, got %d", c.Networking.RateLimitBurst))
	}

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	switch c.Storage.Backend {
	case "sqlite":
	case "postgres":
		if c.Storage.Postgres.DSN == "" {
			errs = append(errs, invalid("storage.postgres.dsn must not be empty when storage.backend is postgres"))
		}
	case "neo4j":
		if c.Storage.Neo4j.URI == "" {
			errs = append(errs, invalid("storage.neo4j.uri must not be empty when storage.backend is neo4j"))
		} else if u, err := url.Parse(c.Storage.Neo4j.URI); err != nil || u.Host == "" {
			errs = append(errs, invalid("storage.neo4j.uri must be a bolt or neo4j URL, got %q", c.Storage.Neo4j.URI))
		}
	default:
		errs = append(errs, invalid("storage.backend must be one of [sqlite, postgres, neo4j], got %q", c.Storage.Backend))
	}

	return errs
}

func (c *Config) validateOntology() []error {
	var errs []error

	if _, err := ontology.ParseValidationMode(c.Ontology.ValidationMode); err != nil {
		errs = append(errs, invalid("ontology.validation_mode must be one of [drop, reject], got %q", c.Ontology.ValidationMode))
	}
	if _, err := ontology.ParseSignatureScope(c.Ontology.SignatureScope); err != nil {
		errs = append(errs, invalid("ontology.signature_scope must be one of [inherited, direct], got %q", c.Ontology.SignatureScope))
	}
	if c.Ontology.KeyLength < 4 || c.Ontology.KeyLength > 64 {
		errs = append(errs, invalid("ontology.key_length must be between 4 and 64, got %d", c.Ontology.KeyLength))
	}

	return errs
}

func (c *Config) validateEvents() []error {
	var errs []error

	if c.Events.NATSURL == "" {
		return nil
	}
	for _, raw := range strings.Split(c.Events.NATSURL, ",") {
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || u.Host == "" {
			errs = append(errs, invalid("events.nats_url must be a comma-separated list of server URLs, got %q", c.Events.NATSURL))
			break
		}
	}
	prefix := c.Events.SubjectPrefix
	if prefix == "" || strings.ContainsAny(prefix, " *>") || strings.HasPrefix(prefix, ".") || strings.HasSuffix(prefix, ".") {
		errs = append(errs, invalid("events.subject_prefix must be a literal NATS subject, got %q", prefix))
	}

	return errs
}

func (c *Config) validateLogging() []error {
	var errs []error

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, invalid("logging.level must be one of [debug, info, warn, error], got %q", c.Logging.Level))
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, invalid("logging.format must be one of [text, json], got %q", c.Logging.Format))
	}

	return errs
}
