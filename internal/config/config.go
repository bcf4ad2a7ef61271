// Package config loads neostaff settings from defaults, an optional YAML file and
// NEOSTAFF_* environment variables, in that order of precedence (later wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Neo4j   Neo4jConfig   `yaml:"neo4j"`
	Breaker BreakerConfig `yaml:"breaker"`
	Logging LoggingConfig `yaml:"logging"`
}

// Neo4jConfig describes how to reach the database.
type Neo4jConfig struct {
	// URI overrides Scheme/Host/Port when set (e.g. "bolt+s://db.example.com:7687").
	URI    string `yaml:"uri"`
	Scheme string `yaml:"scheme"`
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`

	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`

	MaxConnectionPoolSize        int           `yaml:"max_connection_pool_size"`
	ConnectionAcquisitionTimeout time.Duration `yaml:"connection_acquisition_timeout"`
	MaxTransactionRetryTime      time.Duration `yaml:"max_transaction_retry_time"`
}

// BreakerConfig controls the circuit breaker placed in front of the database.
type BreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	OpenTimeout time.Duration `yaml:"open_timeout"`
}

// LoggingConfig selects the log level and encoding.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

var validSchemes = map[string]bool{
	"neo4j": true, "neo4j+s": true, "neo4j+ssc": true,
	"bolt": true, "bolt+s": true, "bolt+ssc": true,
}

var validLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

// LoadDefaults returns the configuration used when nothing else is provided.
func LoadDefaults() *Config {
	return &Config{
		Neo4j: Neo4jConfig{
			Scheme:                       "neo4j",
			Host:                         "localhost",
			Port:                         7687,
			Username:                     "neo4j",
			Database:                     "neo4j",
			MaxConnectionPoolSize:        100,
			ConnectionAcquisitionTimeout: time.Minute,
			MaxTransactionRetryTime:      30 * time.Second,
		},
		Breaker: BreakerConfig{
			Enabled:     true,
			MaxFailures: 5,
			OpenTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (skipped when
// path is empty), then environment overrides. The result is not validated: callers
// apply their own overrides first and then call Validate once.
func Load(path string) (*Config, error) {
	cfg := LoadDefaults()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	// Unmarshalling into the populated struct keeps defaults for absent keys.
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Neo4j.URI = getEnv("NEOSTAFF_NEO4J_URI", c.Neo4j.URI)
	c.Neo4j.Scheme = getEnv("NEOSTAFF_NEO4J_SCHEME", c.Neo4j.Scheme)
	c.Neo4j.Host = getEnv("NEOSTAFF_NEO4J_HOST", c.Neo4j.Host)
	c.Neo4j.Username = getEnv("NEOSTAFF_NEO4J_USERNAME", c.Neo4j.Username)
	c.Neo4j.Password = getEnv("NEOSTAFF_NEO4J_PASSWORD", c.Neo4j.Password)
	c.Neo4j.Database = getEnv("NEOSTAFF_NEO4J_DATABASE", c.Neo4j.Database)
	c.Logging.Level = getEnv("NEOSTAFF_LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("NEOSTAFF_LOG_FORMAT", c.Logging.Format)

	if v := os.Getenv("NEOSTAFF_NEO4J_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("NEOSTAFF_NEO4J_PORT: %w", err)
		}
		c.Neo4j.Port = port
	}
	if v := os.Getenv("NEOSTAFF_BREAKER_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("NEOSTAFF_BREAKER_ENABLED: %w", err)
		}
		c.Breaker.Enabled = enabled
	}
	return nil
}

// ConnectionURI returns the connection URI, built as scheme://host:port unless set explicitly.
func (c Neo4jConfig) ConnectionURI() string {
	if c.URI != "" {
		return c.URI
	}
	return fmt.Sprintf("%s://%s:%d", c.Scheme, c.Host, c.Port)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Neo4j.URI == "" {
		if !validSchemes[c.Neo4j.Scheme] {
			errs = append(errs, fmt.Errorf("neo4j.scheme %q is not supported", c.Neo4j.Scheme))
		}
		if c.Neo4j.Host == "" {
			errs = append(errs, errors.New("neo4j.host is required"))
		}
		if c.Neo4j.Port <= 0 || c.Neo4j.Port > 65535 {
			errs = append(errs, fmt.Errorf("neo4j.port %d is out of range", c.Neo4j.Port))
		}
	} else if scheme, _, ok := strings.Cut(c.Neo4j.URI, "://"); !ok || !validSchemes[scheme] {
		errs = append(errs, fmt.Errorf("neo4j.uri %q has no supported scheme", c.Neo4j.URI))
	}
	if c.Neo4j.Username == "" {
		errs = append(errs, errors.New("neo4j.username is required"))
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		errs = append(errs, fmt.Errorf("logging.format %q is not json or console", c.Logging.Format))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
