// Package config loads process configuration from the environment, with an
// optional .env file layered underneath.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Fields of the nested structs stay untagged: envconfig also reads a
// field tag unprefixed, so a DB.Port tagged PORT would pick up $PORT
// whenever DB_PORT is unset.

// StorageConfig names the bucket and key prefix that hold statements.
type StorageConfig struct {
	Name   string `required:"true"`
	Prefix string
}

// DBConfig holds the Postgres connection settings.
type DBConfig struct {
	Host         string `default:"localhost"`
	Port         int    `default:"5432"`
	Name         string
	User         string
	Password     string
	SSLMode      string `default:"disable"`
	MaxOpenConns int    `envconfig:"MAX_OPEN_CONNS" default:"10"`
}

// IngestConfig controls how a run is scheduled and how wide it fans out.
type IngestConfig struct {
	Workers  int    `default:"1"`
	Schedule string `default:"*/15 * * * *"`
}

// Config is the full process configuration.
type Config struct {
	Bucket            StorageConfig `envconfig:"BUCKET"`
	DB                DBConfig      `envconfig:"DB"`
	Ingest            IngestConfig  `envconfig:"INGEST"`
	DocumentExtension string        `envconfig:"DOCUMENT_EXTENSION" default:".pdf"`
	FetchTimeout      time.Duration `envconfig:"FETCH_TIMEOUT" default:"2m"`
	PersistTimeout    time.Duration `envconfig:"PERSIST_TIMEOUT" default:"1m"`
	RunTimeout        time.Duration `envconfig:"RUN_TIMEOUT" default:"30m"`
	CategoryRulesFile string        `envconfig:"CATEGORY_RULES_FILE"`
	LogLevel          string        `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads the given .env files (or ./.env when none are named) into the
// process environment without overriding variables already set, then
// decodes and validates the configuration. A missing default .env is not an
// error; a missing named file is.
func Load(envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("Load: decoding environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}

	return &cfg, nil
}

// LoadDatabase reads only the DB_* settings, for tools that never touch the
// bucket. Env files are handled as in Load.
func LoadDatabase(envFiles ...string) (*DBConfig, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, fmt.Errorf("LoadDatabase: %w", err)
	}

	var db DBConfig
	if err := envconfig.Process("DB", &db); err != nil {
		return nil, fmt.Errorf("LoadDatabase: decoding environment: %w", err)
	}
	if db.MaxOpenConns < 1 {
		return nil, fmt.Errorf("LoadDatabase: DB_MAX_OPEN_CONNS must be at least 1, got %d", db.MaxOpenConns)
	}

	return &db, nil
}

func loadEnvFiles(envFiles []string) error {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return fmt.Errorf("reading env files: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reading .env: %w", err)
	}
	return nil
}

// Validate checks values envconfig cannot express as tags.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Bucket.Name) == "" {
		return errors.New("BUCKET_NAME must not be empty")
	}
	if c.Ingest.Workers < 1 {
		return fmt.Errorf("INGEST_WORKERS must be at least 1, got %d", c.Ingest.Workers)
	}
	if !strings.HasPrefix(c.DocumentExtension, ".") || len(c.DocumentExtension) < 2 {
		return fmt.Errorf("DOCUMENT_EXTENSION must look like .pdf, got %q", c.DocumentExtension)
	}
	for name, d := range map[string]time.Duration{
		"FETCH_TIMEOUT":   c.FetchTimeout,
		"PERSIST_TIMEOUT": c.PersistTimeout,
		"RUN_TIMEOUT":     c.RunTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.DB.MaxOpenConns < 1 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be at least 1, got %d", c.DB.MaxOpenConns)
	}
	return nil
}

// DSN returns a lib/pq connection URL for the database settings.
func (c DBConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		Host:     c.Host + ":" + strconv.Itoa(c.Port),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	if c.User != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
	}
	return u.String()
}

// Redacted returns DSN with the password masked, for logging.
func (c DBConfig) Redacted() string {
	if c.Password == "" {
		return c.DSN()
	}
	masked := c
	masked.Password = "redacted"
	return masked.DSN()
}
