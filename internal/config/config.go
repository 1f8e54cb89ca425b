// Package config loads the service configuration. Values come from an optional YAML file
// and are overridden by environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

// Supported database drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Config holds the settings of the contacts service and its tools.
type Config struct {
	// Database
	DBDriver   string `yaml:"db_driver"`
	DBHost     string `yaml:"db_host"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBName     string `yaml:"db_name"`

	// Server
	Port       string `yaml:"port"`
	GinLogging bool   `yaml:"gin_logging"`

	// Sessions
	JWTSecret  string        `yaml:"jwt_secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`

	// Observability
	LogLevel  string `yaml:"log_level"`
	SentryDSN string `yaml:"sentry_dsn"`
}

// Default returns the configuration used when nothing else is specified.
func Default() *Config {
	return &Config{
		DBDriver:   DriverMySQL,
		DBHost:     "localhost",
		DBName:     "test",
		Port:       "8080",
		GinLogging: true,
		SessionTTL: 24 * time.Hour,
		LogLevel:   "info",
	}
}

// Load reads the YAML file at path, if path is not empty, and then applies the
// environment variables on top of it. Only the database driver is checked here; the
// service checks the rest with Validate.
//
// Usage example:
// > DBDRIVER=mysql DBHOST=localhost DBUSER=dirk DBPWD=bullo92 JWT_SECRET=s3cr3t PORT=8080 go run main.go
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path) // nosemgrep
		if err != nil {
			return nil, fmt.Errorf("could not read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("could not parse config file: %w", err)
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.validateDriver(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides the configuration with every environment variable that is set.
func (c *Config) applyEnv(getenv func(string) string) error {
	setString := func(key string, target *string) {
		if v := getenv(key); v != "" {
			*target = v
		}
	}
	setString("DBDRIVER", &c.DBDriver)
	setString("DBHOST", &c.DBHost)
	setString("DBUSER", &c.DBUser)
	setString("DBPWD", &c.DBPassword)
	setString("DBNAME", &c.DBName)
	setString("PORT", &c.Port)
	setString("JWT_SECRET", &c.JWTSecret)
	setString("LOG_LEVEL", &c.LogLevel)
	setString("SENTRY_DSN", &c.SentryDSN)
	if v := getenv("GIN_LOGGING"); v != "" {
		c.GinLogging = !strings.EqualFold(v, "off")
	}
	if v := getenv("SESSION_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("could not parse SESSION_TTL env variable: %w", err)
		}
		c.SessionTTL = ttl
	}
	return nil
}

func (c *Config) validateDriver() error {
	if c.DBDriver != DriverMySQL && c.DBDriver != DriverPostgres {
		return fmt.Errorf("unsupported database driver %q", c.DBDriver)
	}
	return nil
}

// Validate reports settings the service cannot start with.
func (c *Config) Validate() error {
	if err := c.validateDriver(); err != nil {
		return err
	}
	if c.JWTSecret == "" {
		return errors.New("JWT secret must not be empty")
	}
	if c.SessionTTL <= 0 {
		return errors.New("session TTL must be positive")
	}
	return nil
}

// DSN returns the data source name for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == DriverPostgres {
		dsn := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.DBUser, c.DBPassword),
			Host:     c.DBHost + ":5432",
			Path:     "/" + c.DBName,
			RawQuery: url.Values{"sslmode": {"disable"}, "TimeZone": {"UTC"}}.Encode(),
		}
		return dsn.String()
	}
	mc := mysql.NewConfig()
	mc.User = c.DBUser
	mc.Passwd = c.DBPassword
	mc.Net = "tcp"
	mc.Addr = c.DBHost
	mc.DBName = c.DBName
	mc.ParseTime = true
	// report matched instead of changed rows, so an update without changes is not a miss
	mc.ClientFoundRows = true
	return mc.FormatDSN()
}
