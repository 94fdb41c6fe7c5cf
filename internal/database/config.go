package database

import (
	"fmt"
	"net"
	"net/url"

	"github.com/mikelady/socialconnect/internal/config"
)

// DefaultMaxConns caps the pool when no limit is configured
const DefaultMaxConns int32 = 10

// Config holds database connection configuration
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
}

// ConfigFromSettings maps the DB_ environment block onto a Config
func ConfigFromSettings(s config.DatabaseConfig) *Config {
	return &Config{
		Host:     s.Host,
		Port:     s.Port,
		User:     s.User,
		Password: s.Password,
		Database: s.Name,
		SSLMode:  s.SSLMode,
		MaxConns: s.MaxConns,
	}
}

// ConnectionString returns a postgres:// URL with credentials escaped
func (c *Config) ConnectionString() string {
	return c.url("postgres")
}

// MigrationURL returns the same target for the golang-migrate pgx/v5 driver
func (c *Config) MigrationURL() string {
	return c.url("pgx5")
}

func (c *Config) url(scheme string) string {
	u := url.URL{
		Scheme:   scheme,
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// Validate checks required fields and fills defaults
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Port == "" {
		return fmt.Errorf("database port is required")
	}
	if c.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Password == "" {
		return fmt.Errorf("database password is required")
	}
	if c.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if c.SSLMode == "" {
		c.SSLMode = "require"
	}
	if c.MaxConns <= 0 {
		c.MaxConns = DefaultMaxConns
	}
	return nil
}
