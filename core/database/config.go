package database

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// DriverPQ selects github.com/lib/pq.
	DriverPQ = "postgres"
	// DriverPGX selects the database/sql adapter of github.com/jackc/pgx/v5.
	DriverPGX = "pgx"
)

// Config holds database connection settings.
type Config struct {
	Driver         string `yaml:"driver" envconfig:"DB_DRIVER"`
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	MigrationsDir  string `yaml:"migrations_dir" envconfig:"DB_MIGRATIONS_DIR"`
	AutoMigrate    bool   `yaml:"auto_migrate" envconfig:"DB_AUTO_MIGRATE"`
}

// Normalize fills defaults and rejects unknown drivers.
func (c *Config) Normalize() error {
	switch strings.ToLower(strings.TrimSpace(c.Driver)) {
	case "", DriverPQ, "pq":
		c.Driver = DriverPQ
	case DriverPGX:
		c.Driver = DriverPGX
	default:
		return fmt.Errorf("invalid database.driver %q; allowed: postgres, pgx", c.Driver)
	}
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == "" {
		c.Port = "5432"
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = 10
	}
	if c.MigrationsDir == "" {
		c.MigrationsDir = "migrations"
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("database.name is required")
	}
	return nil
}

// DSN returns a keyword/value connection string understood by both drivers.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// URL returns the postgres:// form used by golang-migrate.
func (c Config) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}
