package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Bot API settings.
type TelegramConfig struct {
	Token  string `yaml:"token" envconfig:"BOT_TOKEN"`
	APIURL string `yaml:"api_url" envconfig:"TELEGRAM_API_URL"`
	// SecretToken is sent by Telegram in X-Telegram-Bot-Api-Secret-Token when set on the webhook.
	SecretToken string `yaml:"secret_token" envconfig:"TELEGRAM_SECRET_TOKEN"`
}

// WebhookConfig specifies the inbound listener and the public webhook registration.
type WebhookConfig struct {
	URL            string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen         string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port           int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
	Path           string `yaml:"path" envconfig:"WEBHOOK_PATH"`
	// CertFile is uploaded to Telegram on registration; with KeyFile the listener serves TLS itself.
	CertFile       string `yaml:"cert_file" envconfig:"WEBHOOK_CERT_FILE"`
	KeyFile        string `yaml:"key_file" envconfig:"WEBHOOK_KEY_FILE"`
	Register       bool   `yaml:"register" envconfig:"WEBHOOK_REGISTER"`
	MaxConnections int    `yaml:"max_connections" envconfig:"WEBHOOK_MAX_CONNECTIONS"`
}

// SessionsConfig controls usage session tracking.
type SessionsConfig struct {
	Window time.Duration `yaml:"window" envconfig:"SESSION_WINDOW"`
}

// LimitsConfig bounds per-request time and concurrent resource usage.
type LimitsConfig struct {
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	MaxInFlight     int64         `yaml:"max_in_flight" envconfig:"MAX_IN_FLIGHT"`
	MaxOutbound     int64         `yaml:"max_outbound" envconfig:"MAX_OUTBOUND"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" envconfig:"MAX_BODY_BYTES"`
}

// QuestionsConfig points at optional question seed data.
type QuestionsConfig struct {
	SeedFile string `yaml:"seed_file" envconfig:"QUESTIONS_SEED_FILE"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level     string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format    string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder string `yaml:"keys_order"`
	Dir       string `yaml:"dir"`
	File      string `yaml:"file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

const (
	// DefaultAPIURL is the public Telegram Bot API endpoint.
	DefaultAPIURL = "https://api.telegram.org"
	// DefaultWebhookPath is the route Telegram delivers updates to.
	DefaultWebhookPath = "/hook"
	// DefaultSessionWindow is the rolling window that keeps a usage session alive.
	DefaultSessionWindow = time.Hour
)

// Config aggregates the configuration of the reusable core.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	Limits    LimitsConfig    `yaml:"limits"`
	Questions QuestionsConfig `yaml:"questions"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// Load reads the core configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := LoadInto(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadInto fills dst from .env (when present), the YAML file at path and the environment,
// in that order of increasing precedence.
func LoadInto(path string, dst any) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", dst); err != nil {
		return fmt.Errorf("failed to process env: %w", err)
	}
	return nil
}

// Normalize validates required fields and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return fmt.Errorf("telegram token is required")
	}
	cfg.Telegram.APIURL = strings.TrimRight(strings.TrimSpace(cfg.Telegram.APIURL), "/")
	if cfg.Telegram.APIURL == "" {
		cfg.Telegram.APIURL = DefaultAPIURL
	}

	if strings.TrimSpace(cfg.Webhook.Listen) == "" {
		cfg.Webhook.Listen = "0.0.0.0"
	}
	if cfg.Webhook.Port == 0 {
		cfg.Webhook.Port = 3000
	}
	if cfg.Webhook.Port < 0 || cfg.Webhook.Port > 65535 {
		return fmt.Errorf("webhook.port must be within 1..65535")
	}
	path := strings.TrimSpace(cfg.Webhook.Path)
	if path == "" {
		path = DefaultWebhookPath
	}
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("webhook.path %q must start with '/'", cfg.Webhook.Path)
	}
	cfg.Webhook.Path = path
	if cfg.Webhook.Register && strings.TrimSpace(cfg.Webhook.URL) == "" {
		return fmt.Errorf("webhook.url is required when webhook.register is true")
	}
	if cfg.Webhook.KeyFile != "" && cfg.Webhook.CertFile == "" {
		return fmt.Errorf("webhook.key_file requires webhook.cert_file")
	}
	if cfg.Webhook.MaxConnections < 0 || cfg.Webhook.MaxConnections > 100 {
		return fmt.Errorf("webhook.max_connections must be within 0..100")
	}

	if cfg.Sessions.Window == 0 {
		cfg.Sessions.Window = DefaultSessionWindow
	}
	if cfg.Sessions.Window < 0 {
		return fmt.Errorf("sessions.window must be > 0")
	}

	if cfg.Limits.RequestTimeout <= 0 {
		cfg.Limits.RequestTimeout = 10 * time.Second
	}
	if cfg.Limits.ShutdownTimeout <= 0 {
		cfg.Limits.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Limits.MaxInFlight <= 0 {
		cfg.Limits.MaxInFlight = 256
	}
	if cfg.Limits.MaxOutbound <= 0 {
		cfg.Limits.MaxOutbound = 32
	}
	if cfg.Limits.MaxBodyBytes <= 0 {
		cfg.Limits.MaxBodyBytes = 1 << 20
	}
	return nil
}

// ListenAddr returns the host:port the webhook listener binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Webhook.Listen, c.Webhook.Port)
}
