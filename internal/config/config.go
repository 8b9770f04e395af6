// Package config provides centralized configuration management using Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers
const (
	DriverArango = "arangodb"
	DriverSQLite = "sqlite"
)

// Config holds all configuration values for the coach backend.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Arango  ArangoConfig  `mapstructure:"arango"`
	Auth    AuthConfig    `mapstructure:"auth"`
	SMTP    SMTPConfig    `mapstructure:"smtp"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	LLM     LLMConfig     `mapstructure:"llm"`
	PDF     PDFConfig     `mapstructure:"pdf"`
	Seed    SeedConfig    `mapstructure:"seed"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Port           string `mapstructure:"port"`
	AllowedOrigins string `mapstructure:"allowed_origins"`
	BodyLimitMB    int    `mapstructure:"body_limit_mb"`
}

// StorageConfig selects the persistence backend
type StorageConfig struct {
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// ArangoConfig holds ArangoDB connection settings
type ArangoConfig struct {
	URL      string `mapstructure:"url"`
	User     string `mapstructure:"user"`
	Pass     string `mapstructure:"pass"`
	Database string `mapstructure:"database"`
}

// AuthConfig holds session settings
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// SMTPConfig holds outgoing mail settings. An empty host disables sending.
type SMTPConfig struct {
	Host      string `mapstructure:"host"`
	Port      string `mapstructure:"port"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	FromEmail string `mapstructure:"from_email"`
	FromName  string `mapstructure:"from_name"`
	BaseURL   string `mapstructure:"base_url"`
}

// KafkaConfig configures activity event publishing
type KafkaConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Brokers   string `mapstructure:"brokers"`
	Topic     string `mapstructure:"topic"`
	GroupID   string `mapstructure:"group_id"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
}

// BrokerList splits the comma separated broker list
func (k KafkaConfig) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(k.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// LLMConfig configures the AI coach model
type LLMConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// PDFConfig configures the headless browser renderer
type PDFConfig struct {
	PoolSize   int           `mapstructure:"pool_size"`
	QueueSize  int           `mapstructure:"queue_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
	BrowserBin string        `mapstructure:"browser_bin"`
}

// SeedConfig points at an optional organization bootstrap file
type SeedConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DefaultConfigName is the config file looked up in the working directory
const DefaultConfigName = "coach.yml"

// Load loads configuration with precedence ENV vars > config file > defaults.
// An empty path falls back to ./coach.yml when it exists.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v)

	// Setup ENV binding with COACH_ prefix, e.g. COACH_SERVER_PORT
	v.SetEnvPrefix("COACH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path == "" && fileExists(DefaultConfigName) {
		path = DefaultConfigName
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.allowed_origins", "http://localhost:3000")
	v.SetDefault("server.body_limit_mb", 4)

	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.sqlite_path", "data/coach.db")

	v.SetDefault("arango.url", "http://localhost:8529")
	v.SetDefault("arango.user", "root")
	v.SetDefault("arango.pass", "")
	v.SetDefault("arango.database", "leancoach")

	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", "587")
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from_email", "noreply@leancoach.local")
	v.SetDefault("smtp.from_name", "LEAN AI COACH")
	v.SetDefault("smtp.base_url", "http://localhost:3000")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.topic", "activity-events")
	v.SetDefault("kafka.group_id", "coach-activity-worker")
	v.SetDefault("kafka.api_key", "")
	v.SetDefault("kafka.api_secret", "")

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.timeout", 60*time.Second)

	v.SetDefault("pdf.pool_size", 2)
	v.SetDefault("pdf.queue_size", 8)
	v.SetDefault("pdf.timeout", 30*time.Second)
	v.SetDefault("pdf.browser_bin", "")

	v.SetDefault("seed.path", "")
	v.SetDefault("log.level", "info")
}

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid config")

// Validate checks values that cannot be defaulted
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverArango, DriverSQLite:
	default:
		return fmt.Errorf("%w: storage.driver %q", ErrInvalidConfig, c.Storage.Driver)
	}
	if c.PDF.PoolSize < 1 {
		return fmt.Errorf("%w: pdf.pool_size must be at least 1", ErrInvalidConfig)
	}
	if c.PDF.QueueSize < 0 {
		return fmt.Errorf("%w: pdf.queue_size must not be negative", ErrInvalidConfig)
	}
	if c.PDF.Timeout <= 0 {
		return fmt.Errorf("%w: pdf.timeout must be positive", ErrInvalidConfig)
	}
	if c.Kafka.Enabled && len(c.Kafka.BrokerList()) == 0 {
		return fmt.Errorf("%w: kafka.brokers is empty", ErrInvalidConfig)
	}
	return nil
}

// fileExists checks if a file exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
