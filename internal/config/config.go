package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Remote RemoteConfig `yaml:"remote"`
	Local  LocalConfig  `yaml:"local"`
	Redis  RedisConfig  `yaml:"redis"`
	Auth   AuthConfig   `yaml:"auth"`
	Kafka  KafkaConfig  `yaml:"kafka"`
	Mirror MirrorConfig `yaml:"mirror"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// SlogLevel maps the configured level name to a slog level
func (c *LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// RemoteConfig holds the hosted backend connection. The remote is only used
// when both URL and AccessKey are set.
type RemoteConfig struct {
	URL             string        `yaml:"url"`
	AccessKey       string        `yaml:"access_key"`
	MaxConnections  int           `yaml:"max_connections"`
	MinConnections  int           `yaml:"min_connections"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	QueryTimeout    time.Duration `yaml:"query_timeout"`
}

// Available reports whether the remote backend is configured.
// It does not check connectivity.
func (c *RemoteConfig) Available() bool {
	return c.URL != "" && c.AccessKey != ""
}

// ConnectionString returns the PostgreSQL connection string with the access
// key installed as the password
func (c *RemoteConfig) ConnectionString() (string, error) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return "", fmt.Errorf("parsing remote url: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", fmt.Errorf("unsupported remote scheme %q", u.Scheme)
	}
	username := "postgres"
	if u.User != nil && u.User.Username() != "" {
		username = u.User.Username()
	}
	u.User = url.UserPassword(username, c.AccessKey)

	q := u.Query()
	if q.Get("sslmode") == "" {
		q.Set("sslmode", "disable")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// LocalConfig selects the record store backend
type LocalConfig struct {
	Driver string `yaml:"driver"` // memory, file, sqlite or redis
	Path   string `yaml:"path"`
	Prefix string `yaml:"prefix"`
}

// RedisConfig holds Redis connection configuration for the redis record store
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// AuthConfig holds identity and session settings
type AuthConfig struct {
	Domain        string        `yaml:"domain"`
	AdminPassword string        `yaml:"admin_password"`
	TokenSecret   string        `yaml:"token_secret"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
	BcryptCost    int           `yaml:"bcrypt_cost"`
}

// KafkaConfig holds the build view ingestion consumer configuration
type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	GroupID      string        `yaml:"group_id"`
	Enabled      bool          `yaml:"enabled"`
	BatchSize    int           `yaml:"batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
}

// MirrorConfig holds the remote to local snapshot worker configuration
type MirrorConfig struct {
	Interval time.Duration `yaml:"interval"`
	Enabled  bool          `yaml:"enabled"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	return &cfg, nil
}

// applyEnv lets the two remote values come straight from the environment
func (c *Config) applyEnv() {
	if v := os.Getenv("HUB_REMOTE_URL"); v != "" {
		c.Remote.URL = v
	}
	if v := os.Getenv("HUB_REMOTE_KEY"); v != "" {
		c.Remote.AccessKey = v
	}
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 5 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 120 * time.Second
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	// Remote defaults
	if c.Remote.MaxConnections == 0 {
		c.Remote.MaxConnections = 10
	}
	if c.Remote.MinConnections == 0 {
		c.Remote.MinConnections = 1
	}
	if c.Remote.MaxConnLifetime == 0 {
		c.Remote.MaxConnLifetime = 1 * time.Hour
	}
	if c.Remote.MaxConnIdleTime == 0 {
		c.Remote.MaxConnIdleTime = 30 * time.Minute
	}
	if c.Remote.QueryTimeout == 0 {
		c.Remote.QueryTimeout = 5 * time.Second
	}

	// Local store defaults
	if c.Local.Driver == "" {
		c.Local.Driver = "file"
	}
	if c.Local.Path == "" {
		switch c.Local.Driver {
		case "sqlite":
			c.Local.Path = "data/hub.db"
		default:
			c.Local.Path = "data"
		}
	}
	if c.Local.Prefix == "" {
		c.Local.Prefix = "app"
	}

	// Redis defaults
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 5 * time.Second
	}
	if c.Redis.ReadTimeout == 0 {
		c.Redis.ReadTimeout = 3 * time.Second
	}
	if c.Redis.WriteTimeout == 0 {
		c.Redis.WriteTimeout = 3 * time.Second
	}

	// Auth defaults
	if c.Auth.Domain == "" {
		c.Auth.Domain = "venom.local"
	}
	if c.Auth.AdminPassword == "" {
		c.Auth.AdminPassword = "admin123"
	}
	if c.Auth.TokenSecret == "" {
		c.Auth.TokenSecret = "change-me"
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if c.Auth.BcryptCost == 0 {
		c.Auth.BcryptCost = 10
	}

	// Kafka defaults
	if len(c.Kafka.Brokers) == 0 {
		c.Kafka.Brokers = []string{"localhost:9092"}
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "build-views"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "hub-views"
	}
	if c.Kafka.BatchSize == 0 {
		c.Kafka.BatchSize = 100
	}
	if c.Kafka.BatchTimeout == 0 {
		c.Kafka.BatchTimeout = 1 * time.Second
	}

	// Mirror defaults
	if c.Mirror.Interval == 0 {
		c.Mirror.Interval = 5 * time.Minute
	}
}

// DefaultConfig returns a configuration with all defaults
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg
}
