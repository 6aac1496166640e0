package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is the YAML file picked up from the working directory
const DefaultFileName = "smartsim.yaml"

// Storage drivers
const (
	StorageFile    = "file"
	StorageKeyring = "keyring"
	StorageSQLite  = "sqlite"
	StorageRedis   = "redis"
	StorageMemory  = "memory"
)

// Config holds all configuration for the application
type Config struct {
	// Internal SmartSim API (sessions, users)
	API APIConfig `yaml:"api"`

	// External SMS gateway
	SMS SMSConfig `yaml:"sms"`

	// Durable session storage
	Storage StorageConfig `yaml:"storage"`

	// Web front end
	Server ServerConfig `yaml:"server"`

	// Route gate
	Routes RoutesConfig `yaml:"routes"`

	// Logging Configuration
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig holds the internal API client configuration
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// SMSConfig holds the SMS gateway client configuration
type SMSConfig struct {
	BaseURL     string        `yaml:"base_url"`
	MessageType int           `yaml:"message_type"`
	Timeout     time.Duration `yaml:"timeout"`
}

// StorageConfig selects the KV backend holding the persisted session
type StorageConfig struct {
	Driver string      `yaml:"driver"` // file, keyring, sqlite, redis, memory
	Path   string      `yaml:"path"`
	Redis  RedisConfig `yaml:"redis"`
}

// RedisConfig holds the redis storage backend connection
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ServerConfig holds web front end configuration
type ServerConfig struct {
	Address      string   `yaml:"address"`
	AllowOrigins []string `yaml:"allow_origins"`
}

// RoutesConfig holds route gate configuration
type RoutesConfig struct {
	Policy string `yaml:"policy"` // strict, inherit
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, console
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:3333",
			Timeout: 30 * time.Second,
		},
		SMS: SMSConfig{
			BaseURL:     "https://api.smsdev.com.br/v1/",
			MessageType: 9,
			Timeout:     30 * time.Second,
		},
		Storage: StorageConfig{
			Driver: StorageFile,
			Redis: RedisConfig{
				Address: "localhost:6379",
			},
		},
		Server: ServerConfig{
			Address:      ":8080",
			AllowOrigins: []string{"http://localhost:5173"},
		},
		Routes: RoutesConfig{
			Policy: "strict",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from an optional YAML file, then environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	cfg := Default()

	path := os.Getenv("SMARTSIM_CONFIG")
	if path == "" {
		if _, err := os.Stat(DefaultFileName); err == nil {
			path = DefaultFileName
		}
	}
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if cfg.Storage.Path == "" {
		p, err := DefaultStoragePath(cfg.Storage.Driver)
		if err != nil {
			return nil, err
		}
		cfg.Storage.Path = p
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("SMARTSIM_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("SMARTSIM_SMS_URL"); v != "" {
		cfg.SMS.BaseURL = v
	}
	if v := os.Getenv("SMARTSIM_SMS_TYPE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SMARTSIM_SMS_TYPE %q: %w", v, err)
		}
		cfg.SMS.MessageType = n
	}
	if v := os.Getenv("SMARTSIM_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SMARTSIM_HTTP_TIMEOUT %q: %w", v, err)
		}
		cfg.API.Timeout = d
		cfg.SMS.Timeout = d
	}
	if v := os.Getenv("SMARTSIM_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("SMARTSIM_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("SMARTSIM_REDIS_ADDR"); v != "" {
		cfg.Storage.Redis.Address = v
	}
	if v := os.Getenv("SMARTSIM_REDIS_PASSWORD"); v != "" {
		cfg.Storage.Redis.Password = v
	}
	if v := os.Getenv("SMARTSIM_REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SMARTSIM_REDIS_DB %q: %w", v, err)
		}
		cfg.Storage.Redis.DB = n
	}
	if v := os.Getenv("SMARTSIM_LISTEN_ADDR"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("SMARTSIM_CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.AllowOrigins = origins
	}
	if v := os.Getenv("SMARTSIM_ROUTE_POLICY"); v != "" {
		cfg.Routes.Policy = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	return nil
}

// Validate reports configuration values that cannot work
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageFile, StorageKeyring, StorageSQLite, StorageRedis, StorageMemory:
	default:
		return fmt.Errorf("invalid storage driver '%s', must be one of: file, keyring, sqlite, redis, memory", c.Storage.Driver)
	}
	if c.Storage.Driver == StorageRedis && c.Storage.Redis.Address == "" {
		return fmt.Errorf("redis storage needs an address")
	}
	switch c.Routes.Policy {
	case "strict", "inherit":
	default:
		return fmt.Errorf("invalid route policy '%s', must be one of: strict, inherit", c.Routes.Policy)
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("API base URL is empty")
	}
	if c.SMS.BaseURL == "" {
		return fmt.Errorf("SMS gateway base URL is empty")
	}
	if len(c.Server.AllowOrigins) == 0 {
		return fmt.Errorf("at least one CORS origin is required")
	}
	return nil
}

// DefaultStoragePath returns ~/.config/smartsim/storage.<ext> for the driver
func DefaultStoragePath(driver string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	name := "storage.json"
	if driver == StorageSQLite {
		name = "storage.sqlite"
	}
	return filepath.Join(homeDir, ".config", "smartsim", name), nil
}
