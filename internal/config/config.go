package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// AppName names the config, data and log directories
	AppName = "inferno"
	// EnvPrefix is prepended to environment overrides, e.g. INFERNO_ENDPOINT_URL
	EnvPrefix = "INFERNO"

	DefaultEndpoint = "https://egginferno2.com"
	DefaultTimeout  = 12 * time.Second
)

// Config holds all application configuration
type Config struct {
	Endpoint     EndpointConfig     `mapstructure:"endpoint" yaml:"endpoint"`
	Connectivity ConnectivityConfig `mapstructure:"connectivity" yaml:"connectivity"`
	Storage      StorageConfig      `mapstructure:"storage" yaml:"storage"`
	Browser      BrowserConfig      `mapstructure:"browser" yaml:"browser"`
	Logging      LoggingConfig      `mapstructure:"logging" yaml:"logging"`
	UI           UIConfig           `mapstructure:"ui" yaml:"ui"`
}

// EndpointConfig describes the remote game page
type EndpointConfig struct {
	URL          string        `mapstructure:"url" yaml:"url"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	AllowedHosts []string      `mapstructure:"allowed_hosts" yaml:"allowed_hosts"`
}

// ConnectivityConfig controls reachability polling
type ConnectivityConfig struct {
	ProbeAddress string        `mapstructure:"probe_address" yaml:"probe_address"` // host:port, derived from the endpoint when empty
	Interval     time.Duration `mapstructure:"interval" yaml:"interval"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
}

// StorageConfig holds persistence settings. An empty path keeps data in memory.
type StorageConfig struct {
	Path      string `mapstructure:"path" yaml:"path"`
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix"`
}

// BrowserConfig selects how a loaded page is opened
type BrowserConfig struct {
	Command  string   `mapstructure:"command" yaml:"command"` // empty for auto-detect
	Args     []string `mapstructure:"args" yaml:"args"`
	AutoOpen bool     `mapstructure:"auto_open" yaml:"auto_open"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File       string `mapstructure:"file" yaml:"file"`
	Level      string `mapstructure:"level" yaml:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
}

// UIConfig holds UI configuration
type UIConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Endpoint: EndpointConfig{
			URL:          DefaultEndpoint,
			Timeout:      DefaultTimeout,
			AllowedHosts: []string{"egginferno2.com", "www.egginferno2.com"},
		},
		Connectivity: ConnectivityConfig{
			Interval:    3 * time.Second,
			DialTimeout: 2 * time.Second,
		},
		Storage: StorageConfig{
			Path:      filepath.Join(DataDir(), "inferno.db"),
			KeyPrefix: "inferno_",
		},
		Browser: BrowserConfig{
			Args:     []string{},
			AutoOpen: false,
		},
		Logging: LoggingConfig{
			File:       filepath.Join(DataDir(), "inferno.log"),
			Level:      "INFO",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		UI: UIConfig{
			Theme: "ember",
		},
	}
}

// Dir returns the default config directory for the current OS
func Dir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), AppName)
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", AppName)
	}
}

// DataDir returns the default data directory for the current OS
func DataDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), AppName)
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", AppName)
	}
}

// Load reads config.yaml from dir (and the working directory), a .env file
// from dir, and INFERNO_* environment overrides, on top of DefaultConfig.
// A missing config file is not an error.
func Load(v *viper.Viper, dir string) (*Config, error) {
	if dir == "" {
		dir = Dir()
	}

	// .env only fills variables that are not already set
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	setDefaults(v, DefaultConfig())

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.AddConfigPath(".")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Decode into a zero value: mapstructure merges into pre-filled slices
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers every key so environment overrides apply even when
// the config file omits them
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("endpoint.url", cfg.Endpoint.URL)
	v.SetDefault("endpoint.timeout", cfg.Endpoint.Timeout)
	v.SetDefault("endpoint.allowed_hosts", cfg.Endpoint.AllowedHosts)

	v.SetDefault("connectivity.probe_address", cfg.Connectivity.ProbeAddress)
	v.SetDefault("connectivity.interval", cfg.Connectivity.Interval)
	v.SetDefault("connectivity.dial_timeout", cfg.Connectivity.DialTimeout)

	v.SetDefault("storage.path", cfg.Storage.Path)
	v.SetDefault("storage.key_prefix", cfg.Storage.KeyPrefix)

	v.SetDefault("browser.command", cfg.Browser.Command)
	v.SetDefault("browser.args", cfg.Browser.Args)
	v.SetDefault("browser.auto_open", cfg.Browser.AutoOpen)

	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.max_size_mb", cfg.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", cfg.Logging.MaxBackups)

	v.SetDefault("ui.theme", cfg.UI.Theme)
}

// Validate checks values that would otherwise fail later at runtime
func (c *Config) Validate() error {
	if c.Endpoint.URL == "" {
		return errors.New("endpoint.url is required")
	}
	if c.Endpoint.Timeout <= 0 {
		return fmt.Errorf("endpoint.timeout must be positive, got %s", c.Endpoint.Timeout)
	}
	if len(c.Endpoint.AllowedHosts) == 0 {
		return errors.New("endpoint.allowed_hosts must not be empty")
	}
	if c.Connectivity.Interval <= 0 {
		return fmt.Errorf("connectivity.interval must be positive, got %s", c.Connectivity.Interval)
	}
	return nil
}

// Dump renders the effective configuration as YAML
func (c *Config) Dump() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return out, nil
}

// Save writes cfg to config.yaml in dir, creating the directory if needed
func Save(cfg *Config, dir string) error {
	if dir == "" {
		dir = Dir()
	}

	// Ensure config directory exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out, err := cfg.Dump()
	if err != nil {
		return err
	}

	configFile := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configFile, out, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}
