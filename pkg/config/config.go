package config

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed config.toml.sample
var configTemplate string

// Defaults applied to values missing from the configuration file.
const (
	DefaultBackendURL    = "https://www.ebi.ac.uk/ols4"
	DefaultOrigin        = "OLS"
	DefaultTimeout       = 30 * time.Second
	DefaultSize          = 50
	DefaultCacheType     = "sqlite"
	DefaultSuccessTTL    = 24 * time.Hour
	DefaultEmptyTTL      = time.Hour
	DefaultPurgeInterval = 10 * time.Minute
	DefaultListen        = "localhost:8090"
)

type Config struct {
	StorageDir    string   `toml:"storage_dir"`
	RulesFile     string   `toml:"rules_file,omitempty"`
	DebugServices []string `toml:"debug_services,omitempty"`

	Backend BackendConfig `toml:"backend"`
	Cache   CacheConfig   `toml:"cache"`
	Server  ServerConfig  `toml:"server"`
}

// BackendConfig describes the term-lookup service.
type BackendConfig struct {
	Origin      string            `toml:"origin"`
	URL         string            `toml:"url"`
	Timeout     Duration          `toml:"timeout"`
	DefaultSize int               `toml:"default_size"`
	Headers     map[string]string `toml:"headers,omitempty"`
}

type CacheConfig struct {
	// Type is one of memory, sqlite or none.
	Type string `toml:"type"`
	// Path of the sqlite database. Defaults to cache.db in the storage
	// directory.
	Path       string    `toml:"path,omitempty"`
	SuccessTTL *Duration `toml:"success_ttl,omitempty"`
	// EmptyTTL applies to responses without hits. Zero disables caching
	// them.
	EmptyTTL      *Duration `toml:"empty_ttl,omitempty"`
	PurgeInterval *Duration `toml:"purge_interval,omitempty"`
}

type ServerConfig struct {
	Listen string `toml:"listen"`
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func GetDefaultConfig() (*Config, error) {
	storageDir, err := GetDefaultStorageDir()
	if err != nil {
		return nil, fmt.Errorf("getting default storage directory: %w", err)
	}
	cfg := &Config{StorageDir: storageDir}
	cfg.applyDefaults()
	return cfg, nil
}

func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefaultConfig()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if config.StorageDir == "" {
		storageDir, err := GetDefaultStorageDir()
		if err != nil {
			return nil, fmt.Errorf("getting default storage directory: %w", err)
		}
		config.StorageDir = storageDir
	}

	config.applyDefaults()

	if config.RulesFile != "" && !filepath.IsAbs(config.RulesFile) {
		config.RulesFile = filepath.Join(filepath.Dir(configPath), config.RulesFile)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Backend.URL == "" {
		c.Backend.URL = DefaultBackendURL
	}
	if c.Backend.Origin == "" {
		c.Backend.Origin = DefaultOrigin
	}
	if c.Backend.Timeout.Duration == 0 {
		c.Backend.Timeout = Duration{DefaultTimeout}
	}
	if c.Backend.DefaultSize == 0 {
		c.Backend.DefaultSize = DefaultSize
	}

	if c.Cache.Type == "" {
		c.Cache.Type = DefaultCacheType
	}
	if c.Cache.Path == "" && c.StorageDir != "" {
		c.Cache.Path = filepath.Join(c.StorageDir, "cache.db")
	}
	if c.Cache.SuccessTTL == nil {
		c.Cache.SuccessTTL = &Duration{DefaultSuccessTTL}
	}
	if c.Cache.EmptyTTL == nil {
		c.Cache.EmptyTTL = &Duration{DefaultEmptyTTL}
	}
	if c.Cache.PurgeInterval == nil {
		c.Cache.PurgeInterval = &Duration{DefaultPurgeInterval}
	}

	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}
}

// Validate checks values that defaults cannot fix.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.URL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("backend url %q must be an absolute http(s) url", c.Backend.URL)
	}
	if c.Backend.Timeout.Duration < 0 {
		return fmt.Errorf("backend timeout must not be negative")
	}
	if c.Backend.DefaultSize < 0 {
		return fmt.Errorf("backend default_size must not be negative")
	}

	switch c.Cache.Type {
	case "memory", "none":
	case "sqlite":
		if c.Cache.Path == "" {
			return fmt.Errorf("cache path is required for the sqlite cache")
		}
	default:
		return fmt.Errorf("unknown cache type %q (want memory, sqlite or none)", c.Cache.Type)
	}

	for name, d := range map[string]*Duration{
		"success_ttl":    c.Cache.SuccessTTL,
		"empty_ttl":      c.Cache.EmptyTTL,
		"purge_interval": c.Cache.PurgeInterval,
	} {
		if d != nil && d.Duration < 0 {
			return fmt.Errorf("cache %s must not be negative", name)
		}
	}

	return nil
}

func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

func (c *Config) SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	template, err := c.generateConfigTemplate()
	if err != nil {
		return fmt.Errorf("generating config template: %w", err)
	}
	return os.WriteFile(configPath, []byte(template), 0644)
}

func (c *Config) generateConfigTemplate() (string, error) {
	storageDir := c.StorageDir
	if storageDir == "" {
		var err error
		storageDir, err = GetDefaultStorageDir()
		if err != nil {
			return "", fmt.Errorf("getting default storage directory: %w", err)
		}
	}

	// Replace the placeholder storage_dir with the actual path
	template := strings.Replace(configTemplate, "/home/user/.local/share/ontosearch", storageDir, 1)
	return template, nil
}

// GetDefaultStorageDir returns the default directory for the cache database
func GetDefaultStorageDir() (string, error) {
	// Use XDG_DATA_HOME if set, otherwise use ~/.local/share
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	storageDir := filepath.Join(dataDir, "ontosearch")

	if err := os.MkdirAll(storageDir, 0755); err != nil {
		return "", fmt.Errorf("creating storage directory %s: %w", storageDir, err)
	}

	return storageDir, nil
}

// GetConfigDir returns the configuration directory for ontosearch
func GetConfigDir() (string, error) {
	// Use XDG_CONFIG_HOME if set, otherwise use ~/.config
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	appConfigDir := filepath.Join(configDir, "ontosearch")

	if err := os.MkdirAll(appConfigDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory %s: %w", appConfigDir, err)
	}

	return appConfigDir, nil
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}
