package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Theme   string        `yaml:"theme"`
	Results ResultsConfig `yaml:"results"`
	Backend BackendConfig `yaml:"backend"`
	Catalog CatalogConfig `yaml:"catalog"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
	Audit   AuditConfig   `yaml:"audit"`
	Server  ServerConfig  `yaml:"server"`
}

// ResultsConfig holds table view settings.
type ResultsConfig struct {
	PageSize       int `yaml:"page_size"`
	MaxColumnWidth int `yaml:"max_column_width"`
}

// BackendConfig prefills the onboarding form and the scripting subcommands.
// The credentials actually in use live in the session store.
type BackendConfig struct {
	URL            string `yaml:"url,omitempty"`
	Key            string `yaml:"key,omitempty"`
	ServiceKey     string `yaml:"service_key,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// CatalogConfig enables direct Postgres introspection when DSN is set.
type CatalogConfig struct {
	DSN string `yaml:"dsn,omitempty"`
}

// StorageConfig points at an S3-compatible object store whose usage is
// reported on the dashboard.
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	Region    string `yaml:"region,omitempty"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// LogConfig controls the file logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

// AuditConfig controls the mutation audit log.
type AuditConfig struct {
	Enabled   bool `yaml:"enabled"`
	MaxSizeMB int  `yaml:"max_size_mb"`
}

// ServerConfig holds settings for `supadmin serve`.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Theme: "default",
		Results: ResultsConfig{
			PageSize:       10,
			MaxColumnWidth: 40,
		},
		Backend: BackendConfig{
			TimeoutSeconds: 15,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Audit: AuditConfig{
			Enabled:   true,
			MaxSizeMB: 10,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8787",
		},
	}
}

// ConfigDir returns the supadmin configuration directory, typically
// ~/.config/supadmin/.
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config dir: %w", err)
	}
	return filepath.Join(base, "supadmin"), nil
}

// Load reads a Config from the YAML file at path. If the file does not exist,
// it returns DefaultConfig without error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoadDefault loads configuration from ConfigDir()/config.yaml.
func LoadDefault() (*Config, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return Load(filepath.Join(dir, "config.yaml"))
}

// Save writes the Config to the YAML file at path, creating any necessary
// parent directories.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// SaveDefault writes the Config to ConfigDir()/config.yaml.
func (c *Config) SaveDefault() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return c.Save(filepath.Join(dir, "config.yaml"))
}

// LoadEnv loads .env files into the process environment. Missing files
// are ignored; malformed ones are reported.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from environment variables. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("SUPABASE_URL"); ok && v != "" {
		c.Backend.URL = v
	}
	if v, ok := lookup("SUPABASE_ANON_KEY"); ok && v != "" {
		c.Backend.Key = v
	}
	if v, ok := lookup("SUPABASE_SERVICE_ROLE_KEY"); ok && v != "" {
		c.Backend.ServiceKey = v
	}
	if v, ok := lookup("DATABASE_URL"); ok && v != "" {
		c.Catalog.DSN = v
	}
	if v, ok := lookup("SUPADMIN_LOG_LEVEL"); ok && v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v, ok := lookup("SUPADMIN_ADDR"); ok && v != "" {
		c.Server.Addr = v
	}
	if v, ok := lookup("SUPADMIN_PAGE_SIZE"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Results.PageSize = n
		}
	}
}

// Enabled reports whether object storage usage should be collected.
func (s StorageConfig) Enabled() bool {
	return s.Endpoint != "" && s.AccessKey != "" && s.SecretKey != ""
}

// DisplayHost returns the host part of the backend URL for status lines.
func (b BackendConfig) DisplayHost() string {
	return DisplayHost(b.URL)
}

// DisplayHost returns host[:port] of rawURL, or rawURL itself when it does
// not parse.
func DisplayHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}
