package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// FilePermissions is the default permission mode for regular files (read/write for owner, read for others)
	FilePermissions = 0644
	// DirPermissions is the default permission mode for directories (rwxr-xr-x)
	DirPermissions = 0755

	// DefaultServerURL is the metadata server the browser talks to
	DefaultServerURL = "http://127.0.0.1:8080/"
	// DefaultListen is the address the serve command binds
	DefaultListen = "127.0.0.1:8080"

	// Environment overrides
	EnvServerURL  = "DISCOBROWSE_SERVER_URL"
	EnvCatalogDir = "DISCOBROWSE_CATALOG_DIR"
)

var (
	// ConfigDir is the global configuration directory (~/.discobrowse)
	ConfigDir string

	// ConfigFile is the YAML configuration file
	ConfigFile string

	// LogsDir holds the rotated log files
	LogsDir string

	// LogFile is the active log file
	LogFile string

	// DatabasePath is the SQLite database file for selection history
	DatabasePath string

	// KeybindsFile holds optional keybinding overrides (JSON with comments)
	KeybindsFile string
)

// Config holds the user settings read from config.yaml
type Config struct {
	ServerURL      string        `yaml:"server_url"`
	Listen         string        `yaml:"listen"`
	CatalogDir     string        `yaml:"catalog_dir"`     // Empty serves the built-in sample
	Watch          bool          `yaml:"watch"`           // Reload the catalog when its files change
	Timeout        time.Duration `yaml:"timeout"`         // Metadata request timeout, 0 means none
	HistoryEnabled bool          `yaml:"history_enabled"` // Record selections in the history database
	LogLevel       string        `yaml:"log_level"`       // debug, info, warn, error
}

// Default returns the settings used when no config file exists
func Default() Config {
	return Config{
		ServerURL:      DefaultServerURL,
		Listen:         DefaultListen,
		HistoryEnabled: true,
		LogLevel:       "info",
	}
}

const defaultConfigFile = `# discobrowse configuration
server_url: http://127.0.0.1:8080/
listen: 127.0.0.1:8080
# catalog_dir: ~/.discobrowse/catalog
watch: false
timeout: 0s
history_enabled: true
log_level: info
`

// Initialize sets up the configuration directories and files
// It creates ~/.discobrowse/ if it doesn't exist
func Initialize() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	// Set global paths
	ConfigDir = filepath.Join(homeDir, ".discobrowse")
	ConfigFile = filepath.Join(ConfigDir, "config.yaml")
	LogsDir = filepath.Join(ConfigDir, "logs")
	LogFile = filepath.Join(LogsDir, "discobrowse.log")
	DatabasePath = filepath.Join(ConfigDir, "discobrowse.db")
	KeybindsFile = filepath.Join(ConfigDir, "keybinds.json")

	// Create directories if they don't exist
	dirs := []string{ConfigDir, LogsDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, DirPermissions); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	// Create default config file if it doesn't exist
	if _, err := os.Stat(ConfigFile); os.IsNotExist(err) {
		if err := os.WriteFile(ConfigFile, []byte(defaultConfigFile), FilePermissions); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
	}

	return nil
}

// Load reads the config file at path on top of the defaults, then applies
// environment overrides. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	if v := os.Getenv(EnvServerURL); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv(EnvCatalogDir); v != "" {
		cfg.CatalogDir = v
	}

	if cfg.CatalogDir != "" {
		dir, err := ExpandPath(cfg.CatalogDir)
		if err != nil {
			return cfg, err
		}
		cfg.CatalogDir = dir
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings
func (c Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server_url must be an http(s) URL, got %q", c.ServerURL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel converts a log_level value to a slog level
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if level == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level must be debug, info, warn or error, got %q", level)
	}
	return l, nil
}

// ExpandPath expands a leading ~/ to the home directory
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, path[2:]), nil
}
