// Package config provides configuration management for the notanas client.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"github.com/notanas/notanas-cli/internal/constants"
)

// Environment overrides
const (
	EnvServer = "NOTANAS_SERVER"
	EnvToken  = "NOTANAS_TOKEN"
	EnvConfig = "NOTANAS_CONFIG"
)

const sectionName = "default"

// Config is the persistent client configuration.
//
// INI format:
//
//	[default]
//	server_url = https://nas.example.lan
//	proxy_mode = no-proxy
//	otl_expiry_minutes = 60
//	otl_max_downloads = 5
//	search_debounce_ms = 300
type Config struct {
	ServerURL string

	// Proxy settings (no-proxy, system, basic, ntlm)
	ProxyMode     string
	ProxyHost     string
	ProxyPort     int
	ProxyUser     string
	ProxyPassword string // never written to disk
	NoProxy       string
	ProxyWarmup   bool

	// One-time link defaults
	OTLExpiryMinutes int
	OTLMaxDownloads  int

	SearchDebounceMS  int
	RequestsPerSecond float64
	DownloadDir       string
}

// Validation errors
var (
	ErrMissingServerURL    = errors.New("server_url is required")
	ErrInvalidServerURL    = errors.New("server_url must be an http or https URL")
	ErrInvalidOTLExpiry    = errors.New("otl_expiry_minutes must be positive")
	ErrInvalidOTLDownloads = errors.New("otl_max_downloads must be positive")
	ErrInvalidDebounce     = errors.New("search_debounce_ms must not be negative")
	ErrUnknownKey          = errors.New("unknown config key")
)

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		ProxyMode:         "no-proxy",
		ProxyPort:         constants.DefaultProxyPort,
		OTLExpiryMinutes:  int(constants.DefaultOTLExpiry / time.Minute),
		OTLMaxDownloads:   constants.DefaultOTLMaxDownloads,
		SearchDebounceMS:  int(constants.SearchDebounce / time.Millisecond),
		RequestsPerSecond: constants.DefaultRequestsPerSecond,
		DownloadDir:       ".",
	}
}

// LoadConfig loads configuration from an INI file.
// A missing file yields defaults and no error.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return cfg, nil
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	s := iniFile.Section(sectionName)
	cfg.ServerURL = s.Key("server_url").String()
	cfg.ProxyMode = s.Key("proxy_mode").MustString(cfg.ProxyMode)
	cfg.ProxyHost = s.Key("proxy_host").String()
	cfg.ProxyPort = s.Key("proxy_port").MustInt(cfg.ProxyPort)
	cfg.ProxyUser = s.Key("proxy_user").String()
	cfg.NoProxy = s.Key("no_proxy").String()
	cfg.ProxyWarmup = s.Key("proxy_warmup").MustBool(false)
	cfg.OTLExpiryMinutes = s.Key("otl_expiry_minutes").MustInt(cfg.OTLExpiryMinutes)
	cfg.OTLMaxDownloads = s.Key("otl_max_downloads").MustInt(cfg.OTLMaxDownloads)
	cfg.SearchDebounceMS = s.Key("search_debounce_ms").MustInt(cfg.SearchDebounceMS)
	cfg.RequestsPerSecond = s.Key("requests_per_second").MustFloat64(cfg.RequestsPerSecond)
	cfg.DownloadDir = s.Key("download_dir").MustString(cfg.DownloadDir)

	return cfg, nil
}

// SaveConfig writes the configuration to an INI file with 0600 permissions.
func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()
	s, err := iniFile.NewSection(sectionName)
	if err != nil {
		return fmt.Errorf("failed to create %s section: %w", sectionName, err)
	}
	s.Key("server_url").SetValue(cfg.ServerURL)
	s.Key("proxy_mode").SetValue(cfg.ProxyMode)
	s.Key("proxy_host").SetValue(cfg.ProxyHost)
	s.Key("proxy_port").SetValue(strconv.Itoa(cfg.ProxyPort))
	s.Key("proxy_user").SetValue(cfg.ProxyUser)
	s.Key("no_proxy").SetValue(cfg.NoProxy)
	s.Key("proxy_warmup").SetValue(strconv.FormatBool(cfg.ProxyWarmup))
	s.Key("otl_expiry_minutes").SetValue(strconv.Itoa(cfg.OTLExpiryMinutes))
	s.Key("otl_max_downloads").SetValue(strconv.Itoa(cfg.OTLMaxDownloads))
	s.Key("search_debounce_ms").SetValue(strconv.Itoa(cfg.SearchDebounceMS))
	s.Key("requests_per_second").SetValue(strconv.FormatFloat(cfg.RequestsPerSecond, 'f', -1, 64))
	s.Key("download_dir").SetValue(cfg.DownloadDir)

	return writeAtomic(path, func(tmp string) error { return iniFile.SaveTo(tmp) })
}

// writeAtomic writes through a temporary sibling file and renames it into place.
func writeAtomic(path string, write func(tmp string) error) error {
	tmpPath := path + ".tmp"
	if err := write(tmpPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set permissions on %s: %w", filepath.Base(path), err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ApplyEnv overlays environment overrides onto the loaded values.
func (cfg *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvServer)); v != "" {
		cfg.ServerURL = v
	}
}

// Validate checks the settings needed before talking to a server.
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.ServerURL) == "" {
		return ErrMissingServerURL
	}
	u, err := url.Parse(cfg.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidServerURL
	}
	if cfg.OTLExpiryMinutes <= 0 {
		return ErrInvalidOTLExpiry
	}
	if cfg.OTLMaxDownloads <= 0 {
		return ErrInvalidOTLDownloads
	}
	if cfg.SearchDebounceMS < 0 {
		return ErrInvalidDebounce
	}
	return nil
}

// NormalizedServerURL returns the server URL without a trailing slash.
func (cfg *Config) NormalizedServerURL() string {
	return NormalizeServerURL(cfg.ServerURL)
}

// NormalizeServerURL trims whitespace and trailing slashes.
func NormalizeServerURL(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), "/")
}

// OTLExpiry returns the default one-time link lifetime.
func (cfg *Config) OTLExpiry() time.Duration {
	return time.Duration(cfg.OTLExpiryMinutes) * time.Minute
}

// SearchDebounce returns the quiet period before a remote search fires.
func (cfg *Config) SearchDebounce() time.Duration {
	return time.Duration(cfg.SearchDebounceMS) * time.Millisecond
}

// Keys lists the settable config keys in file order.
func Keys() []string {
	return []string{
		"server_url", "proxy_mode", "proxy_host", "proxy_port", "proxy_user", "no_proxy",
		"proxy_warmup", "otl_expiry_minutes", "otl_max_downloads", "search_debounce_ms",
		"requests_per_second", "download_dir",
	}
}

// Set assigns a single key from its string form.
func (cfg *Config) Set(key, value string) error {
	var err error
	switch key {
	case "server_url":
		cfg.ServerURL = NormalizeServerURL(value)
	case "proxy_mode":
		cfg.ProxyMode = strings.ToLower(value)
	case "proxy_host":
		cfg.ProxyHost = value
	case "proxy_port":
		cfg.ProxyPort, err = strconv.Atoi(value)
	case "proxy_user":
		cfg.ProxyUser = value
	case "no_proxy":
		cfg.NoProxy = value
	case "proxy_warmup":
		cfg.ProxyWarmup, err = strconv.ParseBool(value)
	case "otl_expiry_minutes":
		cfg.OTLExpiryMinutes, err = strconv.Atoi(value)
	case "otl_max_downloads":
		cfg.OTLMaxDownloads, err = strconv.Atoi(value)
	case "search_debounce_ms":
		cfg.SearchDebounceMS, err = strconv.Atoi(value)
	case "requests_per_second":
		cfg.RequestsPerSecond, err = strconv.ParseFloat(value, 64)
	case "download_dir":
		cfg.DownloadDir = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return nil
}

// Get returns the string form of a key.
func (cfg *Config) Get(key string) (string, error) {
	switch key {
	case "server_url":
		return cfg.ServerURL, nil
	case "proxy_mode":
		return cfg.ProxyMode, nil
	case "proxy_host":
		return cfg.ProxyHost, nil
	case "proxy_port":
		return strconv.Itoa(cfg.ProxyPort), nil
	case "proxy_user":
		return cfg.ProxyUser, nil
	case "no_proxy":
		return cfg.NoProxy, nil
	case "proxy_warmup":
		return strconv.FormatBool(cfg.ProxyWarmup), nil
	case "otl_expiry_minutes":
		return strconv.Itoa(cfg.OTLExpiryMinutes), nil
	case "otl_max_downloads":
		return strconv.Itoa(cfg.OTLMaxDownloads), nil
	case "search_debounce_ms":
		return strconv.Itoa(cfg.SearchDebounceMS), nil
	case "requests_per_second":
		return strconv.FormatFloat(cfg.RequestsPerSecond, 'f', -1, 64), nil
	case "download_dir":
		return cfg.DownloadDir, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
}
