package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig()

	if cfg.OTLExpiryMinutes != 60 {
		t.Errorf("expected default OTLExpiryMinutes 60, got %d", cfg.OTLExpiryMinutes)
	}
	if cfg.OTLMaxDownloads != 5 {
		t.Errorf("expected default OTLMaxDownloads 5, got %d", cfg.OTLMaxDownloads)
	}
	if cfg.SearchDebounce() != 300*time.Millisecond {
		t.Errorf("expected default debounce 300ms, got %v", cfg.SearchDebounce())
	}
	if cfg.ProxyMode != "no-proxy" {
		t.Errorf("expected default proxy mode no-proxy, got %s", cfg.ProxyMode)
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")

	cfg := NewConfig()
	cfg.ServerURL = "http://nas.local:8080"
	cfg.ProxyMode = "basic"
	cfg.ProxyHost = "proxy.corp"
	cfg.ProxyPassword = "secret"
	cfg.OTLMaxDownloads = 3
	cfg.SearchDebounceMS = 150

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat failed: %v", err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("expected 0600 permissions, got %o", info.Mode().Perm())
		}
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.ServerURL != cfg.ServerURL {
		t.Errorf("ServerURL mismatch: expected %s, got %s", cfg.ServerURL, loaded.ServerURL)
	}
	if loaded.ProxyHost != "proxy.corp" {
		t.Errorf("ProxyHost mismatch: got %s", loaded.ProxyHost)
	}
	if loaded.ProxyPassword != "" {
		t.Error("proxy password must not be persisted")
	}
	if loaded.OTLMaxDownloads != 3 {
		t.Errorf("OTLMaxDownloads mismatch: got %d", loaded.OTLMaxDownloads)
	}
	if loaded.SearchDebounceMS != 150 {
		t.Errorf("SearchDebounceMS mismatch: got %d", loaded.SearchDebounceMS)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if cfg.OTLMaxDownloads != 5 {
		t.Errorf("expected defaults, got OTLMaxDownloads %d", cfg.OTLMaxDownloads)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(c *Config) { c.ServerURL = "https://nas.example" }, nil},
		{"missing server", func(c *Config) {}, ErrMissingServerURL},
		{"bad scheme", func(c *Config) { c.ServerURL = "ftp://nas" }, ErrInvalidServerURL},
		{"no host", func(c *Config) { c.ServerURL = "http://" }, ErrInvalidServerURL},
		{"zero expiry", func(c *Config) {
			c.ServerURL = "https://nas.example"
			c.OTLExpiryMinutes = 0
		}, ErrInvalidOTLExpiry},
		{"zero downloads", func(c *Config) {
			c.ServerURL = "https://nas.example"
			c.OTLMaxDownloads = 0
		}, ErrInvalidOTLDownloads},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSetAndGet(t *testing.T) {
	cfg := NewConfig()

	if err := cfg.Set("server_url", " http://nas.local/ "); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if got, _ := cfg.Get("server_url"); got != "http://nas.local" {
		t.Errorf("expected normalized URL, got %q", got)
	}

	if err := cfg.Set("otl_max_downloads", "abc"); err == nil {
		t.Error("expected error for non-numeric value")
	}
	if err := cfg.Set("bogus", "1"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("expected ErrUnknownKey, got %v", err)
	}

	for _, k := range Keys() {
		if _, err := cfg.Get(k); err != nil {
			t.Errorf("Get(%s) failed: %v", k, err)
		}
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvServer, "http://from-env:9000")
	cfg := NewConfig()
	cfg.ServerURL = "http://from-file"
	cfg.ApplyEnv()
	if cfg.ServerURL != "http://from-env:9000" {
		t.Errorf("expected env override, got %s", cfg.ServerURL)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	s, err := LoadSession(path)
	if err != nil || s != nil {
		t.Fatalf("expected (nil, nil) for missing session, got (%v, %v)", s, err)
	}

	want := &SessionFile{
		Token:     "tok",
		ServerURL: "http://nas.local",
		Username:  "alice",
		ExpiresAt: time.Now().Add(time.Hour).Truncate(time.Second),
	}
	if err := SaveSession(want, path); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	got, err := LoadSession(path)
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if got.Token != want.Token || got.ServerURL != want.ServerURL || !got.ExpiresAt.Equal(want.ExpiresAt) {
		t.Errorf("session mismatch: got %+v, want %+v", got, want)
	}

	if err := ClearSession(path); err != nil {
		t.Fatalf("ClearSession failed: %v", err)
	}
	if err := ClearSession(path); err != nil {
		t.Errorf("clearing a missing session should succeed, got %v", err)
	}
}

func TestSessionIsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{"zero never expires", time.Time{}, false},
		{"future", time.Now().Add(time.Hour), false},
		{"past", time.Now().Add(-time.Minute), true},
		{"within margin", time.Now().Add(30 * time.Second), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &SessionFile{Token: "x", ExpiresAt: tt.expiresAt}
			if got := s.IsExpired(time.Minute); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}
