package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SessionFile is the persisted login: the bearer token and the server it is valid for.
type SessionFile struct {
	Token     string    `json:"token"`
	ServerURL string    `json:"server_url"`
	Username  string    `json:"username,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired reports whether the session expires within margin.
// A zero ExpiresAt never expires.
func (s *SessionFile) IsExpired(margin time.Duration) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().Add(margin).After(s.ExpiresAt)
}

// LoadSession reads a stored session. A missing file returns (nil, nil).
func LoadSession(path string) (*SessionFile, error) {
	if path == "" {
		var err error
		if path, err = DefaultSessionPath(); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var s SessionFile
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}
	return &s, nil
}

// SaveSession writes the session with owner-only permissions.
func SaveSession(s *SessionFile, path string) error {
	if path == "" {
		var err error
		if path, err = DefaultSessionPath(); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return writeAtomic(path, func(tmp string) error {
		return os.WriteFile(tmp, data, 0600)
	})
}

// ClearSession removes the stored session. Removing a missing file is not an error.
func ClearSession(path string) error {
	if path == "" {
		var err error
		if path, err = DefaultSessionPath(); err != nil {
			return err
		}
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}
