// Package session holds the bearer token and server URL every authenticated
// call needs, and enforces what happens when they are missing or rejected.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/notanas/notanas-cli/internal/config"
	"github.com/notanas/notanas-cli/internal/constants"
	"github.com/notanas/notanas-cli/internal/events"
	"github.com/notanas/notanas-cli/internal/logging"
)

var (
	// ErrNotLoggedIn means the token or server URL is missing. No request was sent.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrUnauthorized means the server rejected the token. The session has been cleared.
	ErrUnauthorized = errors.New("session expired or rejected by server")
)

// IsAuthError reports whether err requires the user to log in again.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNotLoggedIn)
}

// Credentials is what an authenticated request is built from.
type Credentials struct {
	Token     string
	ServerURL string
}

// Store persists the session between runs.
type Store interface {
	Load() (*config.SessionFile, error)
	Save(*config.SessionFile) error
	Clear() error
}

// FileStore keeps the session in a JSON file.
type FileStore struct {
	Path string
}

func (s FileStore) Load() (*config.SessionFile, error) { return config.LoadSession(s.Path) }
func (s FileStore) Save(f *config.SessionFile) error   { return config.SaveSession(f, s.Path) }
func (s FileStore) Clear() error                       { return config.ClearSession(s.Path) }

// Guard owns the current session.
type Guard struct {
	mu        sync.RWMutex
	token     string
	serverURL string
	username  string
	expiresAt time.Time

	store  Store
	bus    *events.EventBus
	logger *logging.Logger
}

// NewGuard creates an empty guard. store, bus and logger may be nil.
func NewGuard(store Store, bus *events.EventBus, logger *logging.Logger) *Guard {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Guard{store: store, bus: bus, logger: logger}
}

// Restore loads the persisted session. Expired sessions are discarded.
func (g *Guard) Restore() error {
	if g.store == nil {
		return nil
	}
	f, err := g.store.Load()
	if err != nil {
		return err
	}
	if f == nil {
		return nil
	}
	if f.IsExpired(constants.SessionExpiryMargin) {
		g.logger.Debug().Time("expires_at", f.ExpiresAt).Msg("stored session expired")
		return g.store.Clear()
	}

	g.mu.Lock()
	g.token = f.Token
	g.serverURL = config.NormalizeServerURL(f.ServerURL)
	g.username = f.Username
	g.expiresAt = f.ExpiresAt
	g.mu.Unlock()
	return nil
}

// SetServerURL records the server to talk to without touching the token.
func (g *Guard) SetServerURL(serverURL string) {
	g.mu.Lock()
	g.serverURL = config.NormalizeServerURL(serverURL)
	g.mu.Unlock()
}

// SetToken installs a token for this process only (e.g. from NOTANAS_TOKEN).
func (g *Guard) SetToken(token string) {
	g.mu.Lock()
	g.token = token
	g.mu.Unlock()
}

// Login installs and persists a freshly issued token.
func (g *Guard) Login(token, serverURL, username string) error {
	serverURL = config.NormalizeServerURL(serverURL)
	expiresAt := time.Now().Add(constants.SessionTTL)

	g.mu.Lock()
	g.token = token
	g.serverURL = serverURL
	g.username = username
	g.expiresAt = expiresAt
	g.mu.Unlock()

	if g.store != nil {
		if err := g.store.Save(&config.SessionFile{
			Token:     token,
			ServerURL: serverURL,
			Username:  username,
			ExpiresAt: expiresAt,
		}); err != nil {
			return fmt.Errorf("failed to persist session: %w", err)
		}
	}
	g.bus.PublishSession(events.EventSessionLogin, serverURL, username, "")
	return nil
}

// Logout drops the token in memory and on disk. The server URL is kept.
func (g *Guard) Logout() error {
	g.clear()
	if g.store != nil {
		return g.store.Clear()
	}
	return nil
}

// Credentials returns the token and server URL, or ErrNotLoggedIn without
// touching the network when either is missing.
func (g *Guard) Credentials() (Credentials, error) {
	g.mu.RLock()
	c := Credentials{Token: g.token, ServerURL: g.serverURL}
	expired := !g.expiresAt.IsZero() && time.Now().After(g.expiresAt)
	g.mu.RUnlock()

	if c.Token == "" || c.ServerURL == "" || expired {
		g.bus.PublishSession(events.EventSessionRequired, c.ServerURL, "", "missing credentials")
		return Credentials{}, ErrNotLoggedIn
	}
	return c, nil
}

// Check applies the session policy to a response status. A 401 invalidates
// the session and returns ErrUnauthorized; everything else returns nil.
func (g *Guard) Check(status int) error {
	if status != http.StatusUnauthorized {
		return nil
	}
	g.Invalidate("server returned 401")
	return ErrUnauthorized
}

// Invalidate clears the session after the server rejected it.
func (g *Guard) Invalidate(reason string) {
	g.mu.RLock()
	serverURL := g.serverURL
	g.mu.RUnlock()

	g.clear()
	if g.store != nil {
		if err := g.store.Clear(); err != nil {
			g.logger.Warn().Err(err).Msg("failed to clear stored session")
		}
	}
	g.logger.Warn().Str("reason", reason).Msg("session invalidated")
	g.bus.PublishSession(events.EventSessionExpired, serverURL, "", reason)
}

func (g *Guard) clear() {
	g.mu.Lock()
	g.token = ""
	g.username = ""
	g.expiresAt = time.Time{}
	g.mu.Unlock()
}

// LoggedIn reports whether Credentials would succeed.
func (g *Guard) LoggedIn() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.token != "" && g.serverURL != "" && (g.expiresAt.IsZero() || time.Now().Before(g.expiresAt))
}

// ServerURL returns the configured server, logged in or not.
func (g *Guard) ServerURL() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.serverURL
}

// Username returns the name used at login, if known.
func (g *Guard) Username() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.username
}

// ExpiresAt returns when the current session lapses (zero if unknown).
func (g *Guard) ExpiresAt() time.Time {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.expiresAt
}
