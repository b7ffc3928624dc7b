package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/notanas/notanas-cli/internal/api"
	"github.com/notanas/notanas-cli/internal/config"
	"github.com/notanas/notanas-cli/internal/diskspace"
	"github.com/notanas/notanas-cli/internal/events"
	apihttp "github.com/notanas/notanas-cli/internal/http"
	"github.com/notanas/notanas-cli/internal/logging"
	"github.com/notanas/notanas-cli/internal/otl"
	"github.com/notanas/notanas-cli/internal/session"
)

// app bundles what a command needs to talk to the server.
type app struct {
	cfg    *config.Config
	bus    *events.EventBus
	logger *logging.Logger
	guard  *session.Guard
	client *api.Client
	trace  *eventTrace
}

// loadConfig reads the config file and applies environment and flag
// overrides. Priority: flags > environment > config file > defaults.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if serverURL != "" {
		cfg.ServerURL = serverURL
	}
	cfg.ServerURL = config.NormalizeServerURL(cfg.ServerURL)
	return cfg, nil
}

// newApp loads configuration and the stored session and builds an API
// client. It does not require a session: commands that do get
// session.ErrNotLoggedIn from the first authenticated call.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	bus := events.NewEventBus(0)
	log := GetLogger()

	sessionPath, err := config.DefaultSessionPath()
	if err != nil {
		return nil, err
	}
	guard := session.NewGuard(session.FileStore{Path: sessionPath}, bus, log)
	if err := guard.Restore(); err != nil {
		log.Warn().Err(err).Msg("Ignoring unreadable session file")
	}

	// The stored session belongs to the server it was issued by.
	if cfg.ServerURL != "" && guard.ServerURL() != "" && guard.ServerURL() != cfg.ServerURL {
		log.Debug().Str("session_server", guard.ServerURL()).Str("server", cfg.ServerURL).
			Msg("Stored session is for another server")
		guard.SetToken("")
	}
	if cfg.ServerURL != "" {
		guard.SetServerURL(cfg.ServerURL)
	} else {
		cfg.ServerURL = guard.ServerURL()
	}
	if tok := strings.TrimSpace(os.Getenv(config.EnvToken)); tok != "" {
		guard.SetToken(tok)
	}

	if apihttp.NeedsProxyPassword(cfg) {
		pw, err := promptPassword(fmt.Sprintf("Proxy password for %s: ", cfg.ProxyUser))
		if err != nil {
			return nil, err
		}
		cfg.ProxyPassword = pw
	}

	client, err := api.NewClient(cfg, guard, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}
	return &app{cfg: cfg, bus: bus, logger: log, guard: guard, client: client, trace: startEventTrace(bus, log)}, nil
}

// Close stops the event trace and releases the event bus.
func (a *app) Close() {
	if a.trace != nil {
		a.trace.Stop()
	}
	a.bus.Close()
}

// describeError turns well-known errors into actionable messages.
func describeError(err error) string {
	switch {
	case errors.Is(err, session.ErrNotLoggedIn):
		return "not logged in. Run `notanas login` first."
	case errors.Is(err, session.ErrUnauthorized):
		return "session expired or was rejected by the server. Run `notanas login` again."
	case errors.Is(err, config.ErrMissingServerURL):
		return "no server configured. Use --server, NOTANAS_SERVER or `notanas config set server_url <url>`."
	case errors.Is(err, api.ErrInvalidCredentials):
		return "invalid username or password."
	case otl.IsExhausted(err):
		return "this one-time link has expired, has been used up, or is invalid."
	case diskspace.IsInsufficientSpaceError(err):
		return err.Error()
	}
	var se *api.ServerError
	if errors.As(err, &se) {
		return fmt.Sprintf("server returned %d: %s", se.Status, se.Body)
	}
	if api.IsNetworkError(err) {
		return fmt.Sprintf("could not reach the server: %v", err)
	}
	return err.Error()
}
