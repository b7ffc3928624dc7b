package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/notanas/notanas-cli/internal/config"
)

// newLoginCmd creates the 'login' command.
func newLoginCmd() *cobra.Command {
	var username string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store a session token",
		Long: `Exchange a username and password for a session token.

The token is stored in ~/.config/notanas/session.json (mode 0600) and
stays valid for about one day.

Examples:
  notanas login --server http://nas.local:3000
  echo "$PASSWORD" | notanas login -u admin --password-stdin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cfg.ServerURL == "" {
				if a.cfg.ServerURL, err = promptLine("Server URL", ""); err != nil {
					return err
				}
				a.cfg.ServerURL = config.NormalizeServerURL(a.cfg.ServerURL)
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			if username == "" {
				if username, err = promptLine("Username", a.guard.Username()); err != nil {
					return err
				}
			}
			if username == "" {
				return errors.New("username is required")
			}

			var password string
			if passwordStdin {
				password, err = readLine(stdin)
			} else {
				password, err = promptPassword("Password: ")
			}
			if err != nil {
				return err
			}

			token, err := a.client.Login(GetContext(), a.cfg.ServerURL, username, password)
			if err != nil {
				return err
			}
			if err := a.guard.Login(token, a.cfg.ServerURL, username); err != nil {
				return err
			}

			a.logger.Info().Str("server", a.cfg.ServerURL).Str("user", username).Msg("Logged in")
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Logged in to %s as %s (session valid until %s)\n",
				a.cfg.ServerURL, username, a.guard.ExpiresAt().Local().Format(time.RFC1123))
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username (prompted if omitted)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

// newLogoutCmd creates the 'logout' command.
func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.guard.Logout(); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Logged out")
			return nil
		},
	}
}

// newStatusCmd creates the 'status' command.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the server and session in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			server := a.cfg.ServerURL
			if server == "" {
				server = "<not set>"
			}
			fmt.Fprintf(out, "Server:  %s\n", server)
			if !a.guard.LoggedIn() {
				fmt.Fprintln(out, "Session: not logged in")
				return nil
			}
			user := a.guard.Username()
			if user == "" {
				user = "<token from " + config.EnvToken + ">"
			}
			fmt.Fprintf(out, "User:    %s\n", user)
			if exp := a.guard.ExpiresAt(); !exp.IsZero() {
				fmt.Fprintf(out, "Expires: %s (%s left)\n", exp.Local().Format(time.RFC1123),
					strings.TrimSuffix(time.Until(exp).Round(time.Minute).String(), "0s"))
			}
			return nil
		},
	}
}
