package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/notanas/notanas-cli/internal/config"
)

// configPath returns --config or the default config location.
func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.DefaultConfigPath()
}

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage notanas configuration",
		Long: `Configuration management commands for notanas.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  get   - Print a single setting
  set   - Change a single setting
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigGetCmd())
	configCmd.AddCommand(newConfigSetCmd())
	configCmd.AddCommand(newConfigPathCmd())
	return configCmd
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup for notanas.

The configuration is saved to ~/.config/notanas/config (or $NOTANAS_CONFIG).
Use --force to overwrite an existing configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			if !force {
				if _, err := os.Stat(path); err == nil {
					fmt.Printf("Configuration already exists at: %s\n", path)
					fmt.Println("Use --force to overwrite or run 'config show' to view current config.")
					return nil
				}
			}

			cfg := config.NewConfig()

			fmt.Println("notanas Configuration Setup")
			fmt.Println("===========================")
			fmt.Println()

			for cfg.ServerURL == "" {
				v, err := promptLine("Server URL (e.g. http://nas.local:3000)", "")
				if err != nil {
					return err
				}
				cfg.ServerURL = config.NormalizeServerURL(v)
				if cfg.ServerURL == "" {
					fmt.Println("  Error: server URL is required")
				}
			}

			fmt.Println()
			fmt.Println("One-time link defaults (press Enter for defaults)")
			fmt.Println("-------------------------------------------------")
			if err := promptInt("Link lifetime in minutes", &cfg.OTLExpiryMinutes); err != nil {
				return err
			}
			if err := promptInt("Downloads per link", &cfg.OTLMaxDownloads); err != nil {
				return err
			}
			if cfg.DownloadDir, err = promptLine("Download directory", cfg.DownloadDir); err != nil {
				return err
			}

			fmt.Println()
			answer, err := promptLine("Configure proxy? [y/N]", "n")
			if err != nil {
				return err
			}
			if a := strings.ToLower(answer); a == "y" || a == "yes" {
				fmt.Println("Proxy modes: no-proxy, system, basic, ntlm")
				if cfg.ProxyMode, err = promptLine("Proxy mode", "system"); err != nil {
					return err
				}
				if cfg.ProxyMode == "basic" || cfg.ProxyMode == "ntlm" {
					if cfg.ProxyHost, err = promptLine("Proxy host", ""); err != nil {
						return err
					}
					if err := promptInt("Proxy port", &cfg.ProxyPort); err != nil {
						return err
					}
					if cfg.ProxyUser, err = promptLine("Proxy user (optional)", ""); err != nil {
						return err
					}
				}
			}

			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.SaveConfig(cfg, path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			GetLogger().Info().Str("path", path).Msg("Configuration saved")

			fmt.Println()
			fmt.Printf("✓ Configuration saved to: %s\n", path)
			fmt.Println("Log in with: notanas login")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")
	return cmd
}

func promptInt(label string, v *int) error {
	s, err := promptLine(label, strconv.Itoa(*v))
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		fmt.Printf("  Invalid number %q, keeping %d\n", s, *v)
		return nil
	}
	*v = n
	return nil
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the current configuration settings, merged from:
  1. Configuration file (~/.config/notanas/config)
  2. Environment variables (NOTANAS_SERVER)
  3. Command-line flags (--server)

Priority: flags > environment > config file > defaults`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Current Configuration")
			fmt.Fprintln(out, "=====================")
			for _, key := range config.Keys() {
				v, _ := cfg.Get(key)
				if v == "" {
					v = "<not set>"
				}
				fmt.Fprintf(out, "  %-20s %s\n", key, v)
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Configuration file: %s\n", path)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Fprintln(out, "  (file does not exist - using defaults)")
			}
			return nil
		},
	}
}

// newConfigGetCmd creates the 'config get' command.
func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "get <key>",
		Short:     "Print a single setting",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: config.Keys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			v, err := cfg.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

// newConfigSetCmd creates the 'config set' command.
func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a single setting",
		Long: `Change a single setting and save the configuration file.

Keys: ` + strings.Join(config.Keys(), ", "),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			cfg, err := config.LoadConfig(path)
			if err != nil {
				return err
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			if cfg.ServerURL != "" {
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			if err := config.SaveConfig(cfg, path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s updated\n", args[0])
			return nil
		},
	}
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}
