package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/notanas/notanas-cli/internal/actions"
	"github.com/notanas/notanas-cli/internal/config"
	"github.com/notanas/notanas-cli/internal/constants"
	"github.com/notanas/notanas-cli/internal/models"
	"github.com/notanas/notanas-cli/internal/nav"
	"github.com/notanas/notanas-cli/internal/search"
	"github.com/notanas/notanas-cli/internal/session"
)

// isFatal reports whether err ends the whole command.
func isFatal(err error) bool {
	return session.IsAuthError(err) || errors.Is(err, config.ErrMissingServerURL)
}

// printEntries writes a listing as aligned columns, folders marked with "/".
func printEntries(w io.Writer, entries []models.FileEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "(empty)")
		return
	}
	idWidth := 2
	for _, e := range entries {
		if len(e.ID) > idWidth {
			idWidth = len(e.ID)
		}
	}
	fmt.Fprintf(w, "%-8s  %-*s  %s\n", "TYPE", idWidth, "ID", "NAME")
	for _, e := range entries {
		name := e.Name
		if e.IsDir {
			name += "/"
		}
		fmt.Fprintf(w, "%-8s  %-*s  %s\n", e.TypeLabel(constants.FolderLabel), idWidth, e.ID, name)
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newListCmd creates the 'ls' command.
func newListCmd() *cobra.Command {
	var filter string
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "ls [folder-id]",
		Aliases: []string{"list"},
		Short:   "List a folder (the root by default)",
		Long: `List the entries of a folder. Without an argument the root is listed.

Examples:
  notanas ls
  notanas ls d1
  notanas ls d1 --filter report
  notanas ls --filter folder    # only folders`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			folderID := models.RootID
			if len(args) == 1 {
				folderID = args[0]
			}

			n := nav.New(a.client, nav.Options{EventBus: a.bus, Logger: a.logger})
			if err := n.Open(GetContext(), folderID); err != nil {
				return err
			}
			entries := search.Filter(n.Listing().Items(), filter)

			if asJSON {
				return printJSON(cmd.OutOrStdout(), entries)
			}
			printEntries(cmd.OutOrStdout(), entries)
			return nil
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Only show entries whose name contains this text ('folder' shows folders)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print entries as JSON")
	return cmd
}

// newSearchCmd creates the 'search' command.
func newSearchCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the whole server by name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			query := strings.Join(args, " ")
			s := search.NewSearcher(GetContext(), a.client, search.Options{EventBus: a.bus, Logger: a.logger})
			defer s.Stop()

			entries, err := s.Now(GetContext(), query)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), entries)
			}
			printEntries(cmd.OutOrStdout(), entries)
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d result(s) for %q; types: %s\n",
				len(entries), query, strings.Join(search.Extensions(entries), ", "))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}

// newDeleteCmd creates the 'rm' command.
func newDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "rm <file-id> [file-id...]",
		Aliases: []string{"delete"},
		Short:   "Delete files or folders",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if !yes && !confirm(fmt.Sprintf("Delete %d item(s)?", len(args))) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Aborted.")
				return nil
			}

			svc := actions.NewService(a.client, nil, a.bus, a.logger, downloadOptions())
			for _, id := range args {
				if err := svc.Delete(GetContext(), id); err != nil {
					return fmt.Errorf("failed to delete %s: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %s\n", id)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

// newGetCmd creates the 'get' command.
func newGetCmd() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:     "get <file-id> [file-id...]",
		Aliases: []string{"download"},
		Short:   "Download files",
		Long: `Download one or more files by id.

The local name comes from the server's Content-Disposition header, or
downloaded-file-<id> when there is none. Existing files are never
overwritten: the id is appended instead.

Examples:
  notanas get f1
  notanas get f1 f2 --outdir ./downloads`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if outputDir == "" {
				outputDir = a.cfg.DownloadDir
			}
			svc := actions.NewService(a.client, nil, a.bus, a.logger, downloadOptions())
			return executeFileDownload(GetContext(), args, outputDir, svc, a.logger)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "outdir", "o", "", "Destination directory (default: download_dir from config)")
	return cmd
}

// newInfoCmd creates the 'info' command.
func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <folder-id> <name-or-id>",
		Short: "Show the details of an entry in a folder",
		Long: `Show the details of an entry. The parent folder id is required because
the server only lists folders; use "" for the root.

Examples:
  notanas info "" drive
  notanas info r1 report.pdf`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			n := nav.New(a.client, nav.Options{EventBus: a.bus, Logger: a.logger})
			if err := n.Open(GetContext(), args[0]); err != nil {
				return err
			}
			entry, ok := findEntry(n, args[1])
			if !ok {
				return fmt.Errorf("%q not found in folder %q", args[1], args[0])
			}
			fmt.Fprint(cmd.OutOrStdout(), actions.Details(entry))
			return nil
		},
	}
	return cmd
}

// findEntry looks an entry up in the current listing by id, then by name.
func findEntry(n *nav.Navigator, ref string) (models.FileEntry, bool) {
	if e, ok := n.Listing().FindByID(ref); ok {
		return e, true
	}
	return n.Listing().FindByName(ref)
}
