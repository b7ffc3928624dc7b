package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/notanas/notanas-cli/internal/otl"
)

// newOTLCmd creates the 'otl' command group.
func newOTLCmd() *cobra.Command {
	otlCmd := &cobra.Command{
		Use:   "otl",
		Short: "One-time download links",
		Long: `Create and redeem one-time download links.

A one-time link lets someone without an account download a single file a
limited number of times before it expires.

Commands:
  create - Create a link for a file
  get    - Download the file behind a link (no login needed)`,
	}

	otlCmd.AddCommand(newOTLCreateCmd())
	otlCmd.AddCommand(newOTLGetCmd())
	return otlCmd
}

// clipboardFor picks the clipboard for w: the terminal clipboard when w is a
// terminal, plain output otherwise.
func clipboardFor(w io.Writer) otl.Clipboard {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return otl.TerminalClipboard{W: f}
	}
	return otl.PrintClipboard{W: w}
}

// newOTLCreateCmd creates the 'otl create' command.
func newOTLCreateCmd() *cobra.Command {
	var expires time.Duration
	var maxDownloads int
	var copyLink bool
	var showQR bool
	var qrPNG string

	cmd := &cobra.Command{
		Use:   "create <file-id>",
		Short: "Create a one-time link for a file",
		Long: `Create a one-time download link for a file.

Defaults come from otl_expiry_minutes and otl_max_downloads in the config
(60 minutes and 5 downloads unless changed).

Examples:
  notanas otl create f1
  notanas otl create f1 --expires 24h --max-downloads 1 --qr
  notanas otl create f1 --copy`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			opts := otl.Options{Expiry: a.cfg.OTLExpiry(), MaxDownloads: a.cfg.OTLMaxDownloads}
			if cmd.Flags().Changed("expires") {
				opts.Expiry = expires
			}
			if cmd.Flags().Changed("max-downloads") {
				opts.MaxDownloads = maxDownloads
			}

			d := otl.NewDialog(a.client, a.guard.ServerURL(), a.bus, a.logger)
			defer d.Close()
			if err := d.Generate(GetContext(), args[0], opts); err != nil {
				return err
			}
			link := d.Link()
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, link)
			fmt.Fprintf(cmd.ErrOrStderr(), "Valid for %s, %d download(s).\n", opts.Expiry, opts.MaxDownloads)

			if showQR {
				qr, err := otl.QRCode(link)
				if err != nil {
					return err
				}
				fmt.Fprint(out, qr)
			}
			if qrPNG != "" {
				if err := otl.WriteQRPNG(link, qrPNG, 0); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "✓ QR code written to %s\n", qrPNG)
			}
			if copyLink {
				if err := d.Copy(otl.TerminalClipboard{W: os.Stderr}); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "✓ Link copied to clipboard")
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&expires, "expires", 0, "Link lifetime, e.g. 30m or 24h (default from config)")
	cmd.Flags().IntVar(&maxDownloads, "max-downloads", 0, "Number of downloads allowed (default from config)")
	cmd.Flags().BoolVar(&copyLink, "copy", false, "Copy the link to the clipboard (OSC 52 terminals)")
	cmd.Flags().BoolVar(&showQR, "qr", false, "Print the link as a QR code")
	cmd.Flags().StringVar(&qrPNG, "qr-png", "", "Write the link as a QR code PNG to this path")
	return cmd
}

// newOTLGetCmd creates the 'otl get' command.
func newOTLGetCmd() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "get <link-or-token>",
		Short: "Download the file behind a one-time link",
		Long: `Download the file behind a one-time link. No login is needed.

A full link carries its server; a bare token uses --server or the
configured server. Each attempt uses up one download, so failed attempts
are not retried.

Examples:
  notanas otl get http://nas.local:3000/onetimelink/3f2a...
  notanas otl get 3f2a... --server http://nas.local:3000 -o ./in`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if outputDir == "" {
				outputDir = a.cfg.DownloadDir
			}
			res, err := otl.Redeem(GetContext(), a.client, a.cfg.ServerURL, args[0], outputDir, downloadOptions())
			if err != nil {
				return err
			}
			a.logger.Info().Str("path", res.Path).Int64("bytes", res.Bytes).Msg("One-time link redeemed")
			if quiet {
				fmt.Fprintln(cmd.OutOrStdout(), res.Path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "outdir", "o", "", "Destination directory (default: download_dir from config)")
	return cmd
}
