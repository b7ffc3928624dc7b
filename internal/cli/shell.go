package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/notanas/notanas-cli/internal/actions"
	"github.com/notanas/notanas-cli/internal/download"
	"github.com/notanas/notanas-cli/internal/events"
	"github.com/notanas/notanas-cli/internal/models"
	"github.com/notanas/notanas-cli/internal/nav"
	"github.com/notanas/notanas-cli/internal/otl"
	"github.com/notanas/notanas-cli/internal/progress"
	"github.com/notanas/notanas-cli/internal/search"
	"github.com/notanas/notanas-cli/internal/session"
)

const shellHelp = `Commands:
  ls                       list the current folder (honours the filter)
  cd <name|id>             open a folder; "cd .." goes back, "cd /" opens the root
  back                     go back one folder
  refresh                  reload the current folder
  filter [text]            filter by name ("folder" shows folders); no text clears it
  search <query>           search the whole server
  find [text]              search as you type; Enter keeps the results, Esc cancels
  info <name|id>           show entry details
  get <name|id> [dir]      download a file
  rm <name|id>             delete an entry
  otl <name|id> [dur] [n]  create a one-time link
  copy                     copy the last one-time link
  pwd                      show the folder history
  help                     show this help
  exit                     leave the browser`

// errExit ends the shell loop.
var errExit = errors.New("exit")

// shell is the interactive file browser.
type shell struct {
	app      *app
	nav      *nav.Navigator
	searcher *search.Searcher
	actions  *actions.Service
	dialog   *otl.Dialog
	clip     otl.Clipboard

	in      *bufio.Reader
	tty     *os.File // set when in is an interactive terminal
	out     io.Writer
	filter  string
	names   map[string]string // folder id -> name, for pwd
	confirm func(question string) bool

	// Published by the session guard when the session ends.
	expired, required <-chan events.Event

	outMu     sync.Mutex // guards out, raw and findQuery while find renders results
	raw       bool
	findQuery string
}

func newShell(ctx context.Context, a *app, in io.Reader, out io.Writer, indicator nav.Loader, dl download.Options) *shell {
	n := nav.New(a.client, nav.Options{EventBus: a.bus, Logger: a.logger, Indicator: indicator})
	sh := &shell{
		app:      a,
		nav:      n,
		searcher: search.NewSearcher(ctx, a.client, search.Options{
			Debounce: a.cfg.SearchDebounce(),
			EventBus: a.bus,
			Logger:   a.logger,
		}),
		actions:  actions.NewService(a.client, n, a.bus, a.logger, dl),
		dialog:   otl.NewDialog(a.client, a.guard.ServerURL(), a.bus, a.logger),
		clip:     clipboardFor(out),
		in:       bufio.NewReader(in),
		out:      out,
		names:    map[string]string{models.RootID: ""},
		confirm:  confirm,
		expired:  a.bus.Subscribe(events.EventSessionExpired),
		required: a.bus.Subscribe(events.EventSessionRequired),
	}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		sh.tty = f
	}
	return sh
}

// newBrowseCmd creates the 'browse' command.
func newBrowseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Interactive file browser",
		Long: `Open an interactive shell on the server's folder tree.

Type "help" inside the shell for the list of commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ind := progress.NewIndicator(progress.NewBarRenderer("loading"))
			defer ind.Stop()

			sh := newShell(GetContext(), a, os.Stdin, cmd.OutOrStdout(), ind, downloadOptions())
			return sh.run(GetContext())
		},
	}
}

// run loads the root and executes commands until exit, EOF or a lost session.
func (s *shell) run(ctx context.Context) error {
	defer s.searcher.Stop()
	defer s.dialog.Close()

	err := s.nav.Open(ctx, models.RootID)
	if lost := s.sessionLost(); lost != nil {
		return lost
	}
	if err != nil {
		fmt.Fprintf(s.out, "! %s\n", describeError(err))
	} else {
		s.list()
	}

	for {
		fmt.Fprintf(s.out, "%s> ", s.prompt())
		line, err := readLine(s.in)
		if err != nil {
			if err == io.EOF {
				fmt.Fprintln(s.out)
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err = s.exec(ctx, line)
		if lost := s.sessionLost(); lost != nil {
			return lost
		}
		switch {
		case err == nil:
		case errors.Is(err, errExit):
			return nil
		case session.IsAuthError(err):
			fmt.Fprintf(s.out, "! %s\n", describeError(err))
			return err
		default:
			fmt.Fprintf(s.out, "! %s\n", describeError(err))
		}
	}
}

// sessionLost reports a session.expired or session.required event published
// by the guard since the last check, printing what the user has to do.
func (s *shell) sessionLost() error {
	var err error
	select {
	case e, ok := <-s.expired:
		if ok && e != nil {
			err = session.ErrUnauthorized
		}
	case e, ok := <-s.required:
		if ok && e != nil {
			err = session.ErrNotLoggedIn
		}
	default:
	}
	if err != nil {
		fmt.Fprintf(s.out, "! %s\n", describeError(err))
	}
	return err
}

func (s *shell) prompt() string {
	name := s.names[s.nav.Current()]
	if name == "" {
		name = "/"
	}
	if s.filter != "" {
		return fmt.Sprintf("%s [%s]", name, s.filter)
	}
	return name
}

// exec runs one command line.
func (s *shell) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := fields[0], fields[1:]
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), cmd))

	switch cmd {
	case "help", "?":
		fmt.Fprintln(s.out, shellHelp)
	case "exit", "quit":
		return errExit
	case "ls":
		s.list()
	case "cd":
		return s.cd(ctx, rest)
	case "back":
		return s.navigate(s.nav.GoBack(ctx))
	case "refresh":
		return s.navigate(s.nav.Refresh(ctx))
	case "filter":
		s.filter = rest
		s.list()
	case "search":
		return s.search(ctx, rest)
	case "find":
		return s.find(ctx, rest)
	case "info":
		entry, err := s.lookup(rest)
		if err != nil {
			return err
		}
		fmt.Fprint(s.out, actions.Details(entry))
	case "get":
		return s.get(ctx, args)
	case "rm":
		return s.rm(ctx, rest)
	case "otl":
		return s.otl(ctx, args)
	case "copy":
		if err := s.dialog.Copy(s.clip); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "✓ Link copied")
	case "pwd":
		s.pwd()
	default:
		return fmt.Errorf("unknown command %q (type help)", cmd)
	}
	return nil
}

// navigate prints the listing after a navigation.
func (s *shell) navigate(err error) error {
	if err != nil && !errors.Is(err, nav.ErrSuperseded) {
		return err
	}
	s.list()
	return nil
}

func (s *shell) list() {
	listing := s.nav.Listing()
	if err := listing.Err(); err != nil {
		fmt.Fprintf(s.out, "! listing may be stale: %s\n", describeError(err))
	}
	printEntries(s.out, search.Filter(listing.Items(), s.filter))
}

func (s *shell) cd(ctx context.Context, ref string) error {
	switch ref {
	case "", "/":
		return s.navigate(s.nav.Open(ctx, models.RootID))
	case "..":
		return s.navigate(s.nav.GoBack(ctx))
	}
	entry, err := s.lookup(ref)
	if err != nil {
		return err
	}
	if !entry.IsDir {
		return fmt.Errorf("%s is not a folder", entry.Name)
	}
	s.names[entry.ID] = entry.Name
	s.filter = ""
	return s.navigate(s.nav.OpenEntry(ctx, entry))
}

// lookup finds an entry of the current listing by id or name.
func (s *shell) lookup(ref string) (models.FileEntry, error) {
	if ref == "" {
		return models.FileEntry{}, errors.New("name or id required")
	}
	entry, ok := findEntry(s.nav, ref)
	if !ok {
		return models.FileEntry{}, fmt.Errorf("%q not found in this folder", ref)
	}
	return entry, nil
}

func (s *shell) search(ctx context.Context, query string) error {
	if query == "" {
		return errors.New("search query required")
	}
	entries, err := s.searcher.Now(ctx, query)
	if err != nil {
		return err
	}
	printEntries(s.out, entries)
	if len(entries) > 0 {
		fmt.Fprintf(s.out, "types: %s\n", strings.Join(search.Extensions(entries), ", "))
	}
	return nil
}

func (s *shell) get(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: get <name|id> [dir]")
	}
	entry, err := s.lookup(args[0])
	if err != nil {
		return err
	}
	if entry.IsDir {
		return fmt.Errorf("%s is a folder", entry.Name)
	}
	dir := s.app.cfg.DownloadDir
	if len(args) > 1 {
		dir = args[1]
	}
	res, err := s.actions.Download(ctx, entry.ID, dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "saved %s\n", res.Path)
	return nil
}

func (s *shell) rm(ctx context.Context, ref string) error {
	entry, err := s.lookup(ref)
	if err != nil {
		return err
	}
	if !s.confirm(fmt.Sprintf("Delete %s?", entry.Name)) {
		fmt.Fprintln(s.out, "Aborted.")
		return nil
	}
	if err := s.actions.Delete(ctx, entry.ID); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "✓ Deleted %s\n", entry.Name)
	s.list()
	return nil
}

func (s *shell) otl(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: otl <name|id> [lifetime] [downloads]")
	}
	entry, err := s.lookup(args[0])
	if err != nil {
		return err
	}

	opts := otl.Options{Expiry: s.app.cfg.OTLExpiry(), MaxDownloads: s.app.cfg.OTLMaxDownloads}
	if len(args) > 1 {
		if opts.Expiry, err = time.ParseDuration(args[1]); err != nil {
			return fmt.Errorf("invalid lifetime %q: %w", args[1], err)
		}
	}
	if len(args) > 2 {
		if opts.MaxDownloads, err = strconv.Atoi(args[2]); err != nil {
			return fmt.Errorf("invalid download count %q: %w", args[2], err)
		}
	}

	fmt.Fprintln(s.out, "generating link...")
	if err := s.dialog.Generate(ctx, entry.ID, opts); err != nil {
		return err
	}
	fmt.Fprintln(s.out, s.dialog.Link())
	fmt.Fprintf(s.out, "valid for %s, %d download(s); type copy to copy it\n", opts.Expiry, opts.MaxDownloads)
	return nil
}

func (s *shell) pwd() {
	ids := s.nav.History().IDs()
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == models.RootID {
			continue
		}
		name := s.names[id]
		if name == "" {
			name = id
		}
		parts = append(parts, name)
	}
	fmt.Fprintf(s.out, "/%s\n", strings.Join(parts, "/"))
}
