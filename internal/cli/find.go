package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/term"

	"github.com/notanas/notanas-cli/internal/events"
	"github.com/notanas/notanas-cli/internal/state"
)

// Keys handled while searching as you type.
const (
	keyCtrlC     = 3
	keyCtrlD     = 4
	keyBackspace = 8
	keyEscape    = 27
	keyDelete    = 127
)

// crlfWriter translates "\n" to "\r\n" for a terminal in raw mode.
type crlfWriter struct {
	w io.Writer
}

func (c crlfWriter) Write(p []byte) (int, error) {
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}

// write prints text to the shell output. Safe for the search renderer.
func (s *shell) write(text string) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	var w io.Writer = s.out
	if s.raw {
		w = crlfWriter{w: s.out}
	}
	io.WriteString(w, text)
}

// enterRaw switches an interactive terminal to raw mode so that every
// keystroke reaches find. It is a no-op for piped input.
func (s *shell) enterRaw() (restore func()) {
	if s.tty == nil {
		return func() {}
	}
	fd := int(s.tty.Fd())
	old, err := term.MakeRaw(fd)
	if err != nil {
		s.app.logger.Debug().Err(err).Msg("Raw mode unavailable, reading keys line-buffered")
		return func() {}
	}
	s.outMu.Lock()
	s.raw = true
	s.outMu.Unlock()
	return func() {
		term.Restore(fd, old)
		s.outMu.Lock()
		s.raw = false
		s.outMu.Unlock()
	}
}

// find searches the whole server while the query is typed. Each keystroke
// reschedules the debounced search; results are rendered from the event bus
// as they are installed. Enter keeps the results on screen, Esc or Ctrl-C
// abandons the search.
func (s *shell) find(ctx context.Context, initial string) error {
	restore := s.enterRaw()
	defer restore()

	bus := s.app.bus
	results := bus.Subscribe(events.EventSearchResults)
	failures := bus.Subscribe(events.EventListingError)
	defer bus.Unsubscribe(events.EventSearchResults, results)
	defer bus.Unsubscribe(events.EventListingError, failures)

	stop := make(chan struct{})
	done := make(chan struct{})
	go s.renderSearch(results, failures, stop, done)

	if s.raw {
		s.write("find (Enter to keep, Esc to cancel)\n")
	}
	query, commit, err := s.readQuery(initial)
	if commit {
		s.searcher.Flush()
	} else {
		s.searcher.Type("")
	}
	close(stop)
	<-done

	if err != nil {
		return err
	}
	if s.raw {
		s.write("\n")
	}
	if commit && query == "" {
		s.write("(no query)\n")
	}
	return ctx.Err()
}

// readQuery collects keystrokes until Enter (commit) or Esc/Ctrl-C (cancel).
// End of input commits what was typed.
func (s *shell) readQuery(initial string) (string, bool, error) {
	query := []rune(initial)
	s.setFindQuery(string(query))
	if initial != "" {
		s.searcher.Type(initial)
	}

	for {
		r, _, err := s.in.ReadRune()
		if err == io.EOF {
			return string(query), true, nil
		}
		if err != nil {
			return "", false, err
		}

		switch {
		case r == '\r' || r == '\n':
			return string(query), true, nil
		case r == keyEscape || r == keyCtrlC || r == keyCtrlD:
			return "", false, nil
		case r == keyDelete || r == keyBackspace:
			if len(query) == 0 {
				continue
			}
			query = query[:len(query)-1]
		case unicode.IsPrint(r):
			query = append(query, r)
		default:
			continue
		}
		s.setFindQuery(string(query))
		s.searcher.Type(string(query))
	}
}

// setFindQuery records the query being typed and redraws the input line.
func (s *shell) setFindQuery(q string) {
	s.outMu.Lock()
	s.findQuery = q
	s.outMu.Unlock()
	s.redrawQuery()
}

func (s *shell) redrawQuery() {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	if s.raw {
		fmt.Fprintf(s.out, "\r\033[Kfind: %s", s.findQuery)
	}
}

// renderSearch prints search results and failures until stop is closed, then
// prints whatever was already published and closes done.
func (s *shell) renderSearch(results, failures <-chan events.Event, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case e, ok := <-results:
			if !ok {
				results = nil
				continue
			}
			s.showSearchEvent(e)
		case e, ok := <-failures:
			if !ok {
				failures = nil
				continue
			}
			s.showSearchEvent(e)
		case <-stop:
			for {
				select {
				case e, ok := <-results:
					if !ok {
						return
					}
					s.showSearchEvent(e)
				case e, ok := <-failures:
					if !ok {
						return
					}
					s.showSearchEvent(e)
				default:
					return
				}
			}
		}
	}
}

func (s *shell) showSearchEvent(e events.Event) {
	le, ok := e.(*events.ListingEvent)
	if !ok || le.Source != state.SourceSearch {
		return
	}
	if le.Error != nil {
		s.write(fmt.Sprintf("\n! search failed: %s\n", describeError(le.Error)))
		s.redrawQuery()
		return
	}

	res := s.searcher.Results()
	if res.Query() != le.Query {
		// A newer search was installed; its own event follows.
		return
	}
	entries := res.Items()
	var buf strings.Builder
	fmt.Fprintf(&buf, "\nresults for %q:\n", le.Query)
	printEntries(&buf, entries)
	s.write(buf.String())
	s.redrawQuery()
}
