package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/notanas/notanas-cli/internal/constants"
	apihttp "github.com/notanas/notanas-cli/internal/http"
	"github.com/notanas/notanas-cli/internal/models"
	"github.com/notanas/notanas-cli/internal/nastest"
	"github.com/notanas/notanas-cli/internal/session"
)

func newTestClient(t *testing.T, srv *nastest.Server, loggedIn bool) *Client {
	t.Helper()
	guard := session.NewGuard(nil, nil, nil)
	guard.SetServerURL(srv.URL)
	if loggedIn {
		guard.SetToken(srv.IssueToken())
	}
	return NewClientWithHTTP(srv.Client(), guard, Options{
		Retry: apihttp.RetryOptions{MaxRetries: 1, WaitMin: time.Millisecond, WaitMax: 2 * time.Millisecond},
	})
}

func TestNewClientRejectsNilGuard(t *testing.T) {
	if _, err := NewClient(nil, nil, nil); err == nil {
		t.Fatal("expected error for nil guard")
	}
}

func TestListRootAndChildren(t *testing.T) {
	srv := nastest.NewServer()
	defer srv.Close()
	c := newTestClient(t, srv, true)

	root, err := c.List(context.Background(), models.RootID)
	if err != nil {
		t.Fatalf("List root failed: %v", err)
	}
	if len(root) != 1 || root[0].ID != "r1" {
		t.Fatalf("unexpected root listing %+v", root)
	}

	children, err := c.List(context.Background(), "r1")
	if err != nil {
		t.Fatalf("List r1 failed: %v", err)
	}
	if len(children) != 2 {
		t.Errorf("Got %d items, want 2", len(children))
	}
	if srv.Calls(constants.RootListingPath) != 1 || srv.Calls(constants.ChildrenPath) != 1 {
		t.Error("expected one call per endpoint")
	}
}

func TestListDropsEntriesWithoutID(t *testing.T) {
	srv := nastest.NewServer()
	defer srv.Close()
	srv.SetChildren("r1", []models.FileEntry{{ID: "", Name: "ghost"}, {ID: "a", Name: "a.txt"}})
	c := newTestClient(t, srv, true)

	entries, err := c.List(context.Background(), "r1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "a" {
		t.Errorf("expected only the entry with an id, got %+v", entries)
	}
}

func TestListSharesConcurrentRequests(t *testing.T) {
	srv := nastest.NewServer()
	defer srv.Close()
	c := newTestClient(t, srv, true)
	release := srv.Hold("r1")

	var wg sync.WaitGroup
	results := make([][]models.FileEntry, 3)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.List(context.Background(), "r1")
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	release()
	wg.Wait()

	if got := srv.Calls(constants.ChildrenPath); got != 1 {
		t.Errorf("expected 1 shared request, got %d", got)
	}
	results[0][0].Name = "mutated"
	if results[1][0].Name == "mutated" {
		t.Error("callers must receive independent copies")
	}
}

func waitForCalls(t *testing.T, srv *nastest.Server, path string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for srv.Calls(path) < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d calls on %s, got %d", n, path, srv.Calls(path))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestListAfterDeleteSendsNewRequest(t *testing.T) {
	srv := nastest.NewServer()
	defer srv.Close()
	c := newTestClient(t, srv, true)
	ctx := context.Background()
	release := srv.Hold("r1")
	defer release()

	before := make(chan []models.FileEntry, 1)
	go func() {
		entries, _ := c.List(ctx, "r1")
		before <- entries
	}()
	waitForCalls(t, srv, constants.ChildrenPath, 1)

	if err := c.Delete(ctx, "f1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	after := make(chan []models.FileEntry, 1)
	go func() {
		entries, _ := c.List(ctx, "r1")
		after <- entries
	}()
	waitForCalls(t, srv, constants.ChildrenPath, 2)
	release()

	if got := len(<-before); got != 2 {
		t.Errorf("listing sent before the delete: %d entries, want 2", got)
	}
	for _, e := range <-after {
		if e.ID == "f1" {
			t.Error("listing after the delete still shows the deleted file")
		}
	}
}

func TestListCancelledCallerDoesNotFailOthers(t *testing.T) {
	srv := nastest.NewServer()
	defer srv.Close()
	c := newTestClient(t, srv, true)
	release := srv.Hold("r1")
	defer release()

	ctx1, cancel1 := context.WithCancel(context.Background())
	defer cancel1()
	first := make(chan error, 1)
	go func() {
		_, err := c.List(ctx1, "r1")
		first <- err
	}()
	waitForCalls(t, srv, constants.ChildrenPath, 1)

	type result struct {
		entries []models.FileEntry
		err     error
	}
	second := make(chan result, 1)
	go func() {
		entries, err := c.List(context.Background(), "r1")
		second <- result{entries, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancel1()
	if err := <-first; !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled caller got %v, want context.Canceled", err)
	}
	release()

	res := <-second
	if res.err != nil {
		t.Fatalf("live caller failed: %v", res.err)
	}
	if len(res.entries) != 2 {
		t.Errorf("live caller got %d entries, want 2", len(res.entries))
	}
	if got := srv.Calls(constants.ChildrenPath); got != 1 {
		t.Errorf("expected the request to be shared, got %d calls", got)
	}
}

func TestPreconditionFailureSendsNothing(t *testing.T) {
	srv := nastest.NewServer()
	defer srv.Close()
	c := newTestClient(t, srv, false)

	_, err := c.List(context.Background(), "r1")
	if !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}
	if srv.TotalCalls() != 0 {
		t.Errorf("expected no network calls, got %d", srv.TotalCalls())
	}
}

func TestUnauthorizedInvalidatesSession(t *testing.T) {
	srv := nastest.NewServer()
	defer srv.Close()
	c := newTestClient(t, srv, true)
	srv.RevokeAll()

	_, err := c.List(context.Background(), "r1")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if c.Guard().LoggedIn() {
		t.Error("expected session cleared")
	}
	if got := srv.Calls(constants.ChildrenPath); got != 1 {
		t.Errorf("401 must not be retried, got %d calls", got)
	}

	before := srv.TotalCalls()
	if _, err := c.Search(context.Background(), "x"); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("expected ErrNotLoggedIn after invalidation, got %v", err)
	}
	if srv.TotalCalls() != before {
		t.Error("no further calls expected after logout")
	}
}

func TestServerErrorLeavesSession(t *testing.T) {
	srv := nastest.NewServer()
	defer srv.Close()
	c := newTestClient(t, srv, true)
	srv.SetStatus(constants.ChildrenPath, http.StatusForbidden)

	_, err := c.List(context.Background(), "r1")
	var se *ServerError
	if !errors.As(err, &se) {
		t.Fatalf("expected *ServerError, got %v", err)
	}
	if se.Status != http.StatusForbidden || StatusCode(err) != http.StatusForbidden {
		t.Errorf("expected 403, got %d", se.Status)
	}
	if !c.Guard().LoggedIn() {
		t.Error("non-401 errors must not log out")
	}
}

func TestNetworkError(t *testing.T) {
	srv := nastest.NewServer()
	c := newTestClient(t, srv, true)
	srv.Close()

	_, err := c.List(context.Background(), "r1")
	if !IsNetworkError(err) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
}

func TestSearchEscapesQuery(t *testing.T) {
	srv := nastest.NewServer()
	defer srv.Close()
	c := newTestClient(t, srv, true)

	hits, err := c.Search(context.Background(), "report")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "f1" {
		t.Errorf("unexpected hits %+v", hits)
	}

	if _, err := c.Search(context.Background(), "a b/c"); err != nil {
		t.Fatalf("Search with special characters failed: %v", err)
	}
	q := srv.SearchQueries()
	if q[len(q)-1] != "a b/c" {
		t.Errorf("expected query to round-trip, got %q", q[len(q)-1])
	}
}

func TestCreateOTLAndRedeemLimit(t *testing.T) {
	srv := nastest.NewServer()
	defer srv.Close()
	c := newTestClient(t, srv, true)

	token, err := c.CreateOTL(context.Background(), models.OTLGrant{FileID: "f1", Expiry: time.Hour, MaxDownloads: 5})
	if err != nil {
		t.Fatalf("CreateOTL failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected token")
	}

	anon := newTestClient(t, srv, false)
	for i := 0; i < 5; i++ {
		p, err := anon.RedeemOTL(context.Background(), srv.URL, token)
		if err != nil {
			t.Fatalf("redeem %d failed: %v", i+1, err)
		}
		data, _ := io.ReadAll(p.Body)
		p.Close()
		if !strings.Contains(string(data), "quarterly report") {
			t.Errorf("unexpected payload %q", data)
		}
	}

	_, err = anon.RedeemOTL(context.Background(), srv.URL, token)
	if !errors.Is(err, ErrOTLExhausted) {
		t.Fatalf("expected ErrOTLExhausted on 6th redeem, got %v", err)
	}
	if got := srv.Calls(constants.OTLRedeemPath); got != 6 {
		t.Errorf("expected 6 redeem calls (no retries), got %d", got)
	}
}

func TestCreateOTLUnknownFile(t *testing.T) {
	srv := nastest.NewServer()
	defer srv.Close()
	c := newTestClient(t, srv, true)

	_, err := c.CreateOTL(context.Background(), models.OTLGrant{FileID: "nope", Expiry: time.Hour, MaxDownloads: 1})
	if StatusCode(err) != http.StatusNotFound {
		t.Errorf("expected 404 ServerError, got %v", err)
	}
}

func TestDeleteAndDownload(t *testing.T) {
	srv := nastest.NewServer()
	defer srv.Close()
	c := newTestClient(t, srv, true)

	p, err := c.Download(context.Background(), "f2")
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	data, _ := io.ReadAll(p.Body)
	p.Close()
	if string(data) != "remember the milk" {
		t.Errorf("unexpected content %q", data)
	}
	if !strings.Contains(p.ContentDisposition, "notes.txt") {
		t.Errorf("expected filename header, got %q", p.ContentDisposition)
	}
	if p.Size != int64(len(data)) {
		t.Errorf("expected size %d, got %d", len(data), p.Size)
	}

	if err := c.Delete(context.Background(), "f1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	entries, _ := c.List(context.Background(), "r1")
	for _, e := range entries {
		if e.ID == "f1" {
			t.Error("deleted entry still listed")
		}
	}
}

func TestLogin(t *testing.T) {
	srv := nastest.NewServer()
	defer srv.Close()
	c := newTestClient(t, srv, false)

	tok, err := c.Login(context.Background(), srv.URL, nastest.Username, nastest.Password)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if tok == "" {
		t.Fatal("expected token")
	}

	if _, err := c.Login(context.Background(), srv.URL, nastest.Username, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := c.Login(context.Background(), "", "a", "b"); err == nil {
		t.Error("expected error without server URL")
	}
}
