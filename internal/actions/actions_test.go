package actions

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/notanas/notanas-cli/internal/api"
	"github.com/notanas/notanas-cli/internal/constants"
	"github.com/notanas/notanas-cli/internal/download"
	"github.com/notanas/notanas-cli/internal/events"
	apihttp "github.com/notanas/notanas-cli/internal/http"
	"github.com/notanas/notanas-cli/internal/models"
	"github.com/notanas/notanas-cli/internal/nastest"
	"github.com/notanas/notanas-cli/internal/nav"
	"github.com/notanas/notanas-cli/internal/session"
)

func setup(t *testing.T) (*nastest.Server, *api.Client, *nav.Navigator) {
	t.Helper()
	srv := nastest.NewServer()
	t.Cleanup(srv.Close)
	guard := session.NewGuard(nil, nil, nil)
	guard.SetServerURL(srv.URL)
	guard.SetToken(srv.IssueToken())
	client := api.NewClientWithHTTP(srv.Client(), guard, api.Options{
		Retry: apihttp.RetryOptions{MaxRetries: 1, WaitMin: time.Millisecond, WaitMax: 2 * time.Millisecond},
	})
	return srv, client, nav.New(client, nav.Options{})
}

func TestDeleteRefreshesCurrentFolder(t *testing.T) {
	srv, client, n := setup(t)
	ctx := context.Background()
	if err := n.Open(ctx, "r1"); err != nil {
		t.Fatal(err)
	}
	if n.Listing().Count() != 2 {
		t.Fatalf("expected 2 entries, got %d", n.Listing().Count())
	}
	listings := srv.Calls(constants.ChildrenPath)

	bus := events.NewEventBus(10)
	defer bus.Close()
	ch := bus.Subscribe(events.EventFileDeleted)

	svc := NewService(client, n, bus, nil, download.Options{})
	if err := svc.Delete(ctx, "f1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if srv.Calls(constants.ChildrenPath) != listings+1 {
		t.Error("delete must refetch the current folder")
	}
	if _, ok := n.Listing().FindByID("f1"); ok {
		t.Error("deleted entry still listed")
	}
	if got := n.History().IDs(); len(got) != 2 || got[1] != "r1" {
		t.Errorf("history changed: %q", got)
	}
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Error("no file.deleted event")
	}
}

func TestDeleteUnauthorizedSkipsRefresh(t *testing.T) {
	srv, client, n := setup(t)
	ctx := context.Background()
	if err := n.Open(ctx, "r1"); err != nil {
		t.Fatal(err)
	}
	srv.RevokeAll()
	calls := srv.TotalCalls()

	svc := NewService(client, n, nil, nil, download.Options{})
	if err := svc.Delete(ctx, "f1"); !errors.Is(err, session.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if srv.TotalCalls() != calls+1 {
		t.Errorf("expected only the delete request, got %d calls", srv.TotalCalls()-calls)
	}
}

func TestDeleteUnknownFile(t *testing.T) {
	_, client, n := setup(t)
	svc := NewService(client, n, nil, nil, download.Options{})
	err := svc.Delete(context.Background(), "nope")
	if api.StatusCode(err) == 0 {
		t.Fatalf("expected a server error, got %v", err)
	}
}

func TestDownload(t *testing.T) {
	_, client, _ := setup(t)
	dir := t.TempDir()
	svc := NewService(client, nil, nil, nil, download.Options{})

	res, err := svc.Download(context.Background(), "f2", dir)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if res.Name != "notes.txt" {
		t.Errorf("name = %q", res.Name)
	}
	data, _ := os.ReadFile(res.Path)
	if string(data) != "remember the milk" {
		t.Errorf("content = %q", data)
	}
}

func TestDownloadWithoutContentDisposition(t *testing.T) {
	srv, client, _ := setup(t)
	srv.OmitContentDisposition()
	svc := NewService(client, nil, nil, nil, download.Options{})

	res, err := svc.Download(context.Background(), "f2", t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if res.Name != "downloaded-file-f2" {
		t.Errorf("name = %q", res.Name)
	}
}

func TestDetails(t *testing.T) {
	out := Details(models.FileEntry{ID: "d1", Name: "Docs", IsDir: true, Parent: "drive"})
	for _, want := range []string{"Name:      Docs", "Type:      Folder", "Kind:      folder", "Parent:    drive", "Modified:  -"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}

	out = Details(models.FileEntry{ID: "f1", Name: "report.pdf", Ext: ".pdf", LastMod: time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)})
	if !strings.Contains(out, "Type:      pdf") || !strings.Contains(out, "2024-03-01 12:00:00") {
		t.Errorf("unexpected details:\n%s", out)
	}
}
