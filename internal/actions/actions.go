// Package actions implements operations on a single file or folder: delete,
// download and details.
package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/notanas/notanas-cli/internal/api"
	"github.com/notanas/notanas-cli/internal/constants"
	"github.com/notanas/notanas-cli/internal/download"
	"github.com/notanas/notanas-cli/internal/events"
	"github.com/notanas/notanas-cli/internal/logging"
	"github.com/notanas/notanas-cli/internal/models"
	"github.com/notanas/notanas-cli/internal/nav"
)

// Remote is the part of the API client the actions need.
type Remote interface {
	Delete(ctx context.Context, fileID string) error
	Download(ctx context.Context, fileID string) (*api.Payload, error)
}

// Refresher re-fetches the listing on display.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Service runs file actions and keeps the current listing in sync.
type Service struct {
	remote    Remote
	refresher Refresher
	bus       *events.EventBus
	logger    *logging.Logger
	download  download.Options
}

// NewService creates a Service. refresher, bus and logger may be nil.
func NewService(remote Remote, refresher Refresher, bus *events.EventBus, logger *logging.Logger, opts download.Options) *Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Service{remote: remote, refresher: refresher, bus: bus, logger: logger, download: opts}
}

// Delete removes fileID on the server, then refreshes the current folder.
// A failed delete, auth errors included, skips the refresh.
func (s *Service) Delete(ctx context.Context, fileID string) error {
	if err := s.remote.Delete(ctx, fileID); err != nil {
		s.logger.Error().Err(err).Str("file_id", fileID).Msg("Delete failed")
		return err
	}
	s.logger.Info().Str("file_id", fileID).Msg("Deleted")
	s.bus.PublishFile(events.EventFileDeleted, fileID, "", "")

	if s.refresher == nil {
		return nil
	}
	if err := s.refresher.Refresh(ctx); err != nil && !errors.Is(err, nav.ErrSuperseded) {
		return fmt.Errorf("deleted, but failed to refresh listing: %w", err)
	}
	return nil
}

// Download saves fileID into destDir and returns where it went.
func (s *Service) Download(ctx context.Context, fileID, destDir string) (*download.Result, error) {
	payload, err := s.remote.Download(ctx, fileID)
	if err != nil {
		s.logger.Error().Err(err).Str("file_id", fileID).Msg("Download failed")
		return nil, err
	}
	defer payload.Close()

	res, err := download.Save(ctx, download.Source{
		Body:               payload.Body,
		ContentDisposition: payload.ContentDisposition,
		Size:               payload.Size,
	}, fileID, destDir, s.download)
	if err != nil {
		s.logger.Error().Err(err).Str("file_id", fileID).Msg("Download failed")
		return nil, err
	}

	s.logger.Info().Str("file_id", fileID).Str("path", res.Path).Int64("bytes", res.Bytes).Msg("Downloaded")
	s.bus.PublishFile(events.EventFileDownload, fileID, res.Name, res.Path)
	return res, nil
}

// Details formats the metadata of entry for display.
func Details(entry models.FileEntry) string {
	var b strings.Builder
	row := func(label, value string) {
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(&b, "%-10s %s\n", label+":", value)
	}

	row("Name", entry.Name)
	row("ID", entry.ID)
	row("Type", entry.TypeLabel(constants.FolderLabel))
	if entry.IsDir {
		row("Kind", "folder")
	} else {
		row("Kind", "file")
	}
	row("Path", entry.Path)
	row("Parent", entry.Parent)
	modified := ""
	if !entry.LastMod.IsZero() {
		modified = entry.LastMod.Local().Format("2006-01-02 15:04:05")
	}
	row("Modified", modified)
	return b.String()
}
