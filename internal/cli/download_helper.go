package cli

import (
	"context"
	"fmt"

	"github.com/notanas/notanas-cli/internal/actions"
	"github.com/notanas/notanas-cli/internal/download"
	"github.com/notanas/notanas-cli/internal/logging"
	"github.com/notanas/notanas-cli/internal/progress"
)

// downloadOptions renders a progress bar per file unless quiet is set.
func downloadOptions() download.Options {
	if quiet {
		return download.Options{}
	}
	return download.Options{
		NewProgress: func(name string, size int64) download.Progress {
			return progress.NewDownloadBar(name, size)
		},
	}
}

// executeFileDownload downloads fileIDs one after another into outputDir.
// It stops at the first auth error and otherwise reports every failure.
func executeFileDownload(ctx context.Context, fileIDs []string, outputDir string, svc *actions.Service, logger *logging.Logger) error {
	if len(fileIDs) == 0 {
		return fmt.Errorf("at least one file ID is required")
	}
	if outputDir == "" {
		outputDir = "."
	}

	logger.Info().Int("count", len(fileIDs)).Str("outdir", outputDir).Msg("Starting file download")

	var failed int
	var lastErr error
	for _, id := range fileIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := svc.Download(ctx, id, outputDir); err != nil {
			if isFatal(err) {
				return err
			}
			failed++
			lastErr = err
			fmt.Printf("✗ %s: %s\n", id, describeError(err))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d downloads failed: %w", failed, len(fileIDs), lastErr)
	}
	return nil
}
