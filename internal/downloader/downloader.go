// Package downloader holds the acquisition strategies that head the update
// chain. Each strategy implements pipeline.Stage: on success it appends the
// new artifact path and an ok record; unchanged content appends an
// "unchanged" record and no path; failures append a fail record and abort
// the run.
package downloader

import (
	"context"

	"github.com/tinoosan/contentd/internal/data"
)

// Fetcher is the network transport capability the downloaders consume.
// internal/fetch provides the real implementation; tests substitute stubs.
type Fetcher interface {
	Download(ctx context.Context, url, dest string) error
	GetJSON(ctx context.Context, url string, dst any) error
}

// destFolder picks where an artifact lands: compressed artifacts go to the
// downloads folder for the decompressor to pick up, raw content straight to
// the contents folder.
func destFolder(uc *data.UpdaterContext) string {
	if uc.Config.CompressionType() != data.CompressionRaw {
		return uc.DownloadsFolder
	}
	return uc.ContentsFolder
}
