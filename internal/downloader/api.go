package downloader

import (
	"context"

	"github.com/tinoosan/contentd/internal/data"
)

const stageAPIDownloader = "APIDownloader"

// APIDownloader fetches full content snapshots from an HTTP API endpoint.
// The acquisition flow matches FileDownloader: one URL, one artifact,
// dedup by content hash.
type APIDownloader struct {
	fetcher Fetcher
}

func NewAPIDownloader(f Fetcher) *APIDownloader {
	return &APIDownloader{fetcher: f}
}

func (d *APIDownloader) Name() string { return stageAPIDownloader }

func (d *APIDownloader) Handle(ctx context.Context, uc *data.UpdaterContext) error {
	if err := fetchAndDedup(ctx, d.fetcher, uc, stageAPIDownloader); err != nil {
		uc.PushStageStatus(stageAPIDownloader, data.StatusFail)
		return err
	}
	return nil
}
