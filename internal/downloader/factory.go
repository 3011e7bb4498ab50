package downloader

import (
	"fmt"

	"github.com/tinoosan/contentd/internal/data"
	"github.com/tinoosan/contentd/internal/pipeline"
)

// NewFromConfig selects and constructs the downloader strategy for the
// configured contentSource. The returned stage heads the update chain;
// later stages are appended identically regardless of strategy.
func NewFromConfig(cfg data.SourceConfig, fetcher Fetcher) (pipeline.Stage, error) {
	switch cfg.ContentSource() {
	case data.SourceAPI:
		return NewAPIDownloader(fetcher), nil
	case data.SourceCtiAPI:
		return NewCtiAPIDownloader(fetcher), nil
	case data.SourceFile:
		return NewFileDownloader(fetcher), nil
	case data.SourceOffline:
		return NewOfflineDownloader(), nil
	default:
		return nil, fmt.Errorf("%w: invalid contentSource %q", data.ErrInvalidConfig, cfg.String("contentSource"))
	}
}
