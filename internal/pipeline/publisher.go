package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tinoosan/contentd/internal/data"
)

const stagePublisher = "Publisher"

// Publisher finalizes a run that produced new content: it checks the final
// artifact is in place for downstream consumers and, when the source is
// configured with deleteDownloadedContent, clears the intermediate
// downloads-folder artifacts.
type Publisher struct{}

func NewPublisher() *Publisher { return &Publisher{} }

func (p *Publisher) Name() string { return stagePublisher }

func (p *Publisher) Handle(_ context.Context, uc *data.UpdaterContext) error {
	final := uc.LastPath()
	if final == "" {
		// Unchanged content; nothing to publish.
		return nil
	}

	if _, err := os.Stat(final); err != nil {
		uc.PushStageStatus(stagePublisher, data.StatusFail)
		return fmt.Errorf("%w: final artifact %s: %v", data.ErrFileSystem, final, err)
	}

	if uc.Config.DeleteDownloadedContent() {
		if err := clearFolder(uc.DownloadsFolder, final); err != nil {
			uc.PushStageStatus(stagePublisher, data.StatusFail)
			return err
		}
	}

	uc.PushStageStatus(stagePublisher, data.StatusOK)
	return nil
}

// clearFolder removes every entry under dir except keep (the final artifact
// may live in the downloads folder for raw uncompressed sources).
func clearFolder(dir, keep string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", data.ErrFileSystem, dir, err)
	}
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		if p == keep {
			continue
		}
		if err := os.RemoveAll(p); err != nil {
			return fmt.Errorf("%w: remove %s: %v", data.ErrFileSystem, p, err)
		}
	}
	return nil
}
