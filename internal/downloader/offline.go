package downloader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tinoosan/contentd/internal/data"
	"github.com/tinoosan/contentd/internal/fp"
)

const stageOfflineDownloader = "OfflineDownloader"

// OfflineDownloader performs no network access: the content was provisioned
// out-of-band and the configured url points at a local file (with or
// without a file:// prefix). The file is copied into the working folders
// and deduped by content hash like any downloaded artifact.
type OfflineDownloader struct{}

func NewOfflineDownloader() *OfflineDownloader { return &OfflineDownloader{} }

func (d *OfflineDownloader) Name() string { return stageOfflineDownloader }

func (d *OfflineDownloader) Handle(_ context.Context, uc *data.UpdaterContext) error {
	if err := d.acquire(uc); err != nil {
		uc.PushStageStatus(stageOfflineDownloader, data.StatusFail)
		return err
	}
	return nil
}

func (d *OfflineDownloader) acquire(uc *data.UpdaterContext) error {
	src := strings.TrimPrefix(uc.Config.URL(), "file://")
	if src == "" {
		src = uc.Config.String("inputFile")
	}
	if src == "" {
		return fmt.Errorf("%w: offline source needs a local file path", data.ErrInvalidConfig)
	}

	dest := filepath.Join(destFolder(uc), uc.Config.ContentFileName())
	if err := copyFile(src, dest); err != nil {
		return err
	}

	hash, err := fp.SumFile(dest)
	if err != nil {
		return fmt.Errorf("%w: %v", data.ErrDownload, err)
	}
	if hash == uc.DownloadedFileHash {
		uc.PushStageStatus(stageOfflineDownloader, data.StatusUnchanged)
		return nil
	}

	uc.DownloadedFileHash = hash
	uc.AppendPath(dest)
	uc.PushStageStatus(stageOfflineDownloader, data.StatusOK)
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", data.ErrDownload, src, err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", data.ErrFileSystem, dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("%w: copy to %s: %v", data.ErrFileSystem, dest, err)
	}
	return nil
}
