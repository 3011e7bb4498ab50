package downloader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tinoosan/contentd/internal/data"
)

const stageCtiAPIDownloader = "CtiApiDownloader"

const defaultPageSize = 100

// ctiPage is one page of the offset-paginated CTI consumer endpoint.
type ctiPage struct {
	Data       []json.RawMessage `json:"data"`
	LastOffset int               `json:"last_offset"`
}

// CtiAPIDownloader performs incremental, paginated fetches against a CTI
// API. The last processed offset persists in the state store under
// data.KeyLastOffset and advances after each page is written, so a crash
// between fetch and persist re-fetches at most the last page.
type CtiAPIDownloader struct {
	fetcher Fetcher
}

func NewCtiAPIDownloader(f Fetcher) *CtiAPIDownloader {
	return &CtiAPIDownloader{fetcher: f}
}

func (d *CtiAPIDownloader) Name() string { return stageCtiAPIDownloader }

func (d *CtiAPIDownloader) Handle(ctx context.Context, uc *data.UpdaterContext) error {
	if err := d.download(ctx, uc); err != nil {
		uc.PushStageStatus(stageCtiAPIDownloader, data.StatusFail)
		return err
	}
	return nil
}

func (d *CtiAPIDownloader) download(ctx context.Context, uc *data.UpdaterContext) error {
	offset, err := lastOffset(uc.Store)
	if err != nil {
		return err
	}

	pageSize := uc.Config.Int("pageSize")
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	dest := filepath.Join(destFolder(uc), uc.Config.ContentFileName())

	var (
		out   *os.File
		pages int
	)
	defer func() {
		if out != nil {
			_ = out.Close()
		}
	}()

	for {
		url := fmt.Sprintf("%s?from_offset=%d&limit=%d", uc.Config.URL(), offset, pageSize)

		var page ctiPage
		if err := d.fetcher.GetJSON(ctx, url, &page); err != nil {
			return fmt.Errorf("%w: %v", data.ErrDownload, err)
		}
		if len(page.Data) == 0 {
			break
		}

		// Lazily create the artifact so an unchanged run leaves no file
		// behind. Records are written newline-delimited.
		if out == nil {
			out, err = os.Create(dest)
			if err != nil {
				return fmt.Errorf("%w: create %s: %v", data.ErrFileSystem, dest, err)
			}
		}
		enc := json.NewEncoder(out)
		for _, record := range page.Data {
			if err := enc.Encode(record); err != nil {
				return fmt.Errorf("%w: write %s: %v", data.ErrFileSystem, dest, err)
			}
		}

		// Persist the cursor only after the page's records hit disk.
		// Losing the process here means re-fetching this page next run,
		// never skipping it.
		if err := uc.Store.Put(data.KeyLastOffset, []byte(strconv.Itoa(page.LastOffset))); err != nil {
			return err
		}

		pages++
		if page.LastOffset <= offset {
			break
		}
		offset = page.LastOffset
	}

	if pages == 0 {
		uc.PushStageStatus(stageCtiAPIDownloader, data.StatusUnchanged)
		return nil
	}

	uc.AppendPath(dest)
	uc.PushStageStatus(stageCtiAPIDownloader, data.StatusOK)
	return nil
}

func lastOffset(s data.StateStore) (int, error) {
	v, err := s.Get(data.KeyLastOffset)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	offset, err := strconv.Atoi(string(v))
	if err != nil {
		return 0, fmt.Errorf("%w: malformed offset %q", data.ErrStorage, v)
	}
	return offset, nil
}
