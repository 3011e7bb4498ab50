// Package fetch is the network transport collaborator for the update
// pipeline. The pipeline only needs "fetch this URL to a local file"; TLS,
// proxies and socket-level retries are the http.Client's business.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/tinoosan/contentd/internal/data"
)

type Client struct {
	http *http.Client
}

// NewClient wraps an http.Client. A nil argument gets a sane default
// timeout; the pipeline itself never enforces deadlines.
func NewClient(hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{http: hc}
}

// NewClientFromEnv honors CONTENTD_HTTP_TIMEOUT_MS when set.
func NewClientFromEnv() *Client {
	ms := 60000
	if v := os.Getenv("CONTENTD_HTTP_TIMEOUT_MS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			ms = parsed
		}
	}
	return NewClient(&http.Client{Timeout: time.Duration(ms) * time.Millisecond})
}

// Download fetches url and streams the body to dest. Failures, including
// non-2xx responses, wrap data.ErrDownload so the chain can classify them.
func (c *Client) Download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", data.ErrDownload, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", data.ErrDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: (%d) unexpected status fetching %s", data.ErrDownload, resp.StatusCode, url)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", data.ErrFileSystem, dest, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("%w: write %s: %v", data.ErrDownload, dest, err)
	}
	return nil
}

// GetJSON fetches url and decodes the JSON body into dst. Used by the
// paginated CTI downloader.
func (c *Client) GetJSON(ctx context.Context, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", data.ErrDownload, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", data.ErrDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: (%d) unexpected status fetching %s", data.ErrDownload, resp.StatusCode, url)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: decode %s: %v", data.ErrDownload, url, err)
	}
	return nil
}
