package data

import (
	"fmt"
	"strings"
	"time"
)

// ContentSource selects the downloader strategy for a provider.
type ContentSource string

const (
	SourceAPI     ContentSource = "api"
	SourceCtiAPI  ContentSource = "cti-api"
	SourceFile    ContentSource = "file"
	SourceOffline ContentSource = "offline"
)

// CompressionRaw disables the decompression stage; any other value routes the
// downloaded artifact through it.
const CompressionRaw = "raw"

// SourceConfig is the per-source configuration map, decoded from the JSON
// registration body. Values are kept as-is; typed getters paper over the
// loose JSON types.
type SourceConfig map[string]any

func (c SourceConfig) String(key string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}

func (c SourceConfig) Bool(key string) bool {
	v, _ := c[key].(bool)
	return v
}

// Int reads a numeric option. JSON numbers decode as float64, so both forms
// are accepted.
func (c SourceConfig) Int(key string) int {
	switch v := c[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func (c SourceConfig) ContentSource() ContentSource {
	return ContentSource(c.String("contentSource"))
}

func (c SourceConfig) CompressionType() string {
	return c.String("compressionType")
}

func (c SourceConfig) URL() string             { return c.String("url") }
func (c SourceConfig) ContentFileName() string { return c.String("contentFileName") }
func (c SourceConfig) OutputFolder() string    { return c.String("outputFolder") }
func (c SourceConfig) DatabasePath() string    { return c.String("databasePath") }
func (c SourceConfig) InitialOffset() string   { return c.String("initialOffset") }

// DeleteDownloadedContent removes downloads-folder artifacts after a
// successful publish.
func (c SourceConfig) DeleteDownloadedContent() bool {
	return c.Bool("deleteDownloadedContent")
}

// Interval returns the scheduler period in seconds, as the registration
// body carries it.
func (c SourceConfig) Interval() time.Duration {
	return time.Duration(c.Int("interval")) * time.Second
}

// requiredKeys lists the options every source kind must carry. Network
// sources additionally need a URL.
var requiredKeys = []string{"contentSource", "compressionType", "contentFileName"}

// Validate checks the required option set for the configured content source.
// All violations are reported as ErrInvalidConfig so callers can treat them
// as fatal at construction time.
func (c SourceConfig) Validate() error {
	for _, key := range requiredKeys {
		if strings.TrimSpace(c.String(key)) == "" {
			return fmt.Errorf("%w: missing %q", ErrInvalidConfig, key)
		}
	}

	switch c.ContentSource() {
	case SourceAPI, SourceCtiAPI, SourceFile:
		if strings.TrimSpace(c.URL()) == "" {
			return fmt.Errorf("%w: missing %q", ErrInvalidConfig, "url")
		}
	case SourceOffline:
		// Content is provisioned out-of-band; no URL needed.
	default:
		return fmt.Errorf("%w: unknown contentSource %q", ErrInvalidConfig, c.String("contentSource"))
	}
	return nil
}
