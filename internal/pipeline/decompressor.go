package pipeline

import (
	"archive/zip"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/tinoosan/contentd/internal/data"
)

const stageDecompressor = "Decompressor"

// Decompressor inflates the downloaded artifact into the contents folder.
// The format is chosen by file extension; gzip, xz and zip cover the feed
// artifacts in the wild. The stage is skipped entirely for raw content.
type Decompressor struct{}

func NewDecompressor() *Decompressor { return &Decompressor{} }

func (d *Decompressor) Name() string { return stageDecompressor }

func (d *Decompressor) Handle(_ context.Context, uc *data.UpdaterContext) error {
	src := uc.LastPath()
	if src == "" {
		// Unchanged content short-circuits the rest of the run.
		return nil
	}

	dest, err := d.decompress(src, uc.ContentsFolder)
	if err != nil {
		uc.PushStageStatus(stageDecompressor, data.StatusFail)
		return err
	}

	uc.AppendPath(dest)
	uc.PushStageStatus(stageDecompressor, data.StatusOK)
	return nil
}

func (d *Decompressor) decompress(src, contentsFolder string) (string, error) {
	base := filepath.Base(src)
	ext := strings.ToLower(filepath.Ext(base))
	dest := filepath.Join(contentsFolder, strings.TrimSuffix(base, filepath.Ext(base)))

	switch ext {
	case ".gz":
		return dest, inflateStream(src, dest, func(r io.Reader) (io.Reader, error) {
			return gzip.NewReader(r)
		})
	case ".xz":
		return dest, inflateStream(src, dest, func(r io.Reader) (io.Reader, error) {
			return xz.NewReader(r)
		})
	case ".zip":
		return dest, inflateZip(src, dest)
	default:
		return "", fmt.Errorf("%w: unsupported compressed format %q", data.ErrInvalidConfig, ext)
	}
}

func inflateStream(src, dest string, wrap func(io.Reader) (io.Reader, error)) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", data.ErrFileSystem, src, err)
	}
	defer in.Close()

	r, err := wrap(in)
	if err != nil {
		return fmt.Errorf("decompress %s: %w", src, err)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", data.ErrFileSystem, dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, r); err != nil {
		return fmt.Errorf("decompress %s: %w", src, err)
	}
	return nil
}

// inflateZip extracts the first regular file of the archive; feed artifacts
// ship a single payload file.
func inflateZip(src, dest string) error {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("decompress %s: %w", src, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		in, err := f.Open()
		if err != nil {
			return fmt.Errorf("decompress %s: %w", src, err)
		}
		defer in.Close()

		out, err := os.Create(dest)
		if err != nil {
			return fmt.Errorf("%w: create %s: %v", data.ErrFileSystem, dest, err)
		}
		defer out.Close()

		if _, err := io.Copy(out, in); err != nil {
			return fmt.Errorf("decompress %s: %w", src, err)
		}
		return nil
	}
	return fmt.Errorf("decompress %s: empty archive", src)
}
