package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/compressly/compressly/config"
	"github.com/compressly/compressly/internal/logger"
	"github.com/compressly/compressly/internal/registry"
	"github.com/rs/zerolog"
)

// ErrNotCompressed is returned when a download is requested for an item
// without a compression result.
var ErrNotCompressed = errors.New("item is not compressed")

// Exporter serializes compressed items into the local export directory.
type Exporter struct {
	dir    string
	delay  time.Duration
	logger zerolog.Logger
}

func New(cfg *config.ExportConfig) *Exporter {
	return &Exporter{
		dir:    cfg.Directory,
		delay:  cfg.Delay,
		logger: logger.GetLogger("exporter"),
	}
}

// Download writes one compressed item to the export directory as
// <base>_compressed<ext> and returns the written path. The file is staged
// under a temporary name and renamed, so no partial artifact survives an
// error path.
func (e *Exporter) Download(item registry.Item) (string, error) {
	result, ok := item.Compressed()
	if !ok {
		return "", ErrNotCompressed
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	target := filepath.Join(e.dir, downloadFileName(item.FileName))
	tmp := target + ".tmp"

	if err := os.WriteFile(tmp, result.Data, 0o644); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("error writing export file: %w", err)
	}

	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("error finalizing export file: %w", err)
	}

	e.logger.Debug().Str("path", target).Int64("size", result.Size).Msg("Item exported")
	return target, nil
}

// DownloadAll exports every compressed item in registry order with a small
// delay between writes. Zero compressed items is a no-op. One item's failure
// does not stop the rest; failures are joined into the returned error.
func (e *Exporter) DownloadAll(reg *registry.Registry) ([]string, error) {
	items := reg.CompressedItems()
	if len(items) == 0 {
		return nil, nil
	}

	paths := make([]string, 0, len(items))
	var errs []error

	for n, item := range items {
		if n > 0 && e.delay > 0 {
			time.Sleep(e.delay)
		}

		path, err := e.Download(item)
		if err != nil {
			e.logger.Error().Err(err).Str("file_name", item.FileName).Msg("Failed to export item")
			errs = append(errs, fmt.Errorf("%s: %w", item.FileName, err))
			continue
		}
		paths = append(paths, path)
	}

	e.logger.Info().Int("exported", len(paths)).Int("failed", len(errs)).Msg("Batch export finished")
	return paths, errors.Join(errs...)
}

// downloadFileName derives the export name from the original file name with
// a fixed suffix, keeping the original extension.
func downloadFileName(fileName string) string {
	ext := filepath.Ext(fileName)
	base := strings.TrimSuffix(filepath.Base(fileName), ext)
	if ext == "" {
		ext = ".jpg"
	}
	return base + "_compressed" + ext
}
