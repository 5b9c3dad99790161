package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/compressly/compressly/internal/db"
	"github.com/compressly/compressly/internal/db/models"
	"github.com/compressly/compressly/internal/logger"
	"github.com/compressly/compressly/internal/metrics"
	"github.com/compressly/compressly/internal/registry"
	"github.com/compressly/compressly/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrNotCompressed is returned when Save is asked to persist an item that
// has no compression result.
var ErrNotCompressed = errors.New("item is not compressed")

// Stage identifies which half of a save attempt failed.
type Stage string

const (
	StageUpload Stage = "upload"
	StageRecord Stage = "record"
)

// SaveError is the discriminated failure of a save attempt. A StageRecord
// failure means the object was uploaded but its metadata row was not
// written; the orphaned object is not rolled back.
type SaveError struct {
	Stage Stage
	Err   error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save failed at %s stage: %v", e.Stage, e.Err)
}

func (e *SaveError) Unwrap() error {
	return e.Err
}

// SaveResult reports a fully persisted item.
type SaveResult struct {
	ObjectName string             `json:"object_name"`
	Record     *models.Compression `json:"record"`
}

// ItemOutcome is one item's result within a SaveAll run.
type ItemOutcome struct {
	ItemID   uuid.UUID   `json:"item_id"`
	FileName string      `json:"file_name"`
	Result   *SaveResult `json:"result,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// Bridge uploads compressed items to remote storage and records their
// metadata. Save failures never touch the item's local state.
type Bridge struct {
	store  storage.Client
	repo   db.Repository
	logger zerolog.Logger

	// now is swappable for deterministic object names in tests.
	now func() time.Time
}

func New(store storage.Client, repo db.Repository) *Bridge {
	return &Bridge{
		store:  store,
		repo:   repo,
		logger: logger.GetLogger("persistence-bridge"),
		now:    time.Now,
	}
}

// Save uploads one compressed item under a timestamp-prefixed,
// whitespace-normalized name and inserts its metadata record. Failures come
// back as a *SaveError discriminating the upload and record stages.
func (b *Bridge) Save(ctx context.Context, item registry.Item, userID string) (*SaveResult, error) {
	result, ok := item.Compressed()
	if !ok {
		return nil, ErrNotCompressed
	}

	objectName := b.objectName(item.FileName)

	if err := b.store.Upload(ctx, bytes.NewReader(result.Data), objectName, result.ContentType); err != nil {
		b.logger.Error().Err(err).Str("object", objectName).Msg("Upload failed")
		metrics.SavesTotal.WithLabelValues("upload_failed").Inc()
		return nil, &SaveError{Stage: StageUpload, Err: err}
	}

	record := models.NewCompression(
		userID,
		item.OriginalSize,
		result.Size,
		result.Percent,
		objectName,
		imageType(item.FileName),
	)

	if err := b.repo.CreateCompression(ctx, record); err != nil {
		// The uploaded object stays behind; accepted inconsistency window.
		b.logger.Error().Err(err).Str("object", objectName).Msg("Metadata insert failed after upload")
		metrics.SavesTotal.WithLabelValues("record_failed").Inc()
		return nil, &SaveError{Stage: StageRecord, Err: err}
	}

	metrics.SavesTotal.WithLabelValues("saved").Inc()

	b.logger.Info().
		Str("object", objectName).
		Str("user_id", userID).
		Int64("compressed_size", result.Size).
		Msg("Item saved to remote storage")

	return &SaveResult{ObjectName: objectName, Record: record}, nil
}

// SaveAll persists every compressed item in registry order, attempting each
// independently; one item's failure does not stop the rest.
func (b *Bridge) SaveAll(ctx context.Context, reg *registry.Registry, userID string) []ItemOutcome {
	items := reg.CompressedItems()
	outcomes := make([]ItemOutcome, 0, len(items))

	for _, item := range items {
		outcome := ItemOutcome{ItemID: item.ID, FileName: item.FileName}

		result, err := b.Save(ctx, item, userID)
		if err != nil {
			outcome.Error = err.Error()
		} else {
			outcome.Result = result
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

func (b *Bridge) objectName(fileName string) string {
	return ObjectName(b.now(), fileName)
}

// ObjectName disambiguates collisions with a millisecond timestamp prefix
// and normalizes whitespace out of the original name. The upload endpoint
// and the bridge share this scheme so history resolution sees one format.
func ObjectName(now time.Time, fileName string) string {
	return fmt.Sprintf("%d_%s", now.UnixMilli(), sanitizeFileName(fileName))
}

func imageType(fileName string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(fileName), "."))
	if ext == "" {
		ext = "jpg"
	}
	return ext
}

// sanitizeFileName sanitizes a file name for storage
func sanitizeFileName(fileName string) string {
	// Replace whitespace with underscores
	fileName = strings.Join(strings.Fields(fileName), "_")

	// Remove any special characters
	fileName = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.' {
			return r
		}
		return -1
	}, fileName)

	return fileName
}
