package history

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/compressly/compressly/internal/db"
	"github.com/compressly/compressly/internal/db/models"
	"github.com/compressly/compressly/internal/logger"
	"github.com/compressly/compressly/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrNotOwner is returned when a user tries to delete a record that belongs
// to someone else.
var ErrNotOwner = errors.New("record does not belong to user")

// Entry is the history view model for one persisted compression. URL is
// empty when resolution failed; the record is still returned so the view
// can render a fallback placeholder.
type Entry struct {
	ID              uuid.UUID `json:"id"`
	DisplayName     string    `json:"display_name"`
	URL             string    `json:"url"`
	CompressedSize  int64     `json:"compressed_size"`
	OriginalSize    int64     `json:"original_size"`
	CompressionRate int       `json:"compression_rate"`
	CreatedAt       time.Time `json:"created_at"`
}

// Service resolves persisted compression records into renderable entries.
type Service struct {
	repo   db.Repository
	store  storage.Client
	logger zerolog.Logger
}

func New(repo db.Repository, store storage.Client) *Service {
	return &Service{
		repo:   repo,
		store:  store,
		logger: logger.GetLogger("history"),
	}
}

// ListForUser fetches the user's compression records and resolves each to a
// fetchable URL. Retrieval failures degrade: a repository error yields an
// empty list, a per-record URL failure yields an entry with an empty URL.
func (s *Service) ListForUser(ctx context.Context, userID string) []Entry {
	reqLogger := logger.FromContext(ctx)

	records, err := s.repo.ListCompressionsByUser(ctx, userID)
	if err != nil {
		reqLogger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch compression history")
		return []Entry{}
	}

	entries := make([]Entry, 0, len(records))
	for _, record := range records {
		url, err := s.store.ObjectURL(ctx, record.FileName)
		if err != nil {
			reqLogger.Warn().Err(err).Str("file_name", record.FileName).Msg("Failed to resolve object URL")
			url = ""
		}

		entries = append(entries, Entry{
			ID:              record.ID,
			DisplayName:     displayName(record.FileName),
			URL:             url,
			CompressedSize:  record.CompressedSize,
			OriginalSize:    record.OriginalSize,
			CompressionRate: record.CompressionRate,
			CreatedAt:       record.CreatedAt,
		})
	}

	return entries
}

// Delete removes one of the user's records together with its stored object.
// Object removal failure is logged and the row is deleted anyway.
func (s *Service) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	reqLogger := logger.FromContext(ctx)

	record, err := s.repo.GetCompressionByID(ctx, id)
	if err != nil {
		return fmt.Errorf("error fetching compression record: %w", err)
	}

	if record.UserID != userID {
		return ErrNotOwner
	}

	if err := s.store.Delete(ctx, record.FileName); err != nil {
		reqLogger.Error().Err(err).Str("file_name", record.FileName).Msg("Failed to delete stored object")
	}

	if err := s.repo.DeleteCompression(ctx, id); err != nil {
		return fmt.Errorf("error deleting compression record: %w", err)
	}

	reqLogger.Info().Str("compression_id", id.String()).Str("user_id", userID).Msg("Compression record deleted")
	return nil
}

// Stats aggregates the user's persisted compressions.
func (s *Service) Stats(ctx context.Context, userID string) (*models.UserStats, error) {
	return s.repo.StatsByUser(ctx, userID)
}

var timestampPrefix = regexp.MustCompile(`^\d+_`)

// displayName strips the timestamp prefix added at save time.
func displayName(fileName string) string {
	return timestampPrefix.ReplaceAllString(fileName, "")
}
