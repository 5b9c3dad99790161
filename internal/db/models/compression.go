package models

import (
	"time"

	"github.com/google/uuid"
)

// Compression is one persisted compression record, keyed by the owning user
// identity.
type Compression struct {
	ID              uuid.UUID `json:"id" db:"id"`
	UserID          string    `json:"user_id" db:"user_id"`
	OriginalSize    int64     `json:"original_size" db:"original_size"`
	CompressedSize  int64     `json:"compressed_size" db:"compressed_size"`
	CompressionRate int       `json:"compression_rate" db:"compression_rate"`
	FileName        string    `json:"file_name" db:"file_name"`
	ImageType       string    `json:"image_type" db:"image_type"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// NewCompression creates a new Compression record with default values
func NewCompression(userID string, originalSize, compressedSize int64, compressionRate int, fileName, imageType string) *Compression {
	return &Compression{
		ID:              uuid.New(),
		UserID:          userID,
		OriginalSize:    originalSize,
		CompressedSize:  compressedSize,
		CompressionRate: compressionRate,
		FileName:        fileName,
		ImageType:       imageType,
		CreatedAt:       time.Now(),
	}
}

// UserStats aggregates a user's persisted compressions for the dashboard.
type UserStats struct {
	Count           int   `json:"count"`
	TotalOriginal   int64 `json:"total_original"`
	TotalCompressed int64 `json:"total_compressed"`
}
