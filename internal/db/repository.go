package db

import (
	"context"

	"github.com/compressly/compressly/internal/db/models"
	"github.com/google/uuid"
)

// Repository defines the interface for database operations
type Repository interface {
	CreateCompression(ctx context.Context, compression *models.Compression) error
	GetCompressionByID(ctx context.Context, id uuid.UUID) (*models.Compression, error)
	ListCompressionsByUser(ctx context.Context, userID string) ([]*models.Compression, error)
	DeleteCompression(ctx context.Context, id uuid.UUID) error
	StatsByUser(ctx context.Context, userID string) (*models.UserStats, error)

	// Health check
	Ping(ctx context.Context) error

	// Close the repository
	Close() error
}
