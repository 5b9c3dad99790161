package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/compressly/compressly/config"
	"github.com/compressly/compressly/internal/db"
	"github.com/compressly/compressly/internal/db/models"
	"github.com/compressly/compressly/internal/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(ctx context.Context, cfg *config.DatabaseConfig) (db.Repository, error) {
	initLogger := logger.GetLogger("postgres-repository")

	// Create a connection pool configuration
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	// Set pool configuration
	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)

	// Create connection pool
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	initLogger.Info().Msg("Connected to Postgres database")
	return &Repository{pool: pool}, nil
}

// CreateCompression inserts one compression record
func (r *Repository) CreateCompression(ctx context.Context, compression *models.Compression) error {
	reqLogger := logger.FromContext(ctx)

	query := `
		INSERT INTO compressions (
			id, user_id, original_size, compressed_size, compression_rate,
			file_name, image_type, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	reqLogger.Debug().Str("compression_id", compression.ID.String()).Msg("Executing CreateCompression query")

	_, err := r.pool.Exec(ctx, query,
		compression.ID, compression.UserID, compression.OriginalSize, compression.CompressedSize,
		compression.CompressionRate, compression.FileName, compression.ImageType, compression.CreatedAt,
	)

	if err != nil {
		reqLogger.Error().Err(err).Msg("Error creating compression record")
		return fmt.Errorf("error creating compression record: %w", err)
	}

	reqLogger.Debug().Str("compression_id", compression.ID.String()).Msg("Compression record created successfully")
	return nil
}

// GetCompressionByID retrieves a compression record by its ID
func (r *Repository) GetCompressionByID(ctx context.Context, id uuid.UUID) (*models.Compression, error) {
	reqLogger := logger.FromContext(ctx)

	query := `
		SELECT id, user_id, original_size, compressed_size, compression_rate,
			file_name, image_type, created_at
		FROM compressions
		WHERE id = $1
	`

	reqLogger.Debug().Str("compression_id", id.String()).Msg("Executing GetCompressionByID query")

	var c models.Compression
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.UserID, &c.OriginalSize, &c.CompressedSize, &c.CompressionRate,
		&c.FileName, &c.ImageType, &c.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			reqLogger.Warn().Err(err).Str("compression_id", id.String()).Msg("Compression record not found")
			return nil, fmt.Errorf("compression record not found: %w", err)
		}

		reqLogger.Error().Err(err).Str("compression_id", id.String()).Msg("Error querying compression record")
		return nil, fmt.Errorf("error querying compression record: %w", err)
	}

	return &c, nil
}

// ListCompressionsByUser retrieves a user's compression records, newest first
func (r *Repository) ListCompressionsByUser(ctx context.Context, userID string) ([]*models.Compression, error) {
	reqLogger := logger.FromContext(ctx)

	query := `
		SELECT id, user_id, original_size, compressed_size, compression_rate,
			file_name, image_type, created_at
		FROM compressions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	reqLogger.Debug().Str("user_id", userID).Msg("Executing ListCompressionsByUser query")

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		reqLogger.Error().Err(err).Msg("Error querying compression records")
		return nil, fmt.Errorf("error querying compression records: %w", err)
	}
	defer rows.Close()

	compressions := make([]*models.Compression, 0)
	for rows.Next() {
		var c models.Compression
		err := rows.Scan(
			&c.ID, &c.UserID, &c.OriginalSize, &c.CompressedSize, &c.CompressionRate,
			&c.FileName, &c.ImageType, &c.CreatedAt,
		)
		if err != nil {
			reqLogger.Error().Err(err).Msg("Error scanning compression row")
			return nil, fmt.Errorf("error scanning compression row: %w", err)
		}
		compressions = append(compressions, &c)
	}

	if err := rows.Err(); err != nil {
		reqLogger.Error().Err(err).Msg("Error iterating over compression rows")
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}

	reqLogger.Debug().Str("user_id", userID).Int("count", len(compressions)).Msg("Compression records retrieved")
	return compressions, nil
}

// DeleteCompression deletes a compression record
func (r *Repository) DeleteCompression(ctx context.Context, id uuid.UUID) error {
	reqLogger := logger.FromContext(ctx)

	query := `DELETE FROM compressions WHERE id = $1`

	reqLogger.Debug().Str("compression_id", id.String()).Msg("Executing DeleteCompression query")

	commandTag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		reqLogger.Error().Err(err).Msg("Error deleting compression record")
		return fmt.Errorf("error deleting compression record: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		reqLogger.Warn().Str("compression_id", id.String()).Msg("Compression record not found for deletion")
		return fmt.Errorf("compression record not found")
	}

	reqLogger.Debug().Str("compression_id", id.String()).Msg("Compression record deleted successfully")
	return nil
}

// StatsByUser aggregates a user's persisted compressions
func (r *Repository) StatsByUser(ctx context.Context, userID string) (*models.UserStats, error) {
	reqLogger := logger.FromContext(ctx)

	query := `
		SELECT COUNT(*), COALESCE(SUM(original_size), 0), COALESCE(SUM(compressed_size), 0)
		FROM compressions
		WHERE user_id = $1
	`

	reqLogger.Debug().Str("user_id", userID).Msg("Executing StatsByUser query")

	var stats models.UserStats
	err := r.pool.QueryRow(ctx, query, userID).Scan(&stats.Count, &stats.TotalOriginal, &stats.TotalCompressed)
	if err != nil {
		reqLogger.Error().Err(err).Msg("Error querying user stats")
		return nil, fmt.Errorf("error querying user stats: %w", err)
	}

	return &stats, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	reqLogger := logger.FromContext(ctx)
	reqLogger.Debug().Msg("Pinging database")

	err := r.pool.Ping(ctx)
	if err != nil {
		reqLogger.Error().Err(err).Msg("Error pinging database")
		return fmt.Errorf("error pinging database: %w", err)
	}

	return nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}
