package minio

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/compressly/compressly/config"
	"github.com/compressly/compressly/internal/logger"
	"github.com/compressly/compressly/internal/storage"
	minioLib "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// probePNG is a 1x1 transparent PNG used by Diagnose to verify write access.
const probePNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

const probeObjectName = "diagnostics/probe.png"

type MinioClient struct {
	client     *minioLib.Client
	bucketName string
	logger     zerolog.Logger
	config     *config.MinIOConfig
}

func NewClient(cfg *config.MinIOConfig) (storage.Client, error) {
	log := logger.GetLogger("minio-client")

	client, err := minioLib.New(cfg.Endpoint, &minioLib.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.SSL,
	})
	if err != nil {
		return nil, fmt.Errorf("error initializing MinIO client: %w", err)
	}

	mc := &MinioClient{
		client:     client,
		bucketName: cfg.Bucket,
		logger:     log,
		config:     cfg,
	}

	exists, err := client.BucketExists(context.Background(), cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("error checking if bucket exists: %w", err)
	}

	if !exists {
		err = client.MakeBucket(context.Background(), cfg.Bucket, minioLib.MakeBucketOptions{Region: cfg.Location})
		if err != nil {
			return nil, fmt.Errorf("error creating bucket: %w", err)
		}
		log.Info().Str("bucket", cfg.Bucket).Msg("Bucket created")
	} else {
		log.Info().Str("bucket", cfg.Bucket).Msg("Bucket already exists")
	}

	return mc, nil
}

// Upload stores an object. Existing objects with the same name are
// overwritten; downstream caches get a one-hour hint.
func (m *MinioClient) Upload(ctx context.Context, reader io.Reader, objectName string, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucketName, objectName, reader, -1,
		minioLib.PutObjectOptions{
			ContentType:  contentType,
			CacheControl: "max-age=3600",
		})
	if err != nil {
		return fmt.Errorf("error uploading object: %w", err)
	}

	m.logger.Debug().Str("object", objectName).Msg("Object uploaded successfully")
	return nil
}

// Get retrieves an object from storage
func (m *MinioClient) Get(ctx context.Context, objectName string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, m.bucketName, objectName, minioLib.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("error getting object: %w", err)
	}

	m.logger.Debug().Str("object", objectName).Msg("Object retrieved successfully")
	return obj, nil
}

// Delete removes an object from storage
func (m *MinioClient) Delete(ctx context.Context, objectName string) error {
	err := m.client.RemoveObject(ctx, m.bucketName, objectName, minioLib.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("error deleting object: %w", err)
	}

	m.logger.Debug().Str("object", objectName).Msg("Object deleted successfully")
	return nil
}

// ObjectURL resolves the object to a fetchable URL according to the bucket
// visibility configuration.
func (m *MinioClient) ObjectURL(ctx context.Context, objectName string) (string, error) {
	if m.config.Public {
		scheme := "http"
		if m.config.SSL {
			scheme = "https"
		}
		return fmt.Sprintf("%s://%s/%s/%s", scheme, m.config.Endpoint, m.bucketName, objectName), nil
	}

	url, err := m.client.PresignedGetObject(ctx, m.bucketName, objectName, m.config.URLExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("error generating pre-signed URL: %w", err)
	}

	return url.String(), nil
}

// List returns the objects under the given prefix.
func (m *MinioClient) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	objects := make([]storage.ObjectInfo, 0)

	for obj := range m.client.ListObjects(ctx, m.bucketName, minioLib.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("error listing objects: %w", obj.Err)
		}
		objects = append(objects, storage.ObjectInfo{
			Name: obj.Key,
			Size: obj.Size,
		})
	}

	m.logger.Debug().Str("prefix", prefix).Int("count", len(objects)).Msg("Objects listed")
	return objects, nil
}

// Diagnose verifies bucket access, listing and write capability with a probe
// upload that is removed afterwards.
func (m *MinioClient) Diagnose(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucketName)
	if err != nil {
		return fmt.Errorf("error checking bucket: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %q does not exist", m.bucketName)
	}
	m.logger.Info().Str("bucket", m.bucketName).Msg("Bucket reachable")

	if _, err := m.List(ctx, ""); err != nil {
		return fmt.Errorf("error listing bucket: %w", err)
	}
	m.logger.Info().Str("bucket", m.bucketName).Msg("Bucket listing successful")

	probe, err := base64.StdEncoding.DecodeString(probePNG)
	if err != nil {
		return fmt.Errorf("error decoding probe image: %w", err)
	}

	if err := m.Upload(ctx, bytes.NewReader(probe), probeObjectName, "image/png"); err != nil {
		return fmt.Errorf("probe upload failed: %w", err)
	}
	m.logger.Info().Str("object", probeObjectName).Msg("Probe upload successful")

	if err := m.Delete(ctx, probeObjectName); err != nil {
		m.logger.Warn().Err(err).Str("object", probeObjectName).Msg("Failed to remove probe object")
	}

	return nil
}

// Close closes the MinIO client connection
func (m *MinioClient) Close() error {
	return nil
}
