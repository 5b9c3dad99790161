package storage

import (
	"context"
	"io"
)

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Name string
	Size int64
}

// Client defines the interface for remote object storage operations
type Client interface {
	// Upload stores an object with overwrite-allowed semantics and a
	// cache-control hint.
	Upload(ctx context.Context, reader io.Reader, objectName string, contentType string) error
	Get(ctx context.Context, objectName string) (io.ReadCloser, error)
	Delete(ctx context.Context, objectName string) error

	// ObjectURL resolves an object to a fetchable URL: a public URL when the
	// bucket is configured public, a time-limited presigned URL otherwise.
	ObjectURL(ctx context.Context, objectName string) (string, error)

	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Diagnose verifies connectivity end to end: bucket access, listing and
	// a probe upload that is removed afterwards.
	Diagnose(ctx context.Context) error

	// Close closes the storage client connection
	Close() error
}
