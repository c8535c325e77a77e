// Package storage keeps uploaded clips and merge outputs on local disk and
// optionally publishes finished merges to S3.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for temporary and persistent file storage.
// Temporary files hold decoded uploads and merge outputs; S3 receives
// finished merges when configured.
type Storage interface {
	// TempDir returns the directory temporary files are written to.
	TempDir() string

	// SaveTemp saves data to a temporary file and returns the file path.
	// The name parameter is used as a hint for the filename; its extension
	// is kept so media tools can sniff the container.
	SaveTemp(ctx context.Context, name string, data io.Reader) (path string, err error)

	// LoadTemp opens a file inside the temporary directory. Other paths
	// fail with ErrOutsideTempDir. The caller is responsible for closing the returned ReadCloser.
	LoadTemp(ctx context.Context, path string) (io.ReadCloser, error)

	// CleanupTemp removes the specified temporary files.
	// It continues cleanup even if some files fail to delete.
	CleanupTemp(ctx context.Context, paths []string) error

	// UploadToS3 uploads an MP4 to S3 under key and returns its URL.
	// Returns ErrS3NotConfigured if S3 is not configured.
	UploadToS3(ctx context.Context, key string, data io.Reader) (url string, err error)
}
