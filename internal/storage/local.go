package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrS3NotConfigured is returned by uploads on storage without S3.
	ErrS3NotConfigured = errors.New("storage: S3 is not configured")
	// ErrOutsideTempDir is returned when reading a file outside the temporary directory.
	ErrOutsideTempDir = errors.New("storage: path is outside the temporary directory")
)

var _ Storage = (*LocalStorage)(nil)

// LocalStorage keeps uploads and merge outputs under one directory on local
// disk. S3Storage embeds it to add uploads.
type LocalStorage struct {
	tempDir string
}

// NewLocalStorage creates the temporary directory if needed. An empty
// tempDir means os.TempDir()/clipmerge.
func NewLocalStorage(tempDir string) (*LocalStorage, error) {
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "clipmerge")
	}

	if err := os.MkdirAll(tempDir, 0750); err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}

	return &LocalStorage{tempDir: tempDir}, nil
}

// TempDir returns the temporary directory path.
func (s *LocalStorage) TempDir() string {
	return s.tempDir
}

// SaveTemp writes data to a new file in the temporary directory. The file
// name keeps the hint's base name and extension around a unique suffix, so
// clip-0.mp4 becomes clip-0_123456.mp4.
func (s *LocalStorage) SaveTemp(ctx context.Context, name string, data io.Reader) (string, error) {
	if err := alive(ctx); err != nil {
		return "", err
	}

	ext := filepath.Ext(name)
	pattern := strings.TrimSuffix(filepath.Base(name), ext) + "_*" + ext
	f, err := os.CreateTemp(s.tempDir, pattern)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	path := f.Name()
	_, err = io.Copy(f, data)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	return path, nil
}

// LoadTemp opens a file inside the temporary directory. Paths outside it
// return ErrOutsideTempDir.
// The caller is responsible for closing the returned ReadCloser.
func (s *LocalStorage) LoadTemp(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := alive(ctx); err != nil {
		return nil, err
	}
	if !s.contains(path) {
		return nil, fmt.Errorf("%w: %s", ErrOutsideTempDir, path)
	}

	f, err := os.Open(path) // #nosec G304 - path is confined to tempDir
	if err != nil {
		return nil, fmt.Errorf("open temp file: %w", err)
	}
	return f, nil
}

// CleanupTemp removes paths, skipping files that are already gone. Every
// failure is reported.
func (s *LocalStorage) CleanupTemp(ctx context.Context, paths []string) error {
	var errs []error
	for _, p := range paths {
		if err := alive(ctx); err != nil {
			return err
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove temp file %s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

// UploadToS3 is not supported by LocalStorage and returns ErrS3NotConfigured.
func (s *LocalStorage) UploadToS3(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", ErrS3NotConfigured
}

func (s *LocalStorage) contains(path string) bool {
	rel, err := filepath.Rel(s.tempDir, filepath.Clean(path))
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func alive(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	return nil
}
