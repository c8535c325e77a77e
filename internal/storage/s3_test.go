package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testS3Config(endpoint string) S3Config {
	return S3Config{
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		Endpoint:        endpoint,
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	}
}

func TestNewS3Storage(t *testing.T) {
	storage, err := NewS3Storage(t.TempDir(), testS3Config("http://localhost:4566/"))
	require.NoError(t, err)

	assert.Equal(t, "test-bucket", storage.bucket)
	assert.Equal(t, "us-east-1", storage.region)
	assert.Equal(t, "http://localhost:4566", storage.endpoint)
}

func TestS3Storage_InheritsLocalStorage(t *testing.T) {
	tempDir := t.TempDir()
	storage, err := NewS3Storage(tempDir, testS3Config("http://localhost:4566"))
	require.NoError(t, err)
	ctx := context.Background()

	assert.Equal(t, tempDir, storage.TempDir())

	path, err := storage.SaveTemp(ctx, "clip.mp4", bytes.NewReader([]byte("test data")))
	require.NoError(t, err)

	reader, err := storage.LoadTemp(ctx, path)
	require.NoError(t, err)
	content, err := io.ReadAll(reader)
	_ = reader.Close()
	require.NoError(t, err)
	assert.Equal(t, "test data", string(content))

	assert.NoError(t, storage.CleanupTemp(ctx, []string{path}))
}

func TestS3Storage_UploadToS3_MockServer(t *testing.T) {
	var (
		gotMethod, gotPath, gotType string
		gotBody                     []byte
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	storage, err := NewS3Storage(t.TempDir(), testS3Config(server.URL))
	require.NoError(t, err)

	url, err := storage.UploadToS3(context.Background(), "merges/merge-1/merge-20240101-120000.mp4",
		bytes.NewReader([]byte("test content")))
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/test-bucket/merges/merge-1/merge-20240101-120000.mp4", gotPath)
	assert.Equal(t, ContentTypeMP4, gotType)
	assert.Equal(t, "test content", string(gotBody))
	assert.Equal(t, server.URL+"/test-bucket/merges/merge-1/merge-20240101-120000.mp4", url)
}

func TestS3Storage_ObjectURL(t *testing.T) {
	s := &S3Storage{bucket: "clips", region: "eu-west-1"}
	assert.Equal(t, "https://clips.s3.eu-west-1.amazonaws.com/merges/a.mp4", s.objectURL("merges/a.mp4"))

	s.endpoint = "https://minio.local"
	assert.Equal(t, "https://minio.local/clips/merges/a.mp4", s.objectURL("merges/a.mp4"))
}

func TestS3Storage_UploadToS3_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	storage, err := NewS3Storage(t.TempDir(), testS3Config(server.URL))
	require.NoError(t, err)

	_, err = storage.UploadToS3(context.Background(), "merges/a.mp4", bytes.NewReader([]byte("x")))
	assert.ErrorContains(t, err, "upload to S3")
}
