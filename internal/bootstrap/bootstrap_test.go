package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/clipmerge-api/internal/config"
	"github.com/maauso/clipmerge-api/internal/job"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		TempDir:             t.TempDir(),
		FFmpegPath:          "ffmpeg",
		FFprobePath:         "ffprobe",
		FFmpegPreset:        "medium",
		RenderWidth:         720,
		RenderHeight:        1280,
		FrameValue:          1,
		FrameScale:          25,
		FadeSeconds:         1,
		Layout:              "fit",
		MaxConcurrentMerges: 3,
		JobStore:            config.JobStoreMemory,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewDependencies_Memory(t *testing.T) {
	cfg := testConfig(t)

	deps, err := NewDependencies(cfg, discardLogger())
	require.NoError(t, err)
	defer func() { assert.NoError(t, deps.Close()) }()

	assert.Len(t, deps.coordinators, 3)
	assert.IsType(t, &job.MemoryRepository{}, deps.repo)

	created, err := deps.MergeService.CreateJob(context.Background(), job.MergeInput{ClipsBase64: []string{"AA=="}})
	require.NoError(t, err)
	assert.Equal(t, 720, created.Width)
	assert.Equal(t, 1280, created.Height)
	assert.Equal(t, 25, created.FrameScale)
	assert.Equal(t, 1.0, created.FadeSeconds)
}

func TestNewDependencies_SQLite(t *testing.T) {
	cfg := testConfig(t)
	cfg.JobStore = config.JobStoreSQLite
	cfg.JobDBPath = filepath.Join(t.TempDir(), "jobs.db")

	deps, err := NewDependencies(cfg, discardLogger())
	require.NoError(t, err)

	created, err := deps.MergeService.CreateJob(context.Background(), job.MergeInput{ClipsBase64: []string{"AA=="}})
	require.NoError(t, err)
	require.NoError(t, deps.Close())

	// Jobs survive a restart.
	deps, err = NewDependencies(cfg, discardLogger())
	require.NoError(t, err)
	defer func() { assert.NoError(t, deps.Close()) }()

	found, err := deps.MergeService.GetJob(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, job.StatusFailed, found.Status)
}

func TestNewDependencies_Errors(t *testing.T) {
	t.Run("unknown layout", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Layout = "stretch"
		_, err := NewDependencies(cfg, discardLogger())
		assert.ErrorIs(t, err, config.ErrUnknownLayout)
	})

	t.Run("unknown job store", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.JobStore = "redis"
		_, err := NewDependencies(cfg, discardLogger())
		assert.ErrorIs(t, err, config.ErrUnknownJobStore)
	})
}
