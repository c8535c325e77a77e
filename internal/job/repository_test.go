package job

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// repositories runs fn against every Repository implementation.
func repositories(t *testing.T, fn func(t *testing.T, repo Repository)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryRepository())
	})
	t.Run("sqlite", func(t *testing.T) {
		repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "jobs.db"), nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = repo.Close() })
		fn(t, repo)
	})
}

func TestRepository_SaveAndFind(t *testing.T) {
	repositories(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		job := New()
		job.ClipPaths = []string{"/tmp/a.mp4", "/tmp/b.mp4"}
		job.AudioPath = "/tmp/music.m4a"
		job.Width, job.Height = 1080, 1920
		job.FrameValue, job.FrameScale = 1001, 30000
		job.FadeSeconds = 1.25
		job.AudioOffsetSeconds = 3.5
		job.PushToS3 = true

		require.NoError(t, repo.Save(ctx, job))

		saved, err := repo.FindByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, job.ID, saved.ID)
		assert.Equal(t, StatusInQueue, saved.Status)
		assert.Equal(t, job.ClipPaths, saved.ClipPaths)
		assert.Equal(t, "/tmp/music.m4a", saved.AudioPath)
		assert.Equal(t, 1080, saved.Width)
		assert.Equal(t, 1920, saved.Height)
		assert.Equal(t, 1001, saved.FrameValue)
		assert.Equal(t, 30000, saved.FrameScale)
		assert.Equal(t, 1.25, saved.FadeSeconds)
		assert.Equal(t, 3.5, saved.AudioOffsetSeconds)
		assert.True(t, saved.PushToS3)
		assert.True(t, job.CreatedAt.Equal(saved.CreatedAt), "created_at %s != %s", job.CreatedAt, saved.CreatedAt)
		assert.True(t, saved.StartedAt.IsZero())
	})
}

func TestRepository_SaveUpdates(t *testing.T) {
	repositories(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		job := New()
		require.NoError(t, repo.Save(ctx, job))

		require.NoError(t, job.Start())
		job.UpdateProgress(60)
		require.NoError(t, job.Fail("ExportSessionFailed", "merge: export session failed"))
		require.NoError(t, repo.Save(ctx, job))

		saved, err := repo.FindByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, saved.Status)
		assert.Equal(t, 60, saved.Progress)
		assert.Equal(t, "ExportSessionFailed", saved.ErrorKind)
		assert.Equal(t, "merge: export session failed", saved.Error)
		assert.False(t, saved.StartedAt.IsZero())
		assert.False(t, saved.CompletedAt.IsZero())
	})
}

func TestRepository_ReturnsCopies(t *testing.T) {
	repositories(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		job := New()
		job.ClipPaths = []string{"a.mp4"}
		require.NoError(t, repo.Save(ctx, job))

		// Mutating the saved job or a loaded copy leaves the store untouched.
		job.Progress = 10
		found, err := repo.FindByID(ctx, job.ID)
		require.NoError(t, err)
		found.Progress = 99
		found.ClipPaths[0] = "b.mp4"
		_ = found.Start()

		listed, err := repo.List(ctx)
		require.NoError(t, err)
		listed[0].Progress = 42

		original, err := repo.FindByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, original.Progress)
		assert.Equal(t, StatusInQueue, original.Status)
		assert.Equal(t, []string{"a.mp4"}, original.ClipPaths)
	})
}

func TestRepository_ListOrdersByCreation(t *testing.T) {
	repositories(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()

		jobs, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, jobs)

		base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		for i, offset := range []time.Duration{3 * time.Second, time.Second, 2 * time.Second} {
			job := NewWithID(fmt.Sprintf("merge-%d", i))
			job.CreatedAt = base.Add(offset)
			require.NoError(t, repo.Save(ctx, job))
		}

		jobs, err = repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, jobs, 3)
		assert.Equal(t, "merge-1", jobs[0].ID)
		assert.Equal(t, "merge-2", jobs[1].ID)
		assert.Equal(t, "merge-0", jobs[2].ID)
	})
}

func TestRepository_Delete(t *testing.T) {
	repositories(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		job := New()
		require.NoError(t, repo.Save(ctx, job))

		require.NoError(t, repo.Delete(ctx, job.ID))

		_, err := repo.FindByID(ctx, job.ID)
		assert.ErrorIs(t, err, ErrJobNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, job.ID), ErrJobNotFound)
	})
}

func TestRepository_ConcurrentAccess(t *testing.T) {
	repositories(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		var wg sync.WaitGroup

		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				assert.NoError(t, repo.Save(ctx, New()))
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, err := repo.List(ctx)
				assert.NoError(t, err)
			}
		}()
		wg.Wait()

		jobs, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, jobs, 50)
	})
}

func TestSQLiteRepository_MarksInterruptedJobs(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "jobs.db")

	repo, err := NewSQLiteRepository(dbPath, nil)
	require.NoError(t, err)

	queued := NewWithID("merge-queued")
	running := NewWithID("merge-running")
	require.NoError(t, running.Start())
	done := NewWithID("merge-done")
	require.NoError(t, done.Start())
	require.NoError(t, done.Complete())
	for _, j := range []*Job{queued, running, done} {
		require.NoError(t, repo.Save(ctx, j))
	}
	require.NoError(t, repo.Close())

	reopened, err := NewSQLiteRepository(dbPath, nil)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	for _, id := range []string{"merge-queued", "merge-running"} {
		j, err := reopened.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, j.Status, id)
		assert.Equal(t, "ExportSessionFailed", j.ErrorKind, id)
		assert.Equal(t, interruptedMessage, j.Error, id)
		assert.False(t, j.CompletedAt.IsZero(), id)
	}

	j, err := reopened.FindByID(ctx, "merge-done")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, j.Status)
}

func TestSQLiteRepository_Migrations(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "jobs.db")

	for i := 0; i < 2; i++ {
		repo, err := NewSQLiteRepository(dbPath, nil)
		require.NoError(t, err)
		require.NoError(t, repo.Close())
	}

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM _migrations").Scan(&count))
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	assert.Equal(t, len(entries), count, "migrations are applied once")
	assert.Equal(t, 2, count)

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}
