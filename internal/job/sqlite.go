package job

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/maauso/clipmerge-api/internal/merge"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Compile-time check that SQLiteRepository implements Repository.
var _ Repository = (*SQLiteRepository)(nil)

// interruptedMessage is recorded on jobs that were in flight when the
// process stopped.
const interruptedMessage = "interrupted by restart"

// timeLayout has a fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteRepository is a Repository backed by a SQLite database file.
// Jobs survive restarts; jobs that were queued or running when the
// previous process stopped are marked FAILED on open.
type SQLiteRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteRepository opens (or creates) the database at dbPath, applies
// pending migrations and fails interrupted jobs.
func NewSQLiteRepository(dbPath string, logger *slog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single connection serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	r := &SQLiteRepository{db: db, logger: logger}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	n, err := r.markInterrupted(context.Background())
	if err != nil {
		r.logger.Warn("failed to mark interrupted jobs", slog.String("error", err.Error()))
	} else if n > 0 {
		r.logger.Warn("marked interrupted jobs as failed", slog.Int64("count", n))
	}

	return r, nil
}

// Close closes the database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS _migrations (
		name TEXT PRIMARY KEY,
		applied_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()

		var applied int
		err := r.db.QueryRowContext(ctx, "SELECT 1 FROM _migrations WHERE name = ?", name).Scan(&applied)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check migration %s: %w", name, err)
		}

		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := r.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", name, err)
		}
		if _, err := r.db.ExecContext(ctx, "INSERT INTO _migrations (name) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}

		r.logger.Info("applied migration", slog.String("name", name))
	}

	return nil
}

// markInterrupted fails every job a previous process left unfinished and
// returns how many it changed.
func (r *SQLiteRepository) markInterrupted(ctx context.Context) (int64, error) {
	now := formatTime(time.Now())
	res, err := r.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = ?, error = ?, error_kind = ?, updated_at = ?, completed_at = ?
		WHERE status IN (?, ?)`,
		string(StatusFailed), interruptedMessage, merge.ExportSessionFailed.String(), now, now,
		string(StatusInQueue), string(StatusRunning),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Save inserts or replaces the job row.
func (r *SQLiteRepository) Save(ctx context.Context, job *Job) error {
	j := job.Clone()

	clips, err := json.Marshal(j.ClipPaths)
	if err != nil {
		return fmt.Errorf("encode clip paths: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO jobs (
			id, status, progress, error, error_kind, clip_paths, audio_path,
			output_path, video_url, width, height, frame_value, frame_scale,
			fade_seconds, audio_offset_seconds, push_to_s3, created_at, updated_at,
			started_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			progress = excluded.progress,
			error = excluded.error,
			error_kind = excluded.error_kind,
			clip_paths = excluded.clip_paths,
			audio_path = excluded.audio_path,
			output_path = excluded.output_path,
			video_url = excluded.video_url,
			width = excluded.width,
			height = excluded.height,
			frame_value = excluded.frame_value,
			frame_scale = excluded.frame_scale,
			fade_seconds = excluded.fade_seconds,
			audio_offset_seconds = excluded.audio_offset_seconds,
			push_to_s3 = excluded.push_to_s3,
			updated_at = excluded.updated_at,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at`,
		j.ID, string(j.Status), j.Progress, j.Error, j.ErrorKind, string(clips), j.AudioPath,
		j.OutputPath, j.VideoURL, j.Width, j.Height, j.FrameValue, j.FrameScale,
		j.FadeSeconds, j.AudioOffsetSeconds, boolToInt(j.PushToS3),
		formatTime(j.CreatedAt), formatTime(j.UpdatedAt), formatTime(j.StartedAt), formatTime(j.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("save job %s: %w", j.ID, err)
	}
	return nil
}

const selectJob = `
	SELECT id, status, progress, error, error_kind, clip_paths, audio_path,
		output_path, video_url, width, height, frame_value, frame_scale,
		fade_seconds, audio_offset_seconds, push_to_s3, created_at, updated_at,
		started_at, completed_at
	FROM jobs`

// FindByID retrieves a job by its ID.
func (r *SQLiteRepository) FindByID(ctx context.Context, id string) (*Job, error) {
	row := r.db.QueryRowContext(ctx, selectJob+" WHERE id = ?", id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find job %s: %w", id, err)
	}
	return job, nil
}

// List returns all jobs ordered by creation time.
func (r *SQLiteRepository) List(ctx context.Context) ([]*Job, error) {
	rows, err := r.db.QueryContext(ctx, selectJob+" ORDER BY created_at ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]*Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Delete removes a job row.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM jobs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	if n == 0 {
		return ErrJobNotFound
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(s rowScanner) (*Job, error) {
	var (
		j                                         Job
		status, clips                             string
		pushToS3                                  int
		createdAt, updatedAt, startedAt, finished string
	)
	err := s.Scan(
		&j.ID, &status, &j.Progress, &j.Error, &j.ErrorKind, &clips, &j.AudioPath,
		&j.OutputPath, &j.VideoURL, &j.Width, &j.Height, &j.FrameValue, &j.FrameScale,
		&j.FadeSeconds, &j.AudioOffsetSeconds, &pushToS3, &createdAt, &updatedAt, &startedAt, &finished,
	)
	if err != nil {
		return nil, err
	}

	j.Status = Status(status)
	j.PushToS3 = pushToS3 != 0
	if err := json.Unmarshal([]byte(clips), &j.ClipPaths); err != nil {
		return nil, fmt.Errorf("decode clip paths: %w", err)
	}
	if j.ClipPaths == nil {
		j.ClipPaths = make([]string, 0)
	}
	for _, t := range []struct {
		dst *time.Time
		src string
	}{
		{&j.CreatedAt, createdAt},
		{&j.UpdatedAt, updatedAt},
		{&j.StartedAt, startedAt},
		{&j.CompletedAt, finished},
	} {
		if *t.dst, err = parseTime(t.src); err != nil {
			return nil, err
		}
	}

	return &j, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
