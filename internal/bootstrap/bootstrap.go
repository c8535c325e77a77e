// Package bootstrap provides dependency initialization for the clipmerge API.
package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/maauso/clipmerge-api/internal/composition"
	"github.com/maauso/clipmerge-api/internal/config"
	"github.com/maauso/clipmerge-api/internal/engine"
	"github.com/maauso/clipmerge-api/internal/job"
	"github.com/maauso/clipmerge-api/internal/media"
	"github.com/maauso/clipmerge-api/internal/merge"
	"github.com/maauso/clipmerge-api/internal/storage"
	"github.com/maauso/clipmerge-api/internal/ui"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	MergeService *job.MergeService

	coordinators []*merge.Coordinator
	dispatcher   *ui.Dispatcher
	repo         job.Repository
}

// NewDependencies creates and initializes all dependencies for the application.
// Callers must Close the returned Dependencies.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	layout, ok := composition.LayoutByName(cfg.Layout)
	if !ok {
		return nil, config.ErrUnknownLayout
	}

	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	repo, err := initRepository(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Coordinators share one dispatcher so indicator calls stay ordered.
	dispatcher := ui.NewDispatcher(0)
	eng := NewEngine(cfg, logger)
	coordinators := make([]*merge.Coordinator, 0, cfg.MaxConcurrentMerges)
	for i := 0; i < max(cfg.MaxConcurrentMerges, 1); i++ {
		coordinators = append(coordinators, merge.NewCoordinator(eng,
			merge.WithLayout(layout),
			merge.WithDispatcher(dispatcher),
			merge.WithLogger(logger.With(slog.Int("coordinator", i))),
		))
	}

	svc, err := job.NewMergeService(repo, NewLoader(cfg, logger), store, coordinators,
		job.WithLogger(logger),
		job.WithDefaults(job.Defaults{
			Width:       cfg.RenderWidth,
			Height:      cfg.RenderHeight,
			FrameValue:  cfg.FrameValue,
			FrameScale:  cfg.FrameScale,
			FadeSeconds: cfg.FadeSeconds,
		}),
	)
	if err != nil {
		dispatcher.Close()
		return nil, fmt.Errorf("create merge service: %w", err)
	}

	logger.Info("merge service configured",
		slog.Int("coordinators", len(coordinators)),
		slog.String("layout", cfg.Layout),
		slog.String("job_store", cfg.JobStore),
	)

	return &Dependencies{
		MergeService: svc,
		coordinators: coordinators,
		dispatcher:   dispatcher,
		repo:         repo,
	}, nil
}

// Close releases the coordinators and the job store.
func (d *Dependencies) Close() error {
	for _, c := range d.coordinators {
		c.Close()
	}
	d.dispatcher.Close()

	var errs []error
	if closer, ok := d.repo.(interface{ Close() error }); ok {
		errs = append(errs, closer.Close())
	}
	return errors.Join(errs...)
}

// NewEngine creates the ffmpeg export engine.
func NewEngine(cfg *config.Config, logger *slog.Logger) *engine.FFmpegEngine {
	return engine.NewFFmpegEngine(cfg.FFmpegPath,
		engine.WithPreset(cfg.FFmpegPreset),
		engine.WithLogger(logger),
	)
}

// NewLoader creates the ffprobe clip loader.
func NewLoader(cfg *config.Config, logger *slog.Logger) *media.FFprobeLoader {
	return media.NewFFprobeLoader(cfg.FFprobePath, logger)
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
			slog.String("endpoint", cfg.S3Endpoint),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", cfg.TempDir),
	)
	return localStore, nil
}

// initRepository creates the job store named by JOB_STORE.
func initRepository(cfg *config.Config, logger *slog.Logger) (job.Repository, error) {
	switch cfg.JobStore {
	case config.JobStoreSQLite:
		repo, err := job.NewSQLiteRepository(cfg.JobDBPath, logger)
		if err != nil {
			return nil, fmt.Errorf("open job store: %w", err)
		}
		logger.Info("sqlite job store configured", slog.String("path", cfg.JobDBPath))
		return repo, nil
	case config.JobStoreMemory, "":
		return job.NewMemoryRepository(), nil
	default:
		return nil, config.ErrUnknownJobStore
	}
}
