package job

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/maauso/clipmerge-api/internal/composition"
	"github.com/maauso/clipmerge-api/internal/engine"
	"github.com/maauso/clipmerge-api/internal/job/id"
	"github.com/maauso/clipmerge-api/internal/media"
	"github.com/maauso/clipmerge-api/internal/merge"
	"github.com/maauso/clipmerge-api/internal/storage"
	"github.com/maauso/clipmerge-api/internal/ui"
)

// ErrorKindUploadFailed marks jobs whose merge succeeded but whose upload
// to S3 did not. Other failures carry a merge.Kind name.
const ErrorKindUploadFailed = "UploadFailed"

var (
	// ErrNoCoordinators is returned when a service is built without coordinators.
	ErrNoCoordinators = errors.New("job: at least one coordinator is required")
	// ErrJobNotQueued is returned when processing a job that already left IN_QUEUE.
	ErrJobNotQueued = errors.New("job: job is not queued")
	// ErrJobNotCancellable is returned when cancelling a finished job.
	ErrJobNotCancellable = errors.New("job: job already finished")
	// ErrJobCancelled is the cause recorded when a job is cancelled on request.
	ErrJobCancelled = errors.New("job: cancelled on request")
	// ErrVideoNotFound is returned when a job has no output video.
	ErrVideoNotFound = errors.New("job: job has no output video")
)

// MergeInput contains the input parameters for a merge job.
type MergeInput struct {
	// ClipsBase64 are the base64-encoded clips in timeline order.
	ClipsBase64 []string
	// AudioBase64 is an optional base64-encoded replacement audio track.
	AudioBase64 string
	// Width and Height are the render size. Zero uses the service default.
	Width  int
	Height int
	// FrameValue/FrameScale seconds is the frame duration. Zero uses the default.
	FrameValue int
	FrameScale int
	// FadeSeconds overrides the default audio fade when set.
	FadeSeconds *float64
	// AudioOffsetSeconds delays the replacement audio on the output. It has
	// no effect without AudioBase64.
	AudioOffsetSeconds float64
	// PushToS3 indicates whether to upload the final video to S3.
	PushToS3 bool
}

// Defaults are applied to the zero fields of a MergeInput.
type Defaults struct {
	Width       int
	Height      int
	FrameValue  int
	FrameScale  int
	FadeSeconds float64
}

// DefaultDefaults renders portrait 1080x1920 at 30 fps without fades.
var DefaultDefaults = Defaults{Width: 1080, Height: 1920, FrameValue: 1, FrameScale: 30}

// MergeService drives merge jobs: it stores uploads, loads clips, runs them
// through a merge.Coordinator and records the result on the job.
type MergeService struct {
	repo         Repository
	loader       media.Loader
	store        storage.Storage
	coordinators chan *merge.Coordinator
	defaults     Defaults
	pollInterval time.Duration
	logger       *slog.Logger

	mu     sync.Mutex
	active map[string]context.CancelCauseFunc
}

// ServiceOption configures a MergeService.
type ServiceOption func(*MergeService)

// WithDefaults sets the render defaults for new jobs.
func WithDefaults(d Defaults) ServiceOption {
	return func(s *MergeService) {
		s.defaults = d
	}
}

// WithPollInterval sets how often export progress is copied to the job.
func WithPollInterval(d time.Duration) ServiceOption {
	return func(s *MergeService) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *MergeService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewMergeService creates a MergeService. Each coordinator runs one merge at
// a time, so len(coordinators) bounds the number of concurrent merges.
func NewMergeService(
	repo Repository,
	loader media.Loader,
	store storage.Storage,
	coordinators []*merge.Coordinator,
	opts ...ServiceOption,
) (*MergeService, error) {
	if len(coordinators) == 0 {
		return nil, ErrNoCoordinators
	}

	s := &MergeService{
		repo:         repo,
		loader:       loader,
		store:        store,
		coordinators: make(chan *merge.Coordinator, len(coordinators)),
		defaults:     DefaultDefaults,
		pollInterval: 500 * time.Millisecond,
		logger:       slog.Default(),
		active:       make(map[string]context.CancelCauseFunc),
	}
	for _, c := range coordinators {
		s.coordinators <- c
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateJob creates a new job and persists it to the repository.
// The job is created in IN_QUEUE status, ready for processing.
func (s *MergeService) CreateJob(ctx context.Context, input MergeInput) (*Job, error) {
	job := New()
	job.Width = orDefault(input.Width, s.defaults.Width)
	job.Height = orDefault(input.Height, s.defaults.Height)
	job.FrameValue = orDefault(input.FrameValue, s.defaults.FrameValue)
	job.FrameScale = orDefault(input.FrameScale, s.defaults.FrameScale)
	job.FadeSeconds = s.defaults.FadeSeconds
	if input.FadeSeconds != nil {
		job.FadeSeconds = *input.FadeSeconds
	}
	job.AudioOffsetSeconds = input.AudioOffsetSeconds
	job.PushToS3 = input.PushToS3

	s.logger.Info("creating new job",
		slog.String("job_id", job.ID),
		slog.Int("clips", len(input.ClipsBase64)),
		slog.Bool("audio", input.AudioBase64 != ""),
		slog.Int("width", job.Width),
		slog.Int("height", job.Height),
		slog.Bool("push_to_s3", job.PushToS3),
	)

	if err := s.repo.Save(ctx, job); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	return job, nil
}

// GetJob retrieves a job by ID.
func (s *MergeService) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.repo.FindByID(ctx, id)
}

// ListJobs returns all jobs, oldest first.
func (s *MergeService) ListJobs(ctx context.Context) ([]*Job, error) {
	return s.repo.List(ctx)
}

// ProcessExistingJob runs the merge for a job created by CreateJob.
//
// The workflow:
//  1. Decode the uploaded clips and audio into temporary files
//  2. Load every file with the media loader
//  3. Wait for a free coordinator and mark the job RUNNING
//  4. Merge, copying export progress onto the job
//  5. Optionally push the output to S3
//  6. Update the job to COMPLETED, FAILED or CANCELLED
//
// The returned job is the final state. A non-nil error means the job did
// not complete.
func (s *MergeService) ProcessExistingJob(ctx context.Context, jobID string, input MergeInput) (*Job, error) {
	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	job, err := s.claim(ctx, jobID, cancel)
	if err != nil {
		return job, err
	}
	defer s.untrack(jobID)

	logger := s.logger.With(slog.String("job_id", jobID))
	saveCtx := context.WithoutCancel(ctx)

	inputs, err := s.saveInputs(runCtx, job, input)
	defer s.cleanup(saveCtx, logger, inputs)
	if err != nil {
		return s.stop(saveCtx, runCtx, job, &merge.Error{Kind: merge.VideoAssetsNotValid, Err: err})
	}
	if err := s.repo.Save(saveCtx, job); err != nil {
		return job.Clone(), err
	}

	req, err := s.loadRequest(runCtx, job)
	if err != nil {
		return s.stop(saveCtx, runCtx, job, err)
	}

	coord, err := s.acquire(runCtx)
	if err != nil {
		return s.stop(saveCtx, runCtx, job, err)
	}
	defer s.release(coord)

	if err := job.Start(); err != nil {
		return job.Clone(), err
	}
	if err := s.repo.Save(saveCtx, job); err != nil {
		return job.Clone(), err
	}
	logger.Info("merge started", slog.Int("clips", len(req.Clips)), slog.String("output", req.Output.Path))

	req.Indicator = ui.NewLogIndicator(logger, slog.String("stage", "export"))
	out, err := coord.Merge(runCtx, req)
	if err != nil {
		return s.stop(saveCtx, runCtx, job, &merge.Error{Kind: merge.GenerationExportSessionFailed, Err: err})
	}

	outcome := s.await(saveCtx, logger, job, coord, out)
	if !outcome.Succeeded() {
		return s.stop(saveCtx, runCtx, job, outcome.Err)
	}

	videoURL := ""
	if job.PushToS3 {
		videoURL, err = s.upload(runCtx, job.ID, outcome.Result.Path)
		if err != nil {
			_ = job.Fail(ErrorKindUploadFailed, err.Error())
			s.saveFinal(saveCtx, logger, job)
			return job.Clone(), err
		}
	}
	job.SetOutput(outcome.Result.Path, videoURL)
	if err := job.Complete(); err != nil {
		return job.Clone(), err
	}
	s.saveFinal(saveCtx, logger, job)

	logger.Info("job completed",
		slog.String("output", outcome.Result.Path),
		slog.String("video_url", videoURL),
	)
	return job.Clone(), nil
}

// CancelJob cancels a queued or running job. A running merge is stopped and
// the job becomes CANCELLED once its coordinator has let go.
func (s *MergeService) CancelJob(ctx context.Context, jobID string) (*Job, error) {
	// Holding mu orders this against claim: either the merge is already
	// tracked and gets cancelled, or the job is saved CANCELLED first.
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.IsTerminal() {
		return job, fmt.Errorf("%w: %s is %s", ErrJobNotCancellable, jobID, job.GetStatus())
	}

	if cancel, running := s.active[jobID]; running {
		cancel(ErrJobCancelled)
		s.logger.Info("job cancellation requested", slog.String("job_id", jobID))
		return job, nil
	}

	if err := job.Cancel(); err != nil {
		return job, err
	}
	if err := s.repo.Save(ctx, job); err != nil {
		return nil, err
	}
	s.logger.Info("job cancelled", slog.String("job_id", jobID))
	return job, nil
}

// DeleteJobVideo removes a finished job's local output and clears its
// output fields. Uploaded S3 objects are kept.
func (s *MergeService) DeleteJobVideo(ctx context.Context, jobID string) (*Job, error) {
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.OutputPath == "" {
		return job, ErrVideoNotFound
	}

	if err := os.Remove(job.OutputPath); err != nil && !os.IsNotExist(err) {
		return job, fmt.Errorf("remove output video: %w", err)
	}
	// The per-job directory is removed when it is empty.
	_ = os.Remove(filepath.Dir(job.OutputPath))

	job.ClearOutput()
	if err := s.repo.Save(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info("job video deleted", slog.String("job_id", jobID))
	return job, nil
}

// inputFiles are the temporary files of one job.
type inputFiles []string

// saveInputs decodes the uploads into temporary files and records their
// paths on the job.
func (s *MergeService) saveInputs(ctx context.Context, job *Job, input MergeInput) (inputFiles, error) {
	if len(input.ClipsBase64) == 0 {
		return nil, composition.ErrNoClips
	}

	var files inputFiles
	clips := make([]string, 0, len(input.ClipsBase64))
	for i, encoded := range input.ClipsBase64 {
		path, err := s.saveBase64(ctx, fmt.Sprintf("%s-clip-%d.mp4", job.ID, i), encoded)
		if err != nil {
			return files, fmt.Errorf("clip %d: %w", i, err)
		}
		files = append(files, path)
		clips = append(clips, path)
	}
	job.ClipPaths = clips

	if input.AudioBase64 != "" {
		path, err := s.saveBase64(ctx, job.ID+"-audio.m4a", input.AudioBase64)
		if err != nil {
			return files, fmt.Errorf("audio: %w", err)
		}
		files = append(files, path)
		job.AudioPath = path
	}

	return files, nil
}

func (s *MergeService) saveBase64(ctx context.Context, name, encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode base64: %w", err)
	}
	return s.store.SaveTemp(ctx, name, bytes.NewReader(data))
}

// loadRequest loads the job's media and builds the merge request. Load
// failures carry the merge kind of the asset that failed.
func (s *MergeService) loadRequest(ctx context.Context, job *Job) (merge.Request, error) {
	clips := make([]*composition.Clip, 0, len(job.ClipPaths))
	for i, path := range job.ClipPaths {
		clip, err := s.loader.Load(ctx, path)
		if err != nil {
			return merge.Request{}, &merge.Error{
				Kind: merge.LoadingVideoAssetsFailed,
				Err:  fmt.Errorf("load clip %d: %w", i, err),
			}
		}
		clips = append(clips, clip)
	}

	var audio *composition.Clip
	if job.AudioPath != "" {
		var err error
		audio, err = s.loader.Load(ctx, job.AudioPath)
		if err != nil {
			return merge.Request{}, &merge.Error{
				Kind: merge.LoadingAudioAssetsFailed,
				Err:  fmt.Errorf("load audio: %w", err),
			}
		}
	}

	return merge.Request{
		Clips:        clips,
		Audio:        audio,
		AudioOffset:  time.Duration(job.AudioOffsetSeconds * float64(time.Second)),
		FadeDuration: time.Duration(job.FadeSeconds * float64(time.Second)),
		RenderSize: composition.Size{
			Width:  float64(job.Width),
			Height: float64(job.Height),
		},
		FrameDuration: engine.FrameDuration{Value: job.FrameValue, Scale: job.FrameScale},
		Output: engine.Output{
			Path:     filepath.Join(s.store.TempDir(), job.ID, id.OutputName(time.Now())),
			FileType: engine.FileTypeMP4,
		},
	}, nil
}

// acquire waits for a free coordinator.
func (s *MergeService) acquire(ctx context.Context) (*merge.Coordinator, error) {
	select {
	case c := <-s.coordinators:
		return c, nil
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}
}

func (s *MergeService) release(c *merge.Coordinator) {
	s.coordinators <- c
}

// await waits for the merge outcome and copies export progress onto the job
// in the meantime.
func (s *MergeService) await(ctx context.Context, logger *slog.Logger, job *Job, coord *merge.Coordinator, out <-chan merge.Outcome) merge.Outcome {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case outcome := <-out:
			return outcome
		case <-ticker.C:
			before := job.GetProgress()
			job.UpdateProgress(int(coord.Progress() * 100))
			if job.GetProgress() == before {
				continue
			}
			if err := s.repo.Save(ctx, job); err != nil {
				logger.Warn("failed to save progress", slog.String("error", err.Error()))
			}
		}
	}
}

func (s *MergeService) upload(ctx context.Context, jobID, path string) (string, error) {
	f, err := os.Open(path) // #nosec G304 - path is produced by the export engine
	if err != nil {
		return "", fmt.Errorf("open output video: %w", err)
	}
	defer func() { _ = f.Close() }()

	key := "merges/" + jobID + "/" + filepath.Base(path)
	return s.store.UploadToS3(ctx, key, f)
}

// stop ends a job that did not complete. The job is CANCELLED when runCtx
// was cancelled on request and FAILED otherwise.
func (s *MergeService) stop(ctx, runCtx context.Context, job *Job, cause error) (*Job, error) {
	logger := s.logger.With(slog.String("job_id", job.ID))

	if errors.Is(context.Cause(runCtx), ErrJobCancelled) {
		if err := job.Cancel(); err != nil {
			return job.Clone(), err
		}
		s.saveFinal(ctx, logger, job)
		logger.Info("job cancelled")
		return job.Clone(), ErrJobCancelled
	}

	kind, ok := merge.KindOf(cause)
	if !ok {
		kind = merge.GenerationExportSessionFailed
	}
	if err := job.Fail(kind.String(), cause.Error()); err != nil {
		return job.Clone(), err
	}
	s.saveFinal(ctx, logger, job)
	logger.Error("job failed",
		slog.String("kind", kind.String()),
		slog.String("error", cause.Error()),
	)
	return job.Clone(), cause
}

func (s *MergeService) saveFinal(ctx context.Context, logger *slog.Logger, job *Job) {
	if err := s.repo.Save(ctx, job); err != nil {
		logger.Error("failed to save job",
			slog.String("status", string(job.GetStatus())),
			slog.String("error", err.Error()),
		)
	}
}

func (s *MergeService) cleanup(ctx context.Context, logger *slog.Logger, files inputFiles) {
	if len(files) == 0 {
		return
	}
	if err := s.store.CleanupTemp(ctx, files); err != nil {
		logger.Warn("failed to clean up inputs", slog.String("error", err.Error()))
	}
}

// claim reloads a queued job and registers cancel for it. The status check
// and the registration happen under mu, the same lock CancelJob holds.
func (s *MergeService) claim(ctx context.Context, jobID string, cancel context.CancelCauseFunc) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if status := job.GetStatus(); status != StatusInQueue {
		return job, fmt.Errorf("%w: %s is %s", ErrJobNotQueued, jobID, status)
	}
	if _, ok := s.active[jobID]; ok {
		return job, fmt.Errorf("%w: %s is already processing", ErrJobNotQueued, jobID)
	}
	s.active[jobID] = cancel
	return job, nil
}

func (s *MergeService) untrack(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, jobID)
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
