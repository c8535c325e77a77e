package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/clipmerge-api/internal/job"
)

// maxRequestBytes bounds the JSON body of a merge request.
const maxRequestBytes = 512 << 20

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service            *job.MergeService
	validator          *validator.Validate
	logger             *slog.Logger
	enableAsyncProcess bool
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithAsyncProcessing enables or disables background processing.
// When disabled, CreateMerge only creates the job.
func WithAsyncProcessing(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.enableAsyncProcess = enabled
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *job.MergeService, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:            service,
		validator:          validator.New(),
		logger:             logger,
		enableAsyncProcess: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateMerge handles POST /merges requests.
func (h *Handlers) CreateMerge(w http.ResponseWriter, r *http.Request) {
	var req CreateMergeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	input := job.MergeInput{
		ClipsBase64:        req.Clips,
		AudioBase64:        req.Audio,
		Width:              req.Width,
		Height:             req.Height,
		FrameValue:         req.FrameValue,
		FrameScale:         req.FrameScale,
		FadeSeconds:        req.FadeSeconds,
		AudioOffsetSeconds: req.AudioOffsetSeconds,
		PushToS3:           req.PushToS3,
	}

	createdJob, err := h.service.CreateJob(r.Context(), input)
	if err != nil {
		h.logger.Error("failed to create job",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create job", "JOB_CREATION_FAILED")
		return
	}

	// The merge outlives the request.
	if h.enableAsyncProcess && !req.DryRun {
		go func(ctx context.Context, jobID string, inp job.MergeInput) {
			if _, processErr := h.service.ProcessExistingJob(ctx, jobID, inp); processErr != nil {
				h.logger.Error("background processing failed",
					slog.String("job_id", jobID),
					slog.String("error", processErr.Error()),
				)
			}
		}(context.WithoutCancel(r.Context()), createdJob.ID, input)
	}

	h.logger.Info("merge job created",
		slog.String("job_id", createdJob.ID),
		slog.Int("clips", len(req.Clips)),
		slog.Bool("dry_run", req.DryRun),
	)

	writeJSON(w, http.StatusAccepted, CreateMergeResponse{
		ID:     createdJob.ID,
		Status: string(createdJob.Status),
	})
}

// GetMerge handles GET /merges/{id} requests.
func (h *Handlers) GetMerge(w http.ResponseWriter, r *http.Request) {
	jobID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	foundJob, err := h.service.GetJob(r.Context(), jobID)
	if err != nil {
		h.writeServiceError(w, jobID, "failed to get job", err)
		return
	}

	resp := toJobResponse(foundJob)
	if foundJob.Status == job.StatusCompleted && foundJob.VideoURL == "" && foundJob.OutputPath != "" {
		videoData, err := os.ReadFile(foundJob.OutputPath)
		if err != nil {
			// The job is still reported without its video.
			h.logger.Error("failed to read output video",
				slog.String("job_id", jobID),
				slog.String("path", foundJob.OutputPath),
				slog.String("error", err.Error()),
			)
		} else {
			resp.VideoBase64 = base64.StdEncoding.EncodeToString(videoData)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListMerges handles GET /merges requests.
func (h *Handlers) ListMerges(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.service.ListJobs(r.Context())
	if err != nil {
		h.logger.Error("failed to list jobs", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list jobs", "JOB_LIST_FAILED")
		return
	}

	resp := ListJobsResponse{Jobs: make([]JobResponse, 0, len(jobs))}
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, toJobResponse(j))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CancelMerge handles POST /merges/{id}/cancel requests.
func (h *Handlers) CancelMerge(w http.ResponseWriter, r *http.Request) {
	jobID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	cancelled, err := h.service.CancelJob(r.Context(), jobID)
	if err != nil {
		h.writeServiceError(w, jobID, "failed to cancel job", err)
		return
	}

	writeJSON(w, http.StatusAccepted, toJobResponse(cancelled))
}

// DeleteMergeVideo handles POST /merges/{id}/video/delete requests.
func (h *Handlers) DeleteMergeVideo(w http.ResponseWriter, r *http.Request) {
	jobID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if _, err := h.service.DeleteJobVideo(r.Context(), jobID); err != nil {
		h.writeServiceError(w, jobID, "failed to delete video", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return "", false
	}
	return jobID, true
}

// writeServiceError maps MergeService errors to HTTP responses.
func (h *Handlers) writeServiceError(w http.ResponseWriter, jobID, message string, err error) {
	switch {
	case errors.Is(err, job.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
	case errors.Is(err, job.ErrVideoNotFound):
		writeError(w, http.StatusNotFound, "job has no video", "VIDEO_NOT_FOUND")
	case errors.Is(err, job.ErrJobNotCancellable):
		writeError(w, http.StatusConflict, "job already finished", "JOB_NOT_CANCELLABLE")
	default:
		h.logger.Error(message,
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, message, "INTERNAL_ERROR")
	}
}

func toJobResponse(j *job.Job) JobResponse {
	resp := JobResponse{
		ID:                 j.ID,
		Status:             string(j.Status),
		Progress:           j.Progress,
		Error:              j.Error,
		ErrorKind:          j.ErrorKind,
		Clips:              len(j.ClipPaths),
		Width:              j.Width,
		Height:             j.Height,
		FrameRate:          strconv.Itoa(j.FrameScale) + "/" + strconv.Itoa(j.FrameValue),
		FadeSeconds:        j.FadeSeconds,
		AudioOffsetSeconds: j.AudioOffsetSeconds,
		CreatedAt:          j.CreatedAt,
		VideoURL:           j.VideoURL,
	}
	if !j.CompletedAt.IsZero() {
		completed := j.CompletedAt
		resp.CompletedAt = &completed
	}
	return resp
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
