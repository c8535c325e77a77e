package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/clipmerge-api/internal/composition"
	"github.com/maauso/clipmerge-api/internal/engine"
	"github.com/maauso/clipmerge-api/internal/job"
	"github.com/maauso/clipmerge-api/internal/merge"
	"github.com/maauso/clipmerge-api/internal/storage"
)

// instantEngine hands out sessions that write "merged" to the output path
// and complete on Start.
type instantEngine struct{}

func (instantEngine) NewSession(_ context.Context, req engine.Request) (engine.Session, error) {
	return &instantSession{req: req, done: make(chan struct{}), status: engine.StatusWaiting}, nil
}

type instantSession struct {
	req  engine.Request
	done chan struct{}

	mu     sync.Mutex
	status engine.Status
}

func (s *instantSession) ID() string            { return "instant" }
func (s *instantSession) Done() <-chan struct{} { return s.done }
func (s *instantSession) Progress() float64     { return 1 }
func (s *instantSession) Cancel()               {}
func (s *instantSession) Err() error            { return nil }

func (s *instantSession) Start(context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.req.Output.Path), 0750); err != nil {
		return err
	}
	if err := os.WriteFile(s.req.Output.Path, []byte("merged"), 0600); err != nil {
		return err
	}
	s.mu.Lock()
	s.status = engine.StatusCompleted
	s.mu.Unlock()
	close(s.done)
	return nil
}

func (s *instantSession) Status() engine.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *instantSession) Result() engine.Result {
	return engine.Result{SessionID: s.ID(), Path: s.req.Output.Path, Duration: s.req.Timeline.Duration}
}

// clipLoader loads every path as a 1s landscape clip with audio.
type clipLoader struct{}

func (clipLoader) Load(_ context.Context, path string) (*composition.Clip, error) {
	return &composition.Clip{
		Source:   path,
		Duration: time.Second,
		Video: &composition.VideoStream{
			NaturalSize:        composition.Size{Width: 1920, Height: 1080},
			PreferredTransform: composition.Identity,
		},
		Audio: &composition.AudioStream{SampleRate: 48000, Channels: 2},
	}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestHandlers(t *testing.T, opts ...HandlerOption) (*Handlers, job.Repository) {
	t.Helper()
	logger := testLogger()
	repo := job.NewMemoryRepository()

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	coord := merge.NewCoordinator(instantEngine{}, merge.WithLogger(logger))
	t.Cleanup(coord.Close)

	svc, err := job.NewMergeService(repo, clipLoader{}, store, []*merge.Coordinator{coord},
		job.WithLogger(logger),
		job.WithPollInterval(5*time.Millisecond),
	)
	require.NoError(t, err)

	// Background merges are off unless a test turns them back on.
	opts = append([]HandlerOption{WithAsyncProcessing(false)}, opts...)
	return NewHandlers(svc, logger, opts...), repo
}

func encode(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func postJSON(t *testing.T, path string, body any) *http.Request {
	t.Helper()
	bodyJSON, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(bodyJSON))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

// saveCompleted stores a COMPLETED job whose output is path.
func saveCompleted(t *testing.T, repo job.Repository, path, url string) *job.Job {
	t.Helper()
	j := job.New()
	require.NoError(t, j.Start())
	j.SetOutput(path, url)
	require.NoError(t, j.Complete())
	require.NoError(t, repo.Save(context.Background(), j))
	return j
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	h.Health(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestCreateMerge_Success(t *testing.T) {
	h, repo := newTestHandlers(t)
	fade := 0.5

	req := postJSON(t, "/merges", CreateMergeRequest{
		Clips:              []string{encode("clip-1"), encode("clip-2")},
		Audio:              encode("music"),
		Width:              1920,
		Height:             1080,
		FrameValue:         1001,
		FrameScale:         30000,
		FadeSeconds:        &fade,
		AudioOffsetSeconds: 2,
	})
	rec := httptest.NewRecorder()

	h.CreateMerge(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)

	var resp CreateMergeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "IN_QUEUE", resp.Status)

	created, err := repo.FindByID(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, 1920, created.Width)
	assert.Equal(t, 1080, created.Height)
	assert.Equal(t, 1001, created.FrameValue)
	assert.Equal(t, 30000, created.FrameScale)
	assert.Equal(t, 0.5, created.FadeSeconds)
	assert.Equal(t, 2.0, created.AudioOffsetSeconds)
	assert.Equal(t, 2.0, toJobResponse(created).AudioOffsetSeconds)
}

func TestCreateMerge_Defaults(t *testing.T) {
	h, repo := newTestHandlers(t)

	req := postJSON(t, "/merges", CreateMergeRequest{Clips: []string{encode("clip")}})
	rec := httptest.NewRecorder()

	h.CreateMerge(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp CreateMergeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	created, err := repo.FindByID(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, job.DefaultDefaults.Width, created.Width)
	assert.Equal(t, job.DefaultDefaults.Height, created.Height)
	assert.Equal(t, job.DefaultDefaults.FrameScale, created.FrameScale)
}

func TestCreateMerge_InvalidJSON(t *testing.T) {
	h, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/merges", bytes.NewReader([]byte("invalid json")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.CreateMerge(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_JSON", decodeError(t, rec).Code)
}

func TestCreateMerge_ValidationError(t *testing.T) {
	negative := -1.0

	tests := []struct {
		name string
		body CreateMergeRequest
	}{
		{"no clips", CreateMergeRequest{}},
		{"empty clip", CreateMergeRequest{Clips: []string{""}}},
		{"clip not base64", CreateMergeRequest{Clips: []string{"not base64!"}}},
		{"audio not base64", CreateMergeRequest{Clips: []string{encode("clip")}, Audio: "%%%"}},
		{"width above limit", CreateMergeRequest{Clips: []string{encode("clip")}, Width: 3840, Height: 2160}},
		{"negative height", CreateMergeRequest{Clips: []string{encode("clip")}, Width: 1080, Height: -1}},
		{"negative fade", CreateMergeRequest{Clips: []string{encode("clip")}, FadeSeconds: &negative}},
		{"negative audio offset", CreateMergeRequest{Clips: []string{encode("clip")}, Audio: encode("music"), AudioOffsetSeconds: -1}},
		{"negative frame scale", CreateMergeRequest{Clips: []string{encode("clip")}, FrameValue: 1, FrameScale: -30}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, repo := newTestHandlers(t)

			rec := httptest.NewRecorder()
			h.CreateMerge(rec, postJSON(t, "/merges", tt.body))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)

			jobs, err := repo.List(context.Background())
			require.NoError(t, err)
			assert.Empty(t, jobs)
		})
	}
}

func TestCreateMerge_DryRun(t *testing.T) {
	h, repo := newTestHandlers(t, WithAsyncProcessing(true))

	rec := httptest.NewRecorder()
	h.CreateMerge(rec, postJSON(t, "/merges", CreateMergeRequest{
		Clips:  []string{encode("clip")},
		DryRun: true,
	}))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp CreateMergeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	// No merge is started, so the job stays queued.
	time.Sleep(20 * time.Millisecond)
	created, err := repo.FindByID(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, job.StatusInQueue, created.Status)
}

func TestGetMerge_Success(t *testing.T) {
	h, repo := newTestHandlers(t)

	testJob := job.New()
	testJob.ClipPaths = []string{"a.mp4", "b.mp4"}
	testJob.Width, testJob.Height = 1080, 1920
	testJob.FrameValue, testJob.FrameScale = 1, 30
	require.NoError(t, repo.Save(context.Background(), testJob))

	req := httptest.NewRequest(http.MethodGet, "/merges/"+testJob.ID, nil)
	req.SetPathValue("id", testJob.ID)
	rec := httptest.NewRecorder()

	h.GetMerge(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp JobResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, testJob.ID, resp.ID)
	assert.Equal(t, "IN_QUEUE", resp.Status)
	assert.Equal(t, 2, resp.Clips)
	assert.Equal(t, "30/1", resp.FrameRate)
	assert.Nil(t, resp.CompletedAt)
	assert.Empty(t, resp.VideoBase64)
}

func TestGetMerge_NotFound(t *testing.T) {
	h, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/merges/nonexistent", nil)
	req.SetPathValue("id", "nonexistent")
	rec := httptest.NewRecorder()

	h.GetMerge(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "JOB_NOT_FOUND", decodeError(t, rec).Code)
}

func TestGetMerge_MissingID(t *testing.T) {
	h, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/merges/", nil)
	rec := httptest.NewRecorder()

	h.GetMerge(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MISSING_JOB_ID", decodeError(t, rec).Code)
}

func TestGetMerge_Failed(t *testing.T) {
	h, repo := newTestHandlers(t)

	testJob := job.New()
	require.NoError(t, testJob.Fail(merge.LoadingAudioAssetsFailed.String(), "merge: loading audio assets failed"))
	require.NoError(t, repo.Save(context.Background(), testJob))

	req := httptest.NewRequest(http.MethodGet, "/merges/"+testJob.ID, nil)
	req.SetPathValue("id", testJob.ID)
	rec := httptest.NewRecorder()

	h.GetMerge(rec, req)

	var resp JobResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "FAILED", resp.Status)
	assert.Equal(t, "LoadingAudioAssetsFailed", resp.ErrorKind)
	assert.Equal(t, "merge: loading audio assets failed", resp.Error)
	assert.NotNil(t, resp.CompletedAt)
}

func TestGetMerge_WithS3URL(t *testing.T) {
	h, repo := newTestHandlers(t)
	testJob := saveCompleted(t, repo, filepath.Join(t.TempDir(), "merge.mp4"), "https://bucket.s3.amazonaws.com/merges/merge.mp4")

	req := httptest.NewRequest(http.MethodGet, "/merges/"+testJob.ID, nil)
	req.SetPathValue("id", testJob.ID)
	rec := httptest.NewRecorder()

	h.GetMerge(rec, req)

	var resp JobResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "COMPLETED", resp.Status)
	assert.Equal(t, 100, resp.Progress)
	assert.Equal(t, "https://bucket.s3.amazonaws.com/merges/merge.mp4", resp.VideoURL)
	assert.Empty(t, resp.VideoBase64)
}

func TestGetMerge_WithVideoBase64(t *testing.T) {
	h, repo := newTestHandlers(t)

	videoPath := filepath.Join(t.TempDir(), "merge.mp4")
	videoData := []byte("fake video content")
	require.NoError(t, os.WriteFile(videoPath, videoData, 0600))
	testJob := saveCompleted(t, repo, videoPath, "")

	req := httptest.NewRequest(http.MethodGet, "/merges/"+testJob.ID, nil)
	req.SetPathValue("id", testJob.ID)
	rec := httptest.NewRecorder()

	h.GetMerge(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp JobResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	decoded, err := base64.StdEncoding.DecodeString(resp.VideoBase64)
	require.NoError(t, err)
	assert.Equal(t, videoData, decoded)
}

func TestListMerges(t *testing.T) {
	h, repo := newTestHandlers(t)
	ctx := context.Background()

	rec := httptest.NewRecorder()
	h.ListMerges(rec, httptest.NewRequest(http.MethodGet, "/merges", nil))

	var empty ListJobsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&empty))
	assert.NotNil(t, empty.Jobs)
	assert.Empty(t, empty.Jobs)

	first := job.NewWithID("merge-1")
	first.CreatedAt = time.Now().Add(-time.Minute)
	require.NoError(t, repo.Save(ctx, first))

	videoPath := filepath.Join(t.TempDir(), "merge.mp4")
	require.NoError(t, os.WriteFile(videoPath, []byte("video"), 0600))
	second := saveCompleted(t, repo, videoPath, "")

	rec = httptest.NewRecorder()
	h.ListMerges(rec, httptest.NewRequest(http.MethodGet, "/merges", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ListJobsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Jobs, 2)
	assert.Equal(t, "merge-1", resp.Jobs[0].ID)
	assert.Equal(t, second.ID, resp.Jobs[1].ID)
	assert.Equal(t, "COMPLETED", resp.Jobs[1].Status)
	assert.Empty(t, resp.Jobs[1].VideoBase64)
}

func TestCancelMerge(t *testing.T) {
	t.Run("queued job", func(t *testing.T) {
		h, repo := newTestHandlers(t)
		testJob := job.New()
		require.NoError(t, repo.Save(context.Background(), testJob))

		req := httptest.NewRequest(http.MethodPost, "/merges/"+testJob.ID+"/cancel", nil)
		req.SetPathValue("id", testJob.ID)
		rec := httptest.NewRecorder()

		h.CancelMerge(rec, req)

		assert.Equal(t, http.StatusAccepted, rec.Code)

		var resp JobResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "CANCELLED", resp.Status)
	})

	t.Run("finished job", func(t *testing.T) {
		h, repo := newTestHandlers(t)
		testJob := saveCompleted(t, repo, "/tmp/none.mp4", "")

		req := httptest.NewRequest(http.MethodPost, "/merges/"+testJob.ID+"/cancel", nil)
		req.SetPathValue("id", testJob.ID)
		rec := httptest.NewRecorder()

		h.CancelMerge(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "JOB_NOT_CANCELLABLE", decodeError(t, rec).Code)
	})

	t.Run("unknown job", func(t *testing.T) {
		h, _ := newTestHandlers(t)

		req := httptest.NewRequest(http.MethodPost, "/merges/nonexistent/cancel", nil)
		req.SetPathValue("id", "nonexistent")
		rec := httptest.NewRecorder()

		h.CancelMerge(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestDeleteMergeVideo_Success(t *testing.T) {
	h, repo := newTestHandlers(t)

	videoPath := filepath.Join(t.TempDir(), "merge.mp4")
	require.NoError(t, os.WriteFile(videoPath, []byte("video data"), 0600))
	testJob := saveCompleted(t, repo, videoPath, "")

	req := httptest.NewRequest(http.MethodPost, "/merges/"+testJob.ID+"/video/delete", nil)
	req.SetPathValue("id", testJob.ID)
	rec := httptest.NewRecorder()

	h.DeleteMergeVideo(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, statErr := os.Stat(videoPath)
	assert.True(t, os.IsNotExist(statErr))

	updated, err := repo.FindByID(context.Background(), testJob.ID)
	require.NoError(t, err)
	assert.Empty(t, updated.OutputPath)
}

func TestDeleteMergeVideo_FileAlreadyMissing(t *testing.T) {
	h, repo := newTestHandlers(t)
	testJob := saveCompleted(t, repo, filepath.Join(t.TempDir(), "gone.mp4"), "")

	req := httptest.NewRequest(http.MethodPost, "/merges/"+testJob.ID+"/video/delete", nil)
	req.SetPathValue("id", testJob.ID)
	rec := httptest.NewRecorder()

	h.DeleteMergeVideo(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDeleteMergeVideo_Errors(t *testing.T) {
	h, repo := newTestHandlers(t)
	noVideo := job.New()
	require.NoError(t, repo.Save(context.Background(), noVideo))

	tests := []struct {
		name     string
		id       string
		wantCode int
		wantErr  string
	}{
		{"job not found", "nonexistent", http.StatusNotFound, "JOB_NOT_FOUND"},
		{"no video", noVideo.ID, http.StatusNotFound, "VIDEO_NOT_FOUND"},
		{"missing id", "", http.StatusBadRequest, "MISSING_JOB_ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/merges/"+tt.id+"/video/delete", nil)
			if tt.id != "" {
				req.SetPathValue("id", tt.id)
			}
			rec := httptest.NewRecorder()

			h.DeleteMergeVideo(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantErr, decodeError(t, rec).Code)
		})
	}
}

func TestRouter_Integration(t *testing.T) {
	h, _ := newTestHandlers(t, WithAsyncProcessing(true))
	router := NewRouter(h, testLogger(), DefaultConfig())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, postJSON(t, "/merges", CreateMergeRequest{
		Clips: []string{encode("clip-1"), encode("clip-2")},
	}))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var created CreateMergeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))

	var resp JobResponse
	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/merges/"+created.ID, nil))
		if rec.Code != http.StatusOK {
			return false
		}
		resp = JobResponse{}
		return json.NewDecoder(rec.Body).Decode(&resp) == nil && resp.Status == "COMPLETED"
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, 100, resp.Progress)
	assert.Equal(t, 2, resp.Clips)
	decoded, err := base64.StdEncoding.DecodeString(resp.VideoBase64)
	require.NoError(t, err)
	assert.Equal(t, "merged", string(decoded))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/merges", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/merges/"+created.ID+"/cancel", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/merges/"+created.ID+"/video/delete", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/merges/"+created.ID, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORSMiddleware(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := NewRouter(h, testLogger(), Config{AllowedOrigins: []string{"https://example.com"}})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/merges", nil)
	req.Header.Set("Origin", "https://example.com")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	panicHandler := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("test panic")
	})

	handler := RecoveryMiddleware(testLogger())(panicHandler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, rec).Code)
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/merges", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "http request", entry["msg"])
	assert.Equal(t, "/merges", entry["path"])
	assert.Equal(t, float64(http.StatusTeapot), entry["status"])
}
