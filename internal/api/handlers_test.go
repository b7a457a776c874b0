package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ZSC714725/videoeditor/internal/editor"
	"github.com/ZSC714725/videoeditor/internal/ffmpeg/parse"
	"github.com/ZSC714725/videoeditor/internal/ffmpeg/skills"
	"github.com/ZSC714725/videoeditor/internal/job"
	"github.com/ZSC714725/videoeditor/internal/process"
)

// mockJobs implements JobService for testing.
type mockJobs struct {
	mock.Mock
}

func (m *mockJobs) Trim(ctx context.Context, req editor.TrimRequest, opts job.Options) (*job.Job, error) {
	args := m.Called(ctx, req, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.Job), args.Error(1)
}

func (m *mockJobs) Crop(ctx context.Context, req editor.CropRequest, opts job.Options) (*job.Job, error) {
	args := m.Called(ctx, req, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.Job), args.Error(1)
}

func (m *mockJobs) Compress(ctx context.Context, req editor.CompressRequest, opts job.Options) (*job.Job, error) {
	args := m.Called(ctx, req, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.Job), args.Error(1)
}

func (m *mockJobs) Get(id string) (*job.Job, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.Job), args.Error(1)
}

func (m *mockJobs) List(ids []string, reference string) []*job.Job {
	args := m.Called(ids, reference)
	return args.Get(0).([]*job.Job)
}

func (m *mockJobs) Cancel(id string) error {
	return m.Called(id).Error(0)
}

func (m *mockJobs) Delete(id string) error {
	return m.Called(id).Error(0)
}

func (m *mockJobs) Exec(id string) (job.Exec, error) {
	args := m.Called(id)
	return args.Get(0).(job.Exec), args.Error(1)
}

func (m *mockJobs) Report(id string) ([]process.Line, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]process.Line), args.Error(1)
}

type fakeSkills struct {
	skills    skills.Skills
	reloadErr error
	reloads   int
}

func (f *fakeSkills) Skills() skills.Skills { return f.skills }
func (f *fakeSkills) ReloadSkills() error {
	f.reloads++
	return f.reloadErr
}

func newRouter(jobs JobService, sk SkillsProvider) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(jobs, sk).Register(r)
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	rec := do(t, newRouter(&mockJobs{}, &fakeSkills{}), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestTrim(t *testing.T) {
	jobs := &mockJobs{}
	jobs.On("Trim", mock.Anything,
		editor.TrimRequest{Input: "in.mp4", Output: "out.mp4", OutputURI: "content://1", Start: "00:00:01", End: "00:00:03"},
		job.Options{Reference: "album", Publish: true},
	).Return(&job.Job{ID: "j1", Kind: editor.KindTrim, State: job.StateStarted, Command: []string{"-y"}}, nil)

	rec := do(t, newRouter(jobs, &fakeSkills{}), http.MethodPost, "/api/v1/trim", map[string]interface{}{
		"input": "in.mp4", "output": "out.mp4", "start": "00:00:01", "end": "00:00:03",
		"output_uri": "content://1", "reference": "album", "publish": true,
	})

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	got := decode[Job](t, rec)
	assert.Equal(t, "j1", got.ID)
	assert.Equal(t, "trim", got.Type)
	assert.Equal(t, "started", got.State)
	jobs.AssertExpectations(t)
}

func TestTrim_MissingFields(t *testing.T) {
	jobs := &mockJobs{}
	rec := do(t, newRouter(jobs, &fakeSkills{}), http.MethodPost, "/api/v1/trim", map[string]string{"input": "in.mp4"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid JSON", decode[ErrorResponse](t, rec).Message)
	jobs.AssertNotCalled(t, "Trim", mock.Anything, mock.Anything, mock.Anything)
}

func TestCrop(t *testing.T) {
	jobs := &mockJobs{}
	jobs.On("Crop", mock.Anything,
		editor.CropRequest{Input: "in.mp4", Output: "out.mp4", Width: 640, Height: 360, X: 10, Y: 20, FrameCount: 300},
		job.Options{},
	).Return(&job.Job{ID: "j2", Kind: editor.KindCrop}, nil)

	rec := do(t, newRouter(jobs, &fakeSkills{}), http.MethodPost, "/api/v1/crop", map[string]interface{}{
		"input": "in.mp4", "output": "out.mp4", "width": 640, "height": 360, "x": 10, "y": 20, "frame_count": 300,
	})

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	jobs.AssertExpectations(t)
}

func TestCrop_InvalidDimensions(t *testing.T) {
	rec := do(t, newRouter(&mockJobs{}, &fakeSkills{}), http.MethodPost, "/api/v1/crop", map[string]interface{}{
		"input": "in.mp4", "output": "out.mp4", "width": 0, "height": 360,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompress_Errors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"invalid input", job.ErrInvalidInputAddress, http.StatusBadRequest, "Invalid address"},
		{"unsupported", job.ErrUnsupported, http.StatusBadRequest, "Unsupported operation"},
		{"internal", errors.New("boom"), http.StatusInternalServerError, "Internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs := &mockJobs{}
			jobs.On("Compress", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := do(t, newRouter(jobs, &fakeSkills{}), http.MethodPost, "/api/v1/compress", map[string]string{
				"input": "in.mp4", "output": "out.mp4", "width": "1280", "height": "-2",
			})

			assert.Equal(t, tt.code, rec.Code)
			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.code, resp.Code)
			assert.Equal(t, tt.message, resp.Message)
		})
	}
}

func TestListJobs(t *testing.T) {
	jobs := &mockJobs{}
	jobs.On("List", []string{"a", "b"}, "album").Return([]*job.Job{{ID: "a"}, {ID: "b"}})
	jobs.On("Exec", "a").Return(job.Exec{Status: process.Status{State: "running", Duration: 3 * time.Second}}, nil)
	jobs.On("Exec", "b").Return(job.Exec{}, job.ErrNotFound)

	rec := do(t, newRouter(jobs, &fakeSkills{}), http.MethodGet, "/api/v1/jobs?id=a,%20b&reference=album", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[[]Job](t, rec)
	require.Len(t, got, 2)
	require.NotNil(t, got[0].Exec)
	assert.Equal(t, "running", got[0].Exec.State)
	assert.Equal(t, int64(3), got[0].Exec.Runtime)
	assert.Nil(t, got[1].Exec)
}

func TestGetJob(t *testing.T) {
	jobs := &mockJobs{}
	jobs.On("Get", "j1").Return(&job.Job{ID: "j1", State: job.StateSucceeded, Progress: 100, Result: "out.mp4"}, nil)
	jobs.On("Get", "nope").Return(nil, job.ErrNotFound)
	jobs.On("Exec", "j1").Return(job.Exec{Progress: parse.Progress{Frame: 42}}, nil)
	r := newRouter(jobs, &fakeSkills{})

	rec := do(t, r, http.MethodGet, "/api/v1/jobs/j1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[Job](t, rec)
	assert.Equal(t, "succeeded", got.State)
	assert.Equal(t, "out.mp4", got.Result)
	assert.Equal(t, uint64(42), got.Exec.Progress.Frame)

	rec = do(t, r, http.MethodGet, "/api/v1/jobs/j1?filter=job", nil)
	assert.Nil(t, decode[Job](t, rec).Exec)

	rec = do(t, r, http.MethodGet, "/api/v1/jobs/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteJob(t *testing.T) {
	jobs := &mockJobs{}
	jobs.On("Delete", "j1").Return(nil)
	jobs.On("Delete", "nope").Return(job.ErrNotFound)
	r := newRouter(jobs, &fakeSkills{})

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodDelete, "/api/v1/jobs/j1", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodDelete, "/api/v1/jobs/nope", nil).Code)
}

func TestGetReport(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 6_000_000, time.UTC)
	jobs := &mockJobs{}
	jobs.On("Get", "j1").Return(&job.Job{ID: "j1", CreatedAt: 1700000000}, nil)
	jobs.On("Report", "j1").Return([]process.Line{{Timestamp: ts, Data: "frame=  42"}}, nil)

	rec := do(t, newRouter(jobs, &fakeSkills{}), http.MethodGet, "/api/v1/jobs/j1/report", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[JobReport](t, rec)
	assert.Equal(t, int64(1700000000), got.CreatedAt)
	assert.Equal(t, [][2]string{{"2026-01-02 03:04:05.006", "frame=  42"}}, got.Log)
}

func TestCommand(t *testing.T) {
	jobs := &mockJobs{}
	jobs.On("Cancel", "j1").Return(nil)
	jobs.On("Cancel", "done").Return(job.ErrNotRunning)
	r := newRouter(jobs, &fakeSkills{})

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPut, "/api/v1/jobs/j1/command", CommandRequest{Command: "cancel"}).Code)
	assert.Equal(t, http.StatusConflict, do(t, r, http.MethodPut, "/api/v1/jobs/done/command", CommandRequest{Command: "cancel"}).Code)

	rec := do(t, r, http.MethodPut, "/api/v1/jobs/j1/command", CommandRequest{Command: "restart"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Unknown command", decode[ErrorResponse](t, rec).Message)
}

func TestSkills(t *testing.T) {
	sk := &fakeSkills{}
	sk.skills.FFmpeg.Version = "6.1.1"
	sk.skills.Filters = []skills.Filter{{Id: "crop", Name: "Crop the input video."}}
	r := newRouter(&mockJobs{}, sk)

	rec := do(t, r, http.MethodGet, "/api/v1/skills", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[SkillsResponse](t, rec)
	assert.Equal(t, "6.1.1", got.FFmpeg.Version)
	assert.Equal(t, map[string]bool{"trim": true, "crop": true, "compress": false}, got.Operations)

	rec = do(t, r, http.MethodPost, "/api/v1/skills/reload", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, sk.reloads)

	sk.reloadErr = errors.New("ffmpeg vanished")
	rec = do(t, r, http.MethodPost, "/api/v1/skills/reload", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
