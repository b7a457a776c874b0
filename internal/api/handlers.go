// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoEditor - FFmpeg 视频剪辑工具

package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ZSC714725/videoeditor/internal/editor"
	"github.com/ZSC714725/videoeditor/internal/ffmpeg/skills"
	"github.com/ZSC714725/videoeditor/internal/job"
	"github.com/ZSC714725/videoeditor/internal/process"
)

// JobService is implemented by *job.Service
type JobService interface {
	Trim(ctx context.Context, req editor.TrimRequest, opts job.Options) (*job.Job, error)
	Crop(ctx context.Context, req editor.CropRequest, opts job.Options) (*job.Job, error)
	Compress(ctx context.Context, req editor.CompressRequest, opts job.Options) (*job.Job, error)
	Get(id string) (*job.Job, error)
	List(ids []string, reference string) []*job.Job
	Cancel(id string) error
	Delete(id string) error
	Exec(id string) (job.Exec, error)
	Report(id string) ([]process.Line, error)
}

// SkillsProvider is implemented by ffmpeg.FFmpeg
type SkillsProvider interface {
	Skills() skills.Skills
	ReloadSkills() error
}

// Handler holds dependencies
type Handler struct {
	jobs   JobService
	skills SkillsProvider
}

// NewHandler creates API handler
func NewHandler(jobs JobService, sk SkillsProvider) *Handler {
	return &Handler{jobs: jobs, skills: sk}
}

// Register mounts /health and the /api/v1 routes.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/health", h.Health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/skills", h.Skills)
		v1.POST("/skills/reload", h.ReloadSkills)

		v1.POST("/trim", h.Trim)
		v1.POST("/crop", h.Crop)
		v1.POST("/compress", h.Compress)

		v1.GET("/jobs", h.ListJobs)
		v1.GET("/jobs/:id", h.GetJob)
		v1.DELETE("/jobs/:id", h.DeleteJob)
		v1.GET("/jobs/:id/report", h.GetReport)
		v1.PUT("/jobs/:id/command", h.Command)
	}
}

func errResp(c *gin.Context, code int, msg, detail string) {
	c.JSON(code, ErrorResponse{Code: code, Message: msg, Detail: detail})
}

func jobErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, job.ErrNotFound):
		errResp(c, http.StatusNotFound, "Unknown job ID", err.Error())
	case errors.Is(err, job.ErrInvalidInputAddress), errors.Is(err, job.ErrInvalidOutputAddress):
		errResp(c, http.StatusBadRequest, "Invalid address", err.Error())
	case errors.Is(err, job.ErrUnsupported):
		errResp(c, http.StatusBadRequest, "Unsupported operation", err.Error())
	case errors.Is(err, job.ErrNotRunning):
		errResp(c, http.StatusConflict, "Job not running", err.Error())
	default:
		errResp(c, http.StatusInternalServerError, "Internal error", err.Error())
	}
}

// Health GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func options(o JobOptions) job.Options {
	return job.Options{Reference: o.Reference, Publish: o.Publish}
}

// Trim POST /api/v1/trim
func (h *Handler) Trim(c *gin.Context) {
	var req TrimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errResp(c, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}

	j, err := h.jobs.Trim(c.Request.Context(), editor.TrimRequest{
		Input:      req.Input,
		Output:     req.Output,
		OutputURI:  req.OutputURI,
		Start:      req.Start,
		End:        req.End,
		FrameCount: req.FrameCount,
	}, options(req.JobOptions))
	if err != nil {
		jobErr(c, err)
		return
	}

	c.JSON(http.StatusAccepted, jobToAPI(j, nil))
}

// Crop POST /api/v1/crop
func (h *Handler) Crop(c *gin.Context) {
	var req CropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errResp(c, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}

	j, err := h.jobs.Crop(c.Request.Context(), editor.CropRequest{
		Input:      req.Input,
		Output:     req.Output,
		OutputURI:  req.OutputURI,
		Width:      req.Width,
		Height:     req.Height,
		X:          req.X,
		Y:          req.Y,
		FrameCount: req.FrameCount,
	}, options(req.JobOptions))
	if err != nil {
		jobErr(c, err)
		return
	}

	c.JSON(http.StatusAccepted, jobToAPI(j, nil))
}

// Compress POST /api/v1/compress
func (h *Handler) Compress(c *gin.Context) {
	var req CompressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errResp(c, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}

	j, err := h.jobs.Compress(c.Request.Context(), editor.CompressRequest{
		Input:      req.Input,
		Output:     req.Output,
		OutputURI:  req.OutputURI,
		Width:      req.Width,
		Height:     req.Height,
		FrameCount: req.FrameCount,
	}, options(req.JobOptions))
	if err != nil {
		jobErr(c, err)
		return
	}

	c.JSON(http.StatusAccepted, jobToAPI(j, nil))
}

// ListJobs GET /api/v1/jobs
func (h *Handler) ListJobs(c *gin.Context) {
	filter := c.DefaultQuery("filter", "")
	reference := c.DefaultQuery("reference", "")
	idStr := c.DefaultQuery("id", "")

	var ids []string
	if idStr != "" {
		ids = strings.FieldsFunc(idStr, func(r rune) bool { return r == ',' })
		for i := range ids {
			ids[i] = strings.TrimSpace(ids[i])
		}
	}

	jobs := h.jobs.List(ids, reference)
	out := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, h.job(j, filter))
	}

	c.JSON(http.StatusOK, out)
}

// GetJob GET /api/v1/jobs/:id
func (h *Handler) GetJob(c *gin.Context) {
	j, err := h.jobs.Get(c.Param("id"))
	if err != nil {
		jobErr(c, err)
		return
	}

	c.JSON(http.StatusOK, h.job(j, c.DefaultQuery("filter", "")))
}

// DeleteJob DELETE /api/v1/jobs/:id
func (h *Handler) DeleteJob(c *gin.Context) {
	if err := h.jobs.Delete(c.Param("id")); err != nil {
		jobErr(c, err)
		return
	}

	c.JSON(http.StatusOK, "OK")
}

// GetReport GET /api/v1/jobs/:id/report
func (h *Handler) GetReport(c *gin.Context) {
	id := c.Param("id")

	j, err := h.jobs.Get(id)
	if err != nil {
		jobErr(c, err)
		return
	}

	lines, err := h.jobs.Report(id)
	if err != nil {
		jobErr(c, err)
		return
	}

	report := JobReport{CreatedAt: j.CreatedAt, Log: make([][2]string, len(lines))}
	for i, line := range lines {
		report.Log[i] = [2]string{
			line.Timestamp.Format("2006-01-02 15:04:05.000"),
			line.Data,
		}
	}

	c.JSON(http.StatusOK, report)
}

// Command PUT /api/v1/jobs/:id/command
func (h *Handler) Command(c *gin.Context) {
	id := c.Param("id")

	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errResp(c, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}

	var err error
	switch req.Command {
	case "cancel":
		err = h.jobs.Cancel(id)
	default:
		errResp(c, http.StatusBadRequest, "Unknown command", "Known: cancel")
		return
	}

	if err != nil {
		jobErr(c, err)
		return
	}

	c.JSON(http.StatusOK, "OK")
}

// Skills GET /api/v1/skills
func (h *Handler) Skills(c *gin.Context) {
	c.JSON(http.StatusOK, skillsToAPI(h.skills.Skills()))
}

// ReloadSkills POST /api/v1/skills/reload
func (h *Handler) ReloadSkills(c *gin.Context) {
	if err := h.skills.ReloadSkills(); err != nil {
		errResp(c, http.StatusInternalServerError, "Reload failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, skillsToAPI(h.skills.Skills()))
}

// job converts j, adding the process view unless filter excludes "exec".
func (h *Handler) job(j *job.Job, filter string) Job {
	if filter != "" && !strings.Contains(filter, "exec") {
		return jobToAPI(j, nil)
	}

	exec, err := h.jobs.Exec(j.ID)
	if err != nil {
		// 进程已被移除，只返回任务记录
		return jobToAPI(j, nil)
	}
	return jobToAPI(j, &exec)
}

func jobToAPI(j *job.Job, exec *job.Exec) Job {
	out := Job{
		ID:           j.ID,
		Reference:    j.Reference,
		Type:         string(j.Kind),
		Input:        j.Input,
		Output:       j.Output,
		OutputURI:    j.OutputURI,
		Command:      j.Command,
		FrameCount:   j.FrameCount,
		State:        string(j.State),
		Progress:     j.Progress,
		Result:       j.Result,
		Error:        j.Error,
		Publish:      j.Publish,
		PublishedURL: j.PublishedURL,
		PublishError: j.PublishError,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
	}

	if exec != nil {
		status := exec.Status
		prog := exec.Progress
		out.Exec = &JobState{
			Order:   status.Order,
			State:   status.State,
			Runtime: int64(status.Duration.Seconds()),
			Memory:  status.Memory,
			CPU:     status.CPU,
			Progress: &Progress{
				Frame: prog.Frame, FPS: prog.FPS, Size: prog.Size, Time: prog.Time,
				Speed: prog.Speed, Quantizer: prog.Quantizer,
			},
		}
	}

	return out
}
