// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoEditor - FFmpeg 视频剪辑工具

package job

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/ZSC714725/videoeditor/internal/editor"
	"github.com/ZSC714725/videoeditor/internal/ffmpeg"
	"github.com/ZSC714725/videoeditor/internal/ffmpeg/parse"
	"github.com/ZSC714725/videoeditor/internal/logger"
	"github.com/ZSC714725/videoeditor/internal/process"
	"github.com/ZSC714725/videoeditor/internal/storage"
)

const (
	defaultProbeTimeout   = 30 * time.Second
	defaultPublishTimeout = 10 * time.Minute
)

// Options are the per-submission settings that don't reach ffmpeg.
type Options struct {
	Reference string
	// Publish uploads the output after success. Needs a Publisher.
	Publish bool
}

// Exec is the engine-side view of a job's process.
type Exec struct {
	Status   process.Status
	Progress parse.Progress
}

// Config for Service
type Config struct {
	FFmpeg         ffmpeg.FFmpeg
	Store          Store
	Publisher      storage.Publisher // nil disables publishing
	Logger         logger.Logger
	ProbeTimeout   time.Duration
	PublishTimeout time.Duration
}

// Service validates and submits edit operations and records their outcome.
type Service struct {
	ffmpeg    ffmpeg.FFmpeg
	editor    *editor.Editor
	store     Store
	publisher storage.Publisher
	logger    logger.Logger

	probeTimeout   time.Duration
	publishTimeout time.Duration

	uploads sync.WaitGroup
}

// NewService creates a Service. The store defaults to an in-memory one.
func NewService(config Config) *Service {
	s := &Service{
		ffmpeg:         config.FFmpeg,
		store:          config.Store,
		publisher:      config.Publisher,
		logger:         config.Logger,
		probeTimeout:   config.ProbeTimeout,
		publishTimeout: config.PublishTimeout,
	}

	if s.logger == nil {
		s.logger = logger.Nop()
	}
	if s.store == nil {
		s.store = NewStore()
	}
	if s.probeTimeout <= 0 {
		s.probeTimeout = defaultProbeTimeout
	}
	if s.publishTimeout <= 0 {
		s.publishTimeout = defaultPublishTimeout
	}
	s.editor = editor.New(s.ffmpeg, s.logger)

	return s
}

// Trim submits a trim. Trims are stream copies and only report progress
// when the caller supplies a frame count.
func (s *Service) Trim(ctx context.Context, req editor.TrimRequest, opts Options) (*Job, error) {
	if err := s.check(req.Input, req.Output, opts); err != nil {
		return nil, err
	}

	j, err := s.create(editor.KindTrim, req.Input, req.Output, req.OutputURI, req.Args(), req.FrameCount, opts)
	if err != nil {
		return nil, err
	}
	return s.started(j.ID, s.editor.Trim(req, s.listener(j.ID)))
}

// Crop submits a crop. Requires the crop filter.
func (s *Service) Crop(ctx context.Context, req editor.CropRequest, opts Options) (*Job, error) {
	if err := s.check(req.Input, req.Output, opts); err != nil {
		return nil, err
	}
	if !s.ffmpeg.Skills().HasFilter("crop") {
		return nil, fmt.Errorf("%w: crop filter missing", ErrUnsupported)
	}
	if req.FrameCount <= 0 {
		req.FrameCount = s.frameCount(ctx, req.Input)
	}

	j, err := s.create(editor.KindCrop, req.Input, req.Output, req.OutputURI, req.Args(), req.FrameCount, opts)
	if err != nil {
		return nil, err
	}
	return s.started(j.ID, s.editor.Crop(req, s.listener(j.ID)))
}

// Compress submits a compression. Requires the libx264 encoder.
func (s *Service) Compress(ctx context.Context, req editor.CompressRequest, opts Options) (*Job, error) {
	if err := s.check(req.Input, req.Output, opts); err != nil {
		return nil, err
	}
	if !s.ffmpeg.Skills().HasEncoder("libx264") {
		return nil, fmt.Errorf("%w: libx264 encoder missing", ErrUnsupported)
	}
	if req.FrameCount <= 0 {
		req.FrameCount = s.frameCount(ctx, req.Input)
	}

	j, err := s.create(editor.KindCompress, req.Input, req.Output, req.OutputURI, req.Args(), req.FrameCount, opts)
	if err != nil {
		return nil, err
	}
	return s.started(j.ID, s.editor.Compress(req, s.listener(j.ID)))
}

func (s *Service) check(input, output string, opts Options) error {
	if !s.ffmpeg.ValidateInput(input) {
		return ErrInvalidInputAddress
	}
	if !s.ffmpeg.ValidateOutput(output) {
		return ErrInvalidOutputAddress
	}
	if opts.Publish && s.publisher == nil {
		return fmt.Errorf("%w: no storage configured for publishing", ErrUnsupported)
	}
	return nil
}

// frameCount asks ffprobe for the total. 0 means unknown: the job runs without progress.
func (s *Service) frameCount(ctx context.Context, input string) int {
	ctx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()

	n, err := s.ffmpeg.FrameCount(ctx, input)
	if err != nil {
		s.logger.Info("frame count of %s unavailable, no progress will be reported: %v", input, err)
		return 0
	}
	return n
}

func (s *Service) create(kind editor.Kind, input, output, uri string, args []string, frames int, opts Options) (*Job, error) {
	j := &Job{
		ID:         shortuuid.New(),
		Reference:  opts.Reference,
		Kind:       kind,
		Input:      input,
		Output:     output,
		OutputURI:  uri,
		Command:    args,
		FrameCount: frames,
		State:      StateStarted,
		Publish:    opts.Publish,
	}
	if err := s.store.Add(j); err != nil {
		return nil, err
	}
	return j, nil
}

// started records the engine's execution id. The job may already be finished here.
func (s *Service) started(id, executionID string) (*Job, error) {
	return s.store.Update(id, func(j *Job) {
		j.ExecutionID = executionID
	})
}

// Get returns a job
func (s *Service) Get(id string) (*Job, error) {
	return s.store.Get(id)
}

// List returns jobs, optionally filtered by id and reference
func (s *Service) List(ids []string, reference string) []*Job {
	return s.store.List(ids, reference)
}

// Cancel interrupts a running job. The outcome arrives through the listener.
func (s *Service) Cancel(id string) error {
	j, err := s.store.Get(id)
	if err != nil {
		return err
	}
	if j.State.IsTerminal() || j.ExecutionID == "" {
		return ErrNotRunning
	}

	if err := s.ffmpeg.Cancel(j.ExecutionID); err != nil {
		if errors.Is(err, ffmpeg.ErrUnknownExecution) {
			return ErrNotRunning
		}
		return fmt.Errorf("cancel %s: %w", id, err)
	}
	return nil
}

// Delete stops the job if needed and forgets it.
func (s *Service) Delete(id string) error {
	j, err := s.store.Get(id)
	if err != nil {
		return err
	}

	if j.ExecutionID != "" {
		if err := s.ffmpeg.Remove(j.ExecutionID); err != nil && !errors.Is(err, ffmpeg.ErrUnknownExecution) {
			s.logger.Error("job %s: remove execution %s: %v", id, j.ExecutionID, err)
		}
	}
	return s.store.Delete(id)
}

// Exec returns the process status and parsed ffmpeg progress.
func (s *Service) Exec(id string) (Exec, error) {
	executionID, err := s.executionID(id)
	if err != nil {
		return Exec{}, err
	}

	status, err := s.ffmpeg.Status(executionID)
	if err != nil {
		return Exec{}, ErrNotFound
	}
	progress, _ := s.ffmpeg.Progress(executionID)
	return Exec{Status: status, Progress: progress}, nil
}

// Report returns the buffered ffmpeg log of the job.
func (s *Service) Report(id string) ([]process.Line, error) {
	executionID, err := s.executionID(id)
	if err != nil {
		return nil, err
	}

	lines, err := s.ffmpeg.Log(executionID)
	if err != nil {
		return nil, ErrNotFound
	}
	return lines, nil
}

func (s *Service) executionID(id string) (string, error) {
	j, err := s.store.Get(id)
	if err != nil {
		return "", err
	}
	if j.ExecutionID == "" {
		return "", ErrNotFound
	}
	return j.ExecutionID, nil
}

// Wait blocks until pending uploads are done.
func (s *Service) Wait() {
	s.uploads.Wait()
}

func (s *Service) publish(j *Job) {
	s.uploads.Add(1)
	go func() {
		defer s.uploads.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.publishTimeout)
		defer cancel()

		key := path.Join(j.ID, filepath.Base(j.Output))
		url, err := s.publisher.Publish(ctx, key, j.Output)

		s.store.Update(j.ID, func(j *Job) {
			if err != nil {
				j.PublishError = err.Error()
				return
			}
			j.PublishedURL = url
		})

		if err != nil {
			s.logger.Error("job %s: publish %s: %v", j.ID, j.Output, err)
			return
		}
		s.logger.Info("job %s: published to %s", j.ID, url)
	}()
}
