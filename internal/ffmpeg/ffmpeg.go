// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoEditor - FFmpeg 视频剪辑工具

package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/ZSC714725/videoeditor/internal/ffmpeg/parse"
	"github.com/ZSC714725/videoeditor/internal/ffmpeg/skills"
	"github.com/ZSC714725/videoeditor/internal/logger"
	"github.com/ZSC714725/videoeditor/internal/process"
)

// ErrUnknownExecution is returned for execution ids this engine never issued or already removed.
var ErrUnknownExecution = errors.New("unknown execution id")

// FFmpeg runs ffmpeg commands asynchronously and keeps per-run state
// (status, parsed progress, last log lines) until the run is removed.
type FFmpeg interface {
	// ExecuteAsync starts ffmpeg with args and returns immediately with the
	// execution id. onLog receives every stderr line; onResult fires exactly
	// once, after the last onLog call, also when the process can't be started.
	ExecuteAsync(args []string, onLog func(line string), onResult func(executionID string, rc process.ReturnCode)) string
	// Cancel interrupts a running execution. The outcome is still delivered
	// through onResult.
	Cancel(executionID string) error
	Remove(executionID string) error
	Status(executionID string) (process.Status, error)
	Progress(executionID string) (parse.Progress, error)
	Log(executionID string) ([]process.Line, error)
	LastCommandOutput(executionID string) []string

	FrameCount(ctx context.Context, path string) (int, error)
	ValidateInput(address string) bool
	ValidateOutput(address string) bool
	Skills() skills.Skills
	ReloadSkills() error
}

// Config for FFmpeg
type Config struct {
	Binary          string
	ProbeBinary     string
	MaxLogLines     int
	StaleTimeout    time.Duration
	Env             []string
	ValidatorInput  Validator
	ValidatorOutput Validator
	Logger          logger.Logger
}

type execution struct {
	proc   process.Process
	parser parse.Parser
}

type ffmpeg struct {
	binary       string
	probe        string
	env          []string
	logLines     int
	staleTimeout time.Duration
	validatorIn  Validator
	validatorOut Validator
	logger       logger.Logger

	skills     skills.Skills
	skillsLock sync.RWMutex

	executions map[string]*execution
	lock       sync.RWMutex
}

// New resolves the binaries and probes ffmpeg's skills.
func New(config Config) (FFmpeg, error) {
	binary, err := exec.LookPath(config.Binary)
	if err != nil {
		return nil, fmt.Errorf("invalid ffmpeg binary: %w", err)
	}

	f := &ffmpeg{
		binary:       binary,
		env:          config.Env,
		logLines:     config.MaxLogLines,
		staleTimeout: config.StaleTimeout,
		validatorIn:  config.ValidatorInput,
		validatorOut: config.ValidatorOutput,
		logger:       config.Logger,
		executions:   make(map[string]*execution),
	}

	if f.logLines <= 0 {
		f.logLines = 100
	}
	if f.logger == nil {
		f.logger = logger.Nop()
	}
	if f.validatorIn == nil {
		f.validatorIn, _ = NewValidator(nil, nil)
	}
	if f.validatorOut == nil {
		f.validatorOut, _ = NewValidator(nil, nil)
	}

	// ffprobe is optional: without it progress needs a caller-supplied frame count
	if config.ProbeBinary != "" {
		if probe, err := exec.LookPath(config.ProbeBinary); err == nil {
			f.probe = probe
		} else {
			f.logger.Info("ffprobe not found (%v), frame counts must be supplied", err)
		}
	}

	s, err := skills.New(f.binary)
	if err != nil {
		return nil, fmt.Errorf("invalid ffmpeg: %w", err)
	}
	f.skills = s

	return f, nil
}

func (f *ffmpeg) ExecuteAsync(args []string, onLog func(line string), onResult func(executionID string, rc process.ReturnCode)) string {
	id := shortuuid.New()
	parser := parse.New(parse.Config{LogLines: f.logLines})

	proc, err := process.New(process.Config{
		Binary:       f.binary,
		Args:         args,
		Env:          f.env,
		StaleTimeout: f.staleTimeout,
		Parser:       parser,
		Monitor:      process.NewSysMonitor(),
		Logger:       f.logger,
		OnLog:        onLog,
		OnExit: func(rc process.ReturnCode) {
			f.logger.Debug("execution %s exited: %s", id, rc)
			if onResult != nil {
				onResult(id, rc)
			}
		},
		OnStateChange: func(from, to string) {
			f.logger.Debug("execution %s state %s -> %s", id, from, to)
		},
	})
	if err != nil {
		f.logger.Error("execution %s: %v", id, err)
		if onResult != nil {
			go onResult(id, process.ReturnCodeNoStatus)
		}
		return id
	}

	f.lock.Lock()
	f.executions[id] = &execution{proc: proc, parser: parser}
	f.lock.Unlock()

	f.logger.Debug("execution %s: %s %s", id, f.binary, strings.Join(args, " "))

	if err := proc.Start(); err != nil {
		f.logger.Error("execution %s: start: %v", id, err)
	}
	return id
}

func (f *ffmpeg) get(id string) (*execution, error) {
	f.lock.RLock()
	defer f.lock.RUnlock()

	e, ok := f.executions[id]
	if !ok {
		return nil, ErrUnknownExecution
	}
	return e, nil
}

func (f *ffmpeg) Cancel(id string) error {
	e, err := f.get(id)
	if err != nil {
		return err
	}
	return e.proc.Stop(false)
}

func (f *ffmpeg) Remove(id string) error {
	f.lock.Lock()
	e, ok := f.executions[id]
	delete(f.executions, id)
	f.lock.Unlock()

	if !ok {
		return ErrUnknownExecution
	}
	return e.proc.Stop(false)
}

func (f *ffmpeg) Status(id string) (process.Status, error) {
	e, err := f.get(id)
	if err != nil {
		return process.Status{}, err
	}
	return e.proc.Status(), nil
}

func (f *ffmpeg) Progress(id string) (parse.Progress, error) {
	e, err := f.get(id)
	if err != nil {
		return parse.Progress{}, err
	}
	return e.parser.Progress(), nil
}

func (f *ffmpeg) Log(id string) ([]process.Line, error) {
	e, err := f.get(id)
	if err != nil {
		return nil, err
	}
	return e.parser.Log(), nil
}

func (f *ffmpeg) LastCommandOutput(id string) []string {
	e, err := f.get(id)
	if err != nil {
		return nil
	}
	return e.parser.LastCommandOutput()
}

func (f *ffmpeg) ValidateInput(address string) bool {
	return f.validatorIn.IsValid(address)
}

func (f *ffmpeg) ValidateOutput(address string) bool {
	return f.validatorOut.IsValid(address)
}

func (f *ffmpeg) Skills() skills.Skills {
	f.skillsLock.RLock()
	defer f.skillsLock.RUnlock()
	return f.skills
}

func (f *ffmpeg) ReloadSkills() error {
	s, err := skills.New(f.binary)
	if err != nil {
		return fmt.Errorf("reload skills: %w", err)
	}
	f.skillsLock.Lock()
	f.skills = s
	f.skillsLock.Unlock()
	return nil
}
