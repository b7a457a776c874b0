// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoEditor - FFmpeg 视频剪辑工具
//
// Package editor turns trim/crop/compress requests into ffmpeg commands and
// relays the engine's asynchronous callbacks to a Listener.

package editor

import (
	"strings"

	"github.com/ZSC714725/videoeditor/internal/ffmpeg/parse"
	"github.com/ZSC714725/videoeditor/internal/logger"
	"github.com/ZSC714725/videoeditor/internal/process"
)

// GenericErrorMessage is the only failure text listeners ever see. The
// engine's own output goes to the log.
const GenericErrorMessage = "Command execution failed."

// Kind names an operation family.
type Kind string

const (
	KindTrim     Kind = "trim"
	KindCrop     Kind = "crop"
	KindCompress Kind = "compress"
)

// Engine is the part of the ffmpeg runner the editor needs.
type Engine interface {
	ExecuteAsync(args []string, onLog func(line string), onResult func(executionID string, rc process.ReturnCode)) string
	LastCommandOutput(executionID string) []string
}

// Editor submits operations to an Engine. It holds no per-operation state.
type Editor struct {
	engine Engine
	logger logger.Logger
}

// New creates an Editor. A nil logger discards output.
func New(engine Engine, log logger.Logger) *Editor {
	if log == nil {
		log = logger.Nop()
	}
	return &Editor{engine: engine, logger: log}
}

// Trim submits req and returns the execution id.
func (e *Editor) Trim(req TrimRequest, l Listener) string {
	return e.submit(KindTrim, req.Args(), req.FrameCount, resultURI(req.Output, req.OutputURI), l)
}

// Crop submits req and returns the execution id.
func (e *Editor) Crop(req CropRequest, l Listener) string {
	return e.submit(KindCrop, req.Args(), req.FrameCount, resultURI(req.Output, req.OutputURI), l)
}

// Compress submits req and returns the execution id.
func (e *Editor) Compress(req CompressRequest, l Listener) string {
	return e.submit(KindCompress, req.Args(), req.FrameCount, resultURI(req.Output, req.OutputURI), l)
}

func (e *Editor) submit(kind Kind, args []string, totalFrames int, outputURI string, l Listener) string {
	if l == nil {
		l = ListenerFuncs{}
	}

	l.OnStarted()

	onLog := func(line string) {
		e.logger.Debug("%s: %s", kind, line)
		// unparseable lines are expected and ignored
		if percent, ok := parse.Estimate(line, totalFrames); ok {
			l.OnProgress(percent)
		}
	}

	onResult := func(id string, rc process.ReturnCode) {
		switch {
		case rc.IsSuccess():
			l.OnResult(outputURI)
			e.logger.Info("%s %s: command execution completed successfully", kind, id)
		case rc.IsCancel():
			l.OnCancel()
			e.logger.Info("%s %s: command execution cancelled by user", kind, id)
		default:
			l.OnError(GenericErrorMessage)
			e.logger.Error("%s %s: command execution failed with rc=%d and the output below", kind, id, int(rc))
			e.logger.Info("%s %s: %s", kind, id, strings.Join(e.engine.LastCommandOutput(id), "\n"))
		}
	}

	return e.engine.ExecuteAsync(args, onLog, onResult)
}
