// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoEditor - FFmpeg 视频剪辑工具

package editor

// Listener observes one operation. OnStarted fires once before the command is
// handed to the engine, OnProgress zero or more times, then exactly one of
// OnResult, OnCancel or OnError. All but OnStarted run on engine goroutines.
type Listener interface {
	OnStarted()
	OnProgress(percent float64)
	OnResult(outputURI string)
	OnCancel()
	OnError(message string)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Started  func()
	Progress func(percent float64)
	Result   func(outputURI string)
	Cancel   func()
	Error    func(message string)
}

func (l ListenerFuncs) OnStarted() {
	if l.Started != nil {
		l.Started()
	}
}

func (l ListenerFuncs) OnProgress(percent float64) {
	if l.Progress != nil {
		l.Progress(percent)
	}
}

func (l ListenerFuncs) OnResult(outputURI string) {
	if l.Result != nil {
		l.Result(outputURI)
	}
}

func (l ListenerFuncs) OnCancel() {
	if l.Cancel != nil {
		l.Cancel()
	}
}

func (l ListenerFuncs) OnError(message string) {
	if l.Error != nil {
		l.Error(message)
	}
}
