// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoEditor - FFmpeg 视频剪辑工具

package job

import (
	"github.com/ZSC714725/videoeditor/internal/editor"
)

// State of a job as seen through its editor.Listener.
type State string

const (
	StateStarted   State = "started"
	StateSucceeded State = "succeeded"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// IsTerminal reports whether the engine has delivered its result.
func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateCancelled || s == StateFailed
}

// Job is one submitted edit operation
type Job struct {
	ID          string
	Reference   string
	ExecutionID string
	Kind        editor.Kind
	Input       string
	Output      string
	OutputURI   string
	Command     []string
	FrameCount  int

	State    State
	Progress float64
	Result   string
	Error    string

	Publish      bool
	PublishedURL string
	PublishError string

	CreatedAt int64
	UpdatedAt int64
}

// Clone returns a deep copy so callers never share the store's instance.
func (j *Job) Clone() *Job {
	c := *j
	c.Command = append([]string(nil), j.Command...)
	return &c
}
