// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoEditor - FFmpeg 视频剪辑工具

package api

// JobOptions are accepted by every operation
type JobOptions struct {
	OutputURI  string `json:"output_uri"`
	Reference  string `json:"reference"`
	FrameCount int    `json:"frame_count" binding:"min=0"`
	Publish    bool   `json:"publish"`
}

// TrimRequest for POST /api/v1/trim
type TrimRequest struct {
	Input  string `json:"input" binding:"required"`
	Output string `json:"output" binding:"required"`
	Start  string `json:"start" binding:"required"`
	End    string `json:"end" binding:"required"`
	JobOptions
}

// CropRequest for POST /api/v1/crop
type CropRequest struct {
	Input  string `json:"input" binding:"required"`
	Output string `json:"output" binding:"required"`
	Width  int    `json:"width" binding:"required,gt=0"`
	Height int    `json:"height" binding:"required,gt=0"`
	X      int    `json:"x" binding:"min=0"`
	Y      int    `json:"y" binding:"min=0"`
	JobOptions
}

// CompressRequest for POST /api/v1/compress. Width and Height are scale expressions ("1280", "-2").
type CompressRequest struct {
	Input  string `json:"input" binding:"required"`
	Output string `json:"output" binding:"required"`
	Width  string `json:"width" binding:"required"`
	Height string `json:"height" binding:"required"`
	JobOptions
}

// Job in API format
type Job struct {
	ID           string    `json:"id"`
	Reference    string    `json:"reference"`
	Type         string    `json:"type"`
	Input        string    `json:"input"`
	Output       string    `json:"output"`
	OutputURI    string    `json:"output_uri,omitempty"`
	Command      []string  `json:"command"`
	FrameCount   int       `json:"frame_count"`
	State        string    `json:"state"`
	Progress     float64   `json:"progress"`
	Result       string    `json:"result,omitempty"`
	Error        string    `json:"error,omitempty"`
	Publish      bool      `json:"publish"`
	PublishedURL string    `json:"published_url,omitempty"`
	PublishError string    `json:"publish_error,omitempty"`
	CreatedAt    int64     `json:"created_at"`
	UpdatedAt    int64     `json:"updated_at"`
	Exec         *JobState `json:"exec,omitempty"`
}

// JobState is the process view of a job
type JobState struct {
	Order    string    `json:"order"`
	State    string    `json:"exec"`
	Runtime  int64     `json:"runtime_seconds"`
	Memory   uint64    `json:"memory_bytes"`
	CPU      float64   `json:"cpu_usage"`
	Progress *Progress `json:"progress"`
}

// Progress from FFmpeg parser
type Progress struct {
	Frame     uint64  `json:"frame"`
	FPS       float64 `json:"fps"`
	Size      uint64  `json:"size_bytes"`
	Time      float64 `json:"time_seconds"`
	Speed     float64 `json:"speed"`
	Quantizer float64 `json:"q"`
}

// JobReport for logs
type JobReport struct {
	CreatedAt int64       `json:"created_at"`
	Log       [][2]string `json:"log"`
}

// CommandRequest for PUT /api/v1/jobs/:id/command
type CommandRequest struct {
	Command string `json:"command" binding:"required"`
}

// ErrorResponse for API errors
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}
