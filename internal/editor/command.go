// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoEditor - FFmpeg 视频剪辑工具

package editor

import "fmt"

// TrimRequest cuts [Start, End] out of Input without re-encoding.
// Start and End are passed to ffmpeg verbatim (e.g. "00:00:05" or "5.5").
type TrimRequest struct {
	Input     string
	Output    string
	OutputURI string
	Start     string
	End       string
	// FrameCount is optional; trim reports progress only when it is set.
	FrameCount int
}

// Args builds the ffmpeg argument vector.
func (r TrimRequest) Args() []string {
	return []string{
		"-y",
		"-i", r.Input,
		"-ss", r.Start,
		"-to", r.End,
		"-c", "copy",
		r.Output,
	}
}

// CropRequest crops a Width x Height rectangle at (X, Y).
type CropRequest struct {
	Input      string
	Output     string
	OutputURI  string
	Width      int
	Height     int
	X          int
	Y          int
	FrameCount int
}

func (r CropRequest) Args() []string {
	return []string{
		"-i", r.Input,
		"-filter:v", fmt.Sprintf("crop=%d:%d:%d:%d", r.Width, r.Height, r.X, r.Y),
		"-threads", "5",
		"-preset", "ultrafast",
		"-strict", "-2",
		"-c:a", "copy",
		r.Output,
	}
}

// CompressRequest re-encodes Input with libx264 scaled to Width x Height.
// Width and Height are ffmpeg scale expressions, so "-2" keeps the aspect ratio.
type CompressRequest struct {
	Input      string
	Output     string
	OutputURI  string
	Width      string
	Height     string
	FrameCount int
}

func (r CompressRequest) Args() []string {
	return []string{
		"-y",
		"-i", r.Input,
		"-vf", fmt.Sprintf("scale=%s:%s", r.Width, r.Height),
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-crf", "28",
		"-c:a", "copy",
		r.Output,
	}
}

// resultURI is what OnResult reports: the caller's URI, or the output path when none was given.
func resultURI(output, uri string) string {
	if uri != "" {
		return uri
	}
	return output
}
