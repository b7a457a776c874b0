// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoEditor - FFmpeg 视频剪辑工具

package process

import "strconv"

// ReturnCode is the terminal status of one engine run.
// Values follow the ffmpeg convention: 0 is success, 255 means the run was
// interrupted on request. Everything else is a failure.
type ReturnCode int

const (
	ReturnCodeSuccess ReturnCode = 0
	ReturnCodeCancel  ReturnCode = 255

	// ReturnCodeNoStatus marks runs that never produced an exit status
	// (failed to start, or died from a signal nobody asked for).
	ReturnCodeNoStatus ReturnCode = -1
)

func (rc ReturnCode) IsSuccess() bool { return rc == ReturnCodeSuccess }

func (rc ReturnCode) IsCancel() bool { return rc == ReturnCodeCancel }

func (rc ReturnCode) IsFailure() bool { return !rc.IsSuccess() && !rc.IsCancel() }

func (rc ReturnCode) String() string {
	switch rc {
	case ReturnCodeSuccess:
		return "success"
	case ReturnCodeCancel:
		return "cancel"
	default:
		return "failure(" + strconv.Itoa(int(rc)) + ")"
	}
}
