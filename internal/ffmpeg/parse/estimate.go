// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoEditor - FFmpeg 视频剪辑工具

package parse

import (
	"strconv"
	"strings"
)

// FrameMarker precedes the current frame counter in ffmpeg status lines.
const FrameMarker = "frame="

// Estimate turns one ffmpeg log line into a completion percentage.
//
// The token following the first FrameMarker (leading blanks skipped, up to the
// next blank) must be an integer. The result is frame/totalFrames*100 and is
// not clamped, so it exceeds 100 when ffmpeg emits more frames than expected.
// ok is false when the marker is missing, the token is not a number, or
// totalFrames is not positive.
func Estimate(line string, totalFrames int) (percent float64, ok bool) {
	if totalFrames <= 0 {
		return 0, false
	}

	_, rest, found := strings.Cut(line, FrameMarker)
	if !found {
		return 0, false
	}

	// only the segment up to a repeated marker counts
	if i := strings.Index(rest, FrameMarker); i >= 0 {
		rest = rest[:i]
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return 0, false
	}

	frame, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, false
	}

	return float64(frame) / float64(totalFrames) * 100, true
}
