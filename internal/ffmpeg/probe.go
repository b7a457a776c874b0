// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoEditor - FFmpeg 视频剪辑工具

package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

var (
	ErrNoProbe        = errors.New("ffprobe binary not available")
	ErrProbeExecution = errors.New("ffprobe execution failed")
)

// FrameCount asks ffprobe how many video packets the first video stream of
// path holds, which is what the progress estimate divides by.
func (f *ffmpeg) FrameCount(ctx context.Context, path string) (int, error) {
	if f.probe == "" {
		return 0, ErrNoProbe
	}

	// #nosec G204 - probe binary comes from configuration, path was validated
	cmd := exec.CommandContext(ctx, f.probe,
		"-v", "error",
		"-select_streams", "v:0",
		"-count_packets",
		"-show_entries", "stream=nb_read_packets",
		"-of", "csv=p=0",
		path,
	)
	cmd.Env = f.env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return 0, fmt.Errorf("%w: %w, stderr: %s", ErrProbeExecution, err, strings.TrimSpace(stderr.String()))
	}

	return parseFrameCount(stdout.String())
}

func parseFrameCount(out string) (int, error) {
	// csv output may carry a trailing separator, e.g. "1500,"
	field := strings.TrimSpace(strings.SplitN(strings.TrimSpace(out), "\n", 2)[0])
	field = strings.TrimSuffix(field, ",")

	n, err := strconv.Atoi(field)
	if err != nil {
		return 0, fmt.Errorf("parse frame count %q: %w", field, err)
	}
	return n, nil
}
