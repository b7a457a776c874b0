// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoEditor - FFmpeg 视频剪辑工具

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ZSC714725/videoeditor/internal/bootstrap"
	"github.com/ZSC714725/videoeditor/internal/config"
	"github.com/ZSC714725/videoeditor/internal/editor"
)

// ErrCancelled is returned when the run was interrupted.
var ErrCancelled = errors.New("cancelled")

var trimCmd = &cobra.Command{
	Use:   "trim <input> <output> <start> <end>",
	Short: "Cut [start, end] out of input without re-encoding",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd, args[0], args[1], false, func(e *editor.Editor, frames int, l editor.Listener) string {
			return e.Trim(editor.TrimRequest{
				Input: args[0], Output: args[1], OutputURI: outputURI,
				Start: args[2], End: args[3], FrameCount: frames,
			}, l)
		})
	},
}

var cropCmd = &cobra.Command{
	Use:   "crop <input> <output> <width> <height> <x> <y>",
	Short: "Crop a width x height rectangle at (x, y)",
	Args:  cobra.ExactArgs(6),
	RunE: func(cmd *cobra.Command, args []string) error {
		dims, err := atoiAll(args[2:])
		if err != nil {
			return err
		}
		return runOperation(cmd, args[0], args[1], true, func(e *editor.Editor, frames int, l editor.Listener) string {
			return e.Crop(editor.CropRequest{
				Input: args[0], Output: args[1], OutputURI: outputURI,
				Width: dims[0], Height: dims[1], X: dims[2], Y: dims[3], FrameCount: frames,
			}, l)
		})
	},
}

var compressCmd = &cobra.Command{
	Use:   "compress <input> <output> <width> <height>",
	Short: "Re-encode with libx264 scaled to width x height (-2 keeps the aspect ratio)",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd, args[0], args[1], true, func(e *editor.Editor, frames int, l editor.Listener) string {
			return e.Compress(editor.CompressRequest{
				Input: args[0], Output: args[1], OutputURI: outputURI,
				Width: args[2], Height: args[3], FrameCount: frames,
			}, l)
		})
	},
}

func atoiAll(args []string) ([]int, error) {
	out := make([]int, len(args))
	for i, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", a)
		}
		out[i] = n
	}
	return out, nil
}

type submitFunc func(e *editor.Editor, frames int, l editor.Listener) string

func runOperation(cmd *cobra.Command, input, output string, probe bool, submit submitFunc) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if ffmpegBin != "" {
		cfg.FFmpeg.Path = ffmpegBin
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap.NewDependencies(ctx, cfg, io.Discard)
	if err != nil {
		return err
	}

	if !deps.FFmpeg.ValidateInput(input) {
		return fmt.Errorf("input %q not allowed", input)
	}
	if !deps.FFmpeg.ValidateOutput(output) {
		return fmt.Errorf("output %q not allowed", output)
	}

	frames := frameCount
	if frames <= 0 && probe {
		if n, err := deps.FFmpeg.FrameCount(ctx, input); err == nil {
			frames = n
		}
	}

	var w io.Writer = cmd.ErrOrStderr()
	if quiet {
		w = io.Discard
	}

	uri, err := execute(ctx, deps.FFmpeg, editor.New(deps.FFmpeg, deps.Logger), frames, submit, w)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), uri)
	return nil
}

type outcome struct {
	uri string
	err error
}

// canceler is the part of ffmpeg.FFmpeg execute needs besides the editor's engine.
type canceler interface {
	Cancel(executionID string) error
	LastCommandOutput(executionID string) []string
}

// execute runs one operation to completion, rendering progress to w.
// Cancelling ctx interrupts ffmpeg.
func execute(ctx context.Context, ff canceler, e *editor.Editor, frames int, submit submitFunc, w io.Writer) (string, error) {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Editing"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "|",
			BarEnd:        "|",
		}),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetRenderBlankState(frames > 0),
	)

	done := make(chan outcome, 1)
	id := submit(e, frames, editor.ListenerFuncs{
		Progress: func(percent float64) {
			// the estimate may overshoot, the bar can't
			bar.Set(min(int(percent), 100))
		},
		Result: func(uri string) {
			bar.Finish()
			done <- outcome{uri: uri}
		},
		Cancel: func() { done <- outcome{err: ErrCancelled} },
		Error:  func(message string) { done <- outcome{err: errors.New(message)} },
	})

	var o outcome
	select {
	case o = <-done:
	case <-ctx.Done():
		if err := ff.Cancel(id); err != nil {
			return "", fmt.Errorf("cancel: %w", err)
		}
		o = <-done
	}
	fmt.Fprintln(w)

	if o.err != nil && !errors.Is(o.err, ErrCancelled) {
		if lines := ff.LastCommandOutput(id); len(lines) > 0 {
			return "", fmt.Errorf("%w: %s", o.err, lines[len(lines)-1])
		}
	}
	return o.uri, o.err
}
