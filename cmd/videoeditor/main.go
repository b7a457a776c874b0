// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoEditor - FFmpeg 视频剪辑工具

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	ffmpegBin  string
	outputURI  string
	frameCount int
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:           "videoeditor",
	Short:         "Trim, crop and compress videos with ffmpeg",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&ffmpegBin, "ffmpeg", "", "FFmpeg binary path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&outputURI, "uri", "", "URI reported on success instead of the output path")
	rootCmd.PersistentFlags().IntVar(&frameCount, "frames", 0, "Total frames of the input, probed with ffprobe when 0")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Don't render a progress bar")

	rootCmd.AddCommand(trimCmd, cropCmd, compressCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
