// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoEditor - FFmpeg 视频剪辑工具
//
// Package bootstrap wires config into the ffmpeg engine, publisher and job service.

package bootstrap

import (
	"context"
	"fmt"
	"io"

	"github.com/ZSC714725/videoeditor/internal/config"
	"github.com/ZSC714725/videoeditor/internal/ffmpeg"
	"github.com/ZSC714725/videoeditor/internal/job"
	"github.com/ZSC714725/videoeditor/internal/logger"
	"github.com/ZSC714725/videoeditor/internal/storage"
)

// Dependencies are shared by the server and the CLI.
type Dependencies struct {
	Logger logger.Logger
	FFmpeg ffmpeg.FFmpeg
	Jobs   *job.Service
}

// NewDependencies builds everything cfg describes. Logs go to w.
func NewDependencies(ctx context.Context, cfg *config.Config, w io.Writer) (*Dependencies, error) {
	opts := logger.Options{Format: cfg.Log.Format, Level: cfg.Log.Level}
	log := logger.New(w, "videoeditor", opts)

	validatorIn, err := ffmpeg.NewValidator(cfg.FFmpeg.AllowInput, cfg.FFmpeg.BlockInput)
	if err != nil {
		return nil, fmt.Errorf("input validator: %w", err)
	}
	validatorOut, err := ffmpeg.NewValidator(cfg.FFmpeg.AllowOutput, cfg.FFmpeg.BlockOutput)
	if err != nil {
		return nil, fmt.Errorf("output validator: %w", err)
	}

	ff, err := ffmpeg.New(ffmpeg.Config{
		Binary:          cfg.FFmpeg.Path,
		ProbeBinary:     cfg.FFmpeg.ProbePath,
		MaxLogLines:     cfg.FFmpeg.MaxLogLines,
		StaleTimeout:    cfg.StaleTimeout(),
		ValidatorInput:  validatorIn,
		ValidatorOutput: validatorOut,
		Logger:          logger.New(w, "ffmpeg", opts),
	})
	if err != nil {
		return nil, fmt.Errorf("ffmpeg init: %w", err)
	}

	var publisher storage.Publisher
	if cfg.S3Enabled() {
		publisher, err = storage.NewS3Publisher(ctx, storage.S3Config{
			Bucket:          cfg.Storage.S3Bucket,
			Region:          cfg.Storage.S3Region,
			Endpoint:        cfg.Storage.S3Endpoint,
			Prefix:          cfg.Storage.S3Prefix,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("storage init: %w", err)
		}
	}

	jobs := job.NewService(job.Config{
		FFmpeg:    ff,
		Store:     job.NewStore(),
		Publisher: publisher,
		Logger:    logger.New(w, "job", opts),
	})

	return &Dependencies{Logger: log, FFmpeg: ff, Jobs: jobs}, nil
}
