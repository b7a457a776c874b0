package bootstrap

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZSC714725/videoeditor/internal/config"
)

const fakeFFmpeg = `#!/bin/sh
case "$1" in
-version) echo "ffmpeg version 6.1.1 Copyright (c) 2000-2023";;
esac
exit 0
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}
	bin := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(bin, []byte(fakeFFmpeg), 0o755))

	cfg := config.Default()
	cfg.FFmpeg.Path = bin
	cfg.FFmpeg.ProbePath = filepath.Join(t.TempDir(), "no-ffprobe")
	cfg.FFmpeg.BlockInput = []string{`^/etc/`}
	return cfg
}

func TestNewDependencies(t *testing.T) {
	var buf bytes.Buffer
	deps, err := NewDependencies(context.Background(), testConfig(t), &buf)
	require.NoError(t, err)

	assert.Equal(t, "6.1.1", deps.FFmpeg.Skills().FFmpeg.Version)
	assert.False(t, deps.FFmpeg.ValidateInput("/etc/passwd"))
	assert.True(t, deps.FFmpeg.ValidateInput("in.mp4"))
	assert.NotNil(t, deps.Jobs)
	assert.Contains(t, buf.String(), "ffprobe not found")
}

func TestNewDependencies_WithS3(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.S3Bucket = "clips"
	cfg.Storage.S3Region = "us-east-1"
	cfg.Storage.S3Endpoint = "http://localhost:4566"
	cfg.Storage.AccessKeyID = "k"
	cfg.Storage.SecretAccessKey = "s"

	_, err := NewDependencies(context.Background(), cfg, &bytes.Buffer{})
	require.NoError(t, err)
}

func TestNewDependencies_BadPattern(t *testing.T) {
	cfg := testConfig(t)
	cfg.FFmpeg.AllowOutput = []string{"("}

	_, err := NewDependencies(context.Background(), cfg, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output validator")
}
