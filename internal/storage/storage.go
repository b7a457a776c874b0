// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoEditor - FFmpeg 视频剪辑工具
//
// Package storage publishes finished outputs to remote object storage.

package storage

import "context"

// Publisher uploads a local file under key and returns its public URL.
type Publisher interface {
	Publish(ctx context.Context, key, localPath string) (url string, err error)
}
