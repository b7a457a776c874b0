// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoEditor - FFmpeg 视频剪辑工具

package job

import "github.com/ZSC714725/videoeditor/internal/editor"

// listener records editor notifications on one job.
type listener struct {
	s  *Service
	id string
}

func (s *Service) listener(id string) editor.Listener {
	return &listener{s: s, id: id}
}

func (l *listener) update(fn func(*Job)) *Job {
	j, err := l.s.store.Update(l.id, fn)
	if err != nil {
		// 任务已被删除
		return nil
	}
	return j
}

func (l *listener) OnStarted() {
	l.update(func(j *Job) { j.State = StateStarted })
}

func (l *listener) OnProgress(percent float64) {
	l.update(func(j *Job) {
		if !j.State.IsTerminal() {
			j.Progress = percent
		}
	})
}

func (l *listener) OnResult(outputURI string) {
	j := l.update(func(j *Job) {
		j.State = StateSucceeded
		j.Result = outputURI
	})
	if j != nil && j.Publish && l.s.publisher != nil {
		l.s.publish(j)
	}
}

func (l *listener) OnCancel() {
	l.update(func(j *Job) { j.State = StateCancelled })
}

func (l *listener) OnError(message string) {
	l.update(func(j *Job) {
		j.State = StateFailed
		j.Error = message
	})
}
