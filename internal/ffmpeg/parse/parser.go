// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoEditor - FFmpeg 视频剪辑工具

package parse

import (
	"container/ring"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ZSC714725/videoeditor/internal/process"
)

// Progress holds FFmpeg progress info parsed from stderr
type Progress struct {
	Frame     uint64  `json:"frame"`
	FPS       float64 `json:"fps"`
	Size      uint64  `json:"size_bytes"`
	Time      float64 `json:"time_seconds"`
	Speed     float64 `json:"speed"`
	Quantizer float64 `json:"q"`
}

// Parser implements process.Parser and keeps the last log lines of a run.
type Parser interface {
	process.Parser
	Progress() Progress
	// LastCommandOutput returns the buffered log lines without timestamps.
	LastCommandOutput() []string
}

// Config for the parser
type Config struct {
	LogLines int
}

var (
	reFrame     = regexp.MustCompile(`frame=\s*([0-9]+)`)
	reFPS       = regexp.MustCompile(`fps=\s*([0-9.]+)`)
	reQuantizer = regexp.MustCompile(`q=\s*(-?[0-9.]+)`)
	reSize      = regexp.MustCompile(`size=\s*([0-9]+)(kB|KiB)`)
	reTime      = regexp.MustCompile(`time=\s*([0-9]+):([0-9]{2}):([0-9]{2}(?:\.[0-9]+)?)`)
	reSpeed     = regexp.MustCompile(`speed=\s*([0-9.]+)x`)
)

type parser struct {
	log      *ring.Ring
	logLines int

	progress Progress
	lock     sync.RWMutex
}

// New creates a Parser
func New(config Config) Parser {
	p := &parser{
		logLines: config.LogLines,
	}
	if p.logLines <= 0 {
		p.logLines = 100
	}
	p.log = ring.New(p.logLines)
	return p
}

// Parse records the line and, for status lines, updates Progress.
// It returns the current frame, which the process uses as a liveness signal.
func (p *parser) Parse(line string) uint64 {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.log.Value = process.Line{Timestamp: time.Now(), Data: line}
	p.log = p.log.Next()

	if !strings.Contains(line, FrameMarker) {
		return 0
	}

	if v, ok := matchUint(reFrame, line); ok {
		p.progress.Frame = v
	}
	if v, ok := matchFloat(reFPS, line); ok {
		p.progress.FPS = v
	}
	if v, ok := matchFloat(reQuantizer, line); ok {
		p.progress.Quantizer = v
	}
	if v, ok := matchUint(reSize, line); ok {
		p.progress.Size = v * 1024
	}
	if m := reTime.FindStringSubmatch(line); m != nil {
		h, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		s, _ := strconv.ParseFloat(m[3], 64)
		p.progress.Time = float64(h*3600+mm*60) + s
	}
	if v, ok := matchFloat(reSpeed, line); ok {
		p.progress.Speed = v
	}

	return p.progress.Frame
}

func matchUint(re *regexp.Regexp, line string) (uint64, bool) {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseUint(m[1], 10, 64)
	return v, err == nil
}

func matchFloat(re *regexp.Regexp, line string) (float64, bool) {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	return v, err == nil
}

func (p *parser) ResetStats() {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.progress = Progress{}
}

func (p *parser) ResetLog() {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.log = ring.New(p.logLines)
}

func (p *parser) Log() []process.Line {
	var out []process.Line
	p.lock.RLock()
	p.log.Do(func(v interface{}) {
		if v != nil {
			out = append(out, v.(process.Line))
		}
	})
	p.lock.RUnlock()
	return out
}

func (p *parser) LastCommandOutput() []string {
	lines := p.Log()
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Data
	}
	return out
}

func (p *parser) Progress() Progress {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.progress
}
