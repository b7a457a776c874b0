// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoEditor - FFmpeg 视频剪辑工具

package skills

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// ErrNoVersion is returned when `ffmpeg -version` output can't be parsed.
var ErrNoVersion = errors.New("can't parse ffmpeg version")

// Codec represents a codec with encoders and decoders
type Codec struct {
	Id       string
	Name     string
	Encoders []string
	Decoders []string
}

// Filter represents a supported filter
type Filter struct {
	Id   string
	Name string
}

// Info is the build information printed by `ffmpeg -version`.
type Info struct {
	Version       string
	Configuration string
}

// Skills are the detected capabilities of FFmpeg that the editor relies on
type Skills struct {
	FFmpeg  Info
	Filters []Filter
	Codecs  struct {
		Audio []Codec
		Video []Codec
	}
}

// HasFilter reports whether the filter is compiled in.
func (s Skills) HasFilter(id string) bool {
	for _, f := range s.Filters {
		if f.Id == id {
			return true
		}
	}
	return false
}

// HasEncoder reports whether any audio or video codec offers the encoder.
func (s Skills) HasEncoder(name string) bool {
	for _, list := range [][]Codec{s.Codecs.Video, s.Codecs.Audio} {
		for _, c := range list {
			for _, e := range c.Encoders {
				if e == name {
					return true
				}
			}
		}
	}
	return false
}

// New probes the binary for version, filters and codecs.
func New(binary string) (Skills, error) {
	s := Skills{}

	out, err := run(binary, "-version")
	if err != nil {
		return Skills{}, fmt.Errorf("%w: %v", ErrNoVersion, err)
	}
	s.FFmpeg = parseVersion(out)
	if s.FFmpeg.Version == "" {
		return Skills{}, ErrNoVersion
	}

	if out, err = run(binary, "-hide_banner", "-filters"); err == nil {
		s.Filters = parseFilters(out)
	}
	if out, err = run(binary, "-hide_banner", "-codecs"); err == nil {
		s.Codecs.Video, s.Codecs.Audio = parseCodecs(out)
	}

	return s, nil
}

func run(binary string, args ...string) ([]byte, error) {
	cmd := exec.Command(binary, args...)
	cmd.Env = []string{}
	return cmd.Output()
}

var (
	reVersion       = regexp.MustCompile(`^ffmpeg version n?([0-9]+\.[0-9]+(\.[0-9]+)?)`)
	reConfiguration = regexp.MustCompile(`(?m)^\s*configuration: (.*)$`)
	reFilter        = regexp.MustCompile(`^\s[TSC.]{3} ([0-9A-Za-z_]+)\s+\S+\s+(.*)$`)
	reCodec         = regexp.MustCompile(`^\s([D.])([E.])([VAS])[I.][L.][S.] ([0-9A-Za-z_]+)\s+(.*?)(?:\s+\(decoders:([^)]+)\))?(?:\s+\(encoders:([^)]+)\))?\s*$`)
)

func parseVersion(data []byte) Info {
	info := Info{}
	if m := reVersion.FindSubmatch(data); m != nil {
		info.Version = string(m[1])
		if len(m[2]) == 0 {
			info.Version += ".0"
		}
	}
	if m := reConfiguration.FindSubmatch(data); m != nil {
		info.Configuration = string(m[1])
	}
	return info
}

func parseFilters(data []byte) []Filter {
	var filters []Filter
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if m := reFilter.FindStringSubmatch(scanner.Text()); m != nil {
			filters = append(filters, Filter{Id: m[1], Name: strings.TrimSpace(m[2])})
		}
	}
	return filters
}

func parseCodecs(data []byte) (video, audio []Codec) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		m := reCodec.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		c := Codec{Id: m[4], Name: strings.TrimSpace(m[5])}
		if m[1] == "D" {
			c.Decoders = codecList(m[6], m[4])
		}
		if m[2] == "E" {
			c.Encoders = codecList(m[7], m[4])
		}
		switch m[3] {
		case "V":
			video = append(video, c)
		case "A":
			audio = append(audio, c)
		}
	}
	return video, audio
}

// codecList falls back to the codec id when ffmpeg lists no explicit implementations.
func codecList(list, id string) []string {
	if strings.TrimSpace(list) == "" {
		return []string{id}
	}
	return strings.Fields(list)
}
