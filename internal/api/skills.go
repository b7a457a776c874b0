// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoEditor - FFmpeg 视频剪辑工具

package api

import (
	"github.com/ZSC714725/videoeditor/internal/ffmpeg/skills"
)

// SkillsResponse for API
type SkillsResponse struct {
	FFmpeg struct {
		Version       string `json:"version"`
		Configuration string `json:"configuration"`
	} `json:"ffmpeg"`

	Filters []SkillsFilter `json:"filter"`

	Codecs struct {
		Audio []SkillsCodec `json:"audio"`
		Video []SkillsCodec `json:"video"`
	} `json:"codecs"`

	// 各剪辑操作当前是否可用
	Operations map[string]bool `json:"operations"`
}

type SkillsFilter struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type SkillsCodec struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Encoders []string `json:"encoders"`
	Decoders []string `json:"decoders"`
}

func skillsToAPI(s skills.Skills) SkillsResponse {
	resp := SkillsResponse{}

	resp.FFmpeg.Version = s.FFmpeg.Version
	resp.FFmpeg.Configuration = s.FFmpeg.Configuration

	resp.Filters = make([]SkillsFilter, len(s.Filters))
	for i, f := range s.Filters {
		resp.Filters[i] = SkillsFilter{ID: f.Id, Name: f.Name}
	}

	resp.Codecs.Audio = codecsToAPI(s.Codecs.Audio)
	resp.Codecs.Video = codecsToAPI(s.Codecs.Video)

	resp.Operations = map[string]bool{
		"trim":     true,
		"crop":     s.HasFilter("crop"),
		"compress": s.HasEncoder("libx264"),
	}

	return resp
}

func codecsToAPI(codecs []skills.Codec) []SkillsCodec {
	out := make([]SkillsCodec, len(codecs))
	for i, c := range codecs {
		out[i] = SkillsCodec{ID: c.Id, Name: c.Name, Encoders: c.Encoders, Decoders: c.Decoders}
	}
	return out
}
