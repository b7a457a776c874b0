// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoEditor - FFmpeg 视频剪辑工具

package ffmpeg

import (
	"fmt"
	"regexp"
	"strings"
)

// Validator decides whether an address may be handed to ffmpeg as input or output.
type Validator interface {
	IsValid(address string) bool
}

type validator struct {
	allow []*regexp.Regexp
	block []*regexp.Regexp
}

// NewValidator builds a Validator from allow and block expressions.
// Blank expressions are skipped. Block wins over allow; an empty allow list
// accepts every non-empty address that is not blocked.
func NewValidator(allow, block []string) (Validator, error) {
	var err error
	v := &validator{}

	if v.allow, err = compileAll("allow", allow); err != nil {
		return nil, err
	}
	if v.block, err = compileAll("block", block); err != nil {
		return nil, err
	}
	return v, nil
}

func compileAll(kind string, exps []string) ([]*regexp.Regexp, error) {
	var out []*regexp.Regexp
	for _, exp := range exps {
		exp = strings.TrimSpace(exp)
		if exp == "" {
			continue
		}
		re, err := regexp.Compile(exp)
		if err != nil {
			return nil, fmt.Errorf("invalid %s expression '%s': %w", kind, exp, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func (v *validator) IsValid(address string) bool {
	if strings.TrimSpace(address) == "" {
		return false
	}
	for _, re := range v.block {
		if re.MatchString(address) {
			return false
		}
	}
	if len(v.allow) == 0 {
		return true
	}
	for _, re := range v.allow {
		if re.MatchString(address) {
			return true
		}
	}
	return false
}
