// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoEditor - FFmpeg 视频剪辑工具

package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "VIDEOEDITOR_"

// Config 应用配置
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	FFmpeg  FFmpegConfig  `yaml:"ffmpeg"`
	Log     LogConfig     `yaml:"log"`
	Storage StorageConfig `yaml:"storage"`
}

// ServerConfig 服务配置
type ServerConfig struct {
	Bind         string   `yaml:"bind" env:"BIND, overwrite" validate:"required"`
	AllowOrigins []string `yaml:"allow_origins" env:"ALLOW_ORIGINS, overwrite"`
}

// FFmpegConfig FFmpeg 配置
type FFmpegConfig struct {
	Path         string `yaml:"path" env:"FFMPEG_PATH, overwrite" validate:"required"`
	ProbePath    string `yaml:"probe_path" env:"FFPROBE_PATH, overwrite" validate:"required"`
	MaxLogLines  int    `yaml:"max_log_lines" env:"MAX_LOG_LINES, overwrite" validate:"min=1,max=100000"`
	StaleTimeout uint64 `yaml:"stale_timeout_seconds" env:"STALE_TIMEOUT_SECONDS, overwrite"`

	// 输入输出地址白名单/黑名单（正则）
	AllowInput  []string `yaml:"allow_input" env:"ALLOW_INPUT, overwrite"`
	BlockInput  []string `yaml:"block_input" env:"BLOCK_INPUT, overwrite"`
	AllowOutput []string `yaml:"allow_output" env:"ALLOW_OUTPUT, overwrite"`
	BlockOutput []string `yaml:"block_output" env:"BLOCK_OUTPUT, overwrite"`
}

// LogConfig 日志配置
type LogConfig struct {
	Format string `yaml:"format" env:"LOG_FORMAT, overwrite" validate:"oneof=text json"`
	Level  string `yaml:"level" env:"LOG_LEVEL, overwrite" validate:"oneof=debug info warn warning error"`
}

// StorageConfig 输出发布配置，S3Bucket 为空时不启用
type StorageConfig struct {
	S3Bucket        string `yaml:"s3_bucket" env:"S3_BUCKET, overwrite"`
	S3Region        string `yaml:"s3_region" env:"S3_REGION, overwrite" validate:"required_with=S3Bucket"`
	S3Endpoint      string `yaml:"s3_endpoint" env:"S3_ENDPOINT, overwrite" validate:"omitempty,url"`
	S3Prefix        string `yaml:"s3_prefix" env:"S3_PREFIX, overwrite"`
	AccessKeyID     string `yaml:"access_key_id" env:"AWS_ACCESS_KEY_ID, overwrite"`
	SecretAccessKey string `yaml:"secret_access_key" env:"AWS_SECRET_ACCESS_KEY, overwrite"`
}

// S3Enabled 是否配置了 S3 发布
func (c *Config) S3Enabled() bool {
	return c.Storage.S3Bucket != "" && c.Storage.S3Region != ""
}

// StaleTimeout 以 time.Duration 返回无进度超时
func (c *Config) StaleTimeout() time.Duration {
	return time.Duration(c.FFmpeg.StaleTimeout) * time.Second
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{Bind: ":8080"},
		FFmpeg: FFmpegConfig{
			Path:        "ffmpeg",
			ProbePath:   "ffprobe",
			MaxLogLines: 100,
		},
		Log: LogConfig{Format: "text", Level: "info"},
	}
}

// Load 从 YAML 文件加载配置，再用环境变量覆盖
func Load(path string) (*Config, error) {
	return LoadWith(path, envconfig.OsLookuper())
}

// LoadWith 同 Load，环境变量来源可替换（测试用）
func LoadWith(path string, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   cfg,
		Lookuper: envconfig.PrefixLookuper(EnvPrefix, lookuper),
	})
	if err != nil {
		return nil, fmt.Errorf("env config: %w", err)
	}

	cfg.fillEmpty()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// 填充空值
func (c *Config) fillEmpty() {
	def := Default()
	if c.Server.Bind == "" {
		c.Server.Bind = def.Server.Bind
	}
	if c.FFmpeg.Path == "" {
		c.FFmpeg.Path = def.FFmpeg.Path
	}
	if c.FFmpeg.ProbePath == "" {
		c.FFmpeg.ProbePath = def.FFmpeg.ProbePath
	}
	if c.FFmpeg.MaxLogLines <= 0 {
		c.FFmpeg.MaxLogLines = def.FFmpeg.MaxLogLines
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
