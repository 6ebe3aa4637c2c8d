package config

import (
	"time"

	"github.com/leonardotrapani/webtranscriber/internal/transcript"
)

type Config struct {
	Client        ClientConfig        `toml:"client"`
	Server        ServerConfig        `toml:"server"`
	Notifications NotificationsConfig `toml:"notifications"`
	Log           LogConfig           `toml:"log"`
}

// ClientConfig controls uploads to the transcription service
type ClientConfig struct {
	Endpoint          string             `toml:"endpoint"`
	ModelName         string             `toml:"model_name"`
	CarryPartialLines bool               `toml:"carry_partial_lines"` // false = split every chunk on its own
	ChunkSize         int                `toml:"chunk_size"`
	Timeout           time.Duration      `toml:"timeout"` // 0 = no limit
	Options           transcript.Options `toml:"options"`
}

// ServerConfig is read by `serve` on every request
type ServerConfig struct {
	Listen        string           `toml:"listen"`
	Engine        string           `toml:"engine"` // "whisper-cpp" or "openai"
	DefaultModel  string           `toml:"default_model"`
	Language      string           `toml:"language"`
	MaxUploadMB   int64            `toml:"max_upload_mb"`
	MaxJobs       int              `toml:"max_jobs"`
	MaxConcurrent int              `toml:"max_concurrent"` // 0 = unlimited
	WhisperCpp    WhisperCppConfig `toml:"whisper_cpp"`
	OpenAI        OpenAIConfig     `toml:"openai"`
}

type WhisperCppConfig struct {
	Binary    string `toml:"binary"`
	FFmpeg    string `toml:"ffmpeg"`
	ModelsDir string `toml:"models_dir"`
	Threads   int    `toml:"threads"` // 0 = auto: NumCPU-1
}

type OpenAIConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

type NotificationsConfig struct {
	Enabled bool   `toml:"enabled"`
	Type    string `toml:"type"` // "desktop", "log", "none"
}

type LogConfig struct {
	Level string `toml:"level"`
}
