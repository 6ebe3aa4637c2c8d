package config

import (
	"github.com/leonardotrapani/webtranscriber/internal/backend"
	"github.com/leonardotrapani/webtranscriber/internal/client"
	"github.com/leonardotrapani/webtranscriber/internal/transcript"
)

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Client: ClientConfig{
			Endpoint:          client.DefaultEndpoint,
			ModelName:         client.DefaultModelName,
			CarryPartialLines: true,
			ChunkSize:         client.DefaultChunkSize,
			Timeout:           0,
			Options:           transcript.AllOptions(),
		},
		Server: ServerConfig{
			Listen:        ":4000",
			Engine:        backend.EngineWhisperCpp,
			DefaultModel:  client.DefaultModelName,
			Language:      "",
			MaxUploadMB:   200,
			MaxJobs:       100,
			MaxConcurrent: 2,
			WhisperCpp: WhisperCppConfig{
				Binary: "whisper-cli",
				FFmpeg: "ffmpeg",
			},
			OpenAI: OpenAIConfig{
				Model: backend.DefaultOpenAIModel,
			},
		},
		Notifications: NotificationsConfig{
			Enabled: false,
			Type:    "log",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

const defaultConfigTemplate = `# webtranscriber configuration
# Generated by "webtranscriber config init". A running "webtranscriber serve"
# picks up changes to the [server] section without a restart.

# Transcription stream client
[client]
  endpoint = "http://localhost:4000"   # transcription service (or WEBTRANSCRIBER_ENDPOINT)
  model_name = "tiny.en"               # modelName sent with every upload
  carry_partial_lines = true           # reassemble lines split across stream chunks
  chunk_size = 32768                   # read buffer for the response stream, in bytes
  timeout = "0s"                       # whole-request limit ("0s" = none)

  # Artifacts the service should render for download
  [client.options]
    gen_file_txt = true
    gen_file_subtitle = true           # .srt
    gen_file_vtt = true

# Transcription service ("webtranscriber serve")
[server]
  listen = ":4000"
  engine = "whisper-cpp"               # "whisper-cpp" (local) or "openai"
  default_model = "tiny.en"            # used when an upload carries no modelName
  language = ""                        # empty for auto-detect, or "en", "it", "es", ...
  max_upload_mb = 200
  max_jobs = 100                       # finished jobs kept for download
  max_concurrent = 2                   # parallel transcriptions (0 = unlimited)

  [server.whisper_cpp]
    binary = "whisper-cli"
    ffmpeg = "ffmpeg"                  # converts non-WAV uploads
    models_dir = ""                    # empty = ~/.local/share/webtranscriber/models/whisper
    threads = 0                        # 0 = number of CPUs minus one

  [server.openai]
    api_key = ""                       # or set OPENAI_API_KEY
    base_url = ""                      # OpenAI-compatible endpoint override
    model = "whisper-1"

# Desktop notifications when a transcription finishes
[notifications]
  enabled = false
  type = "log"                         # "desktop", "log", "none"

[log]
  level = "info"                       # "debug", "info", "warn", "error"
`
