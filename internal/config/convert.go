package config

import (
	"os"

	"github.com/leonardotrapani/webtranscriber/internal/backend"
	"github.com/leonardotrapani/webtranscriber/internal/client"
	"github.com/leonardotrapani/webtranscriber/internal/notify"
)

const (
	EnvEndpoint  = "WEBTRANSCRIBER_ENDPOINT"
	EnvOpenAIKey = "OPENAI_API_KEY"
)

func (c *Config) ToClientConfig() client.Config {
	endpoint := c.Client.Endpoint
	if env := os.Getenv(EnvEndpoint); env != "" {
		endpoint = env
	}

	return client.Config{
		Endpoint:   endpoint,
		ModelName:  c.Client.ModelName,
		Options:    c.Client.Options,
		LossyLines: !c.Client.CarryPartialLines,
		ChunkSize:  c.Client.ChunkSize,
		Timeout:    c.Client.Timeout,
	}
}

func (c *Config) ToServerSettings() backend.Settings {
	s := c.Server
	return backend.Settings{
		Engine:         s.Engine,
		DefaultModel:   s.DefaultModel,
		Language:       s.Language,
		MaxUploadBytes: s.MaxUploadMB << 20,
		MaxJobs:        s.MaxJobs,
		MaxConcurrent:  s.MaxConcurrent,
		WhisperCpp: backend.WhisperCppSettings{
			Binary:    s.WhisperCpp.Binary,
			FFmpeg:    s.WhisperCpp.FFmpeg,
			ModelsDir: s.WhisperCpp.ModelsDir,
			Threads:   s.WhisperCpp.Threads,
		},
		OpenAI: backend.OpenAISettings{
			APIKey:  c.resolveOpenAIKey(),
			BaseURL: s.OpenAI.BaseURL,
			Model:   s.OpenAI.Model,
		},
	}
}

// ToNotifier picks the notifier for the notifications section.
func (c *Config) ToNotifier() notify.Notifier {
	if !c.Notifications.Enabled {
		return notify.Nop{}
	}
	return notify.New(c.Notifications.Type)
}

// resolveOpenAIKey prefers the config file over the environment.
func (c *Config) resolveOpenAIKey() string {
	if c.Server.OpenAI.APIKey != "" {
		return c.Server.OpenAI.APIKey
	}
	return os.Getenv(EnvOpenAIKey)
}
