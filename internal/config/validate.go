package config

import (
	"fmt"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/leonardotrapani/webtranscriber/internal/backend"
	"github.com/leonardotrapani/webtranscriber/internal/language"
	"github.com/leonardotrapani/webtranscriber/internal/models/whisper"
)

func (c *Config) Validate() error {
	if err := c.validateClient(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}

	validTypes := map[string]bool{"desktop": true, "log": true, "none": true}
	if !validTypes[c.Notifications.Type] {
		return fmt.Errorf("invalid notifications.type: %s (must be desktop, log, or none)", c.Notifications.Type)
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}
	return nil
}

func (c *Config) validateClient() error {
	u, err := url.Parse(c.Client.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid client.endpoint: %q (must be an http or https URL)", c.Client.Endpoint)
	}
	if c.Client.ModelName == "" {
		return fmt.Errorf("invalid client.model_name: empty")
	}
	if c.Client.ChunkSize <= 0 {
		return fmt.Errorf("invalid client.chunk_size: %d", c.Client.ChunkSize)
	}
	if c.Client.Timeout < 0 {
		return fmt.Errorf("invalid client.timeout: %v", c.Client.Timeout)
	}
	return nil
}

func (c *Config) validateServer() error {
	s := c.Server
	if s.Listen == "" {
		return fmt.Errorf("invalid server.listen: empty")
	}
	if !language.IsValidCode(s.Language) {
		return fmt.Errorf("invalid server.language: %s (use empty string for auto-detect or ISO-639-1 codes like 'en', 'es', 'fr')", s.Language)
	}
	if s.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid server.max_upload_mb: %d", s.MaxUploadMB)
	}
	if s.MaxJobs <= 0 {
		return fmt.Errorf("invalid server.max_jobs: %d", s.MaxJobs)
	}
	if s.MaxConcurrent < 0 {
		return fmt.Errorf("invalid server.max_concurrent: %d", s.MaxConcurrent)
	}

	switch s.Engine {
	case backend.EngineWhisperCpp:
		if _, err := whisper.Lookup(s.DefaultModel); err != nil {
			return fmt.Errorf("invalid server.default_model: %s (available: %v)", s.DefaultModel, whisper.IDs())
		}
		if s.WhisperCpp.Threads < 0 {
			return fmt.Errorf("invalid server.whisper_cpp.threads: %d", s.WhisperCpp.Threads)
		}

	case backend.EngineOpenAI:
		if c.resolveOpenAIKey() == "" {
			return fmt.Errorf("OpenAI API key required: not found in config (server.openai.api_key) or environment variable (OPENAI_API_KEY)")
		}

	default:
		return fmt.Errorf("invalid server.engine: %s (must be whisper-cpp or openai)", s.Engine)
	}
	return nil
}
