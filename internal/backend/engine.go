package backend

import (
	"context"
	"fmt"

	"github.com/leonardotrapani/webtranscriber/internal/models/whisper"
	"github.com/leonardotrapani/webtranscriber/internal/subtitle"
)

const (
	EngineWhisperCpp = "whisper-cpp"
	EngineOpenAI     = "openai"
)

// Request is one uploaded file waiting for transcription.
type Request struct {
	AudioPath string // temp copy of the upload
	Filename  string // name the client sent
	Model     string // modelName form field
	Language  string
}

// EmitFunc receives segments in the order the engine recognizes them.
// Returning an error stops the engine.
type EmitFunc func(seg subtitle.Segment) error

// Engine turns an audio file into timed segments.
type Engine interface {
	Name() string
	Transcribe(ctx context.Context, req Request, emit EmitFunc) error
}

// NewEngine builds the engine selected by settings.
func NewEngine(s Settings) (Engine, error) {
	switch s.Engine {
	case EngineWhisperCpp:
		dir := s.WhisperCpp.ModelsDir
		if dir == "" {
			d, err := whisper.DefaultDir()
			if err != nil {
				return nil, fmt.Errorf("resolve models dir: %w", err)
			}
			dir = d
		}
		return NewWhisperCppEngine(whisper.NewStore(dir), s.WhisperCpp.Binary, s.WhisperCpp.FFmpeg, s.Language, s.WhisperCpp.Threads), nil

	case EngineOpenAI:
		if s.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required: not found in config (server.openai.api_key) or environment variable (OPENAI_API_KEY)")
		}
		return NewOpenAIEngine(s.OpenAI.APIKey, s.OpenAI.BaseURL, s.OpenAI.Model, s.Language), nil

	default:
		return nil, fmt.Errorf("unsupported engine: %s (must be whisper-cpp or openai)", s.Engine)
	}
}
