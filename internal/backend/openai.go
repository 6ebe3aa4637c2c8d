package backend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/leonardotrapani/webtranscriber/internal/language"
	"github.com/leonardotrapani/webtranscriber/internal/subtitle"
	"github.com/sashabaranov/go-openai"
)

const DefaultOpenAIModel = openai.Whisper1

// OpenAIEngine sends the upload to the OpenAI transcription API and emits the
// returned segments.
type OpenAIEngine struct {
	client   *openai.Client
	model    string
	language string
	log      *log.Logger
}

func NewOpenAIEngine(apiKey, baseURL, model, lang string) *OpenAIEngine {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}

	return &OpenAIEngine{
		client:   openai.NewClientWithConfig(clientConfig),
		model:    model,
		language: lang,
		log:      log.WithPrefix("openai"),
	}
}

func (e *OpenAIEngine) Name() string { return EngineOpenAI }

// Transcribe ignores the client's modelName: whisper.cpp model names mean
// nothing to the API, so the configured model is used.
func (e *OpenAIEngine) Transcribe(ctx context.Context, req Request, emit EmitFunc) error {
	lang := req.Language
	if lang == "" {
		lang = e.language
	}

	areq := openai.AudioRequest{
		Model:    e.model,
		FilePath: req.AudioPath,
		Language: language.ForEngine(lang, EngineOpenAI),
		Format:   openai.AudioResponseFormatVerboseJSON,
	}

	start := time.Now()
	resp, err := e.client.CreateTranscription(ctx, areq)
	duration := time.Since(start)
	if err != nil {
		e.log.Error("API call failed", "elapsed", duration, "err", err)
		return fmt.Errorf("openai transcription: %w", err)
	}

	segs := segmentsFromResponse(resp)
	for _, seg := range segs {
		if err := emit(seg); err != nil {
			return err
		}
	}

	e.log.Info("transcribed", "file", req.Filename, "model", e.model, "segments", len(segs), "elapsed", duration)
	return nil
}

// segmentsFromResponse falls back to one segment spanning the whole file for
// models that return text without segments.
func segmentsFromResponse(resp openai.AudioResponse) []subtitle.Segment {
	if len(resp.Segments) == 0 {
		text := strings.TrimSpace(resp.Text)
		if text == "" {
			return nil
		}
		return []subtitle.Segment{{Start: 0, End: seconds(resp.Duration), Text: text}}
	}

	segs := make([]subtitle.Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segs = append(segs, subtitle.Segment{
			Start: seconds(s.Start),
			End:   seconds(s.End),
			Text:  strings.TrimSpace(s.Text),
		})
	}
	return segs
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second)).Round(time.Millisecond)
}
