package tui

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/webtranscriber/internal/backend"
	"github.com/leonardotrapani/webtranscriber/internal/config"
	"github.com/leonardotrapani/webtranscriber/internal/language"
	"github.com/leonardotrapani/webtranscriber/internal/models/whisper"
	"github.com/leonardotrapani/webtranscriber/internal/subtitle"
	"github.com/leonardotrapani/webtranscriber/internal/transcript"
)

// ErrCancelled is returned when the user leaves a form without submitting.
var ErrCancelled = errors.New("cancelled")

func runForm(form *huh.Form) error {
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return ErrCancelled
		}
		return err
	}
	return nil
}

// Configure walks through the settings people usually change and returns an
// edited copy. The caller decides whether to save it.
func Configure(cfg *config.Config) (*config.Config, error) {
	edited := *cfg
	artifacts := subtitle.Requested(edited.Client.Options)
	timeout := edited.Client.Timeout.String()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Service endpoint").
				Description("Where uploads are sent").
				Value(&edited.Client.Endpoint).
				Validate(validateEndpoint),
			huh.NewSelect[string]().
				Title("Model").
				Options(huh.NewOptions(whisper.IDs()...)...).
				Value(&edited.Client.ModelName),
			huh.NewMultiSelect[subtitle.Format]().
				Title("Artifacts to generate").
				Options(
					huh.NewOption("Subtitles (.srt)", subtitle.SRT),
					huh.NewOption("WebVTT (.vtt)", subtitle.VTT),
					huh.NewOption("Plain text (.txt)", subtitle.TXT),
				).
				Value(&artifacts),
			huh.NewConfirm().
				Title("Reassemble lines split across chunks?").
				Value(&edited.Client.CarryPartialLines),
			huh.NewInput().
				Title("Request timeout").
				Description("e.g. 30s, 10m; 0s for none").
				Value(&timeout).
				Validate(func(s string) error {
					_, err := time.ParseDuration(s)
					return err
				}),
		).Title("Client"),

		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Engine").
				Options(
					huh.NewOption("whisper.cpp (local)", backend.EngineWhisperCpp),
					huh.NewOption("OpenAI", backend.EngineOpenAI),
				).
				Value(&edited.Server.Engine),
			huh.NewSelect[string]().
				Title("Language").
				Options(languageOptions()...).
				Height(8).
				Value(&edited.Server.Language),
			huh.NewInput().
				Title("Listen address").
				Value(&edited.Server.Listen),
		).Title("Server"),

		huh.NewGroup(
			huh.NewConfirm().
				Title("Notify when a transcription finishes?").
				Value(&edited.Notifications.Enabled),
			huh.NewSelect[string]().
				Title("Notification type").
				Options(
					huh.NewOption("Desktop (notify-send)", "desktop"),
					huh.NewOption("Log", "log"),
				).
				Value(&edited.Notifications.Type),
		).Title("Notifications"),
	).WithTheme(getTheme())

	if err := runForm(form); err != nil {
		return nil, err
	}

	edited.Client.Options = subtitle.Enable(transcript.Options{}, artifacts...)
	edited.Client.Timeout, _ = time.ParseDuration(timeout)

	if err := edited.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &edited, nil
}

func validateEndpoint(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("must be an http(s) URL like http://localhost:4000")
	}
	return nil
}

func languageOptions() []huh.Option[string] {
	opts := []huh.Option[string]{huh.NewOption(language.Auto.String(), "")}
	for _, l := range language.List() {
		opts = append(opts, huh.NewOption(l.String(), l.Code))
	}
	return opts
}
