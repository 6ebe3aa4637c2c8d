package tui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/webtranscriber/internal/subtitle"
)

// AudioExtensions are offered by the file picker.
var AudioExtensions = []string{".wav", ".mp3", ".m4a", ".ogg", ".opus", ".flac", ".webm", ".mp4"}

// PickFile lets the user browse for an audio file starting at dir.
func PickFile(dir string) (string, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = wd
	}

	var path string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewFilePicker().
				Title("Select audio file").
				Description("↑/↓ navigate • enter open • esc cancel").
				CurrentDirectory(dir).
				AllowedTypes(AudioExtensions).
				Picking(true).
				Height(15).
				Value(&path),
		),
	).WithTheme(getTheme())

	if err := runForm(form); err != nil {
		return "", err
	}
	if path == "" {
		return "", fmt.Errorf("no file selected")
	}
	return path, nil
}

// PickFormats asks which artifacts to download after the transcription.
func PickFormats() ([]subtitle.Format, error) {
	options := []huh.Option[subtitle.Format]{
		huh.NewOption("SubRip subtitles (.srt)", subtitle.SRT),
		huh.NewOption("WebVTT subtitles (.vtt)", subtitle.VTT),
		huh.NewOption("Plain text (.txt)", subtitle.TXT),
	}

	var selected []subtitle.Format
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[subtitle.Format]().
				Title("Download").
				Description("space toggle • enter confirm").
				Options(options...).
				Value(&selected),
		),
	).WithTheme(getTheme())

	if err := runForm(form); err != nil {
		return nil, err
	}
	return selected, nil
}
