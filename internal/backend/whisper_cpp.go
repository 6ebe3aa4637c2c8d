package backend

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/leonardotrapani/webtranscriber/internal/language"
	"github.com/leonardotrapani/webtranscriber/internal/models/whisper"
	"github.com/leonardotrapani/webtranscriber/internal/subtitle"
	"github.com/leonardotrapani/webtranscriber/internal/transcript"
)

// WhisperCppEngine runs a local whisper-cli and streams its segments as they
// are printed.
type WhisperCppEngine struct {
	store    *whisper.Store
	binary   string
	ffmpeg   string
	language string
	threads  int
	log      *log.Logger
}

// NewWhisperCppEngine creates the engine.
// binary: whisper-cli executable name or path ("" = whisper-cli)
// ffmpeg: used to convert non-WAV uploads ("" = ffmpeg)
// lang: whisper language code ("" = auto)
// threads: CPU threads (0 = whisper default)
func NewWhisperCppEngine(store *whisper.Store, binary, ffmpeg, lang string, threads int) *WhisperCppEngine {
	if binary == "" {
		binary = "whisper-cli"
	}
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	return &WhisperCppEngine{
		store:    store,
		binary:   binary,
		ffmpeg:   ffmpeg,
		language: lang,
		threads:  threads,
		log:      log.WithPrefix("whisper-cpp"),
	}
}

func (e *WhisperCppEngine) Name() string { return EngineWhisperCpp }

func (e *WhisperCppEngine) Transcribe(ctx context.Context, req Request, emit EmitFunc) error {
	modelPath, err := e.store.InstalledPath(req.Model)
	if err != nil {
		return err
	}

	whisperPath, err := exec.LookPath(e.binary)
	if err != nil {
		return fmt.Errorf("%s not found: install whisper.cpp first", e.binary)
	}

	input := req.AudioPath
	if !strings.EqualFold(filepath.Ext(input), ".wav") {
		converted, err := e.convertToWAV(ctx, input)
		if err != nil {
			return err
		}
		defer os.Remove(converted)
		input = converted
	}

	lang := req.Language
	if lang == "" {
		lang = e.language
	}
	lang = language.ForEngine(lang, EngineWhisperCpp)

	args := []string{
		"-m", modelPath,
		"-l", lang,
		"-np", // no progress
		"-f", input,
	}
	if e.threads > 0 {
		args = append(args, "-t", strconv.Itoa(e.threads))
	}

	cmd := exec.CommandContext(ctx, whisperPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("whisper-cli stdout: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start whisper-cli: %w", err)
	}

	count := 0
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		seg, ok := parseWhisperLine(scanner.Text())
		if !ok {
			continue
		}
		count++
		if err := emit(seg); err != nil {
			cmd.Process.Kill()
			cmd.Wait()
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return fmt.Errorf("read whisper-cli output: %w", err)
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.log.Error("command failed", "elapsed", time.Since(start), "err", err, "stderr", strings.TrimSpace(stderr.String()))
		return fmt.Errorf("whisper-cli failed: %w", err)
	}

	e.log.Info("transcribed", "file", req.Filename, "model", req.Model, "segments", count, "elapsed", time.Since(start))
	return nil
}

// convertToWAV resamples any input to the 16kHz mono WAV whisper-cli expects.
func (e *WhisperCppEngine) convertToWAV(ctx context.Context, input string) (string, error) {
	out := strings.TrimSuffix(input, filepath.Ext(input)) + "-16k.wav"

	cmd := exec.CommandContext(ctx, e.ffmpeg,
		"-y", "-i", input,
		"-ac", "1", "-ar", "16000",
		"-f", "wav",
		out,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		os.Remove(out)
		return "", fmt.Errorf("ffmpeg: %w: %s", err, lastLine(stderr.String()))
	}
	return out, nil
}

// parseWhisperLine reads "[00:00:00.000 --> 00:00:04.000]   text".
func parseWhisperLine(s string) (subtitle.Segment, bool) {
	line, ok := transcript.ParseLine(s)
	if !ok {
		return subtitle.Segment{}, false
	}
	start, end, hasEnd, err := subtitle.ParseRange(line.Timestamp)
	if err != nil {
		return subtitle.Segment{}, false
	}
	if !hasEnd {
		end = start
	}
	return subtitle.Segment{Start: start, End: end, Text: strings.TrimSpace(line.Text)}, true
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
