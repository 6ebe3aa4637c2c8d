package backend

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/leonardotrapani/webtranscriber/internal/models/whisper"
	"github.com/leonardotrapani/webtranscriber/internal/subtitle"
	"github.com/leonardotrapani/webtranscriber/internal/testutil"
)

// fakeWhisperEngine installs a tiny.en model and a whisper-cli stand-in
// running script.
func fakeWhisperEngine(t *testing.T, script string) *WhisperCppEngine {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}

	store := whisper.NewStore(t.TempDir())
	modelPath, err := store.Path("tiny.en")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(modelPath, []byte("ggml"), 0644); err != nil {
		t.Fatal(err)
	}

	binary := filepath.Join(t.TempDir(), "whisper-cli")
	if err := os.WriteFile(binary, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatal(err)
	}
	return NewWhisperCppEngine(store, binary, "ffmpeg-unused", "en", 0)
}

func TestWhisperCppEngine_StreamsSegments(t *testing.T) {
	e := fakeWhisperEngine(t, `echo "whisper_init: loading model"
echo "[00:00:00.000 --> 00:00:02.000]   hello"
echo "[00:00:02.000 --> 00:00:04.500]   world"
`)
	audio := testutil.WriteTempFile(t, "talk.wav", []byte("RIFF"))

	ctx, cancel := testutil.TestContext()
	defer cancel()

	var got []subtitle.Segment
	err := e.Transcribe(ctx, Request{AudioPath: audio, Filename: "talk.wav", Model: "tiny.en"}, func(seg subtitle.Segment) error {
		got = append(got, seg)
		return nil
	})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if len(got) != 2 || got[0].Text != "hello" || got[1].Text != "world" {
		t.Fatalf("segments = %+v", got)
	}
	if got[1].End != 4500*time.Millisecond {
		t.Errorf("End = %v, want 4.5s", got[1].End)
	}
}

func TestWhisperCppEngine_OverlongLineStopsProcess(t *testing.T) {
	// the process keeps running after the long line; only a kill ends it
	e := fakeWhisperEngine(t, `echo "[00:00:00.000 --> 00:00:01.000]   first"
head -c 70000 /dev/zero | tr '\0' a
echo
exec sleep 30
`)
	audio := testutil.WriteTempFile(t, "talk.wav", []byte("RIFF"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var got []string
	start := time.Now()
	err := e.Transcribe(ctx, Request{AudioPath: audio, Filename: "talk.wav", Model: "tiny.en"}, func(seg subtitle.Segment) error {
		got = append(got, seg.Text)
		return nil
	})
	if err == nil || !strings.Contains(err.Error(), "read whisper-cli output") {
		t.Fatalf("Transcribe() error = %v, want output read error", err)
	}
	if ctx.Err() != nil || time.Since(start) > 5*time.Second {
		t.Errorf("process was not stopped, took %v", time.Since(start))
	}
	if len(got) != 1 || got[0] != "first" {
		t.Errorf("segments before the error = %v", got)
	}
}
