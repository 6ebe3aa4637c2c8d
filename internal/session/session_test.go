package session

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/leonardotrapani/webtranscriber/internal/client"
	"github.com/leonardotrapani/webtranscriber/internal/transcript"
)

type fakeTranscriber struct {
	run func(ctx context.Context, path string, h client.Handler) client.Result
}

func (f *fakeTranscriber) TranscribeFile(ctx context.Context, path string, h client.Handler) client.Result {
	return f.run(ctx, path, h)
}

func (f *fakeTranscriber) DownloadURL(id, format string) (string, error) {
	return client.DownloadURL(client.DefaultEndpoint, id, format)
}

func line(ts, text string) transcript.Line {
	return transcript.Line{Timestamp: ts, Text: text}
}

func texts(lines []transcript.Line) []string {
	var out []string
	for _, l := range lines {
		out = append(out, l.Text)
	}
	return out
}

func streaming(batches ...[]transcript.Line) *fakeTranscriber {
	return &fakeTranscriber{run: func(ctx context.Context, path string, h client.Handler) client.Result {
		n := 0
		for _, b := range batches {
			h.Lines(b)
			n += len(b)
		}
		h.JobID("abc123")
		return client.Result{Status: client.StatusSuccess, JobID: "abc123", Lines: n}
	}}
}

func TestSession_StartWithoutFile(t *testing.T) {
	s := New(streaming())
	if _, err := s.Start(context.Background()); !errors.Is(err, ErrNoFile) {
		t.Errorf("Start() error = %v, want ErrNoFile", err)
	}
	if s.State() != Idle {
		t.Errorf("State() = %s, want idle", s.State())
	}
}

func TestSession_StartAppendsInArrivalOrder(t *testing.T) {
	s := New(streaming(
		[]transcript.Line{line("00:00:05.000", "first chunk a"), line("00:00:06.000", "first chunk b")},
		[]transcript.Line{line("00:00:01.000", "second chunk")},
	))
	s.Select("talk.mp3")

	res, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !res.OK() {
		t.Errorf("result = %+v", res)
	}

	snap := s.Snapshot()
	if snap.State != Complete {
		t.Errorf("State = %s, want complete", snap.State)
	}
	if want := []string{"first chunk a", "first chunk b", "second chunk"}; !reflect.DeepEqual(texts(snap.Lines), want) {
		t.Errorf("Lines = %v, want %v", texts(snap.Lines), want)
	}
	if snap.JobID != "abc123" {
		t.Errorf("JobID = %q", snap.JobID)
	}
	if snap.Result == nil || snap.Result.Status != client.StatusSuccess {
		t.Errorf("Result = %+v", snap.Result)
	}
	if snap.File != "talk.mp3" {
		t.Errorf("File = %q", snap.File)
	}
}

func TestSession_SelectResetsTranscript(t *testing.T) {
	s := New(streaming([]transcript.Line{line("00:00:01.000", "old")}))
	s.Select("old.mp3")
	if _, err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if len(s.Snapshot().Lines) == 0 {
		t.Fatal("expected a populated transcript before reselecting")
	}

	s.Select("new.mp3")

	snap := s.Snapshot()
	if snap.State != FileSelected {
		t.Errorf("State = %s, want file-selected", snap.State)
	}
	if len(snap.Lines) != 0 || snap.JobID != "" || snap.Result != nil {
		t.Errorf("Select() kept old state: %+v", snap)
	}
	if snap.File != "new.mp3" {
		t.Errorf("File = %q", snap.File)
	}
}

func TestSession_RestartFromCompleteResetsBuffer(t *testing.T) {
	s := New(streaming([]transcript.Line{line("00:00:01.000", "only")}))
	s.Select("a.mp3")
	s.Start(context.Background())
	s.Start(context.Background())

	if got := texts(s.Snapshot().Lines); !reflect.DeepEqual(got, []string{"only"}) {
		t.Errorf("Lines after second run = %v, want a single fresh line", got)
	}
}

func TestSession_FailureKeepsPartialTranscript(t *testing.T) {
	netErr := &client.NetworkError{Op: "read stream", Err: errors.New("reset")}
	s := New(&fakeTranscriber{run: func(ctx context.Context, path string, h client.Handler) client.Result {
		h.Lines([]transcript.Line{line("00:00:01.000", "before failure")})
		return client.Result{Status: client.StatusNetworkError, Lines: 1, Err: netErr}
	}})
	s.Select("a.mp3")

	res, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if res.Status != client.StatusNetworkError {
		t.Errorf("Status = %s", res.Status)
	}

	snap := s.Snapshot()
	if snap.State != Complete || snap.Transcribing() {
		t.Errorf("State = %s, want complete", snap.State)
	}
	if got := texts(snap.Lines); !reflect.DeepEqual(got, []string{"before failure"}) {
		t.Errorf("Lines = %v", got)
	}
	if snap.Result == nil || !client.IsNetworkError(snap.Result.Err) {
		t.Errorf("Result = %+v", snap.Result)
	}
}

// blockingTranscriber emits one batch, then waits for release before emitting more
type blockingTranscriber struct {
	started  chan struct{}
	release  chan struct{}
	mu       sync.Mutex
	canceled bool
}

func newBlocking() *blockingTranscriber {
	return &blockingTranscriber{started: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingTranscriber) TranscribeFile(ctx context.Context, path string, h client.Handler) client.Result {
	h.Lines([]transcript.Line{line("00:00:01.000", "early")})
	close(b.started)
	<-b.release
	if ctx.Err() != nil {
		b.mu.Lock()
		b.canceled = true
		b.mu.Unlock()
	}
	h.Lines([]transcript.Line{line("00:00:02.000", "late")})
	h.JobID("late-id")
	return client.Result{Status: client.StatusSuccess, JobID: "late-id", Lines: 2}
}

func (b *blockingTranscriber) DownloadURL(id, format string) (string, error) {
	return client.DownloadURL(client.DefaultEndpoint, id, format)
}

func TestSession_ClearWhileTranscribingDetachesStream(t *testing.T) {
	bt := newBlocking()
	s := New(bt)
	s.Select("a.mp3")

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Start(context.Background())
	}()

	<-bt.started
	if s.State() != Transcribing {
		t.Fatalf("State = %s, want transcribing", s.State())
	}
	if _, err := s.Start(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("second Start() error = %v, want ErrBusy", err)
	}

	s.Clear()
	close(bt.release)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return")
	}

	snap := s.Snapshot()
	if snap.State != Idle {
		t.Errorf("State = %s, want idle", snap.State)
	}
	if len(snap.Lines) != 0 || snap.JobID != "" || snap.Result != nil {
		t.Errorf("detached stream leaked into session: %+v", snap)
	}

	bt.mu.Lock()
	defer bt.mu.Unlock()
	if !bt.canceled {
		t.Error("stream context should be cancelled on Clear")
	}
}

func TestSession_ObserverSeesEveryChange(t *testing.T) {
	s := New(streaming(
		[]transcript.Line{line("00:00:01.000", "a")},
		[]transcript.Line{line("00:00:02.000", "b")},
	))

	var mu sync.Mutex
	var seen []Snapshot
	s.Observe(func(snap Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, snap)
	})

	s.Select("a.mp3")
	s.Start(context.Background())

	mu.Lock()
	defer mu.Unlock()

	var states []State
	for i, snap := range seen {
		states = append(states, snap.State)
		if i > 0 && snap.Seq <= seen[i-1].Seq {
			t.Errorf("Seq not increasing: %d after %d", snap.Seq, seen[i-1].Seq)
		}
	}
	want := []State{FileSelected, Transcribing, Transcribing, Transcribing, Transcribing, Complete}
	if !reflect.DeepEqual(states, want) {
		t.Errorf("states = %v, want %v", states, want)
	}
	if got := len(seen[3].Lines); got != 2 {
		t.Errorf("lines after second batch = %d, want 2", got)
	}
}

func TestSession_DownloadURL(t *testing.T) {
	s := New(streaming([]transcript.Line{line("00:00:01.000", "a")}))

	if _, err := s.DownloadURL("srt"); !errors.Is(err, client.ErrNoJobID) {
		t.Errorf("DownloadURL() before a job error = %v, want ErrNoJobID", err)
	}

	s.Select("a.mp3")
	s.Start(context.Background())

	got, err := s.DownloadURL("vtt")
	if err != nil {
		t.Fatalf("DownloadURL() error = %v", err)
	}
	if got != "http://localhost:4000/api/download/abc123/vtt" {
		t.Errorf("DownloadURL() = %q", got)
	}
}
