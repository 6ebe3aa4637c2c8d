package session

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/leonardotrapani/webtranscriber/internal/client"
	"github.com/leonardotrapani/webtranscriber/internal/transcript"
)

type State string

const (
	Idle         State = "idle"
	FileSelected State = "file-selected"
	Transcribing State = "transcribing"
	Complete     State = "complete"
)

var (
	ErrNoFile = errors.New("no file selected")
	ErrBusy   = errors.New("transcription already in progress")
)

// Transcriber is the part of the stream client a session drives.
type Transcriber interface {
	TranscribeFile(ctx context.Context, path string, h client.Handler) client.Result
	DownloadURL(id, format string) (string, error)
}

// Snapshot is a copy of the session record, safe to keep and render.
type Snapshot struct {
	Seq    uint64 // increases with every change; observers may drop older ones
	State  State
	File   string
	Lines  []transcript.Line
	JobID  string
	Result *client.Result
}

// Transcribing mirrors the in-progress flag.
func (s Snapshot) Transcribing() bool {
	return s.State == Transcribing
}

// Session owns the selected file, the transcript buffer, the job id and the
// in-progress flag. All changes go through its transitions.
type Session struct {
	mu     sync.RWMutex
	client Transcriber
	log    *log.Logger

	state  State
	file   string
	lines  []transcript.Line
	jobID  string
	result *client.Result

	// generation identifies the stream allowed to write into the buffer
	generation uint64
	cancel     context.CancelFunc
	seq        uint64

	obsMu     sync.Mutex
	observers []func(Snapshot)
}

func New(c Transcriber) *Session {
	return &Session{
		client: c,
		state:  Idle,
		log:    log.WithPrefix("session"),
	}
}

// Observe registers fn to be called with a fresh snapshot after every change.
func (s *Session) Observe(fn func(Snapshot)) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) JobID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobID
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// changedLocked records a change and returns the snapshot to publish.
func (s *Session) changedLocked() Snapshot {
	s.seq++
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Seq:   s.seq,
		State: s.state,
		File:  s.file,
		Lines: append([]transcript.Line(nil), s.lines...),
		JobID: s.jobID,
	}
	if s.result != nil {
		r := *s.result
		snap.Result = &r
	}
	return snap
}

// Select replaces the current file. Any transcript, job id and result are
// discarded and a running stream is detached from the buffer.
func (s *Session) Select(path string) {
	s.mu.Lock()
	s.detachLocked()
	s.file = path
	s.state = FileSelected
	if path == "" {
		s.state = Idle
	}
	s.log.Debug("file selected", "file", path)
	snap := s.changedLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// Clear returns the session to Idle.
func (s *Session) Clear() {
	s.mu.Lock()
	s.detachLocked()
	s.file = ""
	s.state = Idle
	s.log.Debug("session cleared")
	snap := s.changedLocked()
	s.mu.Unlock()

	s.notify(snap)
}

func (s *Session) detachLocked() {
	s.generation++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.lines = nil
	s.jobID = ""
	s.result = nil
}

// Start transcribes the selected file and blocks until the stream ends. The
// session ends up Complete whatever the outcome; the returned result says how
// it went. If the session is cleared or another file is selected meanwhile,
// the stream is cancelled and its result is not recorded.
func (s *Session) Start(ctx context.Context) (client.Result, error) {
	s.mu.Lock()
	switch s.state {
	case Idle:
		s.mu.Unlock()
		return client.Result{}, ErrNoFile
	case Transcribing:
		s.mu.Unlock()
		return client.Result{}, ErrBusy
	}

	s.lines = nil
	s.jobID = ""
	s.result = nil
	s.generation++
	gen := s.generation
	file := s.file

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state = Transcribing
	snap := s.changedLocked()
	s.mu.Unlock()

	defer cancel()
	s.notify(snap)
	s.log.Info("transcription started", "file", file)

	res := s.client.TranscribeFile(runCtx, file, streamHandler{s: s, gen: gen})

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		s.log.Debug("detached stream finished", "status", res.Status)
		return res, nil
	}
	s.cancel = nil
	s.state = Complete
	s.result = &res
	snap = s.changedLocked()
	s.mu.Unlock()

	s.notify(snap)
	return res, nil
}

// DownloadURL builds the artifact URL for the current job.
func (s *Session) DownloadURL(format string) (string, error) {
	return s.client.DownloadURL(s.JobID(), format)
}

func (s *Session) setJobID(gen uint64, id string) {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return
	}
	s.jobID = id
	snap := s.changedLocked()
	s.mu.Unlock()

	s.notify(snap)
}

func (s *Session) appendLines(gen uint64, lines []transcript.Line) {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return
	}
	s.lines = append(s.lines, lines...)
	snap := s.changedLocked()
	s.mu.Unlock()

	s.notify(snap)
}

func (s *Session) notify(snap Snapshot) {
	s.obsMu.Lock()
	observers := append([]func(Snapshot){}, s.observers...)
	s.obsMu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
}

// streamHandler ties stream callbacks to the generation that started them.
type streamHandler struct {
	s   *Session
	gen uint64
}

func (h streamHandler) JobID(id string) {
	h.s.setJobID(h.gen, id)
}

func (h streamHandler) Lines(lines []transcript.Line) {
	h.s.appendLines(h.gen, lines)
}
