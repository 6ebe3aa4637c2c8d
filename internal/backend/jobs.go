package backend

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leonardotrapani/webtranscriber/internal/subtitle"
	"github.com/leonardotrapani/webtranscriber/internal/transcript"
)

var (
	ErrJobNotFound        = errors.New("job not found")
	ErrFormatNotGenerated = errors.New("format not generated for this job")
)

// Job is a finished transcription and the artifacts rendered for it.
type Job struct {
	ID        string
	Filename  string
	Model     string
	Segments  []subtitle.Segment
	Created   time.Time
	artifacts map[subtitle.Format]string
}

// Formats lists the artifacts available for download, in canonical order.
func (j *Job) Formats() []subtitle.Format {
	var out []subtitle.Format
	for _, f := range subtitle.Formats {
		if _, ok := j.artifacts[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// NewJob renders the artifacts the client asked for.
func NewJob(filename, model string, segs []subtitle.Segment, opts transcript.Options) (*Job, error) {
	job := &Job{
		ID:        uuid.NewString(),
		Filename:  filename,
		Model:     model,
		Segments:  segs,
		Created:   time.Now(),
		artifacts: make(map[subtitle.Format]string),
	}

	for _, f := range subtitle.Requested(opts) {
		s, err := subtitle.RenderString(f, segs)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", f, err)
		}
		job.artifacts[f] = s
	}
	return job, nil
}

// JobStore keeps the most recent jobs in memory. Once full, adding a job
// evicts the oldest one.
type JobStore struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	order []string
	max   int
}

func NewJobStore(max int) *JobStore {
	if max <= 0 {
		max = 1
	}
	return &JobStore{jobs: make(map[string]*Job), max: max}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; !exists {
		s.order = append(s.order, job.ID)
	}
	s.jobs[job.ID] = job
	s.evict()
}

// SetMax changes the capacity, evicting the oldest jobs if the store is now
// over it.
func (s *JobStore) SetMax(max int) {
	if max <= 0 {
		max = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.max = max
	s.evict()
}

func (s *JobStore) evict() {
	for len(s.order) > s.max {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.jobs, oldest)
	}
}

func (s *JobStore) Get(id string) (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	return job, ok
}

func (s *JobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// Artifact returns the rendered file for a job.
func (s *JobStore) Artifact(id string, f subtitle.Format) (*Job, string, error) {
	job, ok := s.Get(id)
	if !ok {
		return nil, "", ErrJobNotFound
	}
	content, ok := job.artifacts[f]
	if !ok {
		return job, "", ErrFormatNotGenerated
	}
	return job, content, nil
}
