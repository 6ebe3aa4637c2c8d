package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/leonardotrapani/webtranscriber/internal/subtitle"
	"github.com/leonardotrapani/webtranscriber/internal/transcript"
)

const (
	maxMemory       = 32 << 20
	shutdownTimeout = 10 * time.Second
)

// Server accepts uploads, streams transcript lines back as the engine
// produces them and keeps the rendered artifacts for download.
type Server struct {
	settings  SettingsSource
	jobs      *JobStore
	active    atomic.Int32
	newEngine func(Settings) (Engine, error)
	log       *log.Logger
}

func NewServer(settings SettingsSource) *Server {
	return &Server{
		settings:  settings,
		jobs:      NewJobStore(settings.Settings().MaxJobs),
		newEngine: NewEngine,
		log:       log.WithPrefix("server"),
	}
}

func (s *Server) Jobs() *JobStore {
	return s.jobs
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/transcribe", s.handleTranscribe)
		r.Get("/download/{id}/{format}", s.handleDownload)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr, "engine", s.settings.Settings().Engine)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"engine": s.settings.Settings().Engine,
		"jobs":   s.jobs.Len(),
		"active": s.active.Load(),
	})
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	settings := s.settings.Settings()

	if settings.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, settings.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("audio")
	if err != nil {
		http.Error(w, "missing audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	model := strings.TrimSpace(r.FormValue("modelName"))
	if model == "" {
		model = settings.DefaultModel
	}

	var opts transcript.Options
	if raw := strings.TrimSpace(r.FormValue("options")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &opts); err != nil {
			http.Error(w, "invalid options: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	if !s.acquire(settings.MaxConcurrent) {
		http.Error(w, "too many transcriptions in progress", http.StatusServiceUnavailable)
		return
	}
	defer s.active.Add(-1)

	engine, err := s.newEngine(settings)
	if err != nil {
		s.log.Error("engine unavailable", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dir, err := os.MkdirTemp("", "webtranscriber-*")
	if err != nil {
		http.Error(w, "failed to store upload", http.StatusInternalServerError)
		return
	}
	defer os.RemoveAll(dir)

	filename := filepath.Base(header.Filename)
	if filename == "." || filename == string(filepath.Separator) {
		filename = "audio"
	}
	audioPath := filepath.Join(dir, filename)
	if err := saveUpload(audioPath, file); err != nil {
		s.log.Error("failed to store upload", "err", err)
		http.Error(w, "failed to store upload", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)
	started := false
	begin := func() {
		if started {
			return
		}
		started = true
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.WriteHeader(http.StatusOK)
	}

	var segs []subtitle.Segment
	req := Request{
		AudioPath: audioPath,
		Filename:  filename,
		Model:     model,
		Language:  r.FormValue("language"),
	}
	err = engine.Transcribe(r.Context(), req, func(seg subtitle.Segment) error {
		if strings.TrimSpace(seg.Text) == "" {
			return nil
		}
		begin()
		segs = append(segs, seg)
		if _, err := io.WriteString(w, subtitle.StreamLine(seg)+"\n"); err != nil {
			return err
		}
		rc.Flush()
		return nil
	})
	if err != nil {
		s.log.Error("transcription failed", "file", filename, "engine", engine.Name(), "segments", len(segs), "err", err)
		if !started {
			http.Error(w, "transcription failed: "+err.Error(), http.StatusBadGateway)
		}
		return
	}

	job, err := NewJob(filename, model, segs, opts)
	if err != nil {
		s.log.Error("failed to render artifacts", "err", err)
		if !started {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	s.jobs.SetMax(settings.MaxJobs)
	s.jobs.Put(job)

	begin()
	json.NewEncoder(w).Encode(struct {
		ID string `json:"id"`
	}{job.ID})
	rc.Flush()

	s.log.Info("job complete", "id", job.ID, "file", filename, "model", model, "segments", len(segs), "formats", job.Formats())
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	format, err := subtitle.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	job, content, err := s.jobs.Artifact(id, format)
	switch {
	case errors.Is(err, ErrJobNotFound), errors.Is(err, ErrFormatNotGenerated):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	name := strings.TrimSuffix(job.Filename, filepath.Ext(job.Filename)) + "." + string(format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	io.WriteString(w, content)
}

// acquire reserves a transcription slot; limit <= 0 means unlimited.
func (s *Server) acquire(limit int) bool {
	n := s.active.Add(1)
	if limit > 0 && int(n) > limit {
		s.active.Add(-1)
		return false
	}
	return true
}

func saveUpload(path string, src io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
			"req_id", middleware.GetReqID(r.Context()),
		)
	})
}

// cors lets a browser front-end on another origin call the API.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
