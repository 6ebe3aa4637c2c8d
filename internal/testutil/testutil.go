package testutil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// TestContext returns a context with timeout for testing
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// WaitForCondition waits for a condition to be true or times out
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("Condition not met within %v", timeout)
		default:
			if condition() {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// WriteTempFile writes data to name inside a fresh temp dir and returns the path.
func WriteTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Upload records one request received by FakeService.
type Upload struct {
	Filename  string
	ModelName string
	Options   string
	Size      int
}

// FakeService speaks the transcription service protocol from canned data:
// every entry of Lines is written and flushed as its own chunk, then the job
// id object. Artifacts maps a format to the body served for JobID.
type FakeService struct {
	Lines     []string
	JobID     string
	Artifacts map[string]string
	// Status, when set, rejects uploads with that code instead of streaming.
	Status int

	mu      sync.Mutex
	uploads []Upload
}

// Start serves f on a test server closed at the end of the test.
func (f *FakeService) Start(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/transcribe", f.handleTranscribe)
	mux.HandleFunc("GET /api/download/{id}/{format}", f.handleDownload)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","engine":"fake","jobs":%d,"active":0}`, len(f.Uploads()))
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

// Uploads returns the uploads received so far.
func (f *FakeService) Uploads() []Upload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Upload(nil), f.uploads...)
}

func (f *FakeService) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		http.Error(w, "missing audio", http.StatusBadRequest)
		return
	}
	data, _ := io.ReadAll(file)
	file.Close()

	f.mu.Lock()
	f.uploads = append(f.uploads, Upload{
		Filename:  header.Filename,
		ModelName: r.FormValue("modelName"),
		Options:   r.FormValue("options"),
		Size:      len(data),
	})
	f.mu.Unlock()

	if f.Status != 0 {
		http.Error(w, http.StatusText(f.Status), f.Status)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	flusher, _ := w.(http.Flusher)
	for _, line := range f.Lines {
		io.WriteString(w, line+"\n")
		if flusher != nil {
			flusher.Flush()
		}
	}
	if f.JobID != "" {
		fmt.Fprintf(w, "{\"id\":%q}\n", f.JobID)
	}
}

func (f *FakeService) handleDownload(w http.ResponseWriter, r *http.Request) {
	body, ok := f.Artifacts[strings.ToLower(r.PathValue("format"))]
	if r.PathValue("id") != f.JobID || !ok {
		http.NotFound(w, r)
		return
	}
	io.WriteString(w, body)
}
