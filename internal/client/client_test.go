package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/leonardotrapani/webtranscriber/internal/subtitle"
	"github.com/leonardotrapani/webtranscriber/internal/testutil"
	"github.com/leonardotrapani/webtranscriber/internal/transcript"
)

// recorder collects handler callbacks in order
type recorder struct {
	mu     sync.Mutex
	ids    []string
	lines  []transcript.Line
	events []string
}

func (r *recorder) JobID(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
	r.events = append(r.events, "id:"+id)
}

func (r *recorder) Lines(lines []transcript.Line) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, lines...)
	for _, l := range lines {
		r.events = append(r.events, "line:"+l.Text)
	}
}

func (r *recorder) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, l := range r.lines {
		out = append(out, l.Text)
	}
	return out
}

// chunkReader returns one predefined chunk per Read call
type chunkReader struct {
	chunks [][]byte
	err    error
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks = r.chunks[1:]
	return n, nil
}

func chunks(parts ...string) [][]byte {
	out := make([][]byte, len(parts))
	for i, p := range parts {
		out[i] = []byte(p)
	}
	return out
}

func newStreamServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Transcribe_SendsFormAndStreams(t *testing.T) {
	audio := []byte("ID3 fake mp3 payload")

	var gotModel, gotFilename string
	var gotAudio []byte
	var gotOptions map[string]bool

	srv := newStreamServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/transcribe" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error = %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		file, header, err := r.FormFile("audio")
		if err != nil {
			t.Errorf("FormFile(audio) error = %v", err)
			return
		}
		defer file.Close()
		gotAudio, _ = io.ReadAll(file)
		gotFilename = header.Filename
		gotModel = r.FormValue("modelName")
		if err := json.Unmarshal([]byte(r.FormValue("options")), &gotOptions); err != nil {
			t.Errorf("options is not JSON: %v", err)
		}

		flusher := w.(http.Flusher)
		io.WriteString(w, "[00:00:01.000]   hello\n")
		flusher.Flush()
		io.WriteString(w, "[00:00:02.000]   world\n")
		flusher.Flush()
		io.WriteString(w, `{"id":"abc123"}`)
	})

	config := DefaultConfig()
	config.Endpoint = srv.URL
	c := New(config, srv.Client())

	rec := &recorder{}
	res := c.Transcribe(context.Background(), "speech.mp3", bytes.NewReader(audio), rec)

	if res.Status != StatusSuccess {
		t.Fatalf("Status = %s, err = %v", res.Status, res.Err)
	}
	if !bytes.Equal(gotAudio, audio) {
		t.Errorf("server got audio %q, want %q", gotAudio, audio)
	}
	if gotFilename != "speech.mp3" {
		t.Errorf("filename = %q", gotFilename)
	}
	if gotModel != "tiny.en" {
		t.Errorf("modelName = %q, want tiny.en", gotModel)
	}
	wantOptions := map[string]bool{"gen_file_txt": true, "gen_file_subtitle": true, "gen_file_vtt": true}
	if !reflect.DeepEqual(gotOptions, wantOptions) {
		t.Errorf("options = %v, want %v", gotOptions, wantOptions)
	}

	if want := []string{"hello", "world"}; !reflect.DeepEqual(rec.texts(), want) {
		t.Errorf("lines = %v, want %v", rec.texts(), want)
	}
	if res.JobID != "abc123" || len(rec.ids) != 1 || rec.ids[0] != "abc123" {
		t.Errorf("job id = %q (handler saw %v), want abc123", res.JobID, rec.ids)
	}
	if res.Lines != 2 {
		t.Errorf("Lines = %d, want 2", res.Lines)
	}
}

func TestClient_Transcribe_StatusError(t *testing.T) {
	srv := newStreamServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not installed", http.StatusInternalServerError)
	})

	config := DefaultConfig()
	config.Endpoint = srv.URL
	res := New(config, srv.Client()).Transcribe(context.Background(), "a.wav", strings.NewReader("x"), nil)

	if res.Status != StatusHTTPError {
		t.Fatalf("Status = %s, want %s", res.Status, StatusHTTPError)
	}
	var se *StatusError
	if !errors.As(res.Err, &se) {
		t.Fatalf("Err = %v, want *StatusError", res.Err)
	}
	if se.Code != http.StatusInternalServerError || !strings.Contains(se.Body, "model not installed") {
		t.Errorf("StatusError = %+v", se)
	}
}

func TestClient_Transcribe_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	config := DefaultConfig()
	config.Endpoint = endpoint
	res := New(config, nil).Transcribe(context.Background(), "a.wav", strings.NewReader("x"), nil)

	if res.Status != StatusNetworkError {
		t.Fatalf("Status = %s, want %s (err %v)", res.Status, StatusNetworkError, res.Err)
	}
	if !IsNetworkError(res.Err) {
		t.Errorf("IsNetworkError(%v) = false", res.Err)
	}
}

func TestClient_Transcribe_EmptyStreamIsParseError(t *testing.T) {
	srv := newStreamServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "not a transcript\n")
	})

	config := DefaultConfig()
	config.Endpoint = srv.URL
	res := New(config, srv.Client()).Transcribe(context.Background(), "a.wav", strings.NewReader("x"), nil)

	if res.Status != StatusParseError {
		t.Fatalf("Status = %s, want %s", res.Status, StatusParseError)
	}
	if !errors.Is(res.Err, ErrEmptyStream) {
		t.Errorf("Err = %v, want ErrEmptyStream", res.Err)
	}
	if res.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", res.Dropped)
	}
}

func TestClient_TranscribeFile_MissingFile(t *testing.T) {
	c := New(DefaultConfig(), nil)
	res := c.TranscribeFile(context.Background(), filepath.Join(t.TempDir(), "missing.mp3"), nil)

	if res.Status != StatusInputError {
		t.Errorf("Status = %s, want %s", res.Status, StatusInputError)
	}
	if !errors.Is(res.Err, os.ErrNotExist) {
		t.Errorf("Err = %v, want os.ErrNotExist", res.Err)
	}
}

func TestClient_Consume_ChunkBoundaries(t *testing.T) {
	input := chunks(
		"[00:00:01.000]   hello\n[00:00:02.0",
		"00]   world\n",
		`{"id":"abc123"}`,
		"[00:00:03.000]   tail",
	)

	t.Run("carry over", func(t *testing.T) {
		config := DefaultConfig()
		rec := &recorder{}
		res := New(config, nil).consume(&chunkReader{chunks: input}, rec)

		if want := []string{"hello", "world", "tail"}; !reflect.DeepEqual(rec.texts(), want) {
			t.Errorf("lines = %v, want %v", rec.texts(), want)
		}
		if res.JobID != "abc123" || res.Dropped != 0 || res.Chunks != 4 {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("lossy", func(t *testing.T) {
		config := DefaultConfig()
		config.LossyLines = true
		rec := &recorder{}
		res := New(config, nil).consume(&chunkReader{chunks: chunks(
			"[00:00:01.000]   hello\n[00:00:0",
			"2.000 world\n",
			`{"id":"abc123"}`,
		)}, rec)

		if want := []string{"hello"}; !reflect.DeepEqual(rec.texts(), want) {
			t.Errorf("lines = %v, want %v", rec.texts(), want)
		}
		if res.JobID != "abc123" || res.Dropped != 2 {
			t.Errorf("result = %+v", res)
		}
	})
}

func TestClient_ZeroConfigReassemblesSplitLines(t *testing.T) {
	rec := &recorder{}
	res := New(Config{}, nil).consume(&chunkReader{chunks: chunks(
		"[00:00:01.000]   hel",
		"lo\n",
		`{"id":"ab`,
		"c\"}\n",
	)}, rec)

	if want := []string{"hello"}; !reflect.DeepEqual(rec.texts(), want) {
		t.Errorf("lines = %v, want %v", rec.texts(), want)
	}
	if res.JobID != "abc" || res.Dropped != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestClient_Consume_PreservesArrivalOrder(t *testing.T) {
	rec := &recorder{}
	New(DefaultConfig(), nil).consume(&chunkReader{chunks: chunks(
		"[00:00:09.000]   late timestamp first\n",
		"{\"id\":\"j\"}",
		"[00:00:01.000]   early timestamp second\n",
	)}, rec)

	want := []string{"line:late timestamp first", "id:j", "line:early timestamp second"}
	if !reflect.DeepEqual(rec.events, want) {
		t.Errorf("events = %v, want %v", rec.events, want)
	}
}

func TestClient_Consume_SplitMultibyteCharacter(t *testing.T) {
	line := []byte("[00:00:01.000]   café\n")
	idx := bytes.Index(line, []byte("é")) + 1 // cut inside the two-byte é

	rec := &recorder{}
	res := New(DefaultConfig(), nil).consume(&chunkReader{chunks: [][]byte{line[:idx], line[idx:]}}, rec)

	if want := []string{"café"}; !reflect.DeepEqual(rec.texts(), want) {
		t.Errorf("lines = %q, want %q", rec.texts(), want)
	}
	if res.Dropped != 0 {
		t.Errorf("Dropped = %d", res.Dropped)
	}
}

func TestClient_Consume_ReadErrorKeepsDeliveredLines(t *testing.T) {
	readErr := errors.New("connection reset by peer")
	rec := &recorder{}
	res := New(DefaultConfig(), nil).consume(&chunkReader{
		chunks: chunks("[00:00:01.000]   kept\n[00:00:02.000]   partial"),
		err:    readErr,
	}, rec)

	if !IsNetworkError(res.Err) || !errors.Is(res.Err, readErr) {
		t.Fatalf("Err = %v, want network error wrapping %v", res.Err, readErr)
	}
	if want := []string{"kept"}; !reflect.DeepEqual(rec.texts(), want) {
		t.Errorf("lines = %v, want %v", rec.texts(), want)
	}
}

func TestDownloadURL(t *testing.T) {
	c := New(DefaultConfig(), nil)

	got, err := c.DownloadURL("xyz", "srt")
	if err != nil {
		t.Fatalf("DownloadURL() error = %v", err)
	}
	if got != "http://localhost:4000/api/download/xyz/srt" {
		t.Errorf("DownloadURL() = %q", got)
	}

	tests := []struct {
		name     string
		endpoint string
		id       string
		format   string
		want     string
		wantErr  error
	}{
		{name: "vtt", endpoint: "http://localhost:4000", id: "abc", format: "vtt", want: "http://localhost:4000/api/download/abc/vtt"},
		{name: "trailing slash", endpoint: "http://host:9/", id: "abc", format: "txt", want: "http://host:9/api/download/abc/txt"},
		{name: "escaped id", endpoint: "http://h", id: "a b/c", format: "srt", want: "http://h/api/download/a%20b%2Fc/srt"},
		{name: "unknown format", endpoint: "http://h", id: "abc", format: "json", wantErr: subtitle.ErrUnknownFormat},
		{name: "empty id", endpoint: "http://h", id: "", format: "srt", wantErr: ErrNoJobID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DownloadURL(tt.endpoint, tt.id, tt.format)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DownloadURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClient_Download(t *testing.T) {
	srv := newStreamServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/download/job1/vtt" {
			io.WriteString(w, "WEBVTT\n\n")
			return
		}
		http.NotFound(w, r)
	})

	config := DefaultConfig()
	config.Endpoint = srv.URL
	c := New(config, srv.Client())

	var buf bytes.Buffer
	n, err := c.Download(context.Background(), "job1", "vtt", &buf)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if n != int64(buf.Len()) || buf.String() != "WEBVTT\n\n" {
		t.Errorf("Download() = %d bytes %q", n, buf.String())
	}

	_, err = c.Download(context.Background(), "missing", "srt", io.Discard)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Errorf("Download(missing) error = %v, want 404 StatusError", err)
	}
}

func TestClient_Health(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"status":"ok","engine":"whisper-cpp","jobs":3,"active":1}`))
	}))
	defer ts.Close()

	c := New(Config{Endpoint: ts.URL + "/"}, nil)
	h, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	want := Health{Status: "ok", Engine: "whisper-cpp", Jobs: 3, Active: 1}
	if h != want {
		t.Errorf("Health() = %+v, want %+v", h, want)
	}

	ts.Close()
	if _, err := c.Health(context.Background()); !IsNetworkError(err) {
		t.Errorf("Health() on closed server error = %v, want network error", err)
	}
}

func TestClient_TranscribeFile_AgainstFakeService(t *testing.T) {
	svc := &testutil.FakeService{
		Lines: []string{
			"[00:00:00.000 --> 00:00:01.500]   héllo",
			"[00:00:01.500 --> 00:00:03.000]   wörld",
		},
		JobID:     "abc",
		Artifacts: map[string]string{"txt": "héllo\nwörld\n"},
	}
	ts := svc.Start(t)

	audio := testutil.WriteTempFile(t, "clip.mp3", []byte("ID3 data"))
	c := New(Config{Endpoint: ts.URL, ModelName: "base.en", Options: transcript.Options{GenFileTxt: true}, ChunkSize: 7}, nil)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	rec := &recorder{}
	res := c.TranscribeFile(ctx, audio, rec)
	if !res.OK() || res.JobID != "abc" || res.Lines != 2 {
		t.Fatalf("result = %+v", res)
	}
	if got := rec.lines[1].Text; got != "wörld" {
		t.Errorf("second line text = %q", got)
	}

	up := svc.Uploads()
	if len(up) != 1 || up[0].Filename != "clip.mp3" || up[0].ModelName != "base.en" {
		t.Fatalf("uploads = %+v", up)
	}
	if up[0].Options != `{"gen_file_txt":true,"gen_file_subtitle":false,"gen_file_vtt":false}` {
		t.Errorf("options = %s", up[0].Options)
	}

	var buf bytes.Buffer
	if _, err := c.Download(ctx, res.JobID, "txt", &buf); err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if buf.String() != "héllo\nwörld\n" {
		t.Errorf("download = %q", buf.String())
	}
	if _, err := c.Download(ctx, res.JobID, "srt", io.Discard); !IsStatusError(err) {
		t.Errorf("missing artifact error = %v, want status error", err)
	}
}
