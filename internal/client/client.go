package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/leonardotrapani/webtranscriber/internal/subtitle"
	"github.com/leonardotrapani/webtranscriber/internal/transcript"
)

const (
	DefaultEndpoint  = "http://localhost:4000"
	DefaultModelName = "tiny.en"
	DefaultChunkSize = 32 * 1024

	transcribePath = "/api/transcribe"
	downloadPath   = "/api/download"
	healthPath     = "/healthz"

	errorBodyLimit = 512
)

// Handler receives what the stream produces, in arrival order.
type Handler interface {
	JobID(id string)
	Lines(lines []transcript.Line)
}

// HandlerFuncs adapts plain functions to Handler. Nil fields are ignored.
type HandlerFuncs struct {
	OnJobID func(id string)
	OnLines func(lines []transcript.Line)
}

func (h HandlerFuncs) JobID(id string) {
	if h.OnJobID != nil {
		h.OnJobID(id)
	}
}

func (h HandlerFuncs) Lines(lines []transcript.Line) {
	if h.OnLines != nil {
		h.OnLines(lines)
	}
}

// Config for the transcription stream client
type Config struct {
	Endpoint  string
	ModelName string
	Options   transcript.Options
	// LossyLines splits every chunk on its own, dropping lines cut across
	// chunk boundaries. The zero value reassembles them.
	LossyLines bool
	ChunkSize  int
	Timeout    time.Duration // whole request, 0 = no limit
}

func DefaultConfig() Config {
	return Config{
		Endpoint:  DefaultEndpoint,
		ModelName: DefaultModelName,
		Options:   transcript.AllOptions(),
		ChunkSize: DefaultChunkSize,
	}
}

// Client uploads audio to the transcription service and reads back the
// streamed transcript.
type Client struct {
	http   *http.Client
	config Config
	log    *log.Logger
}

// New creates a client. A nil httpClient means a default one without timeout,
// since transcription streams can run for as long as the audio lasts.
func New(config Config, httpClient *http.Client) *Client {
	if config.Endpoint == "" {
		config.Endpoint = DefaultEndpoint
	}
	if config.ModelName == "" {
		config.ModelName = DefaultModelName
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkSize
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	return &Client{
		http:   httpClient,
		config: config,
		log:    log.WithPrefix("client"),
	}
}

func (c *Client) Config() Config {
	return c.config
}

// TranscribeFile opens path and streams it through Transcribe.
func (c *Client) TranscribeFile(ctx context.Context, path string, h Handler) Result {
	f, err := os.Open(path)
	if err != nil {
		return c.finish(Result{}, fmt.Errorf("open audio file: %w", err))
	}
	defer f.Close()

	return c.Transcribe(ctx, filepath.Base(path), f, h)
}

// Transcribe uploads audio and feeds every decoded chunk of the response to
// h until the service closes the stream. It never panics on a bad stream and
// reports the outcome as a Result.
func (c *Client) Transcribe(ctx context.Context, filename string, audio io.Reader, h Handler) Result {
	if h == nil {
		h = HandlerFuncs{}
	}

	optionsJSON, err := json.Marshal(c.config.Options)
	if err != nil {
		return c.finish(Result{}, fmt.Errorf("marshal options: %w", err))
	}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(writer, filename, audio, c.config.ModelName, string(optionsJSON)))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(transcribePath), pr)
	if err != nil {
		pr.Close()
		return c.finish(Result{}, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	c.log.Info("uploading", "file", filename, "model", c.config.ModelName, "url", req.URL.String())

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		pr.CloseWithError(err)
		return c.finish(Result{}, &NetworkError{Op: "transcribe request", Err: err})
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		pr.Close()
		return c.finish(Result{}, err)
	}

	res := c.consume(resp.Body, h)
	if res.Err == nil && res.Lines == 0 && res.JobID == "" {
		res.Err = ErrEmptyStream
	}

	c.log.Debug("stream closed", "elapsed", time.Since(start), "chunks", res.Chunks)
	return c.finish(res, res.Err)
}

func (c *Client) consume(body io.Reader, h Handler) Result {
	var res Result
	parser := transcript.NewParser(!c.config.LossyLines)
	var dec textDecoder
	buf := make([]byte, c.config.ChunkSize)

	deliver := func(b transcript.Batch) {
		if b.JobID != "" {
			res.JobID = b.JobID
			c.log.Info("job id received", "id", b.JobID)
			h.JobID(b.JobID)
		}
		if len(b.Lines) > 0 {
			res.Lines += len(b.Lines)
			h.Lines(b.Lines)
		}
		if b.Dropped > 0 {
			res.Dropped += b.Dropped
			c.log.Debug("dropped malformed lines", "count", b.Dropped)
		}
	}

	for {
		n, err := body.Read(buf)
		if n > 0 {
			res.Chunks++
			deliver(parser.Feed(dec.Decode(buf[:n])))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			res.Err = &NetworkError{Op: "read stream", Err: err}
			return res
		}
	}

	if tail := dec.Flush(); tail != "" {
		deliver(parser.Feed(tail))
	}
	deliver(parser.Flush())
	return res
}

func (c *Client) finish(res Result, err error) Result {
	res.Err = err
	res.Status = classify(err)
	if err != nil {
		c.log.Error("transcription failed", "status", res.Status, "lines", res.Lines, "err", err)
		return res
	}
	c.log.Info("transcription finished", "job", res.JobID, "lines", res.Lines, "dropped", res.Dropped)
	return res
}

func writeForm(w *multipart.Writer, filename string, audio io.Reader, modelName, options string) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename=%q`, filename))
	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := w.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create audio part: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return fmt.Errorf("copy audio data: %w", err)
	}
	if err := w.WriteField("modelName", modelName); err != nil {
		return fmt.Errorf("write modelName: %w", err)
	}
	if err := w.WriteField("options", options); err != nil {
		return fmt.Errorf("write options: %w", err)
	}
	return w.Close()
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.config.Endpoint, "/") + path
}

// DownloadURL builds the artifact URL for a finished job.
func (c *Client) DownloadURL(id, format string) (string, error) {
	return DownloadURL(c.config.Endpoint, id, format)
}

// DownloadURL builds "<endpoint>/api/download/<id>/<format>".
func DownloadURL(endpoint, id, format string) (string, error) {
	if id == "" {
		return "", ErrNoJobID
	}
	f, err := subtitle.ParseFormat(format)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(endpoint, "/") + downloadPath + "/" + url.PathEscape(id) + "/" + string(f), nil
}

// Download fetches an artifact and copies it into w.
func (c *Client) Download(ctx context.Context, id, format string, w io.Writer) (int64, error) {
	u, err := c.DownloadURL(id, format)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, &NetworkError{Op: "download request", Err: err}
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return 0, err
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, &NetworkError{Op: "read download", Err: err}
	}

	c.log.Info("downloaded", "id", id, "format", format, "bytes", n)
	return n, nil
}

// Health is what the service reports on its health endpoint.
type Health struct {
	Status string `json:"status"`
	Engine string `json:"engine"`
	Jobs   int    `json:"jobs"`
	Active int    `json:"active"`
}

// Health asks the service whether it is up.
func (c *Client) Health(ctx context.Context) (Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(healthPath), nil)
	if err != nil {
		return Health{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Health{}, &NetworkError{Op: "health request", Err: err}
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return Health{}, err
	}

	var h Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return Health{}, fmt.Errorf("decode health: %w", err)
	}
	return h, nil
}
