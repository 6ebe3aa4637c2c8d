package whisper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// ProgressFunc is called during download with bytes downloaded and total
type ProgressFunc func(downloaded, total int64)

// Store keeps ggml model files in one directory.
type Store struct {
	dir        string
	baseURL    string
	httpClient *http.Client
}

func NewStore(dir string) *Store {
	return &Store{dir: dir, baseURL: baseDownloadURL, httpClient: http.DefaultClient}
}

// DefaultDir is ~/.local/share/webtranscriber/models/whisper.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "webtranscriber", "models", "whisper"), nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Path returns where the model file lives, installed or not.
func (s *Store) Path(id string) (string, error) {
	m, err := Lookup(id)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, m.Filename), nil
}

func (s *Store) IsInstalled(id string) bool {
	path, err := s.Path(id)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

// InstalledPath returns the model path, or an error if it was never downloaded.
func (s *Store) InstalledPath(id string) (string, error) {
	path, err := s.Path(id)
	if err != nil {
		return "", err
	}
	if !s.IsInstalled(id) {
		return "", fmt.Errorf("model %s not installed: run webtranscriber model download %s", id, id)
	}
	return path, nil
}

// Installed returns the IDs of downloaded models.
func (s *Store) Installed() []string {
	var ids []string
	for _, m := range catalog {
		if s.IsInstalled(m.ID) {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// Download fetches a model into the store. onProgress may be nil.
func (s *Store) Download(ctx context.Context, id string, onProgress ProgressFunc) error {
	m, err := Lookup(id)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	destPath := filepath.Join(s.dir, m.Filename)
	tempPath := destPath + ".downloading"

	out, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		out.Close()
		os.Remove(tempPath)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/"+m.Filename, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %s", resp.Status)
	}

	total := resp.ContentLength
	if total < 0 {
		total = m.SizeBytes
	}

	var src io.Reader = resp.Body
	if onProgress != nil {
		src = &progressReader{r: resp.Body, total: total, fn: onProgress}
	}
	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("failed to write model: %w", err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tempPath, destPath); err != nil {
		return fmt.Errorf("failed to finalize download: %w", err)
	}
	return nil
}

// Remove deletes a downloaded model.
func (s *Store) Remove(id string) error {
	path, err := s.InstalledPath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove model: %w", err)
	}
	return nil
}

type progressReader struct {
	r     io.Reader
	read  int64
	total int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		p.fn(p.read, p.total)
	}
	return n, err
}
