package whisper

import (
	"fmt"
	"sort"
)

// Model describes one ggml whisper model the backend can run.
type Model struct {
	ID           string // name clients send as modelName, e.g. "tiny.en"
	Filename     string // e.g. "ggml-tiny.en.bin"
	Size         string
	SizeBytes    int64
	Multilingual bool
}

const baseDownloadURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

var catalog = []Model{
	{ID: "tiny.en", Filename: "ggml-tiny.en.bin", Size: "75MB", SizeBytes: 75_000_000},
	{ID: "base.en", Filename: "ggml-base.en.bin", Size: "142MB", SizeBytes: 142_000_000},
	{ID: "small.en", Filename: "ggml-small.en.bin", Size: "466MB", SizeBytes: 466_000_000},
	{ID: "medium.en", Filename: "ggml-medium.en.bin", Size: "1.5GB", SizeBytes: 1_500_000_000},
	{ID: "tiny", Filename: "ggml-tiny.bin", Size: "75MB", SizeBytes: 75_000_000, Multilingual: true},
	{ID: "base", Filename: "ggml-base.bin", Size: "142MB", SizeBytes: 142_000_000, Multilingual: true},
	{ID: "small", Filename: "ggml-small.bin", Size: "466MB", SizeBytes: 466_000_000, Multilingual: true},
	{ID: "medium", Filename: "ggml-medium.bin", Size: "1.5GB", SizeBytes: 1_500_000_000, Multilingual: true},
	{ID: "large-v3", Filename: "ggml-large-v3.bin", Size: "3GB", SizeBytes: 3_000_000_000, Multilingual: true},
}

var byID = func() map[string]Model {
	m := make(map[string]Model, len(catalog))
	for _, model := range catalog {
		m[model.ID] = model
	}
	return m
}()

// Lookup returns the catalog entry for id.
func Lookup(id string) (Model, error) {
	m, ok := byID[id]
	if !ok {
		return Model{}, fmt.Errorf("unknown whisper model %q (known: %v)", id, IDs())
	}
	return m, nil
}

// Catalog returns every known model.
func Catalog() []Model {
	out := make([]Model, len(catalog))
	copy(out, catalog)
	return out
}

// IDs returns the sorted model names.
func IDs() []string {
	ids := make([]string, 0, len(catalog))
	for _, m := range catalog {
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	return ids
}

func (m Model) DownloadURL() string {
	return baseDownloadURL + "/" + m.Filename
}
