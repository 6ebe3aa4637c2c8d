package transcript

import (
	"encoding/json"
	"strings"
)

// Separator splits the timestamp from the text on a streamed transcript line.
const Separator = "]   "

// Line is one timestamped unit of recognized speech.
type Line struct {
	Timestamp string `json:"timestamp"`
	Text      string `json:"text"`
}

// String renders the line back into its wire form.
func (l Line) String() string {
	return "[" + l.Timestamp + Separator + l.Text
}

// ParseLine parses a single "[<timestamp>]   <text>" line.
// The text keeps everything after the first separator, untrimmed. Lines
// without a timestamp or with blank text are rejected.
func ParseLine(s string) (Line, bool) {
	s = strings.TrimSuffix(s, "\r")

	ts, text, found := strings.Cut(s, Separator)
	if !found {
		return Line{}, false
	}

	ts = strings.TrimSpace(ts)
	ts = strings.TrimPrefix(ts, "[")
	ts = strings.TrimSpace(ts)
	if ts == "" || strings.TrimSpace(text) == "" {
		return Line{}, false
	}

	return Line{Timestamp: ts, Text: text}, true
}

// ParseChunk splits one chunk on newlines and parses every line independently.
// A line cut off by the chunk boundary is parsed as-is, which usually drops it.
func ParseChunk(chunk string) (lines []Line, dropped int) {
	for _, raw := range strings.Split(chunk, "\n") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		line, ok := ParseLine(raw)
		if !ok {
			dropped++
			continue
		}
		lines = append(lines, line)
	}
	return lines, dropped
}

type idMessage struct {
	ID *string `json:"id"`
}

// JobID reports the job identifier carried by a chunk that is a single JSON object.
func JobID(chunk string) (string, bool) {
	trimmed := strings.TrimSpace(chunk)
	if !strings.HasPrefix(trimmed, "{") {
		return "", false
	}

	var msg idMessage
	if err := json.Unmarshal([]byte(trimmed), &msg); err != nil {
		return "", false
	}
	if msg.ID == nil || *msg.ID == "" {
		return "", false
	}
	return *msg.ID, true
}
