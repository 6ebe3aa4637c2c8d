package subtitle

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/leonardotrapani/webtranscriber/internal/transcript"
)

// Format is a downloadable transcript artifact type.
type Format string

const (
	SRT Format = "srt"
	VTT Format = "vtt"
	TXT Format = "txt"
)

// Formats lists every supported format in download order.
var Formats = []Format{SRT, VTT, TXT}

var ErrUnknownFormat = errors.New("unknown subtitle format")

// DefaultCueDuration is used for the last cue when a transcript line only
// carries a start time.
const DefaultCueDuration = 2 * time.Second

// ParseFormat accepts "srt", ".SRT", "vtt", "txt" and friends.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")))
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q (must be srt, vtt, or txt)", ErrUnknownFormat, s)
	}
	return f, nil
}

func (f Format) Valid() bool {
	switch f {
	case SRT, VTT, TXT:
		return true
	}
	return false
}

func (f Format) ContentType() string {
	switch f {
	case SRT:
		return "application/x-subrip; charset=utf-8"
	case VTT:
		return "text/vtt; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Segment is one timed piece of transcript text.
type Segment struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// ParseTimestamp parses "HH:MM:SS.mmm", "MM:SS.mmm" or the SRT comma variant.
func ParseTimestamp(s string) (time.Duration, error) {
	raw := s
	s = strings.Replace(strings.TrimSpace(s), ",", ".", 1)

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid timestamp %q", raw)
	}

	var hours, minutes int
	var err error
	if len(parts) == 3 {
		if hours, err = strconv.Atoi(parts[0]); err != nil || hours < 0 {
			return 0, fmt.Errorf("invalid hours in timestamp %q", raw)
		}
		parts = parts[1:]
	}
	if minutes, err = strconv.Atoi(parts[0]); err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid minutes in timestamp %q", raw)
	}

	secPart, fracPart, _ := strings.Cut(parts[1], ".")
	seconds, err := strconv.Atoi(secPart)
	if err != nil || seconds < 0 || seconds > 59 {
		return 0, fmt.Errorf("invalid seconds in timestamp %q", raw)
	}

	var millis int
	if fracPart != "" {
		frac := (fracPart + "00")[:3]
		if millis, err = strconv.Atoi(frac); err != nil || millis < 0 {
			return 0, fmt.Errorf("invalid milliseconds in timestamp %q", raw)
		}
	}

	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond, nil
}

// ParseRange parses either a single timestamp or "start --> end".
func ParseRange(s string) (start, end time.Duration, hasEnd bool, err error) {
	left, right, found := strings.Cut(s, "-->")
	if start, err = ParseTimestamp(left); err != nil {
		return 0, 0, false, err
	}
	if !found {
		return start, 0, false, nil
	}
	if end, err = ParseTimestamp(right); err != nil {
		return 0, 0, false, err
	}
	if end < start {
		return 0, 0, false, fmt.Errorf("range %q ends before it starts", s)
	}
	return start, end, true, nil
}

func formatTimestamp(d time.Duration, sep byte) string {
	if d < 0 {
		d = 0
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	sec := d / time.Second
	d -= sec * time.Second
	ms := d / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", h, m, sec, sep, ms)
}

// FormatSRT renders "00:01:02,345".
func FormatSRT(d time.Duration) string { return formatTimestamp(d, ',') }

// FormatVTT renders "00:01:02.345"; the stream protocol uses the same shape.
func FormatVTT(d time.Duration) string { return formatTimestamp(d, '.') }

// StreamLine renders a segment the way the transcription stream carries it.
func StreamLine(seg Segment) string {
	return transcript.Line{
		Timestamp: FormatVTT(seg.Start) + " --> " + FormatVTT(seg.End),
		Text:      strings.TrimSpace(seg.Text),
	}.String()
}

// FromLines converts streamed transcript lines into segments. Lines whose
// timestamp cannot be read are skipped and counted.
func FromLines(lines []transcript.Line) (segs []Segment, skipped int) {
	open := make([]bool, 0, len(lines))
	for _, l := range lines {
		start, end, hasEnd, err := ParseRange(l.Timestamp)
		if err != nil {
			skipped++
			continue
		}
		segs = append(segs, Segment{Start: start, End: end, Text: strings.TrimSpace(l.Text)})
		open = append(open, !hasEnd)
	}

	for i := range segs {
		if !open[i] {
			continue
		}
		segs[i].End = segs[i].Start + DefaultCueDuration
		if i+1 < len(segs) && segs[i+1].Start > segs[i].Start {
			segs[i].End = segs[i+1].Start
		}
	}
	return segs, skipped
}

// Render writes segments in the requested format. Segments without text are
// left out.
func Render(w io.Writer, f Format, segs []Segment) error {
	bw := bufio.NewWriter(w)

	switch f {
	case SRT:
		n := 0
		for _, s := range segs {
			text := strings.TrimSpace(s.Text)
			if text == "" {
				continue
			}
			n++
			fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n", n, FormatSRT(s.Start), FormatSRT(s.End), text)
		}
	case VTT:
		bw.WriteString("WEBVTT\n\n")
		for _, s := range segs {
			text := strings.TrimSpace(s.Text)
			if text == "" {
				continue
			}
			fmt.Fprintf(bw, "%s --> %s\n%s\n\n", FormatVTT(s.Start), FormatVTT(s.End), text)
		}
	case TXT:
		for _, s := range segs {
			text := strings.TrimSpace(s.Text)
			if text == "" {
				continue
			}
			bw.WriteString(text)
			bw.WriteByte('\n')
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
	}

	return bw.Flush()
}

// RenderString is Render into a string.
func RenderString(f Format, segs []Segment) (string, error) {
	var sb strings.Builder
	if err := Render(&sb, f, segs); err != nil {
		return "", err
	}
	return sb.String(), nil
}
