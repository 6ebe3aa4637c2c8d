package client

import (
	"strings"
	"unicode/utf8"
)

// textDecoder turns a byte stream into text chunk by chunk. A multi-byte
// character cut by a chunk boundary is held until the next chunk completes it.
type textDecoder struct {
	pending []byte
}

func (d *textDecoder) Decode(p []byte) string {
	data := p
	if len(d.pending) > 0 {
		data = append(d.pending, p...)
		d.pending = nil
	}

	if cut := incompleteSuffix(data); cut > 0 {
		d.pending = append([]byte(nil), data[len(data)-cut:]...)
		data = data[:len(data)-cut]
	}
	return strings.ToValidUTF8(string(data), string(utf8.RuneError))
}

// Flush returns whatever bytes are still held, replacing them if invalid.
func (d *textDecoder) Flush() string {
	if len(d.pending) == 0 {
		return ""
	}
	s := strings.ToValidUTF8(string(d.pending), string(utf8.RuneError))
	d.pending = nil
	return s
}

// incompleteSuffix reports how many trailing bytes start a rune that is not
// complete yet.
func incompleteSuffix(b []byte) int {
	for i := 1; i <= utf8.UTFMax-1 && i <= len(b); i++ {
		c := b[len(b)-i]
		if !utf8.RuneStart(c) {
			continue
		}
		if utf8.FullRune(b[len(b)-i:]) {
			return 0
		}
		return i
	}
	return 0
}
