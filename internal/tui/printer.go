package tui

import (
	"fmt"
	"io"
	"sync"

	"github.com/leonardotrapani/webtranscriber/internal/session"
	"github.com/leonardotrapani/webtranscriber/internal/transcript"
	"github.com/muesli/termenv"
)

// Printer writes transcript lines as they arrive, for pipes and --plain.
// Color is used only when w is a terminal that supports it.
type Printer struct {
	mu      sync.Mutex
	w       io.Writer
	color   bool
	printed int
	lastSeq uint64
}

func NewPrinter(w io.Writer) *Printer {
	out := termenv.NewOutput(w)
	return &Printer{w: w, color: out.EnvColorProfile() != termenv.Ascii}
}

// Update prints the lines of snap not printed yet. A shorter transcript
// means a new job started, so printing restarts from its first line.
func (p *Printer) Update(snap session.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if snap.Seq != 0 && snap.Seq <= p.lastSeq {
		return
	}
	p.lastSeq = snap.Seq

	if len(snap.Lines) < p.printed {
		p.printed = 0
	}
	for _, l := range snap.Lines[p.printed:] {
		p.writeLine(l)
	}
	p.printed = len(snap.Lines)
}

func (p *Printer) writeLine(l transcript.Line) {
	if p.color {
		fmt.Fprintln(p.w, renderLine(l))
		return
	}
	fmt.Fprintln(p.w, l.String())
}
