package transcript

import "strings"

// Batch is what a single chunk contributed to the transcript.
type Batch struct {
	JobID   string
	Lines   []Line
	Dropped int
}

// Empty reports whether the batch carries neither lines nor a job id.
func (b Batch) Empty() bool {
	return b.JobID == "" && len(b.Lines) == 0
}

// Parser turns decoded chunks into transcript batches.
//
// With carry enabled the trailing partial line of each chunk is held back and
// prefixed to the next one, so lines split by the transport are reassembled.
// Without it every chunk is split on its own and a split line is lost.
type Parser struct {
	carry   bool
	partial string
}

func NewParser(carry bool) *Parser {
	return &Parser{carry: carry}
}

// Pending returns the partial line currently held back.
func (p *Parser) Pending() string {
	return p.partial
}

// Feed parses one chunk.
func (p *Parser) Feed(chunk string) Batch {
	// a chunk that is exactly one JSON object only announces the job id
	if id, ok := JobID(chunk); ok {
		return Batch{JobID: id}
	}

	if !p.carry {
		return parseLines(chunk)
	}

	data := p.partial + chunk
	idx := strings.LastIndexByte(data, '\n')
	if idx < 0 {
		p.partial = data
		return Batch{}
	}

	p.partial = data[idx+1:]
	return parseLines(data[:idx])
}

// Flush parses whatever partial line is still held back. Call it once the
// stream has ended.
func (p *Parser) Flush() Batch {
	rest := p.partial
	p.partial = ""
	if strings.TrimSpace(rest) == "" {
		return Batch{}
	}
	if id, ok := JobID(rest); ok {
		return Batch{JobID: id}
	}
	return parseLines(rest)
}

// Reset drops any held-back partial line.
func (p *Parser) Reset() {
	p.partial = ""
}

func parseLines(data string) Batch {
	var b Batch
	for _, raw := range strings.Split(data, "\n") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if id, ok := JobID(raw); ok {
			b.JobID = id
			continue
		}
		line, ok := ParseLine(raw)
		if !ok {
			b.Dropped++
			continue
		}
		b.Lines = append(b.Lines, line)
	}
	return b
}
