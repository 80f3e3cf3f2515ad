package handler

import (
	"strings"
	"sync"
	"time"
)

// DefaultOutputLines is how many output lines the diagnostics server keeps.
const DefaultOutputLines = 500

// OutputLine is one line of server output.
type OutputLine struct {
	Stream string    `json:"stream"`
	Text   string    `json:"text"`
	Time   time.Time `json:"time"`
}

// OutputBuffer is a bounded ring of server output lines. Chunks are split
// on newlines; a trailing partial line is completed by the next chunk of the
// same stream.
type OutputBuffer struct {
	mu      sync.Mutex
	lines   []OutputLine
	start   int
	size    int
	partial map[string]string
	now     func() time.Time
}

// NewOutputBuffer 创建输出缓冲区
func NewOutputBuffer(capacity int) *OutputBuffer {
	if capacity <= 0 {
		capacity = DefaultOutputLines
	}
	return &OutputBuffer{
		lines:   make([]OutputLine, capacity),
		partial: make(map[string]string),
		now:     time.Now,
	}
}

// Write appends a chunk from stream.
func (b *OutputBuffer) Write(stream string, chunk []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	text := b.partial[stream] + string(chunk)
	parts := strings.Split(text, "\n")
	b.partial[stream] = parts[len(parts)-1]
	for _, line := range parts[:len(parts)-1] {
		b.push(OutputLine{Stream: stream, Text: strings.TrimSuffix(line, "\r"), Time: b.now()})
	}
}

func (b *OutputBuffer) push(l OutputLine) {
	idx := (b.start + b.size) % len(b.lines)
	b.lines[idx] = l
	if b.size < len(b.lines) {
		b.size++
	} else {
		b.start = (b.start + 1) % len(b.lines)
	}
}

// Lines returns up to limit of the newest lines, oldest first, followed by
// any pending partial lines. limit <= 0 returns everything.
func (b *OutputBuffer) Lines(limit int) []OutputLine {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]OutputLine, 0, b.size+len(b.partial))
	for i := 0; i < b.size; i++ {
		out = append(out, b.lines[(b.start+i)%len(b.lines)])
	}
	for _, stream := range []string{MessageStdout, MessageStderr} {
		if p := b.partial[stream]; p != "" {
			out = append(out, OutputLine{Stream: stream, Text: p, Time: b.now()})
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
