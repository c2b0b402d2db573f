package registry

import "sync"

// DefaultLogCapacity bounds the per-rollup log tail.
const DefaultLogCapacity = 1000

// LogBuffer is a bounded ring of log lines. Oldest lines are evicted
// first. Appends and reads are safe for concurrent use.
type LogBuffer struct {
	mu    sync.Mutex
	lines []string
	start int
	count int
}

// NewLogBuffer creates a log buffer with the given capacity.
func NewLogBuffer(capacity int) *LogBuffer {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &LogBuffer{lines: make([]string, capacity)}
}

// Append adds a line, evicting the oldest when full.
func (b *LogBuffer) Append(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := (b.start + b.count) % len(b.lines)
	b.lines[idx] = line
	if b.count < len(b.lines) {
		b.count++
	} else {
		b.start = (b.start + 1) % len(b.lines)
	}
}

// Tail returns up to n of the most recent lines, oldest first.
// n <= 0 returns everything buffered.
func (b *LogBuffer) Tail(n int) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n <= 0 || n > b.count {
		n = b.count
	}

	out := make([]string, n)
	first := b.start + b.count - n
	for i := 0; i < n; i++ {
		out[i] = b.lines[(first+i)%len(b.lines)]
	}
	return out
}

// Len returns the number of buffered lines.
func (b *LogBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}
