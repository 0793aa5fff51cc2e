package api

import (
	"strings"
	"sync"
	"time"
)

// LogEntry is one captured log line.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Raw       string    `json:"raw"`
}

// LogBuffer is a thread-safe ring buffer of recent log lines, wired into
// the logger as an extra writer and served by the logs endpoint.
type LogBuffer struct {
	entries []LogEntry
	size    int
	head    int
	count   int
	mu      sync.RWMutex
}

// NewLogBuffer creates a ring buffer with the given capacity.
func NewLogBuffer(size int) *LogBuffer {
	return &LogBuffer{
		entries: make([]LogEntry, size),
		size:    size,
	}
}

// Write implements io.Writer for capturing zerolog output.
func (lb *LogBuffer) Write(p []byte) (n int, err error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	raw := string(p)
	lb.entries[lb.head] = LogEntry{
		Timestamp: time.Now(),
		Level:     parseLevel(raw),
		Message:   parseMessage(raw),
		Raw:       raw,
	}
	lb.head = (lb.head + 1) % lb.size
	if lb.count < lb.size {
		lb.count++
	}
	return len(p), nil
}

// Entries returns all captured lines in chronological order.
func (lb *LogBuffer) Entries() []LogEntry {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	result := make([]LogEntry, lb.count)
	if lb.count == 0 {
		return result
	}
	start := 0
	if lb.count == lb.size {
		start = lb.head
	}
	for i := 0; i < lb.count; i++ {
		result[i] = lb.entries[(start+i)%lb.size]
	}
	return result
}

// Recent returns the most recent n lines.
func (lb *LogBuffer) Recent(n int) []LogEntry {
	entries := lb.Entries()
	if len(entries) <= n {
		return entries
	}
	return entries[len(entries)-n:]
}

func parseLevel(raw string) string {
	for _, level := range []string{"debug", "info", "warn", "error", "fatal"} {
		if strings.Contains(raw, `"level":"`+level+`"`) {
			return level
		}
	}
	return "info"
}

func parseMessage(raw string) string {
	start := strings.Index(raw, `"message":"`)
	if start == -1 {
		return raw
	}
	start += len(`"message":"`)
	end := start
	for end < len(raw) && raw[end] != '"' {
		if raw[end] == '\\' && end+1 < len(raw) {
			end += 2
			continue
		}
		end++
	}
	if end > start {
		return raw[start:end]
	}
	return raw
}
