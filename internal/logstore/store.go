// Package logstore keeps a bounded in-memory ring of voicebox-server log
// lines for the studio diagnostics view.
package logstore

import (
	"strings"
	"sync"
	"time"
)

// Capacity is the maximum number of entries retained before head eviction.
const Capacity = 5000

// Level classifies a log line.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelDebug   Level = "debug"
)

// Source tells which server stream a line arrived on.
type Source string

const (
	SourceStdout Source = "stdout"
	SourceStderr Source = "stderr"
)

// Entry is a single immutable log line.
type Entry struct {
	ID        int64  `json:"id"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
	Level     Level  `json:"level"`
	Message   string `json:"message"`
	Source    Source `json:"source"`
}

// Store is an append-only ring buffer of log entries with substring
// filtering. IDs are strictly increasing and never reused within a process
// lifetime except after an explicit Clear.
type Store struct {
	mu         sync.RWMutex
	entries    []Entry
	nextID     int64
	filter     string
	autoScroll bool

	onAppend func(Entry)
}

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:     1,
		autoScroll: true,
	}
}

// SetOnAppend sets a callback invoked for every appended entry, used to
// stream lines to the studio view in real time.
func (s *Store) SetOnAppend(fn func(Entry)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAppend = fn
}

// Append assigns the next id, records the entry, and evicts from the head
// once the capacity is exceeded.
func (s *Store) Append(level Level, message string, source Source) Entry {
	s.mu.Lock()

	entry := Entry{
		ID:        s.nextID,
		Timestamp: time.Now().UnixMilli(),
		Level:     level,
		Message:   message,
		Source:    source,
	}
	s.nextID++

	s.entries = append(s.entries, entry)
	if len(s.entries) > Capacity {
		s.entries = s.entries[len(s.entries)-Capacity:]
	}

	callback := s.onAppend
	s.mu.Unlock()

	if callback != nil {
		callback(entry)
	}
	return entry
}

// Clear empties the buffer and restarts id assignment at 1.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.nextID = 1
}

// SetFilter sets the substring filter applied by Filtered.
func (s *Store) SetFilter(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = text
}

// Filter returns the current filter text.
func (s *Store) Filter() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// SetAutoScroll records whether the studio view should follow new entries.
func (s *Store) SetAutoScroll(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoScroll = enabled
}

// AutoScroll reports the auto-scroll intent flag.
func (s *Store) AutoScroll() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.autoScroll
}

// Len returns the number of retained entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Entries returns a copy of all retained entries, oldest first.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Filtered returns the entries whose message or level contains the filter
// text case-insensitively, oldest first. An empty filter returns everything.
func (s *Store) Filtered() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.filter == "" {
		out := make([]Entry, len(s.entries))
		copy(out, s.entries)
		return out
	}

	needle := strings.ToLower(s.filter)
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if strings.Contains(strings.ToLower(e.Message), needle) ||
			strings.Contains(strings.ToLower(string(e.Level)), needle) {
			out = append(out, e)
		}
	}
	return out
}
