package tracelog

import (
	"bytes"
	"fmt"
	"sync"
)

// NotFound is returned by the search functions when there is no match.
const NotFound = -1

// Store is the append-ordered list of trace lines. The decode goroutine
// appends; any goroutine may read through the accessors.
type Store struct {
	mu     sync.RWMutex
	lines  []*line
	status []StatusMessage
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Len returns the number of lines.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lines)
}

// IsEmpty reports whether the store holds no lines.
func (s *Store) IsEmpty() bool {
	return s.Len() == 0
}

// Line returns a copy of line i.
func (s *Store) Line(i int) (Line, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.lines) {
		return Line{}, false
	}
	return s.lines[i].snapshot(), true
}

// Snapshot returns a copy of all lines.
func (s *Store) Snapshot() []Line {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Line, len(s.lines))
	for i, l := range s.lines {
		out[i] = l.snapshot()
	}
	return out
}

// Clear removes all lines.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
}

// tail returns the last line, or nil. Caller holds the lock.
func (s *Store) tail() *line {
	if len(s.lines) == 0 {
		return nil
	}
	return s.lines[len(s.lines)-1]
}

// relativeTime formats ts against the first line. Caller holds the lock.
func (s *Store) relativeTime(ts float64, precise bool) string {
	rel := 0.0
	if len(s.lines) > 0 {
		rel = ts - s.lines[0].timestamp
	}
	if precise {
		return fmt.Sprintf("%.6f", rel)
	}
	return fmt.Sprintf("%.3f", rel)
}

// push appends a new line, terminating the previous tail. Caller holds the
// lock.
func (s *Store) push(l *line) {
	if t := s.tail(); t != nil {
		t.terminated = true
	}
	s.lines = append(s.lines, l)
}

// Find searches case-insensitively for text, starting on the line after from
// and wrapping around to the start. The from line itself is not searched,
// except that from == -1 searches every line from 0. It returns the index of
// the first matching line or NotFound.
func (s *Store) Find(text string, from int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.lines)
	if n == 0 || text == "" {
		return NotFound
	}
	needle := bytes.ToLower([]byte(text))
	start, count := 0, n
	if from >= 0 && from < n {
		start, count = from+1, n-1
	}
	for k := 0; k < count; k++ {
		i := (start + k) % n
		if bytes.Contains(bytes.ToLower(s.lines[i].text), needle) {
			return i
		}
	}
	return NotFound
}

// FindTimestamp returns the index of the last line with a timestamp before
// ts, or NotFound when the store is empty or ts precedes all lines.
func (s *Store) FindTimestamp(ts float64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := NotFound
	for i, l := range s.lines {
		if l.timestamp >= ts {
			break
		}
		idx = i
	}
	return idx
}

// Filtered returns the indices, starting at from, of the lines that pass
// filters.
func (s *Store) Filtered(filters []Filter, from int) []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	from = max(from, 0)
	if from >= len(s.lines) {
		return nil
	}
	out := make([]int, 0, len(s.lines)-from)
	for i := from; i < len(s.lines); i++ {
		if MatchFilters(filters, string(s.lines[i].text)) {
			out = append(out, i)
		}
	}
	return out
}
