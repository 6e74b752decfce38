package tracelog

// StatusKind tells where a status message comes from.
type StatusKind int

const (
	StatusProbe StatusKind = iota // debug probe / transport
	StatusCTF                     // structured trace decoder
)

func (k StatusKind) String() string {
	if k == StatusCTF {
		return "ctf"
	}
	return "probe"
}

// StatusMessage is a notice shown in place of the trace when no lines have
// been received yet.
type StatusMessage struct {
	Kind StatusKind
	Text string
	Code int
}

// AddStatus appends a status message.
func (s *Store) AddStatus(kind StatusKind, msg string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = append(s.status, StatusMessage{Kind: kind, Text: msg, Code: code})
}

// StatusMessages returns a copy of the status messages in insertion order.
func (s *Store) StatusMessages() []StatusMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]StatusMessage(nil), s.status...)
}

// ClearStatus removes all status messages.
func (s *Store) ClearStatus() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = nil
}
