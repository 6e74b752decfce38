package tracelog

const (
	// MaxLineLength is the longest plain-text line; the next byte starts a new
	// line.
	MaxLineLength = 256
	// initLineSize is the initial text capacity of a line.
	initLineSize = 32
	// GapTimeout is the idle time after which the next byte starts a new line
	// even without a line break.
	GapTimeout = 0.1
)

// Line is a read-only copy of one trace line.
type Line struct {
	Channel    int
	Timestamp  float64 // absolute, seconds
	TimeFmt    string  // relative to the first line in the store
	Text       string
	Terminated bool
}

// line is the mutable form held by the store. Only the tail line of the store
// is ever appended to.
type line struct {
	channel    int
	timestamp  float64
	timeFmt    string
	text       []byte
	terminated bool
	lastUpdate float64
}

func newLine(chanID int, ts float64, timeFmt string) *line {
	return &line{
		channel:    chanID,
		timestamp:  ts,
		timeFmt:    timeFmt,
		text:       make([]byte, 0, initLineSize),
		lastUpdate: ts,
	}
}

// appendByte adds one byte, doubling the buffer when it is full.
func (l *line) appendByte(b byte, ts float64) {
	if len(l.text) == cap(l.text) {
		grown := make([]byte, len(l.text), max(2*cap(l.text), initLineSize))
		copy(grown, l.text)
		l.text = grown
	}
	l.text = append(l.text, b)
	l.lastUpdate = ts
}

// accepts reports whether a byte on chanID at ts continues this line.
func (l *line) accepts(chanID int, ts float64) bool {
	return !l.terminated &&
		l.channel == chanID &&
		len(l.text) < MaxLineLength &&
		ts-l.lastUpdate < GapTimeout
}

func (l *line) snapshot() Line {
	return Line{
		Channel:    l.channel,
		Timestamp:  l.timestamp,
		TimeFmt:    l.timeFmt,
		Text:       string(l.text),
		Terminated: l.terminated,
	}
}
