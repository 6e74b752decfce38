package tracelog

import (
	"swotrace/internal/channel"
	"swotrace/internal/common"
)

// Message is one decoded message from a structured trace stream.
type Message struct {
	StreamID  uint16
	Timestamp float64 // seconds on the target, 0 if the stream carries none
	Text      string
}

// StructuredDecoder turns the raw bytes of a structured (CTF) channel into
// messages.
type StructuredDecoder interface {
	// Decode consumes data received on channel and returns the number of
	// messages that became available.
	Decode(data []byte, channel uint8) int
	// PopMessage removes the oldest pending message.
	PopMessage() (Message, bool)
	// Reset drops any partially decoded state.
	Reset()
}

// preciseThreshold is the smallest structured timestamp taken from the
// target instead of the packet arrival time.
const preciseThreshold = 0.001

// Assembler builds trace lines from decoded channel payloads. It implements
// itm.PayloadSink.
type Assembler struct {
	common.Component

	store        *Store
	registry     *channel.Registry
	structured   StructuredDecoder
	isStructured func(chanID uint8) bool
}

// NewAssembler creates an assembler appending to store. structured and
// isStructured may be nil, in which case every channel is plain text.
func NewAssembler(store *Store, registry *channel.Registry, structured StructuredDecoder, isStructured func(uint8) bool) *Assembler {
	a := &Assembler{
		store:        store,
		registry:     registry,
		structured:   structured,
		isStructured: isStructured,
	}
	a.InitComponent("TRC_ASM")
	return a
}

// PayloadIn assembles one payload received on chanID at ts.
func (a *Assembler) PayloadIn(chanID uint8, ts float64, data []byte) {
	if int(chanID) >= channel.NumChannels || !a.registry.Enabled(int(chanID)) {
		return
	}
	if a.structured != nil && a.isStructured != nil && a.isStructured(chanID) {
		a.addStructured(chanID, ts, data)
		return
	}
	a.addPlain(chanID, ts, data)
}

// Reset resets the structured decoder after a protocol error.
func (a *Assembler) Reset() {
	if a.structured != nil {
		a.structured.Reset()
	}
}

func (a *Assembler) addStructured(chanID uint8, ts float64, data []byte) {
	if a.structured.Decode(data, chanID) <= 0 {
		return
	}
	s := a.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		msg, ok := a.structured.PopMessage()
		if !ok {
			break
		}
		target := int(msg.StreamID)
		if target >= channel.NumChannels {
			a.LogWarningf("stream %d out of range, using channel %d", msg.StreamID, chanID)
			target = int(chanID)
		}
		lineTS := ts
		precise := msg.Timestamp > preciseThreshold
		if precise {
			lineTS = msg.Timestamp
		}
		l := newLine(target, lineTS, s.relativeTime(lineTS, precise))
		l.text = append(l.text, msg.Text...)
		s.push(l)
		l.terminated = true
	}
}

func (a *Assembler) addPlain(chanID uint8, ts float64, data []byte) {
	for len(data) > 0 && data[len(data)-1] == 0 {
		data = data[:len(data)-1]
	}
	if len(data) == 0 {
		return
	}
	ch := int(chanID)
	s := a.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range data {
		tail := s.tail()
		if b == '\r' || b == '\n' {
			if tail != nil {
				tail.terminated = true
			}
			continue
		}
		if tail != nil && tail.accepts(ch, ts) {
			tail.appendByte(b, ts)
			continue
		}
		l := newLine(ch, ts, s.relativeTime(ts, false))
		l.appendByte(b, ts)
		s.push(l)
	}
}
