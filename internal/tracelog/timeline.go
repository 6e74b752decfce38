package tracelog

import (
	"fmt"

	"swotrace/internal/channel"
)

// MarkSecond is the number of timeline scale units in one second.
const MarkSecond = 1000000

// collapseDistance is the minimum distance between two separate marks.
const collapseDistance = 0.5

// Mark is a timeline position holding one or more trace lines.
type Mark struct {
	Pos   float64
	Count int
}

// Timeline lays out the lines of a store as per-channel marks on a time
// axis. DeltaTime units of Scale microseconds map to Spacing positions.
type Timeline struct {
	spacing float64
	scale   uint64
	delta   uint64

	marks    [channel.NumChannels][]Mark
	offset   float64
	maxPos   float64
	maxCount int
}

// NewTimeline creates a timeline with 100 positions per second.
func NewTimeline() *Timeline {
	return &Timeline{spacing: 100, scale: MarkSecond, delta: 1, maxCount: 1}
}

// Config returns the spacing, scale and delta time.
func (t *Timeline) Config() (spacing float64, scale, delta uint64) {
	return t.spacing, t.scale, t.delta
}

// SetConfig changes the layout. It requires spacing > 10, scale > 0 and
// 0 < delta <= 100; the previous values are kept otherwise.
func (t *Timeline) SetConfig(spacing float64, scale, delta uint64) error {
	if spacing <= 10 || scale == 0 || delta == 0 || delta > 100 {
		return fmt.Errorf("invalid timeline config: spacing %g, scale %d, delta %d", spacing, scale, delta)
	}
	t.spacing, t.scale, t.delta = spacing, scale, delta
	return nil
}

func (t *Timeline) position(ts float64) float64 {
	return (ts - t.offset) * t.spacing * MarkSecond / float64(t.scale*t.delta)
}

// TimeAt converts a timeline position back to an absolute timestamp.
func (t *Timeline) TimeAt(pos float64) float64 {
	return pos*float64(t.scale*t.delta)/(t.spacing*MarkSecond) + t.offset
}

// Rebuild recomputes the marks from the lines in store. Lines on disabled
// channels get no marks. Marks closer than half a position collapse.
func (t *Timeline) Rebuild(store *Store, registry *channel.Registry) {
	t.maxPos = 0
	t.offset = 0
	t.maxCount = 1
	for i := range t.marks {
		t.marks[i] = t.marks[i][:0]
	}
	lines := store.Snapshot()
	if len(lines) == 0 {
		return
	}
	// structured lines may carry target time earlier than the first line
	t.offset = lines[0].Timestamp
	for _, l := range lines {
		t.offset = min(t.offset, l.Timestamp)
	}
	for _, l := range lines {
		if l.Channel < 0 || l.Channel >= channel.NumChannels || !registry.Enabled(l.Channel) {
			continue
		}
		pos := t.position(l.Timestamp)
		m := t.marks[l.Channel]
		if n := len(m); n > 0 && pos-m[n-1].Pos < collapseDistance {
			m[n-1].Count++
			t.maxCount = max(t.maxCount, m[n-1].Count)
		} else {
			t.marks[l.Channel] = append(m, Mark{Pos: pos, Count: 1})
		}
		t.maxPos = max(t.maxPos, pos)
	}
}

// Marks returns the marks of one channel. The slice is reused by Rebuild.
func (t *Timeline) Marks(chanID int) []Mark {
	return t.marks[chanID]
}

// MaxPos returns the largest mark position.
func (t *Timeline) MaxPos() float64 {
	return t.maxPos
}

// MaxCount returns the largest number of lines collapsed into one mark.
func (t *Timeline) MaxCount() int {
	return t.maxCount
}
