// Package queue carries raw trace packets from the transport reader goroutine
// to the decoding loop.
//
// The queue is a single-producer / single-consumer ring. The producer only
// advances the write index and the consumer only advances the read index, so no
// lock is needed: each side publishes its slot writes before storing its index.
package queue

import (
	"go.uber.org/atomic"
)

const (
	// PacketSize is the largest payload carried by one packet (one USB bulk transfer).
	PacketSize = 64
	// MinCapacity is the smallest number of slots a queue is created with.
	MinCapacity = 64
	// DefaultCapacity is the number of slots used when no capacity is configured.
	DefaultCapacity = 128
)

// Packet is one transport read.
type Packet struct {
	Data      [PacketSize]byte
	Len       int
	Timestamp float64 // arrival time in seconds
}

// Bytes returns the valid part of the packet data.
func (p *Packet) Bytes() []byte {
	return p.Data[:p.Len]
}

// Queue is a bounded ring of packets. The producer never blocks: a packet that
// does not fit is dropped and counted as an overflow.
type Queue struct {
	slots []Packet
	head  atomic.Uint32 // read index, consumer owned
	tail  atomic.Uint32 // write index, producer owned

	overflow atomic.Uint32
}

// New creates a queue with capacity slots. One slot is kept free to tell a
// full ring from an empty one, so capacity-1 packets can be pending.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if capacity < MinCapacity {
		capacity = MinCapacity
	}
	return &Queue{slots: make([]Packet, capacity)}
}

// Cap returns the number of slots in the ring.
func (q *Queue) Cap() int {
	return len(q.slots)
}

// Len returns the number of pending packets.
func (q *Queue) Len() int {
	head := q.head.Load()
	tail := q.tail.Load()
	n := int(tail) - int(head)
	if n < 0 {
		n += len(q.slots)
	}
	return n
}

func (q *Queue) next(idx uint32) uint32 {
	idx++
	if int(idx) == len(q.slots) {
		idx = 0
	}
	return idx
}

// Enqueue copies data into the queue, stamped with ts. Data longer than
// PacketSize occupies consecutive slots. It returns false if any part had to
// be dropped. Producer only.
func (q *Queue) Enqueue(data []byte, ts float64) bool {
	ok := true
	for len(data) > 0 {
		n := min(len(data), PacketSize)
		if !q.push(data[:n], ts) {
			ok = false
		}
		data = data[n:]
	}
	return ok
}

func (q *Queue) push(data []byte, ts float64) bool {
	tail := q.tail.Load()
	next := q.next(tail)
	if next == q.head.Load() {
		q.overflow.Inc()
		return false
	}
	slot := &q.slots[tail]
	slot.Len = copy(slot.Data[:], data)
	slot.Timestamp = ts
	q.tail.Store(next)
	return true
}

// Drain pops packets oldest first until the queue is empty and returns how
// many were popped. When enabled is false the packets are discarded and the
// overflow counter is cleared. The packet passed to fn is only valid during
// the call.
// Consumer only.
func (q *Queue) Drain(enabled bool, fn func(*Packet)) int {
	count := 0
	for {
		head := q.head.Load()
		if head == q.tail.Load() {
			break
		}
		if enabled && fn != nil {
			fn(&q.slots[head])
		}
		q.head.Store(q.next(head))
		count++
	}
	if !enabled {
		q.overflow.Store(0)
	}
	return count
}

// Overflow returns the number of dropped packets, optionally resetting it.
func (q *Queue) Overflow(reset bool) uint32 {
	if reset {
		return q.overflow.Swap(0)
	}
	return q.overflow.Load()
}
