package profile

import (
	"encoding/binary"

	"go.uber.org/atomic"

	"swotrace/internal/common"
	"swotrace/internal/itm"
)

// IndexFunc maps a sampled address to a histogram bucket.
type IndexFunc func(addr, codeBase uint32) int

// ShiftIndex returns an IndexFunc that groups addresses into buckets of
// 1<<shift bytes.
func ShiftIndex(shift uint) IndexFunc {
	return func(addr, codeBase uint32) int {
		return int((addr - codeBase) >> shift)
	}
}

// Histogram is a caller-owned set of PC sample counters covering
// [CodeBase, CodeTop). Samples outside the range are counted on the bucket
// of CodeTop, when there is one.
type Histogram struct {
	Buckets  []uint32
	CodeBase uint32
	CodeTop  uint32
	Index    IndexFunc
}

// NewHistogram allocates buckets for [codeBase, codeTop) with one extra
// bucket for out of range samples.
func NewHistogram(codeBase, codeTop uint32, shift uint) *Histogram {
	idx := ShiftIndex(shift)
	return &Histogram{
		Buckets:  make([]uint32, idx(codeTop, codeBase)+1),
		CodeBase: codeBase,
		CodeTop:  codeTop,
		Index:    idx,
	}
}

// Add counts one sample at pc.
func (h *Histogram) Add(pc uint32) {
	if pc < h.CodeBase || pc >= h.CodeTop {
		pc = h.CodeTop
	}
	idx := h.Index(pc, h.CodeBase)
	if idx >= 0 && idx < len(h.Buckets) {
		h.Buckets[idx]++
	}
}

// Total returns the sum of all buckets.
func (h *Histogram) Total() uint64 {
	var n uint64
	for _, b := range h.Buckets {
		n += uint64(b)
	}
	return n
}

// Clear zeroes all buckets.
func (h *Histogram) Clear() {
	clear(h.Buckets)
}

// Sampler extracts PC samples from ITM packets. It keeps its own cache for
// frames split across packets, separate from the text decoder.
type Sampler struct {
	common.Component

	cache     [itm.MaxFrameSize]byte
	cacheLen  int
	overflows atomic.Uint32
}

// NewSampler creates a sampler.
func NewSampler() *Sampler {
	s := &Sampler{}
	s.InitComponent("PRF_ITM")
	return s
}

// Overflows returns the number of overflow frames seen, optionally resetting
// the count. It may be called from any goroutine.
func (s *Sampler) Overflows(reset bool) uint32 {
	if reset {
		return s.overflows.Swap(0)
	}
	return s.overflows.Load()
}

// Pending returns the number of bytes held for a split frame.
func (s *Sampler) Pending() int {
	return s.cacheLen
}

// Reset drops any cached partial frame.
func (s *Sampler) Reset() {
	s.cacheLen = 0
}

// Process adds the PC samples in one packet to h and returns how many were
// added.
func (s *Sampler) Process(data []byte, h *Histogram) int {
	count := 0

	if s.cacheLen > 0 {
		need := itm.FrameSize(s.cache[0]) - s.cacheLen
		if len(data) < need {
			s.cacheLen += copy(s.cache[s.cacheLen:], data)
			return 0
		}
		copy(s.cache[s.cacheLen:], data[:need])
		data = data[need:]
		if s.cache[0] == itm.HdrPCSample {
			h.Add(binary.LittleEndian.Uint32(s.cache[1:]))
			count++
		}
		s.cacheLen = 0
	}

	for len(data) > 0 {
		hdr := data[0]
		if hdr == itm.HdrOverflow {
			s.overflows.Inc()
			data = data[1:]
			continue
		}
		size := itm.FrameSize(hdr)
		if len(data) < size {
			s.cacheLen = copy(s.cache[:], data)
			break
		}
		if hdr == itm.HdrPCSample {
			h.Add(binary.LittleEndian.Uint32(data[1:]))
			count++
		}
		data = data[size:]
	}
	return count
}
