package profile

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"swotrace/internal/itm"
)

func TestSamplerCountsSamples(t *testing.T) {
	h := NewHistogram(0x1000, 0x1100, 4)
	assert.Len(t, h.Buckets, 0x11)

	stream := (&itm.StreamBuilder{}).
		AddPCSample(0x1000).
		AddPCSample(0x100C).
		AddText(0, "abc", 1).
		AddPCSample(0x1050).
		AddOverflow().
		AddPCSample(0x2000). // out of range, counted at CodeTop
		AddSWIT(3, 0x11223344, 4).
		AddPCSample(0x0FFF).
		Bytes()

	s := NewSampler()
	n := s.Process(stream, h)
	assert.Equal(t, 5, n)
	assert.Equal(t, uint32(2), h.Buckets[0])
	assert.Equal(t, uint32(1), h.Buckets[5])
	assert.Equal(t, uint32(2), h.Buckets[0x10])
	assert.Equal(t, uint64(5), h.Total())
	assert.Equal(t, uint32(1), s.Overflows(true))
	assert.Equal(t, uint32(0), s.Overflows(false))
}

func TestSamplerSplitAtEveryBoundary(t *testing.T) {
	stream := (&itm.StreamBuilder{}).
		AddPCSample(0x1004).
		AddSWIT(1, 0x44332211, 4).
		AddPCSample(0x1010).
		AddText(0, "x", 1).
		AddPCSample(0x10F0).
		Bytes()

	ref := NewHistogram(0x1000, 0x1100, 4)
	NewSampler().Process(stream, ref)

	for i := 1; i < len(stream); i++ {
		h := NewHistogram(0x1000, 0x1100, 4)
		s := NewSampler()
		got := s.Process(stream[:i], h) + s.Process(stream[i:], h)
		assert.Equal(t, 3, got, "split at %d", i)
		if diff := cmp.Diff(ref.Buckets, h.Buckets); diff != "" {
			t.Errorf("split at %d (-want +got):\n%s", i, diff)
		}
		assert.Equal(t, 0, s.Pending())
	}
}

func TestSamplerOneByteAtATime(t *testing.T) {
	stream := (&itm.StreamBuilder{}).AddPCSample(0x1020).AddPCSample(0x1020).Bytes()
	h := NewHistogram(0x1000, 0x1100, 4)
	s := NewSampler()
	total := 0
	for i := range stream {
		total += s.Process(stream[i:i+1], h)
	}
	assert.Equal(t, 2, total)
	assert.Equal(t, uint32(2), h.Buckets[2])
}

func TestSamplerIgnoresIndicesOutsideBuckets(t *testing.T) {
	h := &Histogram{
		Buckets:  make([]uint32, 4),
		CodeBase: 0x100,
		CodeTop:  0x200,
		Index:    ShiftIndex(0),
	}
	s := NewSampler()
	assert.Equal(t, 1, s.Process((&itm.StreamBuilder{}).AddPCSample(0x180).Bytes(), h))
	assert.Equal(t, uint64(0), h.Total())

	h.Add(0x102)
	assert.Equal(t, uint32(1), h.Buckets[2])
	h.Clear()
	assert.Equal(t, uint64(0), h.Total())
}

func TestSamplerReset(t *testing.T) {
	stream := (&itm.StreamBuilder{}).AddPCSample(0x1000).Bytes()
	h := NewHistogram(0x1000, 0x1100, 4)
	s := NewSampler()
	s.Process(stream[:3], h)
	assert.Equal(t, 3, s.Pending())
	s.Reset()
	assert.Equal(t, 0, s.Pending())
	assert.Equal(t, 0, s.Process(stream[3:], h))
}
