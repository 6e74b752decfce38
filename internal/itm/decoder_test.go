package itm

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payloadCall struct {
	Chan uint8
	TS   float64
	Data string
}

type recordingSink struct {
	calls  []payloadCall
	resets int
}

func (r *recordingSink) PayloadIn(chanID uint8, ts float64, data []byte) {
	r.calls = append(r.calls, payloadCall{Chan: chanID, TS: ts, Data: string(data)})
}

func (r *recordingSink) Reset() {
	r.resets++
}

func (r *recordingSink) perChannel() map[uint8]string {
	out := make(map[uint8]string)
	for _, c := range r.calls {
		out[c.Chan] += c.Data
	}
	return out
}

func newTestDecoder(t *testing.T, size int) (*Decoder, *recordingSink) {
	t.Helper()
	d := NewDecoder()
	d.SetDataSize(size)
	sink := &recordingSink{}
	require.NoError(t, d.PayloadOut.Attach(sink))
	return d, sink
}

func mixedStream() []byte {
	sb := &StreamBuilder{}
	sb.AddText(0, "Hello", 1)
	sb.AddText(3, "abcd", 1)
	sb.AddPCSample(0x08001234)
	sb.AddText(0, " world", 1)
	sb.AddSWIT(1, 0x44434241, 4)
	sb.AddSWIT(1, 0x4645, 2)
	return sb.Bytes()
}

func TestDecodeUnsplitFrames(t *testing.T) {
	d, sink := newTestDecoder(t, DataSizeAuto)

	n := d.Decode(mixedStream(), 1.25)
	assert.Equal(t, 4, n)
	want := []payloadCall{
		{Chan: 0, TS: 1.25, Data: "Hello"},
		{Chan: 3, TS: 1.25, Data: "abcd"},
		{Chan: 0, TS: 1.25, Data: " world"},
		{Chan: 1, TS: 1.25, Data: "ABCDEF"},
	}
	if diff := cmp.Diff(want, sink.calls); diff != "" {
		t.Errorf("payloads mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, uint32(0), d.PacketErrors(false))
	assert.Equal(t, 0, d.Pending())
}

func TestDecodeSplitAtEveryBoundary(t *testing.T) {
	stream := mixedStream()

	ref, refSink := newTestDecoder(t, DataSizeAuto)
	ref.Decode(stream, 0)
	want := refSink.perChannel()

	for i := 1; i < len(stream); i++ {
		d, sink := newTestDecoder(t, DataSizeAuto)
		d.Decode(stream[:i], 0)
		d.Decode(stream[i:], 0)
		if diff := cmp.Diff(want, sink.perChannel()); diff != "" {
			t.Errorf("split at %d (-want +got):\n%s", i, diff)
		}
		assert.Equal(t, uint32(0), d.PacketErrors(false), "split at %d", i)
	}
}

func TestDecodeByteByByte(t *testing.T) {
	stream := mixedStream()
	d, sink := newTestDecoder(t, DataSizeAuto)
	for i := range stream {
		d.Decode(stream[i:i+1], float64(i))
	}
	want := map[uint8]string{0: "Hello world", 3: "abcd", 1: "ABCDEF"}
	if diff := cmp.Diff(want, sink.perChannel()); diff != "" {
		t.Errorf("byte by byte (-want +got):\n%s", diff)
	}
	assert.Equal(t, 0, d.Pending())
}

func TestDecodeSplitFrameEveryPoint(t *testing.T) {
	frame := (&StreamBuilder{}).AddSWIT(5, 0x64636261, 4).Bytes()
	for i := 1; i < len(frame); i++ {
		d, sink := newTestDecoder(t, 4)
		assert.Equal(t, 0, d.Decode(frame[:i], 0))
		assert.Equal(t, i, d.Pending())
		assert.Equal(t, 1, d.Decode(frame[i:], 0))
		assert.Equal(t, []payloadCall{{Chan: 5, Data: "abcd"}}, sink.calls)
	}
}

func TestDecodeChannelChangeFlushes(t *testing.T) {
	d, sink := newTestDecoder(t, 1)
	stream := (&StreamBuilder{}).
		AddText(2, "AB", 1).
		AddText(4, "x", 1).
		AddText(2, "CD", 1).Bytes()
	d.Decode(stream, 0)

	want := []payloadCall{{Chan: 2, Data: "AB"}, {Chan: 4, Data: "x"}, {Chan: 2, Data: "CD"}}
	if diff := cmp.Diff(want, sink.calls); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestDecodeInvalidHeader(t *testing.T) {
	tests := []struct {
		name string
		hdr  byte
	}{
		{"Sync", 0x00},
		{"Overflow", HdrOverflow},
		{"HardwareSource", 0x05},
		{"Extension", 0x08},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, sink := newTestDecoder(t, 1)
			stream := (&StreamBuilder{}).AddText(0, "ok", 1).AddBytes(tt.hdr).AddText(0, "lost", 1).Bytes()

			d.Decode(stream, 0)
			// payload before the bad header is delivered, the rest of the packet is not
			assert.Equal(t, []payloadCall{{Chan: 0, Data: "ok"}}, sink.calls)
			assert.Equal(t, 1, sink.resets)
			assert.Equal(t, uint32(1), d.PacketErrors(true))
			assert.Equal(t, uint32(0), d.PacketErrors(false))

			// the next packet decodes normally
			d.Decode((&StreamBuilder{}).AddText(0, "next", 1).Bytes(), 0)
			assert.Equal(t, "oknext", sink.perChannel()[0])
		})
	}
}

func TestDecodeFixedSizeRejectsLongerFrames(t *testing.T) {
	d, sink := newTestDecoder(t, 1)
	d.Decode((&StreamBuilder{}).AddSWIT(0, 0x4241, 2).Bytes(), 0)
	assert.Empty(t, sink.calls)
	assert.Equal(t, uint32(1), d.PacketErrors(false))
	assert.Equal(t, 1, d.DataSize())

	// the same applies when the frame completes from the cache
	frame := (&StreamBuilder{}).AddSWIT(0, 0x44434241, 4).Bytes()
	d.Decode(frame[:2], 0)
	d.Decode(frame[2:], 0)
	assert.Empty(t, sink.calls)
	assert.Equal(t, uint32(2), d.PacketErrors(false))
	assert.Equal(t, 0, d.Pending())
}

func TestDecodeAutoSizeGrows(t *testing.T) {
	d, sink := newTestDecoder(t, DataSizeAuto)
	assert.True(t, d.AutoSize())
	assert.Equal(t, 1, d.DataSize())

	frame := (&StreamBuilder{}).AddSWIT(0, 0x4241, 2).Bytes()
	d.Decode(frame[:1], 0)
	d.Decode(frame[1:], 0)
	assert.Equal(t, 2, d.DataSize())

	d.Decode((&StreamBuilder{}).AddSWIT(0, 0x46454443, 4).Bytes(), 0)
	assert.Equal(t, 4, d.DataSize())
	assert.Equal(t, "ABCDEF", sink.perChannel()[0])
	assert.Equal(t, uint32(0), d.PacketErrors(false))
}

func TestDecodeSkipsPCSamples(t *testing.T) {
	d, sink := newTestDecoder(t, 1)
	stream := (&StreamBuilder{}).AddPCSample(0x20000000).AddText(1, "a", 1).AddPCSample(0x1234).Bytes()

	// split inside the trailing PC sample
	d.Decode(stream[:len(stream)-2], 0)
	assert.Equal(t, 3, d.Pending())
	d.Decode(append(stream[len(stream)-2:], (&StreamBuilder{}).AddText(1, "b", 1).Bytes()...), 0)

	assert.Equal(t, "ab", sink.perChannel()[1])
	assert.Equal(t, uint32(0), d.PacketErrors(false))
}

func TestSetDataSize(t *testing.T) {
	d, _ := newTestDecoder(t, 1)
	d.Decode([]byte{0x00}, 0)
	d.Decode([]byte{0x01}, 0)
	require.Equal(t, uint32(1), d.PacketErrors(false))
	require.Equal(t, 1, d.Pending())

	d.SetDataSize(2)
	assert.Equal(t, uint32(0), d.PacketErrors(false))
	assert.Equal(t, 0, d.Pending())
	assert.Equal(t, 2, d.DataSize())
	assert.False(t, d.AutoSize())

	for _, bad := range []int{-1, 3, 8} {
		assert.Panics(t, func() { d.SetDataSize(bad) }, "size %d", bad)
	}
}

func TestDecodeWithoutSink(t *testing.T) {
	d := NewDecoder()
	assert.Equal(t, 1, d.Decode((&StreamBuilder{}).AddText(0, "a", 1).Bytes(), 0))
	assert.Equal(t, 0, d.Decode(nil, 0))
	d.Decode([]byte{0xFF}, 0)
	assert.Equal(t, uint32(1), d.PacketErrors(false))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		hdr    byte
		want   FrameType
		length int
		size   int
	}{
		{0x01, FrameSWIT, 1, 2},
		{0x0A, FrameSWIT, 2, 3},
		{0x0B, FrameSWIT, 4, 5},
		{HdrPCSample, FramePCSample, 4, 5},
		{HdrOverflow, FrameOverflow, 0, 5},
		{0x00, FrameInvalid, 0, 5},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.hdr))
			assert.Equal(t, tt.size, FrameSize(tt.hdr))
			if tt.want == FrameSWIT {
				assert.Equal(t, tt.length, HeaderLength(tt.hdr))
			}
		})
	}
	assert.Equal(t, uint8(31), HeaderChannel(0xF9))
	assert.Equal(t, "SWIT; Port 1; 4 bytes", DescribeHeader(0x0B))
	assert.Equal(t, "INVALID; Hdr 0x00", DescribeHeader(0x00))
}
