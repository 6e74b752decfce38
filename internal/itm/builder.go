package itm

import "encoding/binary"

// StreamBuilder assembles raw ITM byte streams, for tests and capture tools.
type StreamBuilder struct {
	data []byte
}

// Bytes returns the stream built so far.
func (b *StreamBuilder) Bytes() []byte {
	return b.data
}

// AddBytes appends raw bytes.
func (b *StreamBuilder) AddBytes(v ...byte) *StreamBuilder {
	b.data = append(b.data, v...)
	return b
}

// AddOverflow appends an overflow frame.
func (b *StreamBuilder) AddOverflow() *StreamBuilder {
	return b.AddBytes(HdrOverflow)
}

// AddSWIT appends one stimulus frame carrying size bytes (1, 2 or 4) of val
// on chanID.
func (b *StreamBuilder) AddSWIT(chanID uint8, val uint32, size int) *StreamBuilder {
	code := byte(size)
	if size == 4 {
		code = 3
	}
	b.AddBytes(((chanID & 0x1F) << 3) | code)
	var v [4]byte
	binary.LittleEndian.PutUint32(v[:], val)
	return b.AddBytes(v[:size]...)
}

// AddText appends text on chanID, packed into frames of size bytes. The last
// frame is padded with NULs.
func (b *StreamBuilder) AddText(chanID uint8, text string, size int) *StreamBuilder {
	for i := 0; i < len(text); i += size {
		var v [4]byte
		copy(v[:size], text[i:min(i+size, len(text))])
		b.AddSWIT(chanID, binary.LittleEndian.Uint32(v[:]), size)
	}
	return b
}

// AddPCSample appends a PC sample frame.
func (b *StreamBuilder) AddPCSample(pc uint32) *StreamBuilder {
	b.AddBytes(HdrPCSample)
	var v [4]byte
	binary.LittleEndian.PutUint32(v[:], pc)
	return b.AddBytes(v[:]...)
}
