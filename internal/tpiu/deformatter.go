// Package tpiu strips the CoreSight formatter framing a TPIU adds when it runs
// in continuous mode, leaving the byte stream of one trace source.
package tpiu

import (
	"encoding/binary"

	"swotrace/internal/common"
)

const (
	// FrameSize is the size of one formatter frame.
	FrameSize = 16

	fsyncPattern = uint32(0x7FFFFFFF)

	// DefaultID is the trace source ID conventionally given to the ITM.
	DefaultID = 1
	// MaxID is the highest trace source ID carrying data.
	MaxID = 0x6F
)

// ValidID reports whether id can be selected as a data source.
func ValidID(id uint8) bool {
	return id >= 1 && id <= MaxID
}

// Deformatter extracts the bytes of one source ID from formatted frames.
// Output starts after the first frame synchronisation pattern. Frames may be
// split across calls.
type Deformatter struct {
	common.Component

	id     uint8
	currID uint8
	synced bool
	frame  [FrameSize]byte
	nFrame int
	frames uint64
}

// NewDeformatter creates a deformatter passing through source id.
func NewDeformatter(id uint8) *Deformatter {
	d := &Deformatter{id: id}
	d.InitComponent("DFMT_TPIU")
	return d
}

// ID returns the source ID passed through.
func (d *Deformatter) ID() uint8 { return d.id }

// Synced reports whether frame alignment is known.
func (d *Deformatter) Synced() bool { return d.synced }

// Frames returns the number of data frames unpacked.
func (d *Deformatter) Frames() uint64 { return d.frames }

// Reset drops frame alignment and any partial frame.
func (d *Deformatter) Reset() {
	d.synced = false
	d.nFrame = 0
	d.currID = 0
}

// Unwrap appends the source bytes found in data to dst and returns the
// extended slice.
func (d *Deformatter) Unwrap(dst, data []byte) []byte {
	for _, b := range data {
		d.frame[d.nFrame] = b
		d.nFrame++

		if !d.synced {
			if d.nFrame < 4 {
				continue
			}
			if binary.LittleEndian.Uint32(d.frame[:4]) == fsyncPattern {
				d.synced = true
				d.nFrame = 0
				d.LogDebugf("frame sync found")
				continue
			}
			copy(d.frame[:], d.frame[1:4])
			d.nFrame = 3
			continue
		}

		// a full synchronisation pattern at a frame boundary is padding
		if d.nFrame == 4 && binary.LittleEndian.Uint32(d.frame[:4]) == fsyncPattern {
			d.nFrame = 0
			continue
		}
		if d.nFrame < FrameSize {
			continue
		}
		d.nFrame = 0
		dst = d.unpack(dst)
	}
	return dst
}

func (d *Deformatter) emit(dst []byte, id, b uint8) []byte {
	if id == d.id {
		dst = append(dst, b)
	}
	return dst
}

// unpack decodes one frame. Even bytes with bit 0 set change the source ID;
// otherwise bit 0 of a data byte is held in the flag byte. A set flag on an ID
// change means the following byte still belongs to the previous source.
func (d *Deformatter) unpack(dst []byte) []byte {
	f := &d.frame
	flags := f[15]
	bit := uint8(1)
	d.frames++

	for i := 0; i < 14; i += 2 {
		odd := f[i+1]
		if f[i]&1 != 0 {
			prev := d.currID
			d.currID = f[i] >> 1
			if flags&bit != 0 {
				dst = d.emit(dst, prev, odd)
			} else {
				dst = d.emit(dst, d.currID, odd)
			}
		} else {
			b := f[i]
			if flags&bit != 0 {
				b |= 1
			}
			dst = d.emit(dst, d.currID, b)
			dst = d.emit(dst, d.currID, odd)
		}
		bit <<= 1
	}

	if f[14]&1 != 0 {
		d.currID = f[14] >> 1
	} else {
		b := f[14]
		if flags&bit != 0 {
			b |= 1
		}
		dst = d.emit(dst, d.currID, b)
	}
	return dst
}
