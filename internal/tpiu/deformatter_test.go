package tpiu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var fsync = []byte{0xFF, 0xFF, 0xFF, 0x7F}

// testFrame carries "ABCEFGHIJK" for source 1 and 0x10 0x11 for source 2,
// including an ID change whose following byte belongs to the previous source.
var testFrame = []byte{
	0x03, 'A',
	'B', 'C',
	0x44, 'F', // 'E' with bit 0 in the flags
	0x05, 'G', // switch to 2, 'G' still for 1
	0x10, 0x11,
	0x03, 'H',
	0x48, 'J', // 'I'
	0x4A, // 'K'
	0xCC,
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestUnwrap(t *testing.T) {
	tests := []struct {
		name string
		id   uint8
		want string
	}{
		{"ITM", 1, "ABCEFGHIJK"},
		{"Other", 2, "\x10\x11"},
		{"Absent", 0x20, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDeformatter(tt.id)
			got := d.Unwrap(nil, concat([]byte{0x12, 0x34}, fsync, testFrame))
			assert.Equal(t, tt.want, string(got))
			assert.True(t, d.Synced())
			assert.Equal(t, uint64(1), d.Frames())
		})
	}
}

func TestUnwrapNeedsSync(t *testing.T) {
	d := NewDeformatter(DefaultID)
	assert.Empty(t, d.Unwrap(nil, testFrame))
	assert.False(t, d.Synced())
	assert.Equal(t, uint64(0), d.Frames())
}

func TestUnwrapSplitFramesAndPadding(t *testing.T) {
	stream := concat(fsync, testFrame, fsync, fsync, testFrame)
	for i := 1; i < len(stream); i++ {
		d := NewDeformatter(DefaultID)
		got := d.Unwrap(nil, stream[:i])
		got = d.Unwrap(got, stream[i:])
		assert.Equal(t, "ABCEFGHIJKABCEFGHIJK", string(got), "split at %d", i)
		assert.Equal(t, uint64(2), d.Frames(), "split at %d", i)
	}
}

func TestReset(t *testing.T) {
	d := NewDeformatter(DefaultID)
	d.Unwrap(nil, concat(fsync, testFrame[:5]))
	d.Reset()
	assert.False(t, d.Synced())
	assert.Equal(t, "ABCEFGHIJK", string(d.Unwrap(nil, concat(fsync, testFrame))))
}

func TestValidID(t *testing.T) {
	assert.False(t, ValidID(0))
	assert.True(t, ValidID(DefaultID))
	assert.True(t, ValidID(MaxID))
	assert.False(t, ValidID(0x70))
}
