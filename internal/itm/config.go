package itm

import "fmt"

// DataSizeAuto selects automatic detection of the stimulus word size.
const DataSizeAuto = 0

// Config holds the stimulus port word size the target is expected to send.
type Config struct {
	dataSize int
	auto     bool
}

// NewConfig creates a default configuration: 1 byte words, no auto detection.
func NewConfig() *Config {
	return &Config{dataSize: 1}
}

// ValidDataSize reports whether size is accepted by SetDataSize.
func ValidDataSize(size int) bool {
	switch size {
	case DataSizeAuto, 1, 2, 4:
		return true
	}
	return false
}

// SetDataSize sets the word size in bytes (1, 2 or 4), or DataSizeAuto.
// Any other value is a caller error and panics.
func (c *Config) SetDataSize(size int) {
	if !ValidDataSize(size) {
		panic(fmt.Sprintf("itm: invalid data size %d", size))
	}
	c.auto = size == DataSizeAuto
	if c.auto {
		c.dataSize = 1
	} else {
		c.dataSize = size
	}
}

// DataSize returns the current word size. In auto mode this is the largest
// size observed so far.
func (c *Config) DataSize() int {
	return c.dataSize
}

// AutoSize reports whether the word size is detected from the stream.
func (c *Config) AutoSize() bool {
	return c.auto
}

// accept checks a payload length against the word size. A longer payload is
// only accepted in auto mode, where it grows the word size.
func (c *Config) accept(length int) bool {
	if length <= c.dataSize {
		return true
	}
	if c.auto {
		c.dataSize = length
		return true
	}
	return false
}
