package itm

import "fmt"

const (
	// HdrPCSample is the header of a periodic PC sample frame (DWT discriminator 2,
	// 4 byte payload).
	HdrPCSample byte = 0x17
	// HdrOverflow is the single byte overflow frame.
	HdrOverflow byte = 0x70

	// PCSampleSize is the total size of a PC sample frame.
	PCSampleSize = 5
	// MaxFrameSize is the largest frame: one header plus a 32-bit payload.
	MaxFrameSize = 5
	// NumChannels is the number of stimulus ports addressable by a header.
	NumChannels = 32
)

// FrameType classifies an ITM header byte.
type FrameType int

const (
	FrameInvalid  FrameType = iota /**< reserved or unsupported header */
	FrameSWIT                      /**< software stimulus frame */
	FramePCSample                  /**< PC sample frame */
	FrameOverflow                  /**< overflow frame */
)

func (t FrameType) String() string {
	switch t {
	case FrameSWIT:
		return "SWIT"
	case FramePCSample:
		return "PC_SAMPLE"
	case FrameOverflow:
		return "OVERFLOW"
	default:
		return "INVALID"
	}
}

// Classify returns the frame type of a header byte.
func Classify(hdr byte) FrameType {
	switch {
	case hdr == HdrPCSample:
		return FramePCSample
	case hdr == HdrOverflow:
		return FrameOverflow
	case ValidHeader(hdr):
		return FrameSWIT
	default:
		return FrameInvalid
	}
}

// ValidHeader reports whether hdr is a software stimulus header: the low three
// bits hold a size code of 1, 2 or 3.
func ValidHeader(hdr byte) bool {
	sz := hdr & 0x07
	return sz >= 1 && sz <= 3
}

// HeaderChannel returns the stimulus port encoded in bits [7:3].
func HeaderChannel(hdr byte) uint8 {
	return (hdr >> 3) & 0x1F
}

// HeaderLength returns the payload length encoded in a stimulus header
// (size code 3 means 4 bytes).
func HeaderLength(hdr byte) int {
	sz := int(hdr & 0x07)
	if sz == 3 {
		return 4
	}
	return sz
}

// FrameSize returns the total size of the frame started by hdr, header
// included. Headers that are not stimulus frames are taken as 5 bytes, the
// size of a PC sample.
func FrameSize(hdr byte) int {
	if ValidHeader(hdr) {
		return HeaderLength(hdr) + 1
	}
	return PCSampleSize
}

// DescribeHeader renders a header byte for diagnostics.
func DescribeHeader(hdr byte) string {
	switch t := Classify(hdr); t {
	case FrameSWIT:
		return fmt.Sprintf("SWIT; Port %d; %d bytes", HeaderChannel(hdr), HeaderLength(hdr))
	case FrameInvalid:
		return fmt.Sprintf("INVALID; Hdr 0x%02X", hdr)
	default:
		return t.String()
	}
}
