package itm

import (
	"go.uber.org/atomic"

	"swotrace/internal/common"
)

// PayloadSink receives the stimulus payloads extracted by the Decoder.
type PayloadSink interface {
	// PayloadIn delivers the merged payload of consecutive frames on one
	// channel. data is only valid for the duration of the call.
	PayloadIn(chanID uint8, ts float64, data []byte)
	// Reset is called after a protocol error, so that state derived from
	// earlier payloads (a structured decoder) can be dropped.
	Reset()
}

// Decoder extracts (channel, payload) pairs from ITM packets. A frame split
// over two packets is held in a small cache until the next packet completes it.
type Decoder struct {
	common.Component
	PayloadOut common.AttachPt[PayloadSink]

	cfg Config

	cache    [MaxFrameSize]byte
	cacheLen int

	payload      []byte
	packetErrors atomic.Uint32
}

// NewDecoder creates a decoder with 1 byte words.
func NewDecoder() *Decoder {
	d := &Decoder{cfg: *NewConfig()}
	d.InitComponent("DCD_ITM")
	d.PayloadOut.SetEnabled(true)
	d.payload = make([]byte, 0, 64+MaxFrameSize)
	return d
}

// SetDataSize sets the word size (see Config.SetDataSize). The frame cache
// and the packet error counter are cleared.
func (d *Decoder) SetDataSize(size int) {
	d.cfg.SetDataSize(size)
	d.cacheLen = 0
	d.packetErrors.Store(0)
}

// DataSize returns the current word size in bytes.
func (d *Decoder) DataSize() int {
	return d.cfg.DataSize()
}

// AutoSize reports whether the word size is auto detected.
func (d *Decoder) AutoSize() bool {
	return d.cfg.AutoSize()
}

// PacketErrors returns the number of packets dropped on protocol errors,
// optionally resetting the count. It may be called from any goroutine.
func (d *Decoder) PacketErrors(reset bool) uint32 {
	if reset {
		return d.packetErrors.Swap(0)
	}
	return d.packetErrors.Load()
}

// Pending returns the number of bytes held for a frame split across packets.
func (d *Decoder) Pending() int {
	return d.cacheLen
}

// Reset drops any cached partial frame.
func (d *Decoder) Reset() {
	d.cacheLen = 0
}

// Decode processes one packet and returns the number of payloads delivered.
func (d *Decoder) Decode(data []byte, ts float64) int {
	d.payload = d.payload[:0]
	emitted := 0
	chanID := -1

	if d.cacheLen > 0 {
		hdr := d.cache[0]
		need := FrameSize(hdr) - d.cacheLen
		if len(data) < need {
			d.cacheLen += copy(d.cache[d.cacheLen:], data)
			return 0
		}
		if hdr != HdrPCSample {
			if !d.cfg.accept(HeaderLength(hdr)) {
				d.protocolError(hdr)
				return 0
			}
			d.payload = append(d.payload, d.cache[1:d.cacheLen]...)
			d.payload = append(d.payload, data[:need]...)
			chanID = int(HeaderChannel(hdr))
		}
		data = data[need:]
		d.cacheLen = 0
	}

	for len(data) > 0 {
		hdr := data[0]
		if hdr == HdrPCSample {
			// PC samples belong to the profiler, skip them here
			if len(data) < PCSampleSize {
				d.cacheLen = copy(d.cache[:], data)
				break
			}
			data = data[PCSampleSize:]
			continue
		}
		if !ValidHeader(hdr) {
			if d.flush(chanID, ts) {
				emitted++
			}
			d.protocolError(hdr)
			return emitted
		}
		if ch := int(HeaderChannel(hdr)); ch != chanID {
			if d.flush(chanID, ts) {
				emitted++
			}
			chanID = ch
		}
		n := HeaderLength(hdr)
		if len(data) < n+1 {
			d.cacheLen = copy(d.cache[:], data)
			break
		}
		if !d.cfg.accept(n) {
			if d.flush(chanID, ts) {
				emitted++
			}
			d.protocolError(hdr)
			return emitted
		}
		d.payload = append(d.payload, data[1:n+1]...)
		data = data[n+1:]
	}

	if d.flush(chanID, ts) {
		emitted++
	}
	return emitted
}

// flush hands the accumulated payload to the attached sink.
func (d *Decoder) flush(chanID int, ts float64) bool {
	if chanID < 0 || len(d.payload) == 0 {
		d.payload = d.payload[:0]
		return false
	}
	if d.PayloadOut.HasAttachedAndEnabled() {
		d.PayloadOut.First().PayloadIn(uint8(chanID), ts, d.payload)
	}
	d.payload = d.payload[:0]
	return true
}

func (d *Decoder) protocolError(hdr byte) {
	d.packetErrors.Inc()
	d.cacheLen = 0
	d.LogDebugf("packet dropped on %s (data size %d)", DescribeHeader(hdr), d.cfg.DataSize())
	if d.PayloadOut.HasAttachedAndEnabled() {
		d.PayloadOut.First().Reset()
	}
}
