package transport

import (
	"context"
	"io"
	"os"
)

// ReplayChunk is the largest read a Replay returns, the size of one probe
// packet.
const ReplayChunk = 64

// Replay plays back a raw SWO capture. It returns io.EOF at the end of the
// data.
type Replay struct {
	r io.Reader
	c io.Closer
}

// NewReplay creates a replay reading from r.
func NewReplay(r io.Reader) *Replay {
	rp := &Replay{r: r}
	if c, ok := r.(io.Closer); ok {
		rp.c = c
	}
	return rp
}

// OpenFile opens a capture file for replay.
func OpenFile(path string) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newStatusError(StatusNoDevPath, err)
	}
	return NewReplay(f), nil
}

// ReadContext implements Transport.
func (r *Replay) ReadContext(ctx context.Context, p []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(p) > ReplayChunk {
		p = p[:ReplayChunk]
	}
	return r.r.Read(p)
}

// Close implements Transport.
func (r *Replay) Close() error {
	if r.c == nil {
		return nil
	}
	return r.c.Close()
}
