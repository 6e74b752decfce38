// Package transport provides the byte sources a trace session reads from: a
// debug probe's USB bulk endpoint, a TCP socket, or a captured file.
package transport

import (
	"context"
)

// Transport is a source of raw SWO bytes.
type Transport interface {
	// ReadContext blocks until data is available, the transport fails or
	// ctx is done. It returns ctx.Err() when cancelled.
	ReadContext(ctx context.Context, p []byte) (int, error)
	// Close releases the transport and unblocks a pending read.
	Close() error
}
