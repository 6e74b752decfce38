package transport

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"
)

// TCP reads trace data from a network socket, such as a probe that forwards
// SWO over TCP.
type TCP struct {
	conn      net.Conn
	closeOnce sync.Once
	closeErr  error
}

// DialTCP connects to addr:port. A failed connect is reported as StatusNoPipe.
func DialTCP(ctx context.Context, addr string, port uint16) (*TCP, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(addr, strconv.Itoa(int(port))))
	if err != nil {
		return nil, newStatusError(StatusNoPipe, err)
	}
	return &TCP{conn: conn}, nil
}

// ReadContext implements Transport.
func (t *TCP) ReadContext(ctx context.Context, p []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	stop := context.AfterFunc(ctx, func() {
		// wake the blocked read
		_ = t.conn.SetReadDeadline(time.Unix(1, 0))
	})
	defer stop()
	n, err := t.conn.Read(p)
	if err != nil && ctx.Err() != nil {
		return n, ctx.Err()
	}
	return n, err
}

// Close implements Transport.
func (t *TCP) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}

// RemoteAddr returns the address of the peer.
func (t *TCP) RemoteAddr() net.Addr {
	return t.conn.RemoteAddr()
}
