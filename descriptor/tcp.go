package descriptor

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"github.com/aufam/delameta-go/stream"
)

// TCP wraps a connected net.TCPConn. KeepAlive/Timeout/Max are the
// per-call knobs described in spec.md §3 "Descriptor".
type TCP struct {
	conn net.Conn
	peer string
	recv atomic.Int64

	NetOptions
}

// NewTCP wraps an already-connected conn (used both by the endpoint
// factory's tcp:// dialer and by the session server's accept loop).
func NewTCP(conn net.Conn, opts NetOptions) *TCP {
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetKeepAlive(opts.KeepAlive)
	}
	return &TCP{conn: conn, peer: conn.RemoteAddr().String(), NetOptions: opts}
}

func (d *TCP) PeerName() string { return d.peer }

func (d *TCP) Read(ctx context.Context) ([]byte, error) {
	b, err := pollRead(ctx, d.conn, d.Timeout, d.peer, 4096)
	if err == nil {
		d.recv.Add(1)
	}
	return b, err
}

func (d *TCP) ReadUntil(ctx context.Context, n int) ([]byte, error) {
	b, err := pollReadUntil(ctx, d.conn, d.Timeout, d.peer, n)
	if err == nil {
		d.recv.Add(1)
	}
	return b, err
}

func (d *TCP) ReadAsStream(ctx context.Context, n int) *stream.Stream {
	return readAsStream(ctx, n, func(ctx context.Context, want int) ([]byte, error) {
		return pollReadUntil(ctx, d.conn, d.Timeout, d.peer, want)
	})
}

func (d *TCP) Write(ctx context.Context, b []byte) error {
	return pollWrite(ctx, d.conn, d.peer, b)
}

func (d *TCP) Close() error { return d.conn.Close() }

// MaxReached reports whether Max receives have happened on this
// connection (spec.md §3: "max (receives before forced close, negative
// = unlimited)"), consulted by the session server's per-child loop
// (spec.md §4.5).
func (d *TCP) MaxReached() bool {
	return d.Max >= 0 && d.recv.Load() >= int64(d.Max)
}

// KeepAliveEnabled, SetKeepAlive, SetTimeout, SetMax let the HTTP codec
// (spec.md §4.7: "Connection: close|keep-alive mutates the owning
// Descriptor's keep_alive") reach through to this descriptor's session
// knobs without the session package importing net.
func (d *TCP) KeepAliveEnabled() bool        { return d.KeepAlive }
func (d *TCP) SetKeepAlive(v bool)           { d.KeepAlive = v }
func (d *TCP) SetTimeout(t time.Duration)    { d.Timeout = t }
func (d *TCP) SetMax(n int)                  { d.Max = n }
