package descriptor

import (
	"context"
	"crypto/tls"
	"net"
	"sync/atomic"
	"time"

	"github.com/aufam/delameta-go/stream"
)

// TLS wraps a TCP stream with an opaque encryption layer (spec.md §4.3
// "TLS contract"): the handshake is synchronous and blocking, after
// which reads/writes behave exactly like TCP. Go's standard
// crypto/tls is the idiomatic choice here: TLS is treated as "TCP with
// an opaque encryption layer", and handshake configuration helpers are
// explicitly out of scope (spec.md §1), so there is no
// domain-specific TLS library from the example pack to wire in instead.
type TLS struct {
	conn *tls.Conn
	peer string
	recv atomic.Int64

	NetOptions
}

// DialTLS performs a synchronous client handshake over an established
// TCP connection (spec.md §4.3: "the handshake is synchronous").
func DialTLS(ctx context.Context, raw net.Conn, cfg *tls.Config, opts NetOptions) (*TLS, error) {
	conn := tls.Client(raw, cfg)
	if err := conn.HandshakeContext(ctx); err != nil {
		return nil, err
	}
	return &TLS{conn: conn, peer: raw.RemoteAddr().String(), NetOptions: opts}, nil
}

// ServerTLS wraps an accepted connection for a server-side handshake;
// certificate/key file paths are configured on cfg before Accept/Listen
// (spec.md §4.3).
func ServerTLS(ctx context.Context, raw net.Conn, cfg *tls.Config, opts NetOptions) (*TLS, error) {
	conn := tls.Server(raw, cfg)
	if err := conn.HandshakeContext(ctx); err != nil {
		return nil, err
	}
	return &TLS{conn: conn, peer: raw.RemoteAddr().String(), NetOptions: opts}, nil
}

func (d *TLS) PeerName() string { return d.peer }

func (d *TLS) Read(ctx context.Context) ([]byte, error) {
	b, err := pollRead(ctx, d.conn, d.Timeout, d.peer, 4096)
	if err == nil {
		d.recv.Add(1)
	}
	return b, err
}

func (d *TLS) ReadUntil(ctx context.Context, n int) ([]byte, error) {
	b, err := pollReadUntil(ctx, d.conn, d.Timeout, d.peer, n)
	if err == nil {
		d.recv.Add(1)
	}
	return b, err
}

func (d *TLS) ReadAsStream(ctx context.Context, n int) *stream.Stream {
	return readAsStream(ctx, n, func(ctx context.Context, want int) ([]byte, error) {
		return pollReadUntil(ctx, d.conn, d.Timeout, d.peer, want)
	})
}

func (d *TLS) Write(ctx context.Context, b []byte) error {
	return pollWrite(ctx, d.conn, d.peer, b)
}

func (d *TLS) Close() error { return d.conn.Close() }

func (d *TLS) MaxReached() bool {
	return d.Max >= 0 && d.recv.Load() >= int64(d.Max)
}

func (d *TLS) KeepAliveEnabled() bool     { return d.KeepAlive }
func (d *TLS) SetKeepAlive(v bool)        { d.KeepAlive = v }
func (d *TLS) SetTimeout(t time.Duration) { d.Timeout = t }
func (d *TLS) SetMax(n int)               { d.Max = n }
