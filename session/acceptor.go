package session

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/aufam/delameta-go/descriptor"
)

// TCPAcceptor listens on a plain TCP socket (spec.md §4.3 "TCP
// contract"). Accept blocks until a connection arrives or the listener
// is closed (ctx is not consulted); Close unblocks a pending Accept by
// closing the listener.
type TCPAcceptor struct {
	ln   net.Listener
	opts descriptor.NetOptions
}

// ListenTCP binds addr ("host:port") and returns a ready TCPAcceptor.
func ListenTCP(addr string, opts descriptor.NetOptions) (*TCPAcceptor, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &TCPAcceptor{ln: ln, opts: opts}, nil
}

func (a *TCPAcceptor) Accept(ctx context.Context) (descriptor.Descriptor, string, error) {
	conn, err := a.ln.Accept()
	if err != nil {
		return nil, "", err
	}
	d := descriptor.NewTCP(conn, a.opts)
	return d, d.PeerName(), nil
}

func (a *TCPAcceptor) Close() error { return a.ln.Close() }

func (a *TCPAcceptor) Addr() net.Addr { return a.ln.Addr() }

// TLSAcceptor layers a synchronous TLS handshake (spec.md §4.3: "the
// handshake is synchronous and blocking") on top of an accepted TCP
// connection before handing it to the session server.
type TLSAcceptor struct {
	ln   net.Listener
	cfg  *tls.Config
	opts descriptor.NetOptions
}

// ListenTLS binds addr and wraps every accepted connection with cfg.
func ListenTLS(addr string, cfg *tls.Config, opts descriptor.NetOptions) (*TLSAcceptor, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &TLSAcceptor{ln: ln, cfg: cfg, opts: opts}, nil
}

func (a *TLSAcceptor) Accept(ctx context.Context) (descriptor.Descriptor, string, error) {
	raw, err := a.ln.Accept()
	if err != nil {
		return nil, "", err
	}
	d, err := descriptor.ServerTLS(ctx, raw, a.cfg, a.opts)
	if err != nil {
		raw.Close()
		return nil, "", err
	}
	return d, d.PeerName(), nil
}

func (a *TLSAcceptor) Close() error { return a.ln.Close() }

func (a *TLSAcceptor) Addr() net.Addr { return a.ln.Addr() }
