package descriptor

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/aufam/delameta-go/cmn/cos"
	"github.com/aufam/delameta-go/cmn/mono"
	"github.com/aufam/delameta-go/cmn/xerr"
)

// netConn is the subset of net.Conn our poll loop needs; satisfied by
// net.Conn, *net.TCPConn, *net.UDPConn and *tls.Conn alike.
type netConn interface {
	SetReadDeadline(time.Time) error
	SetWriteDeadline(time.Time) error
	Read(b []byte) (int, error)
	Write(b []byte) (int, error)
}

// pollRead performs one logical "read()" (spec.md §4.3): block until at
// least one byte is available or timeout elapses, polling in
// PollInterval slices so ctx cancellation and the overall timeout stay
// responsive (spec.md §4.3, §5). buf sizes the single kernel read.
func pollRead(ctx context.Context, conn netConn, timeout time.Duration, peer string, bufSize int) ([]byte, error) {
	buf := make([]byte, bufSize)
	start := mono.NanoTime()
	for {
		select {
		case <-ctx.Done():
			return nil, xerr.ConnectionClosed(peer)
		default:
		}
		conn.SetReadDeadline(time.Now().Add(PollInterval))
		n, err := conn.Read(buf)
		if n > 0 {
			return buf[:n], nil
		}
		if err == nil {
			continue
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			if timeout > 0 && mono.Since(start) >= timeout {
				return nil, xerr.TransferTimeout("read " + peer)
			}
			continue
		}
		if errors.Is(err, io.EOF) || cos.IsErrConnectionReset(err) {
			return nil, xerr.ConnectionClosed(peer)
		}
		return nil, err
	}
}

// pollReadUntil loops pollRead calls until exactly n bytes have been
// collected (spec.md §4.3 "read_until(n)").
func pollReadUntil(ctx context.Context, conn netConn, timeout time.Duration, peer string, n int) ([]byte, error) {
	out := make([]byte, 0, n)
	for len(out) < n {
		chunk, err := pollRead(ctx, conn, timeout, peer, n-len(out))
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
	return out, nil
}

// pollWrite loops until all of b is accepted by the kernel, retrying on
// EAGAIN/EWOULDBLOCK-equivalent timeouts (spec.md §4.3 "write(bytes)").
func pollWrite(ctx context.Context, conn netConn, peer string, b []byte) error {
	for len(b) > 0 {
		select {
		case <-ctx.Done():
			return xerr.ConnectionClosed(peer)
		default:
		}
		conn.SetWriteDeadline(time.Now().Add(PollInterval))
		n, err := conn.Write(b)
		b = b[n:]
		if err == nil {
			continue
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			continue
		}
		if cos.IsErrBrokenPipe(err) || cos.IsErrConnectionReset(err) {
			return xerr.ConnectionClosed(peer)
		}
		return err
	}
	return nil
}
