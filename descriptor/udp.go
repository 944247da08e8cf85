package descriptor

import (
	"context"
	"net"
	"time"

	"github.com/aufam/delameta-go/cmn/xerr"
	"github.com/aufam/delameta-go/stream"
)

// UDP carries a fixed peer address used for sendto/recvfrom (spec.md §3
// "Descriptor": "UDP additionally carries a peer address").
type UDP struct {
	conn *net.UDPConn
	peer *net.UDPAddr

	NetOptions
}

func NewUDP(conn *net.UDPConn, peer *net.UDPAddr, opts NetOptions) *UDP {
	return &UDP{conn: conn, peer: peer, NetOptions: opts}
}

func (d *UDP) PeerName() string { return d.peer.String() }

func (d *UDP) Read(ctx context.Context) ([]byte, error) {
	return d.recvfrom(ctx, 64*1024)
}

func (d *UDP) ReadUntil(ctx context.Context, n int) ([]byte, error) {
	// a UDP datagram is atomic: read_until(n) on UDP means "the next
	// datagram, read into an n-byte buffer" rather than looping reads
	// (there is no partial-datagram delivery to loop over). A longer
	// datagram is truncated to n bytes; a shorter one is returned as is.
	b, err := d.recvfrom(ctx, n)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (d *UDP) ReadAsStream(ctx context.Context, n int) *stream.Stream {
	return readAsStream(ctx, n, func(ctx context.Context, want int) ([]byte, error) {
		return d.recvfrom(ctx, want)
	})
}

func (d *UDP) recvfrom(ctx context.Context, bufSize int) ([]byte, error) {
	return pollReadFromUDP(ctx, d.conn, d.Timeout, d.peer, bufSize)
}

func (d *UDP) Write(ctx context.Context, b []byte) error {
	return pollWriteToUDP(ctx, d.conn, d.peer, b)
}

func (d *UDP) Close() error { return d.conn.Close() }

func pollReadFromUDP(ctx context.Context, conn *net.UDPConn, timeout time.Duration, peer *net.UDPAddr, bufSize int) ([]byte, error) {
	buf := make([]byte, bufSize)
	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		conn.SetReadDeadline(time.Now().Add(PollInterval))
		n, addr, err := conn.ReadFromUDP(buf)
		if n > 0 && (peer == nil || addr.String() == peer.String()) {
			return buf[:n], nil
		}
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				if timeout > 0 && time.Since(start) >= timeout {
					return nil, xerr.TransferTimeout("udp recvfrom")
				}
				continue
			}
			return nil, err
		}
	}
}

func pollWriteToUDP(ctx context.Context, conn *net.UDPConn, peer *net.UDPAddr, b []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	_, err := conn.WriteToUDP(b, peer)
	return err
}
