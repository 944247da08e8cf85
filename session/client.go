package session

import (
	"context"
	"sync"

	"github.com/aufam/delameta-go/descriptor"
	"github.com/aufam/delameta-go/endpoint"
	"github.com/aufam/delameta-go/stream"
)

// Client is C6, the session client (spec.md §4.6): a single Descriptor
// reused across Request calls while keep-alive holds, re-opened
// transparently when the peer closes it or Max is reached.
type Client struct {
	uri  string
	opts descriptor.NetOptions

	mu sync.Mutex
	d  descriptor.Descriptor
}

// NewClient defers opening the underlying endpoint until the first
// Request: a lazy-connect posture so constructing a Client never blocks
// or fails on its own.
func NewClient(uri string) *Client {
	return &Client{uri: uri}
}

// Request writes req, reads exactly one reply frame, and keeps the
// connection open for the next call when the transport supports
// keep-alive and hasn't reached its Max (spec.md §4.5 state machine,
// mirrored from the client's point of view).
func (c *Client) Request(ctx context.Context, req []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.d == nil {
		d, err := endpoint.Open(ctx, c.uri)
		if err != nil {
			return nil, err
		}
		c.d = d
	}
	if err := c.d.Write(ctx, req); err != nil {
		c.closeLocked()
		return nil, err
	}
	reply, err := c.d.Read(ctx)
	if err != nil {
		c.closeLocked()
		return nil, err
	}
	if cc, ok := c.d.(connControl); ok && (!cc.KeepAliveEnabled() || cc.MaxReached()) {
		c.closeLocked()
	}
	return reply, nil
}

// RequestStream is Request's streaming counterpart: the reply is
// delivered lazily as a stream.Stream instead of being buffered whole,
// for large transfers (spec.md §4.2 "Stream").
func (c *Client) RequestStream(ctx context.Context, req []byte, chunk int) (*stream.Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.d == nil {
		d, err := endpoint.Open(ctx, c.uri)
		if err != nil {
			return nil, err
		}
		c.d = d
	}
	if err := c.d.Write(ctx, req); err != nil {
		c.closeLocked()
		return nil, err
	}
	return c.d.ReadAsStream(ctx, chunk), nil
}

// Close releases the underlying descriptor, if any is open.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Client) closeLocked() error {
	if c.d == nil {
		return nil
	}
	err := c.d.Close()
	c.d = nil
	return err
}
