// Package session implements C5 (the session server) and C6 (the
// session client) from spec.md §4.5-§4.6: an accept loop driving a
// bounded worker pool, and a thin request/reply wrapper over a
// Descriptor. The worker-pool/stop idiom generalizes a fixed
// intra-cluster stream protocol to an arbitrary user-supplied framing
// handler.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 * Copyright (c) 2024, delameta. All rights reserved.
 */
package session

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/aufam/delameta-go/cmn/cos"
	"github.com/aufam/delameta-go/cmn/nlog"
	"github.com/aufam/delameta-go/cmn/xerr"
	"github.com/aufam/delameta-go/descriptor"
	"github.com/aufam/delameta-go/stream"
)

// FramingHandler owns the interpretation of what "one frame" means
// (spec.md §4.5): called once per chunk read off a child connection
// (the first one after accept and each later one while keep-alive
// holds), it may re-enter the Descriptor via ReadUntil for
// more bytes, and returns the reply Stream to write back.
type FramingHandler func(ctx context.Context, d descriptor.Descriptor, peer string, frame []byte) (*stream.Stream, error)

// connControl is implemented by descriptor.TCP and descriptor.TLS: the
// knobs the per-child state machine (spec.md §4.5) consults between
// exchanges.
type connControl interface {
	KeepAliveEnabled() bool
	MaxReached() bool
}

// Acceptor hides the difference between a plain TCP listener and a TLS
// listener from Server (spec.md §4.3 "TLS contract": TLS wraps an
// established TCP stream).
type Acceptor interface {
	Accept(ctx context.Context) (descriptor.Descriptor, string, error)
	Close() error
}

// Server is the C5 session server: a listening descriptor, a bounded
// worker pool, and cooperative stop/join (spec.md §3 "Session (C5)
// State", §5 "Scheduling model").
type Server struct {
	acceptor  Acceptor
	handler   FramingHandler
	maxSocket int

	// Metrics, when non-nil, is incremented per frame/connection
	// (spec.md's ambient-observability surface; see NewMetrics).
	Metrics *Metrics

	running atomic.Bool
	mu      sync.Mutex
	onStop  []func()
	sem     chan struct{}
	wg      sync.WaitGroup

	cancel context.CancelFunc
}

// NewServer wires an Acceptor and a FramingHandler together. maxSocket
// bounds the worker pool (spec.md §5: "up to max_socket worker
// threads"); a non-positive value is a fatal configuration error
// (spec.md §7 "Fatal conditions").
func NewServer(acceptor Acceptor, handler FramingHandler, maxSocket int) (*Server, error) {
	if maxSocket <= 0 {
		return nil, invalidMaxSocket(maxSocket)
	}
	return &Server{
		acceptor:  acceptor,
		handler:   handler,
		maxSocket: maxSocket,
		sem:       make(chan struct{}, maxSocket),
	}, nil
}

// OnStop registers a callback invoked once, when Stop() runs (spec.md §3
// "on_stop_callback").
func (s *Server) OnStop(fn func()) { s.mu.Lock(); s.onStop = append(s.onStop, fn); s.mu.Unlock() }

// Start runs the accept loop until Stop() is called; an accept error
// while running is logged and the loop goes on accepting. It blocks;
// callers typically run it in its own goroutine and call Stop() from
// elsewhere.
func (s *Server) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running.Store(true)
	defer s.running.Store(false)

	g, gctx := errgroup.WithContext(ctx)
	for {
		if !s.running.Load() {
			break
		}
		d, peer, err := s.acceptor.Accept(gctx)
		if err != nil {
			if !s.running.Load() {
				break // Stop() closed the listener; not a real error
			}
			nlog.Errorf("session: accept: %v", err)
			continue
		}
		select {
		case s.sem <- struct{}{}:
		case <-gctx.Done():
			d.Close()
			continue
		}
		s.wg.Add(1)
		g.Go(func() error {
			defer func() { <-s.sem; s.wg.Done() }()
			s.serveChild(gctx, d, peer)
			return nil
		})
	}
	g.Wait()
	return nil
}

// serveChild runs the per-connection state machine from spec.md §4.5:
// Reading -> Dispatching -> Writing, looping while keep-alive holds and
// Max hasn't been reached. Each connection is tagged with a short
// correlation ID so its log lines can be told apart from concurrent
// siblings sharing the same peer address (e.g. behind a NAT/proxy).
func (s *Server) serveChild(ctx context.Context, d descriptor.Descriptor, peer string) {
	defer d.Close()
	if s.Metrics != nil {
		s.Metrics.Connections.Inc()
		defer s.Metrics.Connections.Dec()
	}
	cid := cos.GenUUID()
	for {
		frame, err := d.Read(ctx)
		if err != nil {
			return // closed, or a fatal read error: Closing state
		}
		reply, herr := s.handler(ctx, d, peer, frame)
		if herr != nil {
			nlog.Warningf("session: %s [%s]: handler error: %v", peer, cid, herr)
			if s.Metrics != nil {
				s.Metrics.FrameErrors.Inc()
			}
		} else if reply != nil {
			if s.Metrics != nil {
				s.Metrics.FramesServed.Inc()
			}
			werr := reply.Drain(func(b []byte) error { return d.Write(ctx, b) })
			if werr != nil {
				nlog.Warningf("session: %s [%s]: write: %v", peer, cid, werr)
				return
			}
		}
		if cc, ok := d.(connControl); ok {
			if !cc.KeepAliveEnabled() || cc.MaxReached() {
				return
			}
		} else {
			return // non-keep-alive transports serve exactly one exchange
		}
	}
}

// Stop is idempotent (spec.md §8 "Session: stop() is idempotent"): it
// flips the running flag, closes the acceptor to unblock Accept(), waits
// for in-flight children to finish their current exchange, and runs the
// registered stop hooks exactly once.
func (s *Server) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return // not started, or already stopped: no-op
	}
	s.acceptor.Close()
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.mu.Lock()
	hooks := s.onStop
	s.onStop = nil
	s.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

func invalidMaxSocket(n int) error {
	return xerr.New(xerr.CodeUsage, "session: max_socket must be positive, got %d", n)
}
