// Package descriptor implements C3, the Descriptor abstraction (spec.md
// §3, §4.3): a uniform read/read_until/read_as_stream/write surface over
// blocking OS handles — file, serial, TCP, TLS, UDP, stdio. Grounded on
// original_source/core/linux/{file,serial,tcp,udp,tls}.cpp for the
// per-variant semantics, with a non-blocking-poll-with-short-sleep idiom
// shared by every variant (spec.md §4.3, §5).
/*
 * Copyright (c) 2024, delameta. All rights reserved.
 */
package descriptor

import (
	"context"
	"time"

	"github.com/aufam/delameta-go/stream"
)

// PollInterval is the granularity at which blocking reads/writes give
// cooperative cancellation and timeout checks a chance to run, matching
// spec.md §4.3/§5's "non-blocking syscalls with 10ms sleeps".
const PollInterval = 10 * time.Millisecond

// StreamChunkCap bounds how much read_as_stream yields per pulled chunk
// (spec.md §4.3: "chunks of at most an implementation-defined cap").
const StreamChunkCap = 2048

// Descriptor is the capability set every variant exposes (spec.md §4.3).
type Descriptor interface {
	// Read blocks until at least one byte is available or the
	// descriptor's timeout elapses, returning one kernel read's worth of
	// bytes.
	Read(ctx context.Context) ([]byte, error)
	// ReadUntil loops reads into a buffer of exactly n bytes.
	ReadUntil(ctx context.Context, n int) ([]byte, error)
	// ReadAsStream returns a Stream that lazily yields up to n bytes
	// total, in chunks of at most StreamChunkCap.
	ReadAsStream(ctx context.Context, n int) *stream.Stream
	// Write loops until all of b is accepted by the kernel.
	Write(ctx context.Context, b []byte) error
	// Close releases the owned OS handle.
	Close() error
}

// NetOptions are the extra knobs TCP/TLS/UDP descriptors carry beyond
// the four-operation capability set (spec.md §3 "Descriptor").
type NetOptions struct {
	KeepAlive bool
	// Timeout bounds a single Read/ReadUntil call; <=0 means wait
	// forever (spec.md §3: "negative = infinite").
	Timeout time.Duration
	// Max is the number of receives before the connection is force
	// closed; <0 means unlimited.
	Max int
}

// readAsStream is the shared read_as_stream implementation: every
// variant's ReadAsStream delegates here, parameterized by a raw
// chunk-read closure so file/serial/tcp/udp/stdio all share one rule
// chain that demands at most n bytes, in StreamChunkCap-sized pulls
// (spec.md §4.2, §4.3).
func readAsStream(ctx context.Context, n int, readChunk func(context.Context, int) ([]byte, error)) *stream.Stream {
	s := stream.New()
	remaining := n
	s.AppendFunc(func() ([]byte, bool, error) {
		if remaining <= 0 {
			return nil, false, nil
		}
		want := StreamChunkCap
		if remaining < want {
			want = remaining
		}
		b, err := readChunk(ctx, want)
		if err != nil {
			return nil, false, err
		}
		remaining -= len(b)
		return b, remaining > 0, nil
	})
	return s
}
