// Package stream implements C2, the Stream abstraction (spec.md §3, §4.2):
// a lazy, ordered, single-consumer, forward-only, non-restartable
// sequence of byte-chunk producers ("rules"): a pull-based reader that
// reports "done"/"last" after each read instead of returning everything
// at once, generalized from one fixed buffer to an arbitrary chain of
// producers.
/*
 * Copyright (c) 2024, delameta. All rights reserved.
 */
package stream

import (
	"github.com/aufam/delameta-go/cmn/debug"
)

// Rule is a single producer: pulled once per call, it yields one byte
// chunk and an "again" flag meaning "call me again before advancing to
// the next rule" (spec.md §3 "Stream").
type Rule func() (chunk []byte, again bool, err error)

// Stream is an ordered sequence of Rules plus an optional chain of
// teardown callbacks run once, at end of life (spec.md §3).
type Stream struct {
	rules     []Rule
	teardowns []func()
	drained   bool
}

// New returns an empty Stream.
func New() *Stream { return &Stream{} }

// FromBytes returns a Stream that yields b in a single chunk.
func FromBytes(b []byte) *Stream {
	s := New()
	s.AppendBytes(b)
	return s
}

// FromString returns a Stream that yields s in a single chunk.
func FromString(s string) *Stream { return FromBytes([]byte(s)) }

// AppendBytes appends a rule that captures b by value (spec.md §4.2:
// "Streams carrying strings/vectors capture them by value into the
// producer closure so the Stream is self-contained") and yields it once.
func (s *Stream) AppendBytes(b []byte) *Stream {
	cp := make([]byte, len(b))
	copy(cp, b)
	done := false
	s.rules = append(s.rules, func() ([]byte, bool, error) {
		if done {
			return nil, false, nil
		}
		done = true
		return cp, false, nil
	})
	return s
}

// AppendString is a convenience over AppendBytes.
func (s *Stream) AppendString(str string) *Stream { return s.AppendBytes([]byte(str)) }

// AppendFunc appends an arbitrary producer closure.
func (s *Stream) AppendFunc(rule Rule) *Stream {
	s.rules = append(s.rules, rule)
	return s
}

// AppendStream splices other's rules onto the end of s and chains its
// teardown callbacks (spec.md §4.2: "transfers ownership of rules and
// teardown callbacks"). other must not be used after this call.
func (s *Stream) AppendStream(other *Stream) *Stream {
	if other == nil {
		return s
	}
	s.rules = append(s.rules, other.rules...)
	s.teardowns = append(s.teardowns, other.teardowns...)
	other.rules = nil
	other.teardowns = nil
	return s
}

// OnClose registers a teardown callback run once, after the Stream is
// fully drained (or dropped via Close).
func (s *Stream) OnClose(fn func()) *Stream {
	s.teardowns = append(s.teardowns, fn)
	return s
}

// Empty reports whether the Stream has no more rules to pull.
func (s *Stream) Empty() bool { return len(s.rules) == 0 }

// Drain pulls the head rule repeatedly until it reports again=false
// (spec.md §4.2 "drain pulls the head producer; if it sets again=true,
// the producer stays at the head for the next pull; otherwise it is
// popped"), feeding every non-empty chunk to sink, until all rules are
// exhausted or sink/a rule returns an error. Teardown callbacks run
// exactly once, whether Drain succeeds, errors, or the Stream was empty.
func (s *Stream) Drain(sink func([]byte) error) (err error) {
	debug.Assert(!s.drained, "stream drained twice")
	defer func() {
		s.drained = true
		s.runTeardowns()
	}()
	for len(s.rules) > 0 {
		rule := s.rules[0]
		chunk, again, rerr := rule()
		if rerr != nil {
			return rerr
		}
		if len(chunk) > 0 {
			if serr := sink(chunk); serr != nil {
				return serr
			}
		}
		if !again {
			s.rules = s.rules[1:]
		}
	}
	return nil
}

// Collect materializes the entire Stream into one byte slice. Used by
// callers (e.g. the HTTP codec's Request.Text) that need the
// full body rather than a streamed hand-off.
func (s *Stream) Collect() ([]byte, error) {
	var out []byte
	err := s.Drain(func(b []byte) error {
		out = append(out, b...)
		return nil
	})
	return out, err
}

// Close runs teardown callbacks without draining remaining rules; used
// when a Stream is abandoned early (e.g. a handler error short-circuits
// a response body stream already under construction).
func (s *Stream) Close() {
	if s.drained {
		return
	}
	s.drained = true
	s.rules = nil
	s.runTeardowns()
}

func (s *Stream) runTeardowns() {
	for _, fn := range s.teardowns {
		fn()
	}
	s.teardowns = nil
}
