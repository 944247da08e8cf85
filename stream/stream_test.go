package stream

import (
	"bytes"
	"testing"
)

func TestDrainConcatenates(t *testing.T) {
	s := New().AppendString("hello, ").AppendString("world")
	got, err := s.Collect()
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello, world" {
		t.Fatalf("got %q", got)
	}
}

func TestAgainKeepsRuleAtHead(t *testing.T) {
	pulls := 0
	s := New().AppendFunc(func() ([]byte, bool, error) {
		pulls++
		if pulls < 3 {
			return []byte{byte('a' + pulls - 1)}, true, nil
		}
		return []byte{byte('a' + pulls - 1)}, false, nil
	})
	got, err := s.Collect()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("abc")) {
		t.Fatalf("got %q, want abc", got)
	}
	if pulls != 3 {
		t.Fatalf("expected 3 pulls, got %d", pulls)
	}
}

func TestAppendStreamChainsTeardown(t *testing.T) {
	var order []int
	a := New().AppendString("a").OnClose(func() { order = append(order, 1) })
	b := New().AppendString("b").OnClose(func() { order = append(order, 2) })
	a.AppendStream(b)
	if _, err := a.Collect(); err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("teardown order wrong: %v", order)
	}
}

func TestDrainErrorStopsAndRunsTeardown(t *testing.T) {
	ranTeardown := false
	boom := errBoom{}
	s := New().
		AppendString("a").
		AppendFunc(func() ([]byte, bool, error) { return nil, false, boom }).
		AppendString("never reached").
		OnClose(func() { ranTeardown = true })
	_, err := s.Collect()
	if err != boom {
		t.Fatalf("expected boom error, got %v", err)
	}
	if !ranTeardown {
		t.Fatal("expected teardown to run even on error")
	}
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }
