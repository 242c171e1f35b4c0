// Package testutil provides shared test utilities and fixtures.
//
// This package centralises the helpers used by stage tests to read what a
// pipeline stage forwarded to its output queues.
package testutil

import (
	"testing"
	"time"

	"github.com/banshee-data/livestack/internal/message"
)

// DefaultTimeout bounds how long helpers wait on a blocking Pop.
const DefaultTimeout = 2 * time.Second

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// PopWithin pops one message from q, failing the test if none arrives
// within timeout. On timeout the abandoned Pop keeps waiting, so only use
// this on queues the test owns.
func PopWithin(t testing.TB, q *message.Queue, timeout time.Duration) message.Message {
	t.Helper()
	got := make(chan message.Message, 1)
	go func() { got <- q.Pop() }()
	select {
	case m := <-got:
		return m
	case <-time.After(timeout):
		t.Fatalf("no message within %v", timeout)
		return nil
	}
}

// DrainUntilShutdown pops from q up to and including the first Shutdown and
// returns everything popped.
func DrainUntilShutdown(t testing.TB, q *message.Queue) []message.Message {
	t.Helper()
	var out []message.Message
	for {
		m := PopWithin(t, q, DefaultTimeout)
		out = append(out, m)
		if _, ok := m.(message.Shutdown); ok {
			return out
		}
	}
}

// Describe renders messages as short tokens ("init", "frame:<label>",
// "shutdown") so tests can compare routed sequences. label maps a frame to
// the name the test gave it.
func Describe(msgs []message.Message, label func(message.Frame) string) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		switch v := m.(type) {
		case message.Frame:
			out = append(out, "frame:"+label(v))
		case *message.Control:
			out = append(out, v.Op.String())
		case message.Shutdown:
			out = append(out, "shutdown")
		case *message.Stats:
			out = append(out, "stats")
		case *message.Error:
			out = append(out, "error")
		}
	}
	return out
}

// ReleaseFrames releases every frame message in msgs, as a consumer would.
func ReleaseFrames(msgs []message.Message) {
	for _, m := range msgs {
		if f, ok := m.(message.Frame); ok {
			f.Release()
		}
	}
}
