package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/muurk/blescan/internal/discovery"
	"github.com/muurk/blescan/internal/permission"
)

// manualGate hands out a channel the test resolves by hand.
type manualGate struct {
	mu       sync.Mutex
	requests int
	syncErr  error
	pending  chan permission.Decision
}

func newManualGate() *manualGate {
	return &manualGate{}
}

func (g *manualGate) Request(ctx context.Context) (<-chan permission.Decision, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests++
	if g.syncErr != nil {
		return nil, g.syncErr
	}
	g.pending = make(chan permission.Decision, 1)
	return g.pending, nil
}

func (g *manualGate) resolve(d permission.Decision) {
	g.mu.Lock()
	ch := g.pending
	g.mu.Unlock()
	ch <- d
}

func (g *manualGate) requestCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests
}

// fakeStream hands out a buffered channel per activation and counts calls.
// Deactivate does not drain or close the channel, so buffered events stay
// in flight after teardown.
type fakeStream struct {
	mu            sync.Mutex
	activations   int
	deactivations int
	activateErr   error
	ch            chan discovery.Result
}

func (s *fakeStream) Activate() (<-chan discovery.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activations++
	if s.activateErr != nil {
		return nil, s.activateErr
	}
	s.ch = make(chan discovery.Result, 256)
	return s.ch, nil
}

func (s *fakeStream) Deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deactivations++
}

func (s *fakeStream) emit(events ...discovery.Event) {
	s.mu.Lock()
	ch := s.ch
	s.mu.Unlock()
	for _, ev := range events {
		ch <- discovery.Result{Event: ev}
	}
}

func (s *fakeStream) fail(reason string) {
	s.mu.Lock()
	ch := s.ch
	s.mu.Unlock()
	ch <- discovery.Result{Err: discovery.Failure(reason, nil)}
}

func (s *fakeStream) closeChannel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	close(s.ch)
}

func (s *fakeStream) counts() (activations, deactivations int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activations, s.deactivations
}

func ev(id, name string) discovery.Event {
	return discovery.Event{Identity: id, Name: name, Source: "test"}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func waitPhase(t *testing.T, p *Pipeline, want Phase) Status {
	t.Helper()
	waitFor(t, "phase "+want.String(), func() bool { return p.Status().Phase == want })
	return p.Status()
}

func waitRecords(t *testing.T, p *Pipeline, n int) []Record {
	t.Helper()
	waitFor(t, "records", func() bool { return len(p.Records()) == n })
	return p.Records()
}

// settle gives stray goroutines a chance to misbehave before assertions
// about things that must not happen.
func settle() {
	time.Sleep(30 * time.Millisecond)
}

func noViolation(t *testing.T) Option {
	return WithViolationHandler(func(err error) {
		t.Errorf("unexpected contract violation: %v", err)
	})
}

// startScanning builds a pipeline with a granting gate and waits for Scanning.
func startScanning(t *testing.T, opts ...Option) (*Pipeline, *fakeStream) {
	t.Helper()
	stream := &fakeStream{}
	p := New(permission.Static(true), stream, append([]Option{noViolation(t)}, opts...)...)
	p.Start()
	waitPhase(t, p, Scanning)
	return p, stream
}
