package permission

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/blescan/internal/logging"
)

type staticGate struct {
	granted bool
}

// Static returns a gate that always resolves immediately with granted.
func Static(granted bool) Gate {
	return staticGate{granted: granted}
}

func (g staticGate) Request(ctx context.Context) (<-chan Decision, error) {
	if g.granted {
		return Resolved(Granted()), nil
	}
	return Resolved(Denied()), nil
}

// DecideFunc makes a blocking permission decision, typically by prompting
// the user. It should return promptly once ctx is cancelled.
type DecideFunc func(ctx context.Context) (bool, error)

// FuncGate runs a DecideFunc on its own goroutine.
type FuncGate struct {
	decide DecideFunc
	mu     sync.Mutex
}

// Func returns a gate backed by decide. Successive requests are serialized,
// so two prompts never overlap even if a caller breaks the one-outstanding
// rule.
func Func(decide DecideFunc) *FuncGate {
	return &FuncGate{decide: decide}
}

// Request implements Gate.
func (g *FuncGate) Request(ctx context.Context) (<-chan Decision, error) {
	ch := make(chan Decision, 1)

	go func() {
		defer close(ch)

		g.mu.Lock()
		defer g.mu.Unlock()

		if ctx.Err() != nil {
			return
		}

		granted, err := g.decide(ctx)
		if ctx.Err() != nil {
			logging.LogDropped("permission decision after cancellation", zap.Bool("granted", granted))
			return
		}
		if err != nil {
			ch <- Failed(err)
			return
		}
		ch <- Decision{Granted: granted}
	}()

	return ch, nil
}

type allGate []Gate

// All returns a gate that asks each gate in order. The first denial or
// failure decides; when every gate grants, so does All. An empty All grants.
func All(gates ...Gate) Gate {
	return allGate(gates)
}

func (a allGate) Request(ctx context.Context) (<-chan Decision, error) {
	ch := make(chan Decision, 1)

	go func() {
		defer close(ch)
		for _, g := range a {
			d, err := Await(ctx, g)
			if err != nil {
				return
			}
			if d.Err != nil || !d.Granted {
				ch <- d
				return
			}
		}
		ch <- Granted()
	}()

	return ch, nil
}

// Store persists a granted permission between runs.
type Store interface {
	PermissionGranted() bool
	RememberPermission(at time.Time) error
}

type rememberedGate struct {
	inner Gate
	store Store
}

// Remembered wraps inner so that a grant is saved to store. Once a grant has
// been remembered, requests resolve immediately without consulting inner.
// Denials are never remembered.
func Remembered(inner Gate, store Store) Gate {
	return &rememberedGate{inner: inner, store: store}
}

func (g *rememberedGate) Request(ctx context.Context) (<-chan Decision, error) {
	if g.store.PermissionGranted() {
		logging.Debug("Using remembered permission grant")
		return Resolved(Granted()), nil
	}

	ch := make(chan Decision, 1)

	go func() {
		defer close(ch)
		d, err := Await(ctx, g.inner)
		if err != nil {
			return
		}
		if d.Granted && d.Err == nil {
			if err := g.store.RememberPermission(time.Now()); err != nil {
				logging.Warn("Failed to remember permission grant", zap.Error(err))
			}
		}
		ch <- d
	}()

	return ch, nil
}
