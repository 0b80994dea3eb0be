package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/blescan/internal/discovery"
	"github.com/muurk/blescan/internal/logging"
	"github.com/muurk/blescan/internal/permission"
)

// Pipeline gates a discovery stream behind a permission gate and relays its
// events as de-duplicated records.
//
// All state lives under mu. Every asynchronous callback carries the
// generation it was started under and is dropped when the generation or
// phase no longer matches.
type Pipeline struct {
	gate   permission.Gate
	stream discovery.Stream
	opts   options

	mu      sync.Mutex
	phase   Phase
	reason  error
	message string
	gen     uint64
	seen    map[string]struct{}
	records []Record

	cancelPermission context.CancelFunc
	cancelRelay      context.CancelFunc
	streamLive       bool

	statusSubs map[*StatusSubscription]struct{}
	recordSubs map[*RecordSubscription]struct{}
}

// New creates an idle pipeline.
func New(gate permission.Gate, stream discovery.Stream, opts ...Option) *Pipeline {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Pipeline{
		gate:       gate,
		stream:     stream,
		opts:       o,
		phase:      Idle,
		statusSubs: make(map[*StatusSubscription]struct{}),
		recordSubs: make(map[*RecordSubscription]struct{}),
	}
}

// Start begins a fresh activation: records and the seen-set are reset, the
// status becomes AwaitingPermission and the gate is asked. It returns without
// waiting for the decision. Start is a no-op while an activation is running.
func (p *Pipeline) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.phase.Active() {
		return
	}

	p.gen++
	gen := p.gen
	p.seen = make(map[string]struct{})
	p.records = nil
	p.publishChangeLocked(Change{Kind: RecordsCleared, Generation: gen})
	p.setPhaseLocked(AwaitingPermission, nil, MessageRequesting)

	ctx, cancel := context.WithCancel(context.Background())
	p.cancelPermission = cancel

	decisions, err := p.gate.Request(ctx)
	if err != nil {
		p.failLocked(permission.RequestFailed(err))
		return
	}

	go p.awaitPermission(ctx, gen, decisions)
}

// Stop tears down the current activation. The stream is deactivated if it
// is live, a pending permission request is released, and any callback still
// in flight is dropped. Records are kept until the next Start.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.phase == Stopped {
		return
	}

	p.gen++
	p.teardownLocked()
	p.seen = nil
	p.setPhaseLocked(Stopped, nil, "")
}

// Status returns the current status.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.statusLocked()
}

// Records returns a copy of the accumulated records in first-seen order.
func (p *Pipeline) Records() []Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Record, len(p.records))
	copy(out, p.records)
	return out
}

func (p *Pipeline) awaitPermission(ctx context.Context, gen uint64, decisions <-chan permission.Decision) {
	var d permission.Decision
	select {
	case v, ok := <-decisions:
		if !ok {
			if ctx.Err() != nil {
				return
			}
			v = permission.Failed(errors.New("gate closed without a decision"))
		}
		d = v
	case <-ctx.Done():
		return
	}

	if violation := p.resolvePermission(gen, d); violation != nil {
		p.opts.onViolation(violation)
	}
}

// resolvePermission applies a gate decision. A returned error is a contract
// violation to report after the lock is released.
func (p *Pipeline) resolvePermission(gen uint64, d permission.Decision) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.gen || p.phase != AwaitingPermission {
		logging.LogDropped("stale permission decision",
			zap.Uint64("generation", gen),
			zap.Bool("granted", d.Granted),
		)
		return nil
	}

	p.releasePermissionLocked()

	switch {
	case d.Err != nil:
		p.failLocked(permission.RequestFailed(d.Err))
		return nil
	case !d.Granted:
		p.failLocked(ErrPermissionDenied)
		return nil
	}

	p.setPhaseLocked(Scanning, nil, MessageScanning)

	events, err := p.stream.Activate()
	if err != nil {
		if errors.Is(err, discovery.ErrAlreadyActive) {
			logging.Error("Discovery stream activated twice", zap.Uint64("generation", gen))
			p.gen++
			p.setPhaseLocked(Stopped, nil, "")
			return err
		}
		p.failLocked(discovery.AsFailure(err))
		return nil
	}
	p.streamLive = true

	ctx, cancel := context.WithCancel(context.Background())
	p.cancelRelay = cancel
	go p.relay(ctx, gen, events)
	return nil
}

func (p *Pipeline) relay(ctx context.Context, gen uint64, events <-chan discovery.Result) {
	for {
		select {
		case r, ok := <-events:
			if !ok {
				p.streamEnded(gen)
				return
			}
			if !p.apply(gen, r) {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// apply runs the relay step for one result. It reports whether the relay
// should keep reading.
func (p *Pipeline) apply(gen uint64, r discovery.Result) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.gen || p.phase != Scanning {
		logging.LogDropped("stale discovery event",
			zap.Uint64("generation", gen),
			zap.String("identity", r.Event.Identity),
		)
		return false
	}

	if r.Err != nil {
		p.failLocked(discovery.AsFailure(r.Err))
		return false
	}

	ev := r.Event
	if ev.Identity == "" {
		logging.LogDropped("event without identity", zap.String("source", ev.Source))
		return true
	}
	if _, dup := p.seen[ev.Identity]; dup {
		return true
	}
	p.seen[ev.Identity] = struct{}{}

	rec := p.newRecord(ev)
	p.records = append(p.records, rec)
	p.message = ""
	logging.LogDevice(rec.Identity, rec.Label, rec.RSSI)

	p.publishChangeLocked(Change{Kind: RecordAdded, Record: rec, Generation: gen})
	p.publishStatusLocked()
	return true
}

func (p *Pipeline) streamEnded(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.gen || p.phase != Scanning {
		return
	}
	p.failLocked(discovery.Failure("discovery stream ended", nil))
}

func (p *Pipeline) failLocked(reason error) {
	p.teardownLocked()

	if p.opts.clearOnFailure && len(p.records) > 0 {
		p.records = nil
		p.publishChangeLocked(Change{Kind: RecordsCleared, Generation: p.gen})
	}

	fields := []zap.Field{zap.Error(reason)}
	var fe *discovery.FailedError
	if errors.As(reason, &fe) {
		fields = append(fields, zap.String("detail", fe.Detail()))
	}
	logging.Warn("Scan failed", fields...)

	p.setPhaseLocked(Failed, reason, fmt.Sprintf(messageErrorFmt, reason.Error()))
}

// teardownLocked releases the gate subscription and the stream.
func (p *Pipeline) teardownLocked() {
	p.releasePermissionLocked()

	if p.cancelRelay != nil {
		p.cancelRelay()
		p.cancelRelay = nil
	}
	if p.streamLive {
		p.streamLive = false
		p.stream.Deactivate()
	}
}

func (p *Pipeline) releasePermissionLocked() {
	if p.cancelPermission != nil {
		p.cancelPermission()
		p.cancelPermission = nil
	}
}

func (p *Pipeline) setPhaseLocked(phase Phase, reason error, message string) {
	from := p.phase
	p.phase = phase
	p.reason = reason
	p.message = message

	logging.LogTransition(from.String(), phase.String(),
		zap.Uint64("generation", p.gen),
		zap.String("message", message),
	)
	p.publishStatusLocked()
}

func (p *Pipeline) statusLocked() Status {
	return Status{
		Phase:      p.phase,
		Reason:     p.reason,
		Message:    p.message,
		Records:    len(p.records),
		Generation: p.gen,
	}
}
