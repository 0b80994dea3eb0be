package history

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/blescan/internal/logging"
	"github.com/muurk/blescan/internal/pipeline"
)

// DeviceSink receives every new device a scan finds. config.Registry
// implements it.
type DeviceSink interface {
	RecordSighting(identity, label, source, address string, rssi int, at time.Time)
}

// Recorder follows a pipeline and persists what it sees: one history session
// per activation, and each new record to the device sink. Either target may
// be nil.
type Recorder struct {
	store   *Store
	devices DeviceSink
	backend string

	sessions map[uint64]string
	open     map[uint64]bool
}

// NewRecorder creates a recorder for scans made with backend.
func NewRecorder(store *Store, devices DeviceSink, backend string) *Recorder {
	return &Recorder{
		store:    store,
		devices:  devices,
		backend:  backend,
		sessions: make(map[uint64]string),
		open:     make(map[uint64]bool),
	}
}

// Run records until ctx is cancelled. Sessions still open at that point are
// finished as stopped.
func (r *Recorder) Run(ctx context.Context, p *pipeline.Pipeline) {
	r.follow(ctx, p.SubscribeStatus(), p.SubscribeRecords())
}

// Go subscribes to p before returning and records on a new goroutine until
// ctx is cancelled. The returned channel is closed once recording is done.
func (r *Recorder) Go(ctx context.Context, p *pipeline.Pipeline) <-chan struct{} {
	status := p.SubscribeStatus()
	changes := p.SubscribeRecords()

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.follow(ctx, status, changes)
	}()
	return done
}

func (r *Recorder) follow(ctx context.Context, status *pipeline.StatusSubscription, changes *pipeline.RecordSubscription) {
	defer status.Close()
	defer changes.Close()
	defer r.finishAll(context.WithoutCancel(ctx))

	for {
		select {
		case <-ctx.Done():
			r.drain(context.WithoutCancel(ctx), changes)
			return
		case st, ok := <-status.C():
			if !ok {
				return
			}
			r.handleStatus(ctx, st)
		case c, ok := <-changes.C():
			if !ok {
				return
			}
			r.handleChange(ctx, c)
		}
	}
}

// drainWindow is how long drain waits for a queued change before giving up
const drainWindow = 100 * time.Millisecond

// drain records changes still queued when the recorder is cancelled, so a
// scan stopped right after a sighting keeps it.
func (r *Recorder) drain(ctx context.Context, changes *pipeline.RecordSubscription) {
	timer := time.NewTimer(drainWindow)
	defer timer.Stop()
	for {
		select {
		case c, ok := <-changes.C():
			if !ok {
				return
			}
			r.handleChange(ctx, c)
			timer.Reset(drainWindow)
		case <-timer.C:
			return
		}
	}
}

func (r *Recorder) handleStatus(ctx context.Context, st pipeline.Status) {
	if st.Generation == 0 {
		return
	}

	switch st.Phase {
	case pipeline.Stopped:
		// Stop retires the generation it ends, so every session up to this
		// one is over.
		for g := range r.open {
			if g <= st.Generation {
				r.finish(ctx, g, OutcomeStopped, "")
			}
		}
	case pipeline.Failed:
		r.supersede(ctx, st.Generation)
		r.session(ctx, st.Generation)
		r.finish(ctx, st.Generation, OutcomeFailed, st.ReasonText())
	default:
		r.supersede(ctx, st.Generation)
		r.session(ctx, st.Generation)
	}
}

func (r *Recorder) handleChange(ctx context.Context, c pipeline.Change) {
	if c.Kind != pipeline.RecordAdded {
		return
	}
	rec := c.Record

	if r.devices != nil {
		r.devices.RecordSighting(rec.Identity, rec.Label, rec.Source, rec.Address, rec.RSSI, rec.FirstSeen)
	}

	id := r.session(ctx, c.Generation)
	if id == "" {
		return
	}
	err := r.store.RecordSighting(ctx, id, Sighting{
		Identity:    rec.Identity,
		Label:       rec.Label,
		Address:     rec.Address,
		RSSI:        rec.RSSI,
		Source:      rec.Source,
		Highlighted: rec.Highlighted,
		SeenAt:      rec.FirstSeen,
	})
	if err != nil {
		logging.Warn("Failed to record sighting", zap.String("session", id), zap.Error(err))
	}
}

// session returns the session for gen, beginning it on first use.
func (r *Recorder) session(ctx context.Context, gen uint64) string {
	if r.store == nil {
		return ""
	}
	if id, ok := r.sessions[gen]; ok {
		return id
	}

	id, err := r.store.BeginSession(ctx, r.backend, time.Now())
	if err != nil {
		logging.Warn("Failed to begin history session", zap.Error(err))
		r.sessions[gen] = ""
		return ""
	}
	logging.Debug("History session started", zap.String("session", id), zap.Uint64("generation", gen))
	r.sessions[gen] = id
	r.open[gen] = true
	return id
}

func (r *Recorder) finish(ctx context.Context, gen uint64, outcome, reason string) {
	if !r.open[gen] {
		return
	}
	delete(r.open, gen)

	id := r.sessions[gen]
	if err := r.store.FinishSession(ctx, id, outcome, reason, time.Now()); err != nil {
		logging.Warn("Failed to finish history session", zap.String("session", id), zap.Error(err))
	}
}

// supersede finishes sessions of older generations whose terminal status
// was conflated away.
func (r *Recorder) supersede(ctx context.Context, gen uint64) {
	for g := range r.open {
		if g < gen {
			r.finish(ctx, g, OutcomeStopped, "superseded")
		}
	}
}

func (r *Recorder) finishAll(ctx context.Context) {
	for g := range r.open {
		r.finish(ctx, g, OutcomeStopped, "")
	}
}
