package ble

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paypal/gatt"
	"github.com/paypal/gatt/examples/option"
	"go.uber.org/zap"

	"github.com/muurk/blescan/internal/discovery"
	"github.com/muurk/blescan/internal/logging"
	"github.com/muurk/blescan/internal/permission"
)

// SourceBLE tags events produced by the adapter
const SourceBLE = "ble"

// ErrUnsupported is reported when the host has no usable Bluetooth LE
// controller.
var ErrUnsupported = errors.New("bluetooth LE is not supported on this host")

// radio is the part of gatt.Device the adapter drives
type radio interface {
	Scan(ss []gatt.UUID, dup bool)
	StopScanning()
}

// Adapter wraps one Bluetooth LE controller. It is both the permission gate
// (the controller's authorization state) and the discovery stream
// (advertisement scanning) of a scan pipeline.
type Adapter struct {
	radio radio

	// Duplicates asks the controller to report every advertisement instead
	// of one per peripheral. Set before the first Activate.
	Duplicates bool

	mu      sync.Mutex
	state   gatt.State
	waiters map[chan permission.Decision]struct{}

	feed discovery.Feed
}

// Open opens the default Bluetooth controller.
func Open() (*Adapter, error) {
	d, err := gatt.NewDevice(option.DefaultClientOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to open bluetooth device: %w", err)
	}

	a := newAdapter(d)
	d.Handle(gatt.PeripheralDiscovered(a.onDiscovered))

	if err := d.Init(a.onStateChanged); err != nil {
		return nil, fmt.Errorf("failed to initialize bluetooth device: %w", err)
	}

	logging.Debug("Bluetooth device opened")
	return a, nil
}

func newAdapter(r radio) *Adapter {
	return &Adapter{
		radio:   r,
		state:   gatt.StateUnknown,
		waiters: make(map[chan permission.Decision]struct{}),
	}
}

// State returns the last reported controller state.
func (a *Adapter) State() gatt.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Request implements permission.Gate. It resolves as soon as the controller
// reports a decisive state: unauthorized denies, unsupported fails, powered
// on or off grants. Authorization does not depend on radio power; a scan
// started while powered off fails on its own.
func (a *Adapter) Request(ctx context.Context) (<-chan permission.Decision, error) {
	a.mu.Lock()
	if d, ok := decide(a.state); ok {
		a.mu.Unlock()
		return permission.Resolved(d), nil
	}
	w := make(chan permission.Decision, 1)
	a.waiters[w] = struct{}{}
	a.mu.Unlock()

	logging.Debug("Waiting for bluetooth controller state")

	out := make(chan permission.Decision, 1)
	go func() {
		defer close(out)
		select {
		case d := <-w:
			out <- d
		case <-ctx.Done():
			a.mu.Lock()
			delete(a.waiters, w)
			a.mu.Unlock()
		}
	}()

	return out, nil
}

// Activate implements discovery.Stream.
func (a *Adapter) Activate() (<-chan discovery.Result, error) {
	sess, err := a.feed.Begin(func(*discovery.Session) error {
		a.mu.Lock()
		defer a.mu.Unlock()

		if a.state != gatt.StatePoweredOn {
			return discovery.Failure(stateFailure(a.state), nil)
		}
		a.radio.Scan([]gatt.UUID{}, a.Duplicates)
		logging.Info("Bluetooth scan started", zap.Bool("duplicates", a.Duplicates))
		return nil
	}, func() {
		a.radio.StopScanning()
		logging.Info("Bluetooth scan stopped")
	})
	if err != nil {
		return nil, err
	}

	return sess.Results(), nil
}

// Deactivate implements discovery.Stream.
func (a *Adapter) Deactivate() {
	a.feed.End()
}

// Close stops any running scan.
func (a *Adapter) Close() error {
	a.feed.End()
	return nil
}

func (a *Adapter) onStateChanged(_ gatt.Device, s gatt.State) {
	a.setState(s)
}

func (a *Adapter) setState(s gatt.State) {
	a.mu.Lock()
	prev := a.state
	a.state = s

	if d, ok := decide(s); ok {
		for w := range a.waiters {
			w <- d
			delete(a.waiters, w)
		}
	}
	a.mu.Unlock()

	logging.Debug("Bluetooth state changed",
		zap.String("from", prev.String()),
		zap.String("to", s.String()),
	)

	if s != gatt.StatePoweredOn {
		if sess := a.feed.Current(); sess != nil {
			// Fail blocks until the consumer takes the result; the
			// controller's event loop must keep running meanwhile.
			go sess.Fail(discovery.Failure(stateFailure(s), nil))
		}
	}
}

func (a *Adapter) onDiscovered(p gatt.Peripheral, adv *gatt.Advertisement, rssi int) {
	a.handleAdvertisement(p.ID(), p.Name(), adv, rssi)
}

// handleAdvertisement relays one advertisement to the live session. Events
// are emitted synchronously so their order matches the controller's.
func (a *Adapter) handleAdvertisement(id, name string, adv *gatt.Advertisement, rssi int) {
	sess := a.feed.Current()
	if sess == nil {
		return
	}
	sess.Emit(advertisementEvent(id, name, adv, rssi))
}

func advertisementEvent(id, name string, adv *gatt.Advertisement, rssi int) discovery.Event {
	ev := discovery.Event{
		Identity: id,
		Name:     name,
		RSSI:     rssi,
		Source:   SourceBLE,
		SeenAt:   time.Now(),
	}
	if adv == nil {
		return ev
	}

	if adv.LocalName != "" {
		ev.Name = adv.LocalName
	}
	for _, u := range adv.Services {
		ev.Services = append(ev.Services, formatUUID(u))
	}
	return ev
}

// formatUUID renders 128-bit UUIDs in the canonical dashed form; short
// assigned numbers stay as hex.
func formatUUID(u gatt.UUID) string {
	s := u.String()
	if parsed, err := uuid.Parse(s); err == nil {
		return parsed.String()
	}
	return s
}

func decide(s gatt.State) (permission.Decision, bool) {
	switch s {
	case gatt.StateUnauthorized:
		return permission.Denied(), true
	case gatt.StateUnsupported:
		return permission.Failed(ErrUnsupported), true
	case gatt.StatePoweredOn, gatt.StatePoweredOff:
		return permission.Granted(), true
	default:
		return permission.Decision{}, false
	}
}

func stateFailure(s gatt.State) string {
	switch s {
	case gatt.StatePoweredOff:
		return "radio off"
	case gatt.StateUnauthorized:
		return "bluetooth access revoked"
	case gatt.StateUnsupported:
		return ErrUnsupported.Error()
	default:
		return fmt.Sprintf("radio unavailable (%s)", s)
	}
}
