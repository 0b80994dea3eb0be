package discovery

import (
	"fmt"
	"strings"
	"time"
)

// Event is a raw discovery notification from a radio backend.
type Event struct {
	// Identity is the stable address-like token of the device
	// (e.g., "C4:7C:8D:6A:12:01" for BLE, "printer._ipp._tcp.local." for mDNS)
	Identity string

	// Name is the advertised human-readable name, empty when not advertised
	Name string

	// Address is the network address when the backend knows one
	// (mDNS "ip:port"; empty for BLE)
	Address string

	// RSSI is the received signal strength in dBm (0 when the backend has none)
	RSSI int

	// Services lists advertised service identifiers (UUID strings for BLE,
	// service types for mDNS)
	Services []string

	// Source names the backend that produced the event ("ble", "mdns")
	Source string

	// SeenAt is when the backend received the advertisement
	SeenAt time.Time
}

// String returns a human-readable representation of the event
func (e Event) String() string {
	name := e.Name
	if name == "" {
		name = "<unnamed>"
	}
	return fmt.Sprintf("%s %s (%s, %d dBm)", e.Source, e.Identity, name, e.RSSI)
}

// HasService reports whether the event advertises the given service.
func (e Event) HasService(service string) bool {
	for _, s := range e.Services {
		if strings.EqualFold(s, service) {
			return true
		}
	}
	return false
}

// Result is one item delivered on an activation's channel: either an Event or
// the terminal failure of the activation.
type Result struct {
	Event Event
	Err   error
}

// Failed reports whether the result terminates the activation.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Stream produces discovery events while activated.
//
// Activate returns a channel that delivers events in order. A Result carrying
// Err is the last item of an activation; the channel is closed once the
// activation has ended. Activate fails with ErrAlreadyActive while a previous
// activation is live, and may fail with a *FailedError when the hardware
// cannot start at all.
//
// Deactivate stops production and releases the hardware. It is idempotent,
// safe to call without a prior Activate, and never waits on the consumer.
type Stream interface {
	Activate() (<-chan Result, error)
	Deactivate()
}
