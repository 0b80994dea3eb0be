// Package discovery defines the discovery stream contract and its shared
// activation machinery.
//
// A Stream is inert until Activate is called. While active it delivers an
// ordered, unbounded sequence of Results on a channel: each Result carries a
// raw Event, or the terminal failure of the activation. Deactivate stops
// production and releases the hardware; it is idempotent and never blocks on
// the consumer.
//
// # Backends
//
//   - MDNSStream browses an mDNS/DNS-SD service type via zeroconf
//   - the ble package provides a Bluetooth LE stream built on the same Feed
//
// # Feed
//
// Feed implements the rules every backend must follow:
//
//	sess, err := feed.Begin(func(s *discovery.Session) error {
//	    return radio.StartScan() // producers call s.Emit / s.Fail
//	}, radio.StopScan)
//	if err != nil {
//	    return nil, err // discovery.ErrAlreadyActive or *discovery.FailedError
//	}
//	return sess.Results(), nil
//
// Only one session is live at a time; a second Begin fails with
// ErrAlreadyActive. After Fail the session is over and a new Activate is
// required to resume.
//
// # Errors
//
//   - ErrAlreadyActive: concurrent activation (programming error)
//   - *FailedError (matches ErrDiscoveryFailed): hardware or transport failure
package discovery
