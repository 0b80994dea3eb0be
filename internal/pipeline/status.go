package pipeline

import (
	"errors"
	"fmt"
)

// ErrPermissionDenied is the failure reason when the gate refuses the scan.
var ErrPermissionDenied = errors.New("permission denied")

// Phase is the pipeline's position in its state machine.
type Phase int

const (
	// Idle is the state of a pipeline that has never been started
	Idle Phase = iota

	// AwaitingPermission waits for the permission gate to resolve
	AwaitingPermission

	// Scanning relays discovery events
	Scanning

	// Failed is terminal until the next Start; Status.Reason says why
	Failed

	// Stopped is terminal until the next Start
	Stopped
)

// String returns the phase name
func (p Phase) String() string {
	switch p {
	case Idle:
		return "Idle"
	case AwaitingPermission:
		return "AwaitingPermission"
	case Scanning:
		return "Scanning"
	case Failed:
		return "Failed"
	case Stopped:
		return "Stopped"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Active reports whether the phase belongs to a running activation.
func (p Phase) Active() bool {
	return p == AwaitingPermission || p == Scanning
}

// Status messages shown by hosts
const (
	MessageRequesting = "Requesting permissions..."
	MessageScanning   = "Scanning for devices..."
	messageErrorFmt   = "Error: %s"
)

// Status is a snapshot of the pipeline's observable state.
type Status struct {
	Phase Phase

	// Reason is set when Phase is Failed. It matches ErrPermissionDenied,
	// permission.ErrRequestFailed or discovery.ErrDiscoveryFailed.
	Reason error

	// Message is the status line for display. It becomes empty once the
	// first record of a scan appears.
	Message string

	// Records is the number of records accumulated so far
	Records int

	// Generation identifies the activation this status belongs to
	Generation uint64
}

// ReasonText returns the failure reason for display, or "".
func (s Status) ReasonText() string {
	if s.Reason == nil {
		return ""
	}
	return s.Reason.Error()
}

// String returns a compact representation for logs and tests
func (s Status) String() string {
	if s.Phase == Failed {
		return fmt.Sprintf("%s(%s)", s.Phase, s.ReasonText())
	}
	return s.Phase.String()
}
