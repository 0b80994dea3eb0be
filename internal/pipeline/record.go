package pipeline

import (
	"time"

	"github.com/muurk/blescan/internal/discovery"
)

// DefaultPlaceholder labels devices that advertise no name.
const DefaultPlaceholder = "Unknown Device"

// DefaultHighlightService is the service UUID advertised by companion devices.
const DefaultHighlightService = "81a936be-a052-4ef1-9c3c-073c0b63438d"

// Record is the de-duplicated display projection of a discovery event.
// Every field is taken from the first sighting of the identity.
type Record struct {
	Identity    string
	Label       string
	Address     string
	RSSI        int
	Source      string
	Highlighted bool
	FirstSeen   time.Time
}

// ChangeKind distinguishes record changes.
type ChangeKind int

const (
	// RecordAdded appends Change.Record to the output
	RecordAdded ChangeKind = iota

	// RecordsCleared empties the output
	RecordsCleared
)

// String returns the change kind name
func (k ChangeKind) String() string {
	if k == RecordsCleared {
		return "cleared"
	}
	return "added"
}

// Change is one step of the record output sequence.
type Change struct {
	Kind       ChangeKind
	Record     Record
	Generation uint64
}

func (p *Pipeline) newRecord(ev discovery.Event) Record {
	label := ev.Name
	if label == "" {
		label = p.opts.placeholder
	}

	seen := ev.SeenAt
	if seen.IsZero() {
		seen = p.opts.now()
	}

	return Record{
		Identity:    ev.Identity,
		Label:       label,
		Address:     ev.Address,
		RSSI:        ev.RSSI,
		Source:      ev.Source,
		Highlighted: p.opts.highlightService != "" && ev.HasService(p.opts.highlightService),
		FirstSeen:   seen,
	}
}
