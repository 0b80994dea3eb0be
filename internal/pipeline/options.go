package pipeline

import (
	"fmt"
	"time"
)

type options struct {
	placeholder      string
	clearOnFailure   bool
	highlightService string
	onViolation      func(error)
	now              func() time.Time
}

func defaultOptions() options {
	return options{
		placeholder:      DefaultPlaceholder,
		clearOnFailure:   true,
		highlightService: DefaultHighlightService,
		onViolation: func(err error) {
			panic(fmt.Sprintf("scan pipeline contract violation: %v", err))
		},
		now: time.Now,
	}
}

// Option configures a Pipeline.
type Option func(*options)

// WithPlaceholder sets the label used for devices without a name.
// An empty label keeps the default.
func WithPlaceholder(label string) Option {
	return func(o *options) {
		if label != "" {
			o.placeholder = label
		}
	}
}

// WithClearOnFailure controls whether accumulated records are cleared when a
// scan fails. The default is true.
func WithClearOnFailure(enabled bool) Option {
	return func(o *options) {
		o.clearOnFailure = enabled
	}
}

// WithHighlightService sets the service UUID that marks a record as
// highlighted. An empty UUID disables highlighting.
func WithHighlightService(uuid string) Option {
	return func(o *options) {
		o.highlightService = uuid
	}
}

// WithViolationHandler replaces the default panic on contract violations
// such as discovery.ErrAlreadyActive.
func WithViolationHandler(fn func(error)) Option {
	return func(o *options) {
		if fn != nil {
			o.onViolation = fn
		}
	}
}

// WithClock sets the time source for records whose event has no timestamp.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
