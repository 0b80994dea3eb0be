package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/blescan/internal/ble"
	"github.com/muurk/blescan/internal/config"
	"github.com/muurk/blescan/internal/discovery"
	"github.com/muurk/blescan/internal/history"
	"github.com/muurk/blescan/internal/logging"
	"github.com/muurk/blescan/internal/permission"
	"github.com/muurk/blescan/internal/pipeline"
	"github.com/muurk/blescan/internal/ui"
)

// Scan flags shared by scan, watch and serve
type scanFlags struct {
	backend          string
	placeholder      string
	noClearOnFailure bool
	history          bool
	yes              bool
}

func (f *scanFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.backend, "backend", "b", "", "Discovery backend: ble or mdns (default from config)")
	cmd.Flags().StringVar(&f.placeholder, "placeholder", "", "Label for devices that advertise no name")
	cmd.Flags().BoolVar(&f.noClearOnFailure, "no-clear-on-failure", false, "Keep found devices on screen when the scan fails")
	cmd.Flags().BoolVar(&f.history, "history", false, "Record this scan in the history database")
	cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "Grant permission without asking")
}

// preferences returns the configured preferences with flag overrides applied
func (f *scanFlags) preferences(cmd *cobra.Command, reg *config.Registry) (*config.Preferences, error) {
	prefs := *config.DefaultPreferences()
	if reg.Preferences != nil {
		prefs = *reg.Preferences
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		prefs.Backend = f.backend
	}
	if flags.Changed("placeholder") {
		prefs.PlaceholderLabel = f.placeholder
	}
	if flags.Changed("no-clear-on-failure") {
		keep := !f.noClearOnFailure
		prefs.ClearOnFailure = &keep
	}
	if flags.Changed("history") {
		prefs.History = f.history
	}

	if err := prefs.Validate(); err != nil {
		return nil, err
	}
	return &prefs, nil
}

// scanner is one configured scan pipeline and the resources behind it
type scanner struct {
	pipe    *pipeline.Pipeline
	backend string // config backend name
	label   string // human-readable backend description
	store   *history.Store
	reg     *config.Registry

	closeRadio func() error
	closeOnce  sync.Once
	closeErr   error
}

// backend is an opened discovery backend
type backend struct {
	label  string
	stream discovery.Stream
	gate   permission.Gate // nil when the backend needs no OS authorization
	close  func() error
}

func openBackend(prefs *config.Preferences) (*backend, error) {
	switch prefs.Backend {
	case config.BackendMDNS:
		stream := discovery.NewMDNSStream(prefs.MDNSService)
		return &backend{
			label:  fmt.Sprintf("mDNS (%s)", stream.Service),
			stream: stream,
			close:  func() error { return nil },
		}, nil
	default:
		adapter, err := ble.Open()
		if err != nil {
			return nil, err
		}
		return &backend{
			label:  "Bluetooth LE",
			stream: adapter,
			gate:   adapter,
			close:  adapter.Close,
		}, nil
	}
}

// consentGate returns the user consent gate: the remembered grant, --yes,
// or an interactive prompt on the terminal.
func consentGate(reg *config.Registry, yes bool, label string) permission.Gate {
	if yes {
		return permission.Static(true)
	}
	prompt := permission.Func(ui.PermissionPrompt(os.Stdin, os.Stdout, label))
	return permission.Remembered(prompt, reg)
}

// askUpfront resolves consent before a full-screen or headless host takes
// over the terminal. The returned gate replays the answer.
func askUpfront(ctx context.Context, consent permission.Gate) (permission.Gate, error) {
	d, err := permission.Await(ctx, consent)
	if err != nil {
		return nil, err
	}
	if d.Err != nil {
		return nil, d.Err
	}
	return permission.Static(d.Granted), nil
}

// newScanner opens the backend and assembles the pipeline. With upfront set
// the consent question is asked before returning.
func newScanner(ctx context.Context, reg *config.Registry, prefs *config.Preferences, yes, upfront bool) (*scanner, error) {
	be, err := openBackend(prefs)
	if err != nil {
		return nil, err
	}

	consent := consentGate(reg, yes, be.label)
	if upfront {
		if consent, err = askUpfront(ctx, consent); err != nil {
			_ = be.close()
			return nil, err
		}
	}

	gates := []permission.Gate{}
	if be.gate != nil {
		gates = append(gates, be.gate)
	}
	gates = append(gates, consent)

	s := &scanner{
		pipe: pipeline.New(permission.All(gates...), be.stream,
			pipeline.WithPlaceholder(prefs.PlaceholderLabel),
			pipeline.WithClearOnFailure(prefs.ClearsOnFailure()),
			pipeline.WithHighlightService(prefs.HighlightService),
		),
		backend:    prefs.Backend,
		label:      be.label,
		reg:        reg,
		closeRadio: be.close,
	}

	if prefs.History {
		path, err := config.GetHistoryPath()
		if err != nil {
			_ = be.close()
			return nil, err
		}
		if s.store, err = history.Open(path); err != nil {
			_ = be.close()
			return nil, err
		}
	}

	return s, nil
}

// record runs a history recorder for the pipeline until the returned stop
// function is called. Sightings always reach the registry; sessions reach
// the history database when it is enabled.
func (s *scanner) record() (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := history.NewRecorder(s.store, s.reg, s.backend).Go(ctx, s.pipe)
	return func() {
		cancel()
		<-done
	}
}

// Close stops the pipeline, saves the registry and releases the radio.
// Calls after the first return the first result.
func (s *scanner) Close() error {
	s.closeOnce.Do(func() { s.closeErr = s.close() })
	return s.closeErr
}

func (s *scanner) close() error {
	s.pipe.Stop()

	var errs []error
	if err := s.reg.Save(); err != nil {
		errs = append(errs, fmt.Errorf("failed to save device registry: %w", err))
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.closeRadio(); err != nil {
		logging.Warn("Failed to close radio", zap.Error(err))
	}
	return errors.Join(errs...)
}

// openFailure reports a backend that could not be opened the way the
// pipeline would report a failed permission request.
func openFailure(p *ui.Printer, err error) error {
	reason := permission.RequestFailed(err)
	p.PrintError("Scanner unavailable", err, ui.Troubleshooting(reason))
	return reason
}

func formatDuration(d time.Duration) string {
	return d.Round(100 * time.Millisecond).String()
}
