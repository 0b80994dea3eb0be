package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/blescan/internal/pipeline"
	"github.com/muurk/blescan/internal/tui"
	"github.com/muurk/blescan/internal/ui"
)

var (
	scanOpts    scanFlags
	scanTimeout time.Duration
	watchOpts   scanFlags
)

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(watchCmd)

	scanOpts.register(scanCmd)
	scanCmd.Flags().DurationVarP(&scanTimeout, "timeout", "t", 0, "Stop scanning after this long (default from config; 0 scans until Ctrl+C)")

	watchOpts.register(watchCmd)
}

// scanCmd streams discovered devices to the terminal
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for nearby devices",
	Long: `Scan for nearby devices and print each one as soon as it is found.

Permission is requested first. Each device is printed once, with the name
from its first advertisement; devices that advertise no name are shown with
the placeholder label. Press Ctrl+C to stop.

The command exits with a non-zero status when permission is denied or the
scan fails.`,
	Example: `  # Scan until Ctrl+C
  blescan scan

  # Scan for 30 seconds without being asked for permission
  blescan scan --timeout 30s --yes

  # Browse for printers over mDNS and record the session
  blescan scan --backend mdns --history`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	prefs, err := scanOpts.preferences(cmd, reg)
	if err != nil {
		return err
	}

	timeout := prefs.Timeout()
	if cmd.Flags().Changed("timeout") {
		timeout = scanTimeout
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	printer := ui.NewPrinter(os.Stdout)

	s, err := newScanner(ctx, reg, prefs, scanOpts.yes, false)
	if err != nil {
		return openFailure(printer, err)
	}
	defer func() { _ = s.Close() }()

	timeoutLabel := "until Ctrl+C"
	if timeout > 0 {
		timeoutLabel = timeout.String()
	}
	printer.PrintHeader("Device Scan", "blescan scan",
		ui.Param{Key: "Backend", Value: s.label},
		ui.Param{Key: "Duration", Value: timeoutLabel},
		ui.Param{Key: "History", Value: strconv.FormatBool(prefs.History)},
	)

	started := time.Now()
	final := follow(ctx, s, printer)

	if err := s.Close(); err != nil {
		return err
	}

	if final.Phase == pipeline.Failed {
		printer.PrintError("Scan failed", final.Reason, ui.Troubleshooting(final.Reason))
		return fmt.Errorf("scan failed: %w", final.Reason)
	}

	printer.PrintSuccess("Scan complete",
		ui.Param{Key: "Devices", Value: strconv.Itoa(final.Records)},
		ui.Param{Key: "Duration", Value: formatDuration(time.Since(started))},
	)
	return nil
}

// follow starts the pipeline and prints its output until ctx ends or the
// scan fails. It returns the last status seen.
func follow(ctx context.Context, s *scanner, printer *ui.Printer) pipeline.Status {
	status := s.pipe.SubscribeStatus()
	defer status.Close()
	changes := s.pipe.SubscribeRecords()
	defer changes.Close()

	stopRecording := s.record()
	defer stopRecording()

	s.pipe.Start()

	var (
		last    pipeline.Status
		message string
		records int
	)
	for {
		select {
		case <-ctx.Done():
			s.pipe.Stop()
			last = s.pipe.Status()
			last.Records = records
			return last

		case st := <-status.C():
			last = st
			if st.Message != "" && st.Message != message && st.Phase != pipeline.Failed {
				printer.PrintStatus(st)
			}
			message = st.Message
			if st.Phase == pipeline.Failed {
				last.Records = records
				return last
			}

		case c := <-changes.C():
			switch c.Kind {
			case pipeline.RecordAdded:
				records++
				printer.PrintRecord(c.Record)
			case pipeline.RecordsCleared:
				if records > 0 {
					printer.Println(ui.StatusStyle.Render("(cleared)"))
				}
				records = 0
			}
		}
	}
}

// watchCmd shows the live full-screen scan view
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch nearby devices in a live full-screen view",
	Long: `Open a full-screen view that lists nearby devices as they are found.

Keys: r restarts the scan with an empty list, s stops it, q quits.

Permission is asked before the view opens.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	prefs, err := watchOpts.preferences(cmd, reg)
	if err != nil {
		return err
	}

	printer := ui.NewPrinter(os.Stdout)
	s, err := newScanner(cmd.Context(), reg, prefs, watchOpts.yes, true)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return openFailure(printer, err)
	}

	stopRecording := s.record()
	runErr := tui.Run(s.pipe, s.label)
	s.pipe.Stop()
	stopRecording()

	return errors.Join(runErr, s.Close())
}
