package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/blescan/internal/history"
	"github.com/muurk/blescan/internal/logging"
	"github.com/muurk/blescan/internal/server"
	"github.com/muurk/blescan/internal/ui"
)

var (
	serveOpts      scanFlags
	serveHost      string
	servePort      int
	serveCert      string
	serveKey       string
	serveAutostart bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveOpts.register(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Address to listen on")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "Port to listen on")
	serveCmd.Flags().StringVar(&serveCert, "cert", "", "TLS certificate file (serves plain HTTP when empty)")
	serveCmd.Flags().StringVar(&serveKey, "key", "", "TLS private key file")
	serveCmd.Flags().BoolVar(&serveAutostart, "autostart", false, "Start scanning as soon as the server is up")
}

// serveCmd exposes the scanner over HTTP and WebSocket
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve scan status and results over HTTP and WebSocket",
	Long: `Run the scanner headless and expose it to remote clients.

Endpoints:
  GET  /api/status       current status and records
  POST /api/scan/start   start a fresh scan
  POST /api/scan/stop    stop scanning
  GET  /ws               live status and record stream

Permission is asked once on the terminal before the server starts; pass
--yes when running unattended.`,
	Example: `  # Serve on localhost:8080 and start scanning right away
  blescan serve --autostart --yes

  # Serve over TLS on all interfaces
  blescan serve --host 0.0.0.0 --port 8443 --cert server.crt --key server.key`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	prefs, err := serveOpts.preferences(cmd, reg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printer := ui.NewPrinter(os.Stdout)
	s, err := newScanner(ctx, reg, prefs, serveOpts.yes, true)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return openFailure(printer, err)
	}
	defer func() { _ = s.Close() }()

	cfg := &server.Config{
		Host:     serveHost,
		Port:     servePort,
		CertPath: serveCert,
		KeyPath:  serveKey,
	}
	srv, err := server.New(cfg, s.pipe)
	if err != nil {
		return err
	}

	scheme := "http"
	if cfg.CertPath != "" {
		scheme = "https"
	}
	printer.PrintHeader("Scan Server", "blescan serve",
		ui.Param{Key: "Listen", Value: scheme + "://" + cfg.Addr()},
		ui.Param{Key: "Backend", Value: s.label},
		ui.Param{Key: "Autostart", Value: strconv.FormatBool(serveAutostart)},
		ui.Param{Key: "History", Value: strconv.FormatBool(prefs.History)},
	)

	g, gctx := errgroup.WithContext(ctx)

	recorded := history.NewRecorder(s.store, s.reg, s.backend).Go(gctx, s.pipe)
	g.Go(func() error {
		<-recorded
		return nil
	})
	g.Go(func() error {
		return srv.Start(gctx)
	})

	if serveAutostart {
		s.pipe.Start()
	}

	err = g.Wait()
	logging.Info("Server stopped", zap.Error(err))
	if closeErr := s.Close(); closeErr != nil {
		err = errors.Join(err, closeErr)
	}
	return err
}
