package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/muurk/blescan/internal/logging"
	"github.com/muurk/blescan/internal/pipeline"
	"go.uber.org/zap"
)

// shutdownTimeout bounds how long Shutdown waits for display clients
const shutdownTimeout = 10 * time.Second

// Controller is the part of the scan pipeline the server drives.
// *pipeline.Pipeline satisfies it.
type Controller interface {
	Start()
	Stop()
	Status() pipeline.Status
	Records() []pipeline.Record
	SubscribeStatus() *pipeline.StatusSubscription
	SubscribeRecords() *pipeline.RecordSubscription
}

// Config holds the server configuration
type Config struct {
	Host     string
	Port     int
	CertPath string // Path to certificate file (plain HTTP when empty)
	KeyPath  string // Path to private key file
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, fmt.Sprint(c.Port))
}

// Server exposes a scan pipeline over HTTP and WebSocket
type Server struct {
	config     *Config
	ctrl       Controller
	tlsConfig  *tls.Config
	httpServer *http.Server
	upgrader   websocket.Upgrader

	wg          sync.WaitGroup
	mu          sync.Mutex
	activeConns map[string]*websocket.Conn
	closing     chan struct{}
	closeOnce   sync.Once
}

// New creates a new Server instance
func New(config *Config, ctrl Controller) (*Server, error) {
	if ctrl == nil {
		return nil, errors.New("server requires a controller")
	}

	var tlsConfig *tls.Config
	if config.CertPath != "" || config.KeyPath != "" {
		var err error
		tlsConfig, err = NewTLSConfig(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	s := &Server{
		config:      config,
		ctrl:        ctrl,
		tlsConfig:   tlsConfig,
		activeConns: make(map[string]*websocket.Conn),
		closing:     make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		TLSConfig:         tlsConfig,
	}
	return s, nil
}

// Handler returns the HTTP handler serving the API and the WebSocket endpoint
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /api/status", logRequests(http.HandlerFunc(s.handleStatus)))
	mux.Handle("POST /api/scan/start", logRequests(http.HandlerFunc(s.handleStart)))
	mux.Handle("POST /api/scan/stop", logRequests(http.HandlerFunc(s.handleStop)))
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return mux
}

// Start listens on the configured address and serves until ctx is cancelled
// or the server fails.
func (s *Server) Start(ctx context.Context) error {
	addr := s.config.Addr()

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on an existing listener until ctx is cancelled or the server
// fails.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	if s.tlsConfig != nil {
		listener = tls.NewListener(listener, s.tlsConfig)
		logging.Info("Starting blescan server",
			zap.String("addr", listener.Addr().String()),
			zap.String("cert", s.config.CertPath),
			zap.Any("tls_info", GetTLSInfo(s.tlsConfig)),
		)
	} else {
		logging.Info("Starting blescan server",
			zap.String("addr", listener.Addr().String()),
		)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutdown requested, stopping server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown gracefully shuts down the server and disconnects display clients
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	s.closeOnce.Do(func() { close(s.closing) })

	err := s.httpServer.Shutdown(ctx)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Error("Error stopping HTTP server", zap.Error(err))
	}

	// Hijacked connections are not tracked by http.Server
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
		s.mu.Lock()
		for addr, conn := range s.activeConns {
			logging.Info("Closing active connection", zap.String("remote_addr", addr))
			_ = conn.Close()
		}
		s.mu.Unlock()
	}

	logging.Sync()
	return nil
}

// GetActiveConnections returns the number of connected display clients
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

func (s *Server) track(remoteAddr string, conn *websocket.Conn) {
	s.mu.Lock()
	s.activeConns[remoteAddr] = conn
	s.mu.Unlock()
	logging.LogConnection(remoteAddr, "websocket_upgraded")
}

func (s *Server) untrack(remoteAddr string) {
	s.mu.Lock()
	delete(s.activeConns, remoteAddr)
	s.mu.Unlock()
	logging.LogConnection(remoteAddr, "websocket_closed")
}
