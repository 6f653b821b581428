package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/net/netutil"

	"github.com/signbridge/signbridge/internal/api/router"
)

// Server represents the HTTP server.
type Server struct {
	cfg       *Config
	routerCfg *router.Config
	srv       *http.Server
}

// New creates a new Server.
func New(cfg *Config, routerCfg *router.Config) *Server {
	return &Server{
		cfg:       cfg,
		routerCfg: routerCfg,
	}
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Handler:      router.New(s.routerCfg),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	listener, err := net.Listen("tcp", s.cfg.Address())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Address(), err)
	}
	if s.cfg.MaxConns > 0 {
		listener = netutil.LimitListener(listener, s.cfg.MaxConns)
	}

	s.printStartupInfo()

	errChan := make(chan error, 1)
	go func() {
		if s.cfg.TLSCert != "" && s.cfg.TLSKey != "" {
			errChan <- s.srv.ServeTLS(listener, s.cfg.TLSCert, s.cfg.TLSKey)
		} else {
			errChan <- s.srv.Serve(listener)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down...", sig)
		return s.shutdown()
	}

	return nil
}

// shutdown gracefully shuts the server down.
func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	log.Println("Server stopped gracefully")
	return nil
}

// printStartupInfo prints server startup information.
func (s *Server) printStartupInfo() {
	fmt.Println()
	fmt.Println("SignBridge API Server")
	fmt.Println("=====================")
	fmt.Printf("  Version:  %s\n", s.routerCfg.Version)
	fmt.Printf("  Address:  http://%s\n", s.cfg.Address())
	if s.cfg.TLSCert != "" {
		fmt.Println("  TLS:      enabled")
	}
	fmt.Println()
	fmt.Println("Endpoints:")
	fmt.Println("  GET  /health                      - Health check")
	fmt.Println("  GET  /ready                       - Readiness check")
	fmt.Println("  POST /api/v1/envelopes/sign       - Sign a payload")
	fmt.Println("  POST /api/v1/envelopes/verify     - Verify an envelope")
	fmt.Println("  POST /api/v1/certificates/inspect - Inspect certificates")
	if s.routerCfg.RemoteClient != nil || s.routerCfg.SoftCardRoot != "" {
		fmt.Println("  GET  /api/v1/remote/certificates  - Device identities")
		fmt.Println("  GET  /api/v1/remote/softcards     - Softcard discovery")
		fmt.Println("  GET  /api/v1/remote/ping          - Device liveness")
	}
	fmt.Println()
	fmt.Println("Use Ctrl+C to stop")
	fmt.Println()
}
