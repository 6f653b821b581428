// Package router provides HTTP routing configuration using Chi.
package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/signbridge/signbridge/internal/api/handler"
	"github.com/signbridge/signbridge/internal/api/middleware"
	"github.com/signbridge/signbridge/internal/api/service"
	"github.com/signbridge/signbridge/internal/audit"
	"github.com/signbridge/signbridge/internal/remote"
)

// Config holds router configuration.
type Config struct {
	Version string

	// Identity is the signing material; nil makes the server verify-only.
	Identity *service.SignerIdentity

	// RemoteClient talks to a remote signing device; nil disables the
	// remote endpoints.
	RemoteClient *remote.Client

	// SoftCardRoot enables softcard discovery when set.
	SoftCardRoot string

	// AuditLog receives audit events; nil disables audit logging.
	AuditLog audit.Writer
}

// New creates a new Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.CORS)

	// Health endpoints (always enabled)
	services := []string{"envelopes", "certificates"}
	if cfg.RemoteClient != nil || cfg.SoftCardRoot != "" {
		services = append(services, "remote")
	}
	healthHandler := handler.NewHealthHandler(cfg.Version, services, readyChecks(cfg))
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Create services
	envelopeService := service.NewEnvelopeService(cfg.Identity, cfg.AuditLog)
	certService := service.NewCertService()
	remoteService := service.NewRemoteService(cfg.RemoteClient, cfg.SoftCardRoot, cfg.AuditLog)

	// Create handlers
	envelopeHandler := handler.NewEnvelopeHandler(envelopeService)
	certHandler := handler.NewCertHandler(certService)
	remoteHandler := handler.NewRemoteHandler(remoteService)

	r.Route("/api/v1", func(r chi.Router) {
		// Envelope operations
		r.Route("/envelopes", func(r chi.Router) {
			r.Post("/sign", envelopeHandler.Sign)
			r.Post("/verify", envelopeHandler.Verify)
		})

		// Certificate operations
		r.Route("/certificates", func(r chi.Router) {
			r.Post("/inspect", certHandler.Inspect)
		})

		// Remote device operations
		r.Route("/remote", func(r chi.Router) {
			r.Get("/certificates", remoteHandler.Certificates)
			r.Get("/softcards", remoteHandler.SoftCards)
			r.Get("/ping", remoteHandler.Ping)
		})
	})

	return r
}

// readyChecks builds the readiness probes for the configured dependencies:
// the signer certificate's validity window and the remote device's liveness.
func readyChecks(cfg *Config) map[string]handler.ReadyCheck {
	checks := map[string]handler.ReadyCheck{}
	if cfg.Identity != nil && cfg.Identity.Certificate != nil {
		cert := cfg.Identity.Certificate
		checks["signer"] = func(ctx context.Context) bool {
			now := time.Now()
			return !now.Before(cert.NotBefore()) && !now.After(cert.NotAfter())
		}
	}
	if cfg.RemoteClient != nil {
		client := cfg.RemoteClient
		checks["device"] = func(ctx context.Context) bool {
			return client.Ping(ctx) == nil
		}
	}
	return checks
}
