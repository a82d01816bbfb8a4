// Package api provides the HTTP API server for the Chronus marketplace.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/chronus-app/chronus/internal/api/handlers"
	"github.com/chronus-app/chronus/internal/api/health"
	"github.com/chronus-app/chronus/internal/api/middleware"
	"github.com/chronus-app/chronus/internal/auth"
	"github.com/chronus-app/chronus/internal/chat"
	"github.com/chronus-app/chronus/internal/collab"
	"github.com/chronus-app/chronus/internal/store"
	"github.com/chronus-app/chronus/pkg/config"
)

// Version is the current version of the API server.
// This should be set at build time using ldflags.
var Version = "dev"

// Server represents the HTTP API server.
type Server struct {
	router        chi.Router
	httpServer    *http.Server
	store         store.Store
	service       *collab.Service
	auth          *auth.Service
	chatHandler   *chat.Handler
	config        *config.Config
	logger        *slog.Logger
	healthChecker *health.Checker
}

// NewServer creates a new API server with the given dependencies.
func NewServer(cfg *config.Config, st store.Store, service *collab.Service, authSvc *auth.Service, chatHandler *chat.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		store:       st,
		service:     service,
		auth:        authSvc,
		chatHandler: chatHandler,
		config:      cfg,
		logger:      logger,
	}

	var pinger health.Pinger
	if p, ok := st.(health.Pinger); ok {
		pinger = p
	}
	s.healthChecker = health.NewChecker(pinger, Version)

	s.setupRouter()
	return s
}

// setupRouter configures the router with middleware and routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.Recovery(s.logger))
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// Health check endpoint (no auth required)
	r.Get("/health", s.healthChecker.Handler())

	// Auth routes (no auth required)
	authHandler := handlers.NewAuthHandler(s.store, s.auth, s.logger)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	})

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		authMiddleware := middleware.NewAuthMiddleware(s.auth, s.logger)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			studentHandler := handlers.NewStudentHandler(s.store, s.logger)
			r.Route("/students", func(r chi.Router) {
				r.Get("/me", studentHandler.Me)
				r.Patch("/me", studentHandler.UpdateMe)
			})

			requestHandler := handlers.NewRequestHandler(s.service, s.logger)
			r.Route("/requests", func(r chi.Router) {
				r.Post("/", requestHandler.Create)
				r.Get("/", requestHandler.List)
				r.Route("/{requestID}", func(r chi.Router) {
					r.Get("/", requestHandler.Get)
					r.Post("/offers", requestHandler.AddOffer)
				})
			})

			messageHandler := handlers.NewMessageHandler(s.store, s.service, s.logger)
			r.Get("/messages", messageHandler.List)

			competenceHandler := handlers.NewCompetenceHandler(s.store, s.logger)
			r.Get("/competences", competenceHandler.List)
		})

		collaborationHandler := handlers.NewCollaborationHandler(s.service, s.logger)
		r.Route("/collaborations", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.Authenticate)
				r.Post("/", collaborationHandler.Create)
				r.Get("/", collaborationHandler.List)
				r.Get("/{collaborationID}", collaborationHandler.Get)
			})

			// Authenticates via ?token= inside the handler because
			// browsers cannot set headers on websocket dials.
			r.Get("/{collaborationID}/chat/ws", s.chatHandler.ServeWS)
		})
	})

	s.router = r
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.APIHost, s.config.APIPort)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	if s.httpServer == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Name identifies the server to the shutdown coordinator.
func (s *Server) Name() string {
	return "api-server"
}

// Router returns the chi router for testing purposes.
func (s *Server) Router() chi.Router {
	return s.router
}
