// Package web exposes the local HTTP API and the OAuth redirect endpoint.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the local HTTP server. It binds to loopback; there is no auth on
// the API itself.
type Server struct {
	router chi.Router
	server *http.Server
	logger *slog.Logger
}

// NewServer creates the server and wires all routes.
func NewServer(addr string, h *Handlers, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	s := &Server{
		router: router,
		logger: logger,
		server: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	s.setupMiddleware()
	s.setupRoutes(h)
	return s
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

// setupRoutes configures routes for the application.
func (s *Server) setupRoutes(h *Handlers) {
	// Auth routes
	s.router.Get("/auth/status", h.AuthStatus)
	s.router.Get("/auth/login", h.Login)
	s.router.Get("/callback", h.Callback)
	s.router.Post("/auth/logout", h.Logout)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/sync", h.RunSync)
		r.Get("/music/summary", h.MusicSummary)
		r.Get("/music/recent", h.RecentTracks)
		r.Put("/entries/{day}", h.PutEntry)
		r.Get("/entries/{day}", h.GetEntry)
		r.Get("/entries", h.ListEntries)
		r.Get("/report", h.Report)
		r.Post("/weather/refresh", h.RefreshWeather)
	})
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info("server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
