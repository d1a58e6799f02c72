// Package server provides the HTTP admin surface for the league core.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/courtside/leaguecore/internal/database"
	"github.com/courtside/leaguecore/internal/modules/results"
	"github.com/courtside/leaguecore/internal/modules/roster"
	"github.com/courtside/leaguecore/internal/modules/schedule"
	"github.com/courtside/leaguecore/internal/modules/trade"
)

// Config holds server configuration.
type Config struct {
	Log      zerolog.Logger
	DB       *database.DB
	Port     int
	Roster   *roster.Repository
	Schedule *schedule.Repository
	Txlog    *trade.LogRepository
	Trade    *trade.Service
	Results  *results.Service
}

// Server is the HTTP admin server.
type Server struct {
	router   *chi.Mux
	server   *http.Server
	log      zerolog.Logger
	db       *database.DB
	roster   *roster.Repository
	schedule *schedule.Repository
	txlog    *trade.LogRepository
	trade    *trade.Service
	results  *results.Service
	started  time.Time
}

// New creates the admin server and mounts its routes.
func New(cfg Config) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		log:      cfg.Log.With().Str("component", "server").Logger(),
		db:       cfg.DB,
		roster:   cfg.Roster,
		schedule: cfg.Schedule,
		txlog:    cfg.Txlog,
		trade:    cfg.Trade,
		results:  cfg.Results,
		started:  time.Now(),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	s.router.Get("/health", s.handleHealth)
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/validate", s.handleValidate)
		r.Get("/roster/{teamID}", s.handleTeamRoster)
		r.Get("/transactions", s.handleTransactions)
		r.Get("/schedule/{seasonID}", s.handleSeasonSchedule)
		r.Post("/results", s.handleIngestResult)
		r.Post("/trade/validate", s.handleTradeValidate)
		r.Post("/trade/commit", s.handleTradeCommit)
		r.Post("/trade/execute/{dealID}", s.handleTradeExecute)
		r.Post("/trade/gc", s.handleTradeGC)
	})

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s
}

// Start begins serving. It blocks until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Admin server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Admin server shutting down")
	return s.server.Shutdown(ctx)
}
