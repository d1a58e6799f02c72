// Package scheduler runs the periodic maintenance jobs: expired agreement
// sweeps and WAL checkpoints.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/courtside/leaguecore/internal/database"
	"github.com/courtside/leaguecore/internal/modules/trade"
)

// Scheduler owns the cron runner.
type Scheduler struct {
	cron  *cron.Cron
	db    *database.DB
	trade *trade.Service
	log   zerolog.Logger
}

// New creates a scheduler. gcSpec is a cron expression (or @-descriptor) for
// the agreement sweep.
func New(db *database.DB, tradeService *trade.Service, gcSpec string, log zerolog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:  cron.New(),
		db:    db,
		trade: tradeService,
		log:   log.With().Str("component", "scheduler").Logger(),
	}

	if _, err := s.cron.AddFunc(gcSpec, s.sweepAgreements); err != nil {
		return nil, err
	}
	if _, err := s.cron.AddFunc("@daily", s.walCheckpoint); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins running jobs on their schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop halts scheduling and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

func (s *Scheduler) sweepAgreements() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	today := time.Now().UTC().Format("2006-01-02")
	swept, err := s.trade.GCExpiredAgreements(ctx, today)
	if err != nil {
		s.log.Error().Err(err).Msg("Agreement sweep failed")
		return
	}
	if swept > 0 {
		s.log.Info().Int("swept", swept).Msg("Agreement sweep completed")
	}
}

func (s *Scheduler) walCheckpoint() {
	if err := s.db.WALCheckpoint("TRUNCATE"); err != nil {
		s.log.Error().Err(err).Msg("WAL checkpoint failed")
	}
}
