package results

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/courtside/leaguecore/internal/database"
	"github.com/courtside/leaguecore/internal/modules/schedule"
)

// Service ingests validated game results.
type Service struct {
	db       *database.DB
	repo     *Repository
	schedule *schedule.Repository
	log      zerolog.Logger
}

// NewService creates a results service.
func NewService(db *database.DB, repo *Repository, scheduleRepo *schedule.Repository, log zerolog.Logger) *Service {
	return &Service{
		db:       db,
		repo:     repo,
		schedule: scheduleRepo,
		log:      log.With().Str("service", "results").Logger(),
	}
}

// Ingest validates a raw result payload, finalizes the game's score on the
// master schedule, and archives the full payload.
func (s *Service) Ingest(ctx context.Context, raw []byte) (*GameResult, error) {
	result, err := ParseGameResult(raw)
	if err != nil {
		return nil, err
	}

	err = s.db.InTx(ctx, true, func(tx *database.Tx) error {
		homeScore := result.Final[result.Game.HomeTeamID]
		awayScore := result.Final[result.Game.AwayTeamID]
		if err := s.schedule.SetFinal(tx, result.Game.GameID, homeScore, awayScore); err != nil {
			return err
		}
		return s.repo.Archive(tx, result)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("game_id", result.Game.GameID).Msg("Game result ingested")
	return result, nil
}
