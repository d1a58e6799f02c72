package schedule

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/courtside/leaguecore/internal/database"
	"github.com/courtside/leaguecore/internal/domain"
	"github.com/courtside/leaguecore/internal/ids"
	"github.com/courtside/leaguecore/internal/integrity"
	"github.com/courtside/leaguecore/internal/modules/draft"
	"github.com/courtside/leaguecore/internal/modules/settings"
)

// Service generates and persists master schedules.
type Service struct {
	db       *database.DB
	repo     *Repository
	draft    *draft.Repository
	settings *settings.Repository
	log      zerolog.Logger
}

// NewService creates a schedule service.
func NewService(db *database.DB, repo *Repository, draftRepo *draft.Repository, settingsRepo *settings.Repository, log zerolog.Logger) *Service {
	return &Service{
		db:       db,
		repo:     repo,
		draft:    draftRepo,
		settings: settingsRepo,
		log:      log.With().Str("service", "schedule").Logger(),
	}
}

// BuildMasterSchedule generates the season's 1230 games and persists them,
// along with two side effects: the trade deadline for the season and draft
// pick seeding far enough ahead to keep the Stepien rule decidable.
func (s *Service) BuildMasterSchedule(ctx context.Context, seasonYear int) ([]Game, error) {
	games, err := Build(seasonYear)
	if err != nil {
		return nil, err
	}
	seasonID := ids.SeasonIDFromYear(seasonYear)

	err = s.db.InTx(ctx, true, func(tx *database.Tx) error {
		if err := s.repo.ReplaceSeason(tx, seasonID, games); err != nil {
			return err
		}

		rules, err := s.settings.GetTradeRules(tx)
		if err != nil {
			return err
		}
		rules.TradeDeadline = fmt.Sprintf("%d-02-05", seasonYear+1)
		if err := s.settings.SetTradeRules(tx, rules); err != nil {
			return err
		}

		yearsAhead := rules.MaxPickYearsAhead
		if rules.StepienLookahead+1 > yearsAhead {
			yearsAhead = rules.StepienLookahead + 1
		}
		draftYear := seasonYear + 1
		if err := s.draft.EnsureDraftPicksSeeded(tx, draftYear, domain.LeagueTeams(), yearsAhead); err != nil {
			return err
		}

		return integrity.Validate(tx, integrity.Options{})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Int("season_year", seasonYear).Int("games", len(games)).Msg("Master schedule built")
	return games, nil
}
