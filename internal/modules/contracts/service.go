package contracts

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/courtside/leaguecore/internal/database"
	"github.com/courtside/leaguecore/internal/domain"
	"github.com/courtside/leaguecore/internal/integrity"
	"github.com/courtside/leaguecore/internal/modules/roster"
)

// bootstrapSignedDate marks contracts synthesized from roster rows.
const bootstrapSignedDate = "1900-01-01"

// Service implements the contract lifecycle. Every mutating operation runs
// in a single write transaction, rebuilds the derived indices, and
// re-validates integrity before commit.
type Service struct {
	db     *database.DB
	repo   *Repository
	roster *roster.Repository
	log    zerolog.Logger
}

// NewService creates a contracts service.
func NewService(db *database.DB, repo *Repository, rosterRepo *roster.Repository, log zerolog.Logger) *Service {
	return &Service{
		db:     db,
		repo:   repo,
		roster: rosterRepo,
		log:    log.With().Str("service", "contracts").Logger(),
	}
}

// EnsureBootstrappedFromRoster creates a one-year contract for every active
// roster player (team != FA) who has no active contract. Idempotent: the
// deterministic contract id makes a second run a no-op.
func (s *Service) EnsureBootstrappedFromRoster(ctx context.Context, seasonYear int) (int, error) {
	created := 0
	err := s.db.InTx(ctx, true, func(tx *database.Tx) error {
		entries, err := s.roster.AllEntries(tx)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.TeamID == domain.FreeAgencyTeam {
				continue
			}
			active, err := s.repo.GetActiveByPlayer(tx, e.PlayerID)
			if err != nil {
				return err
			}
			if active != nil {
				continue
			}
			c := Contract{
				ContractID:      BootstrapContractID(seasonYear, e.PlayerID),
				PlayerID:        e.PlayerID,
				TeamID:          e.TeamID,
				SalaryByYear:    map[string]int64{strconv.Itoa(seasonYear): e.SalaryAmount},
				Status:          StatusActive,
				IsActive:        true,
				SignedDate:      bootstrapSignedDate,
				StartSeasonYear: seasonYear,
			}
			c.RecomputeYears()
			if err := s.repo.UpsertRecords(tx, []Contract{c}); err != nil {
				return err
			}
			created++
		}
		if err := s.repo.RebuildIndices(tx); err != nil {
			return err
		}
		return integrity.Validate(tx, integrity.Options{})
	})
	if err != nil {
		return 0, err
	}
	if created > 0 {
		s.log.Info().Int("created", created).Int("season_year", seasonYear).Msg("Contracts bootstrapped from roster")
	}
	return created, nil
}

// ProcessOffseason advances contracts from one season to the next: pending
// options for toYear are decided (default: exercise), declined years are
// removed, and contracts with no seasons left expire and release their
// player to free agency.
func (s *Service) ProcessOffseason(ctx context.Context, fromYear, toYear int, policy DecisionPolicy) error {
	if policy == nil {
		policy = DefaultDecisionPolicy
	}
	today := database.NowUTC()[:10]

	return s.db.InTx(ctx, true, func(tx *database.Tx) error {
		active, err := s.repo.ListActive(tx)
		if err != nil {
			return err
		}
		for i := range active {
			c := &active[i]
			for j := range c.Options {
				opt := &c.Options[j]
				if err := opt.Normalize(); err != nil {
					return fmt.Errorf("contract %s: %w", c.ContractID, err)
				}
				// Options are decided entering the option year and one
				// year ahead (the June window before a final-year option).
				if opt.Status != OptionPending || (opt.SeasonYear != toYear && opt.SeasonYear != toYear+1) {
					continue
				}
				decision := policy(*opt, c.PlayerID, c)
				if decision == DecideDecline {
					opt.Status = OptionDeclined
					delete(c.SalaryByYear, strconv.Itoa(opt.SeasonYear))
				} else {
					opt.Status = OptionExercised
				}
				d := today
				opt.DecisionDate = &d
			}
			c.RecomputeYears()

			expired := toYear >= c.StartSeasonYear+c.Years
			if expired {
				c.Status = StatusExpired
				c.IsActive = false
			}
			if err := s.repo.UpsertRecords(tx, []Contract{*c}); err != nil {
				return err
			}
			if expired {
				if err := s.roster.MoveToFreeAgency(tx, c.PlayerID); err != nil {
					return err
				}
				s.log.Debug().Str("player_id", c.PlayerID).Str("contract_id", c.ContractID).
					Msg("Contract expired, player released to free agency")
			}
		}
		if err := s.repo.RebuildIndices(tx); err != nil {
			return err
		}
		return integrity.Validate(tx, integrity.Options{})
	})
}

// SignFreeAgent signs a player off the FA pool: any stale active contract is
// deactivated, a new contract is inserted, and the roster row moves to the
// signing team with the first-year salary.
func (s *Service) SignFreeAgent(ctx context.Context, playerID, teamID string, startSeasonYear int, salaryByYear map[string]int64, signedDate string) (*Contract, error) {
	return s.sign(ctx, playerID, teamID, startSeasonYear, salaryByYear, signedDate, true)
}

// ReSignOrExtend replaces a rostered player's active contract with a new
// one on their current team.
func (s *Service) ReSignOrExtend(ctx context.Context, playerID string, startSeasonYear int, salaryByYear map[string]int64, signedDate string) (*Contract, error) {
	return s.sign(ctx, playerID, "", startSeasonYear, salaryByYear, signedDate, false)
}

func (s *Service) sign(ctx context.Context, playerID, teamID string, startSeasonYear int, salaryByYear map[string]int64, signedDate string, fromFA bool) (*Contract, error) {
	if len(salaryByYear) == 0 {
		return nil, domain.NewError(domain.ErrInvalidInput, "contract has no salary years", "player_id", playerID)
	}

	var signed *Contract
	err := s.db.InTx(ctx, true, func(tx *database.Tx) error {
		entry, err := s.roster.GetEntry(tx, playerID)
		if err != nil {
			return err
		}
		if entry == nil {
			return domain.NewError(domain.ErrInvalidInput, "player has no roster row", "player_id", playerID)
		}
		if fromFA {
			if entry.TeamID != domain.FreeAgencyTeam {
				return domain.NewError(domain.ErrInvalidInput, "player is not a free agent",
					"player_id", playerID, "team_id", entry.TeamID)
			}
		} else {
			if entry.TeamID == domain.FreeAgencyTeam {
				return domain.NewError(domain.ErrInvalidInput, "cannot extend a free agent", "player_id", playerID)
			}
			teamID = entry.TeamID
		}

		// Exactly-one-active is enforced by code: deactivate, then insert.
		if _, err := s.repo.DeactivateActiveForPlayer(tx, playerID); err != nil {
			return err
		}

		c := Contract{
			ContractID:      SignedContractID(startSeasonYear, playerID),
			PlayerID:        playerID,
			TeamID:          teamID,
			SalaryByYear:    salaryByYear,
			Status:          StatusActive,
			IsActive:        true,
			SignedDate:      signedDate,
			StartSeasonYear: startSeasonYear,
		}
		c.RecomputeYears()
		if err := s.repo.UpsertRecords(tx, []Contract{c}); err != nil {
			return err
		}

		if err := s.roster.TradePlayer(tx, playerID, teamID); err != nil {
			return err
		}
		if err := s.roster.SetSalary(tx, playerID, c.SalaryForYear(startSeasonYear)); err != nil {
			return err
		}

		if err := s.repo.RebuildIndices(tx); err != nil {
			return err
		}
		if err := integrity.Validate(tx, integrity.Options{}); err != nil {
			return err
		}
		signed = &c
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("player_id", playerID).Str("team_id", signed.TeamID).
		Int("years", signed.Years).Msg("Contract signed")
	return signed, nil
}

// ReleaseToFreeAgents waives a player: roster row moves to FA and any active
// contract is deactivated.
func (s *Service) ReleaseToFreeAgents(ctx context.Context, playerID string) error {
	return s.db.InTx(ctx, true, func(tx *database.Tx) error {
		return s.ReleaseInTx(tx, playerID)
	})
}

// ReleaseInTx is the transaction-scoped release used by offseason and trade
// flows that already hold a write transaction.
func (s *Service) ReleaseInTx(tx *database.Tx, playerID string) error {
	if err := s.roster.MoveToFreeAgency(tx, playerID); err != nil {
		return err
	}
	if _, err := s.repo.DeactivateActiveForPlayer(tx, playerID); err != nil {
		return err
	}
	if err := s.repo.RebuildIndices(tx); err != nil {
		return err
	}
	return integrity.Validate(tx, integrity.Options{})
}
