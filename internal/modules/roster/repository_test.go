package roster

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/courtside/leaguecore/internal/database"
	"github.com/courtside/leaguecore/internal/domain"
	ltesting "github.com/courtside/leaguecore/internal/testing"
)

func TestTradePlayer_MovesRosterRow(t *testing.T) {
	db, cleanup := ltesting.NewTestDB(t)
	defer cleanup()
	ltesting.SeedTeams(t, db)
	ltesting.SeedPlayer(t, db, "P000001", "BOS", 30_000_000)

	repo := NewRepository(zerolog.Nop())
	ctx := context.Background()

	err := db.InTx(ctx, true, func(tx *database.Tx) error {
		return repo.TradePlayer(tx, "P000001", "LAL")
	})
	if err != nil {
		t.Fatalf("TradePlayer failed: %v", err)
	}

	err = db.InTx(ctx, false, func(tx *database.Tx) error {
		entry, err := repo.GetEntry(tx, "P000001")
		if err != nil {
			return err
		}
		if entry.TeamID != "LAL" {
			t.Errorf("Expected LAL, got %s", entry.TeamID)
		}
		if entry.SalaryAmount != 30_000_000 {
			t.Errorf("Salary should survive a trade, got %d", entry.SalaryAmount)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
}

func TestTradePlayer_UnknownPlayerErrors(t *testing.T) {
	db, cleanup := ltesting.NewTestDB(t)
	defer cleanup()
	ltesting.SeedTeams(t, db)

	repo := NewRepository(zerolog.Nop())
	err := db.InTx(context.Background(), true, func(tx *database.Tx) error {
		return repo.TradePlayer(tx, "P000099", "LAL")
	})
	if !domain.IsCode(err, domain.ErrPlayerNotOwned) {
		t.Fatalf("Expected PLAYER_NOT_OWNED, got %v", err)
	}
}

func TestTeamSalaryTotalAndCount(t *testing.T) {
	db, cleanup := ltesting.NewTestDB(t)
	defer cleanup()
	ltesting.SeedTeams(t, db)
	ltesting.SeedPlayer(t, db, "P000001", "BOS", 30_000_000)
	ltesting.SeedPlayer(t, db, "P000002", "BOS", 10_000_000)
	ltesting.SeedPlayer(t, db, "P000003", "LAL", 5_000_000)

	repo := NewRepository(zerolog.Nop())
	err := db.InTx(context.Background(), false, func(tx *database.Tx) error {
		total, err := repo.TeamSalaryTotal(tx, "BOS")
		if err != nil {
			return err
		}
		if total != 40_000_000 {
			t.Errorf("Expected 40M payroll, got %d", total)
		}
		count, err := repo.CountTeamRoster(tx, "BOS")
		if err != nil {
			return err
		}
		if count != 2 {
			t.Errorf("Expected 2 players, got %d", count)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
}

func TestMoveToFreeAgency(t *testing.T) {
	db, cleanup := ltesting.NewTestDB(t)
	defer cleanup()
	ltesting.SeedTeams(t, db)
	ltesting.SeedPlayer(t, db, "P000001", "BOS", 1_000_000)

	repo := NewRepository(zerolog.Nop())
	ctx := context.Background()
	err := db.InTx(ctx, true, func(tx *database.Tx) error {
		return repo.MoveToFreeAgency(tx, "P000001")
	})
	if err != nil {
		t.Fatalf("MoveToFreeAgency failed: %v", err)
	}

	err = db.InTx(ctx, false, func(tx *database.Tx) error {
		entry, err := repo.GetEntry(tx, "P000001")
		if err != nil {
			return err
		}
		if entry.TeamID != domain.FreeAgencyTeam {
			t.Errorf("Expected FA, got %s", entry.TeamID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
}
