package schedule

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/courtside/leaguecore/internal/database"
	"github.com/courtside/leaguecore/internal/modules/draft"
	"github.com/courtside/leaguecore/internal/modules/settings"
	ltesting "github.com/courtside/leaguecore/internal/testing"
)

func TestBuildMasterSchedule_PersistsWithSideEffects(t *testing.T) {
	db, cleanup := ltesting.NewTestDB(t)
	defer cleanup()
	ltesting.SeedTeams(t, db)

	log := zerolog.Nop()
	repo := NewRepository(log)
	draftRepo := draft.NewRepository(log)
	settingsRepo := settings.NewRepository(log)
	svc := NewService(db, repo, draftRepo, settingsRepo, log)
	ctx := context.Background()

	games, err := svc.BuildMasterSchedule(ctx, 2025)
	if err != nil {
		t.Fatalf("BuildMasterSchedule failed: %v", err)
	}
	if len(games) != GamesPerSeason {
		t.Fatalf("Expected %d games, got %d", GamesPerSeason, len(games))
	}

	err = db.InTx(ctx, false, func(tx *database.Tx) error {
		stored, err := repo.ListSeason(tx, "2025-26")
		if err != nil {
			return err
		}
		if len(stored) != GamesPerSeason {
			t.Errorf("Expected %d stored games, got %d", GamesPerSeason, len(stored))
		}

		rules, err := settingsRepo.GetTradeRules(tx)
		if err != nil {
			return err
		}
		if rules.TradeDeadline != "2026-02-05" {
			t.Errorf("Expected deadline set for the season, got %q", rules.TradeDeadline)
		}

		// Picks seeded far enough ahead to keep the Stepien rule decidable.
		picks, err := draftRepo.ListPicksByOwner(tx, "BOS")
		if err != nil {
			return err
		}
		years := make(map[int]bool)
		for _, p := range picks {
			if p.Round == 1 {
				years[p.Year] = true
			}
		}
		for y := 2026; y <= 2026+rules.StepienLookahead+1; y++ {
			if !years[y] {
				t.Errorf("Expected a seeded first for %d", y)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	// Rebuilding replaces rather than duplicates.
	if _, err := svc.BuildMasterSchedule(ctx, 2025); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	err = db.InTx(ctx, false, func(tx *database.Tx) error {
		stored, err := repo.ListSeason(tx, "2025-26")
		if err != nil {
			return err
		}
		if len(stored) != GamesPerSeason {
			t.Errorf("Expected replacement, got %d games", len(stored))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
}
