package gm

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/courtside/leaguecore/internal/database"
	"github.com/courtside/leaguecore/internal/domain"
	ltesting "github.com/courtside/leaguecore/internal/testing"
)

func TestEnsureSeeded_DoesNotOverwrite(t *testing.T) {
	db, cleanup := ltesting.NewTestDB(t)
	defer cleanup()
	ltesting.SeedTeams(t, db)

	repo := NewRepository(zerolog.Nop())
	ctx := context.Background()

	err := db.InTx(ctx, true, func(tx *database.Tx) error {
		if err := repo.EnsureSeeded(tx, domain.LeagueTeams()); err != nil {
			return err
		}
		// A tuned profile survives a later seeding pass.
		if err := repo.UpsertProfiles(tx, []Profile{{
			TeamID: "BOS",
			Traits: map[string]any{"risk_tolerance": 0.9},
		}}); err != nil {
			return err
		}
		return repo.EnsureSeeded(tx, domain.LeagueTeams())
	})
	if err != nil {
		t.Fatalf("Seeding failed: %v", err)
	}

	err = db.InTx(ctx, false, func(tx *database.Tx) error {
		bos, err := repo.Get(tx, "BOS")
		if err != nil {
			return err
		}
		if bos == nil || bos.Traits["risk_tolerance"] != 0.9 {
			t.Errorf("Tuned profile was overwritten: %+v", bos)
		}
		lal, err := repo.Get(tx, "LAL")
		if err != nil {
			return err
		}
		if lal == nil || lal.Traits["risk_tolerance"] != 0.5 {
			t.Errorf("Expected neutral default for LAL, got %+v", lal)
		}
		missing, err := repo.Get(tx, "XXX")
		if err != nil {
			return err
		}
		if missing != nil {
			t.Errorf("Expected nil for unknown team, got %+v", missing)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
}
