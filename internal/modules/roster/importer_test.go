package roster

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/courtside/leaguecore/internal/database"
	"github.com/courtside/leaguecore/internal/domain"
	ltesting "github.com/courtside/leaguecore/internal/testing"
)

func TestExportImportRoundTrip(t *testing.T) {
	db, cleanup := ltesting.NewTestDB(t)
	defer cleanup()
	ltesting.SeedTeams(t, db)
	ltesting.SeedPlayer(t, db, "P000001", "BOS", 30_000_000)
	ltesting.SeedPlayer(t, db, "P000002", "FA", 0)

	log := zerolog.Nop()
	svc := NewService(db, NewRepository(log), log)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "roster.xlsx")
	if err := svc.ExportExcel(ctx, path); err != nil {
		t.Fatalf("ExportExcel failed: %v", err)
	}

	// Import into a fresh database.
	db2, cleanup2 := ltesting.NewTestDB(t)
	defer cleanup2()
	svc2 := NewService(db2, NewRepository(log), log)

	n, err := svc2.ImportExcel(ctx, path, "", ImportReplace, false)
	if err != nil {
		t.Fatalf("ImportExcel failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 imported players, got %d", n)
	}

	err = db2.InTx(ctx, false, func(tx *database.Tx) error {
		repo := NewRepository(log)
		entry, err := repo.GetEntry(tx, "P000001")
		if err != nil {
			return err
		}
		if entry == nil || entry.TeamID != "BOS" || entry.SalaryAmount != 30_000_000 {
			t.Errorf("Round trip lost roster data: %+v", entry)
		}
		fa, err := repo.GetEntry(tx, "P000002")
		if err != nil {
			return err
		}
		if fa == nil || fa.TeamID != domain.FreeAgencyTeam {
			t.Errorf("Round trip lost FA entry: %+v", fa)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
}

func TestImportExcel_RejectsLegacyIDsByDefault(t *testing.T) {
	db, cleanup := ltesting.NewTestDB(t)
	defer cleanup()
	ltesting.SeedTeams(t, db)
	ltesting.SeedPlayer(t, db, "12345", "BOS", 1_000_000) // legacy numeric id

	log := zerolog.Nop()
	svc := NewService(db, NewRepository(log), log)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "roster.xlsx")
	if err := svc.ExportExcel(ctx, path); err != nil {
		t.Fatalf("ExportExcel failed: %v", err)
	}

	db2, cleanup2 := ltesting.NewTestDB(t)
	defer cleanup2()
	svc2 := NewService(db2, NewRepository(log), log)

	if _, err := svc2.ImportExcel(ctx, path, "", ImportReplace, false); err == nil {
		t.Fatal("Expected strict import to reject a legacy id")
	}
	if _, err := svc2.ImportExcel(ctx, path, "", ImportReplace, true); err != nil {
		t.Fatalf("Expected lenient import to accept a legacy id, got %v", err)
	}
}
