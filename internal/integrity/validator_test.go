package integrity

import (
	"context"
	"testing"

	"github.com/courtside/leaguecore/internal/database"
	"github.com/courtside/leaguecore/internal/domain"
	ltesting "github.com/courtside/leaguecore/internal/testing"
)

func validate(t *testing.T, db *database.DB, opts Options) error {
	t.Helper()
	return db.InTx(context.Background(), false, func(tx *database.Tx) error {
		return Validate(tx, opts)
	})
}

func TestValidate_CleanDatabasePasses(t *testing.T) {
	db, cleanup := ltesting.NewTestDB(t)
	defer cleanup()
	ltesting.SeedTeams(t, db)
	ltesting.SeedPlayer(t, db, "P000001", "BOS", 10_000_000)
	ltesting.SeedPick(t, db, "2026_R1_BOS", 2026, 1, "BOS", "")

	if err := validate(t, db, Options{StrictIDs: true}); err != nil {
		t.Fatalf("Expected clean database to validate, got %v", err)
	}
}

func TestValidate_MissingFATeamFails(t *testing.T) {
	db, cleanup := ltesting.NewTestDB(t)
	defer cleanup()
	// No teams seeded at all.

	err := validate(t, db, Options{})
	if !domain.IsCode(err, domain.ErrIntegrity) {
		t.Fatalf("Expected INTEGRITY_VIOLATION, got %v", err)
	}
}

func TestValidate_OrphanRosterRowFails(t *testing.T) {
	db, cleanup := ltesting.NewTestDB(t)
	defer cleanup()
	ltesting.SeedTeams(t, db)

	// Deferred foreign keys let the orphan exist inside the transaction; the
	// validator must report it before commit would.
	err := db.InTx(context.Background(), true, func(tx *database.Tx) error {
		if _, err := tx.Exec(`PRAGMA defer_foreign_keys = ON`); err != nil {
			return err
		}
		if _, err := tx.Exec(
			`INSERT INTO roster (player_id, team_id, salary_amount, status, updated_at)
			 VALUES ('P999999', 'BOS', 1, 'active', ?)`, database.NowUTC()); err != nil {
			return err
		}
		return Validate(tx, Options{})
	})
	if !domain.IsCode(err, domain.ErrIntegrity) {
		t.Fatalf("Expected INTEGRITY_VIOLATION for orphan roster row, got %v", err)
	}
}

func TestValidate_NonCanonicalIDStrictOnly(t *testing.T) {
	db, cleanup := ltesting.NewTestDB(t)
	defer cleanup()
	ltesting.SeedTeams(t, db)
	ltesting.SeedPlayer(t, db, "12345", "BOS", 1_000_000)

	if err := validate(t, db, Options{}); err != nil {
		t.Fatalf("Expected lenient validation to pass, got %v", err)
	}
	err := validate(t, db, Options{StrictIDs: true})
	if !domain.IsCode(err, domain.ErrIntegrity) {
		t.Fatalf("Expected INTEGRITY_VIOLATION under strict ids, got %v", err)
	}
}

func TestValidate_DuplicateActiveSwapPairFails(t *testing.T) {
	db, cleanup := ltesting.NewTestDB(t)
	defer cleanup()
	ltesting.SeedTeams(t, db)
	ltesting.SeedPick(t, db, "2026_R1_BOS", 2026, 1, "BOS", "")
	ltesting.SeedPick(t, db, "2026_R1_LAL", 2026, 1, "LAL", "")

	// Bypass the repository to plant a swap with a wrong pair key.
	if _, err := db.Conn().Exec(
		`INSERT INTO swap_rights (swap_id, pick_id_a, pick_id_b, year, round, owner_team, active, pick_pair_key, updated_at)
		 VALUES ('SWAP_BAD', '2026_R1_BOS', '2026_R1_LAL', 2026, 1, 'BOS', 1, 'wrong_key', ?)`,
		database.NowUTC()); err != nil {
		t.Fatalf("Failed to insert swap: %v", err)
	}

	err := validate(t, db, Options{})
	if !domain.IsCode(err, domain.ErrIntegrity) {
		t.Fatalf("Expected INTEGRITY_VIOLATION for bad swap pair key, got %v", err)
	}
}
