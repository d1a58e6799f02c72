// Package testing provides test database helpers and fixtures for the
// league core.
package testing

import (
	"fmt"
	"os"
	"testing"

	"github.com/rs/zerolog"

	"github.com/courtside/leaguecore/internal/database"
)

// NewTestDB creates a temp-file SQLite database with the full schema applied.
// Returns the database and an idempotent cleanup function. Temporary files
// (rather than :memory:) keep WAL semantics identical to production.
func NewTestDB(t *testing.T) (*database.DB, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "test_league_*.db")
	if err != nil {
		t.Fatalf("Failed to create temporary database file: %v", err)
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()

	db, err := database.New(database.Config{Path: tmpPath, Log: zerolog.Nop()})
	if err != nil {
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to create test database: %v", err)
	}

	if err := db.InitDB(); err != nil {
		_ = db.Close()
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to initialize test database: %v", err)
	}

	return db, func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: failed to close test database: %v", err)
		}
		_ = os.Remove(tmpPath)
		_ = os.Remove(tmpPath + "-wal")
		_ = os.Remove(tmpPath + "-shm")
	}
}

// SeedTeams inserts the 30 league teams plus the FA row. Raw SQL keeps this
// package free of module imports (modules import it back in their tests).
func SeedTeams(t *testing.T, db *database.DB) {
	t.Helper()

	teams := []string{
		"ATL", "BKN", "BOS", "CHA", "CHI", "CLE", "DAL", "DEN", "DET", "GSW",
		"HOU", "IND", "LAC", "LAL", "MEM", "MIA", "MIL", "MIN", "NOP", "NYK",
		"OKC", "ORL", "PHI", "PHX", "POR", "SAC", "SAS", "TOR", "UTA", "WAS",
	}
	for _, id := range teams {
		if _, err := db.Conn().Exec(
			`INSERT INTO teams (team_id) VALUES (?) ON CONFLICT(team_id) DO NOTHING`, id); err != nil {
			t.Fatalf("Failed to seed team %s: %v", id, err)
		}
	}
	if _, err := db.Conn().Exec(
		`INSERT INTO teams (team_id, name) VALUES ('FA', 'Free Agency') ON CONFLICT(team_id) DO NOTHING`); err != nil {
		t.Fatalf("Failed to seed FA team: %v", err)
	}
}

// SeedPlayer inserts a player and a roster row in one step.
func SeedPlayer(t *testing.T, db *database.DB, playerID, teamID string, salary int64) {
	t.Helper()

	now := database.NowUTC()
	if _, err := db.Conn().Exec(
		`INSERT INTO players (player_id, name, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(player_id) DO NOTHING`,
		playerID, fmt.Sprintf("Player %s", playerID), now, now); err != nil {
		t.Fatalf("Failed to seed player %s: %v", playerID, err)
	}
	if _, err := db.Conn().Exec(
		`INSERT INTO roster (player_id, team_id, salary_amount, status, updated_at)
		 VALUES (?, ?, ?, 'active', ?)
		 ON CONFLICT(player_id) DO UPDATE SET team_id = excluded.team_id,
		     salary_amount = excluded.salary_amount, updated_at = excluded.updated_at`,
		playerID, teamID, salary, now); err != nil {
		t.Fatalf("Failed to seed roster row for %s: %v", playerID, err)
	}
}

// SeedPick inserts a draft pick owned by its original team unless owner is set.
func SeedPick(t *testing.T, db *database.DB, pickID string, year, round int, originalTeam, ownerTeam string) {
	t.Helper()

	if ownerTeam == "" {
		ownerTeam = originalTeam
	}
	if _, err := db.Conn().Exec(
		`INSERT INTO draft_picks (pick_id, year, round, original_team, owner_team, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(pick_id) DO UPDATE SET owner_team = excluded.owner_team`,
		pickID, year, round, originalTeam, ownerTeam, database.NowUTC()); err != nil {
		t.Fatalf("Failed to seed pick %s: %v", pickID, err)
	}
}
