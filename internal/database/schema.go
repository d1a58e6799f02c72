package database

import (
	"fmt"
	"strings"
	"time"
)

// SchemaVersion is the expected schema version recorded in meta and enforced
// by integrity validation. Bump it together with a migration step.
const SchemaVersion = 3

// schemaSQL is the canonical DDL. Every statement is idempotent so InitDB
// can run against both fresh and existing databases.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS teams (
    team_id    TEXT PRIMARY KEY,
    name       TEXT NOT NULL DEFAULT '',
    conference TEXT NOT NULL DEFAULT '',
    division   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS players (
    player_id  TEXT PRIMARY KEY,
    name       TEXT NOT NULL DEFAULT '',
    position   TEXT NOT NULL DEFAULT '',
    age        INTEGER NOT NULL DEFAULT 0,
    height_in  INTEGER NOT NULL DEFAULT 0,
    weight_lb  INTEGER NOT NULL DEFAULT 0,
    overall    INTEGER NOT NULL DEFAULT 0,
    attrs_json TEXT NOT NULL DEFAULT '{}',
    created_at TEXT NOT NULL DEFAULT '',
    updated_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS roster (
    player_id     TEXT PRIMARY KEY REFERENCES players(player_id) ON DELETE CASCADE,
    team_id       TEXT NOT NULL REFERENCES teams(team_id),
    salary_amount INTEGER NOT NULL DEFAULT 0,
    status        TEXT NOT NULL DEFAULT 'active',
    updated_at    TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_roster_team ON roster(team_id);

CREATE TABLE IF NOT EXISTS contracts (
    contract_id       TEXT PRIMARY KEY,
    player_id         TEXT NOT NULL REFERENCES players(player_id),
    team_id           TEXT NOT NULL,
    start_season_id   TEXT NOT NULL DEFAULT '',
    end_season_id     TEXT NOT NULL DEFAULT '',
    salary_json       TEXT NOT NULL DEFAULT '{}',
    options_json      TEXT NOT NULL DEFAULT '[]',
    status            TEXT NOT NULL DEFAULT 'ACTIVE',
    is_active         INTEGER NOT NULL DEFAULT 1,
    signed_date       TEXT NOT NULL DEFAULT '',
    start_season_year INTEGER NOT NULL DEFAULT 0,
    years             INTEGER NOT NULL DEFAULT 0,
    created_at        TEXT NOT NULL DEFAULT '',
    updated_at        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_contracts_player ON contracts(player_id);
CREATE INDEX IF NOT EXISTS idx_contracts_player_active ON contracts(player_id, is_active);

-- Derived projections, rebuilt by rebuild_contract_indices. Never authoritative.
CREATE TABLE IF NOT EXISTS player_contracts (
    player_id   TEXT NOT NULL,
    contract_id TEXT NOT NULL,
    PRIMARY KEY (player_id, contract_id)
);

CREATE TABLE IF NOT EXISTS active_contracts (
    player_id   TEXT PRIMARY KEY,
    contract_id TEXT NOT NULL,
    team_id     TEXT NOT NULL,
    salary_json TEXT NOT NULL DEFAULT '{}',
    updated_at  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS free_agents (
    player_id TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS draft_picks (
    pick_id         TEXT PRIMARY KEY,
    year            INTEGER NOT NULL,
    round           INTEGER NOT NULL CHECK (round IN (1, 2)),
    original_team   TEXT NOT NULL,
    owner_team      TEXT NOT NULL,
    protection_json TEXT,
    updated_at      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_picks_owner ON draft_picks(owner_team);
CREATE INDEX IF NOT EXISTS idx_picks_year_round ON draft_picks(year, round);

CREATE TABLE IF NOT EXISTS swap_rights (
    swap_id       TEXT PRIMARY KEY,
    pick_id_a     TEXT NOT NULL,
    pick_id_b     TEXT NOT NULL,
    year          INTEGER NOT NULL,
    round         INTEGER NOT NULL,
    owner_team    TEXT NOT NULL,
    active        INTEGER NOT NULL DEFAULT 1,
    pick_pair_key TEXT NOT NULL,
    updated_at    TEXT NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_swap_pair_active
    ON swap_rights(pick_pair_key) WHERE active = 1;

CREATE TABLE IF NOT EXISTS fixed_assets (
    asset_id       TEXT PRIMARY KEY,
    label          TEXT NOT NULL DEFAULT '',
    value          INTEGER NOT NULL DEFAULT 0,
    owner_team     TEXT NOT NULL,
    source_pick_id TEXT,
    draft_year     INTEGER,
    attrs_json     TEXT NOT NULL DEFAULT '{}',
    updated_at     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS transactions_log (
    tx_hash    TEXT PRIMARY KEY,
    tx_type    TEXT NOT NULL,
    tx_date    TEXT NOT NULL,
    deal_id    TEXT,
    source     TEXT NOT NULL DEFAULT '',
    teams_json TEXT NOT NULL DEFAULT '[]',
    payload    TEXT NOT NULL,
    created_at TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_txlog_date ON transactions_log(tx_date, created_at);

CREATE TABLE IF NOT EXISTS trade_agreements (
    deal_id     TEXT PRIMARY KEY,
    deal_json   TEXT NOT NULL,
    assets_hash TEXT NOT NULL,
    created_at  TEXT NOT NULL,
    expires_at  TEXT NOT NULL,
    status      TEXT NOT NULL DEFAULT 'ACTIVE'
);

CREATE TABLE IF NOT EXISTS asset_locks (
    asset_key  TEXT PRIMARY KEY,
    deal_id    TEXT NOT NULL,
    expires_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS master_schedule (
    game_id      TEXT PRIMARY KEY,
    date         TEXT NOT NULL,
    home_team_id TEXT NOT NULL,
    away_team_id TEXT NOT NULL,
    status       TEXT NOT NULL DEFAULT 'scheduled',
    home_score   INTEGER,
    away_score   INTEGER,
    season_id    TEXT NOT NULL,
    phase        TEXT NOT NULL DEFAULT 'regular'
);
CREATE INDEX IF NOT EXISTS idx_schedule_date ON master_schedule(date);
CREATE INDEX IF NOT EXISTS idx_schedule_season ON master_schedule(season_id);

CREATE TABLE IF NOT EXISTS game_results (
    game_id      TEXT PRIMARY KEY,
    replay_token TEXT NOT NULL DEFAULT '',
    payload      BLOB NOT NULL,
    created_at   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS negotiations (
    negotiation_id TEXT PRIMARY KEY,
    player_id      TEXT NOT NULL,
    team_id        TEXT NOT NULL,
    kind           TEXT NOT NULL DEFAULT '',
    payload_json   TEXT NOT NULL DEFAULT '{}',
    created_at     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS gm_profiles (
    team_id      TEXT PRIMARY KEY,
    profile_json TEXT NOT NULL DEFAULT '{}',
    updated_at   TEXT NOT NULL DEFAULT ''
);
`

// migrations upgrade older databases, keyed by the user_version they bring
// the database to. Index 0 corresponds to user_version 1.
var migrations = []string{
	// v1: base schema is handled by schemaSQL; nothing extra.
	``,
	// v2: game_results archive gained a replay token column.
	`ALTER TABLE game_results ADD COLUMN replay_token TEXT NOT NULL DEFAULT ''`,
	// v3: fixed assets gained an opaque attribute mapping.
	`ALTER TABLE fixed_assets ADD COLUMN attrs_json TEXT NOT NULL DEFAULT '{}'`,
}

// InitDB applies the schema DDL, runs pending migrations, and records the
// schema version in meta. It is idempotent.
//
// DDL implicitly commits, so InitDB refuses to run while any transaction is
// active.
func (db *DB) InitDB() error {
	if db.activeTx.Load() > 0 {
		return fmt.Errorf("init_db called with an open transaction")
	}

	if _, err := db.conn.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	var userVersion int
	if err := db.conn.QueryRow("PRAGMA user_version").Scan(&userVersion); err != nil {
		return fmt.Errorf("failed to read user_version: %w", err)
	}

	for v := userVersion; v < len(migrations); v++ {
		stmt := migrations[v]
		if stmt != "" {
			if _, err := db.conn.Exec(stmt); err != nil {
				// Column may already exist when the base schema created it.
				if !isDuplicateColumnErr(err) {
					return fmt.Errorf("migration to v%d failed: %w", v+1, err)
				}
			}
		}
		if _, err := db.conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			return fmt.Errorf("failed to set user_version %d: %w", v+1, err)
		}
	}

	now := NowUTC()
	if _, err := db.conn.Exec(
		`INSERT INTO meta (key, value) VALUES ('schema_version', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		fmt.Sprintf("%d", SchemaVersion)); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	if _, err := db.conn.Exec(
		`INSERT INTO meta (key, value) VALUES ('created_at', ?)
		 ON CONFLICT(key) DO NOTHING`, now); err != nil {
		return fmt.Errorf("failed to record creation timestamp: %w", err)
	}

	db.log.Debug().Int("schema_version", SchemaVersion).Msg("Schema initialized")
	return nil
}

func isDuplicateColumnErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate column") || strings.Contains(msg, "already exists")
}

// NowUTC returns the current UTC time in the canonical timestamp format
// (ISO-8601 with trailing Z) used across all tables.
func NowUTC() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}
