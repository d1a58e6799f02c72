// Package gm stores per-team general-manager profiles: opaque trait blobs
// consumed by external GM policy modules.
package gm

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/courtside/leaguecore/internal/database"
)

// Profile is a team's GM trait set.
type Profile struct {
	TeamID    string         `json:"team_id"`
	Traits    map[string]any `json:"traits"`
	UpdatedAt string         `json:"updated_at,omitempty"`
}

// Repository handles gm_profiles rows.
type Repository struct {
	log zerolog.Logger
}

// NewRepository creates a GM profile repository.
func NewRepository(log zerolog.Logger) *Repository {
	return &Repository{log: log.With().Str("repo", "gm").Logger()}
}

// UpsertProfiles inserts or updates profiles.
func (r *Repository) UpsertProfiles(tx *database.Tx, profiles []Profile) error {
	now := database.NowUTC()
	for _, p := range profiles {
		traits := p.Traits
		if traits == nil {
			traits = map[string]any{}
		}
		traitsJSON, err := json.Marshal(traits)
		if err != nil {
			return fmt.Errorf("failed to encode profile for %s: %w", p.TeamID, err)
		}
		_, err = tx.Exec(
			`INSERT INTO gm_profiles (team_id, profile_json, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(team_id) DO UPDATE SET
			     profile_json = excluded.profile_json, updated_at = excluded.updated_at`,
			p.TeamID, string(traitsJSON), now)
		if err != nil {
			return fmt.Errorf("failed to upsert profile for %s: %w", p.TeamID, err)
		}
	}
	return nil
}

// Get retrieves a team's profile, or nil when absent.
func (r *Repository) Get(tx *database.Tx, teamID string) (*Profile, error) {
	row := tx.QueryRow(`SELECT team_id, profile_json, updated_at FROM gm_profiles WHERE team_id = ?`, teamID)
	var p Profile
	var traitsJSON string
	err := row.Scan(&p.TeamID, &traitsJSON, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile for %s: %w", teamID, err)
	}
	if err := json.Unmarshal([]byte(traitsJSON), &p.Traits); err != nil {
		return nil, fmt.Errorf("failed to decode profile for %s: %w", teamID, err)
	}
	return &p, nil
}

// EnsureSeeded creates a neutral profile for every team that lacks one.
func (r *Repository) EnsureSeeded(tx *database.Tx, teamIDs []string) error {
	now := database.NowUTC()
	neutral, err := json.Marshal(map[string]any{
		"risk_tolerance":    0.5,
		"pick_value_weight": 0.5,
		"win_now_weight":    0.5,
	})
	if err != nil {
		return fmt.Errorf("failed to encode neutral profile: %w", err)
	}
	for _, teamID := range teamIDs {
		_, err := tx.Exec(
			`INSERT INTO gm_profiles (team_id, profile_json, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(team_id) DO NOTHING`,
			teamID, string(neutral), now)
		if err != nil {
			return fmt.Errorf("failed to seed profile for %s: %w", teamID, err)
		}
	}
	return nil
}
