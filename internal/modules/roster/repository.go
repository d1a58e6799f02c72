package roster

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/courtside/leaguecore/internal/database"
	"github.com/courtside/leaguecore/internal/domain"
	"github.com/courtside/leaguecore/internal/ids"
)

// Repository handles player, team, and roster database operations. All
// methods run inside a caller-owned transaction.
type Repository struct {
	log zerolog.Logger
}

// NewRepository creates a roster repository.
func NewRepository(log zerolog.Logger) *Repository {
	return &Repository{log: log.With().Str("repo", "roster").Logger()}
}

// EnsureTeamsSeeded inserts the league's 30 franchises and the FA row.
// Idempotent.
func (r *Repository) EnsureTeamsSeeded(tx *database.Tx) error {
	for _, teamID := range domain.LeagueTeams() {
		_, err := tx.Exec(
			`INSERT INTO teams (team_id, conference, division) VALUES (?, ?, ?)
			 ON CONFLICT(team_id) DO UPDATE SET
			     conference = excluded.conference, division = excluded.division`,
			teamID, domain.ConferenceOf(teamID), domain.DivisionOf(teamID))
		if err != nil {
			return fmt.Errorf("failed to seed team %s: %w", teamID, err)
		}
	}
	if _, err := tx.Exec(
		`INSERT INTO teams (team_id, name) VALUES (?, 'Free Agency')
		 ON CONFLICT(team_id) DO NOTHING`, domain.FreeAgencyTeam); err != nil {
		return fmt.Errorf("failed to seed FA team: %w", err)
	}
	return nil
}

// UpsertPlayers inserts or updates player rows. Duplicate ids in the batch
// fail fast.
func (r *Repository) UpsertPlayers(tx *database.Tx, players []Player) error {
	idList := make([]string, len(players))
	for i, p := range players {
		idList[i] = p.PlayerID
	}
	if err := ids.AssertUniqueIDs(idList, "player"); err != nil {
		return err
	}

	now := database.NowUTC()
	for _, p := range players {
		attrs := p.Attrs
		if attrs == nil {
			attrs = map[string]any{}
		}
		attrsJSON, err := json.Marshal(attrs)
		if err != nil {
			return fmt.Errorf("failed to encode attrs for %s: %w", p.PlayerID, err)
		}
		_, err = tx.Exec(
			`INSERT INTO players
			     (player_id, name, position, age, height_in, weight_lb, overall, attrs_json, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(player_id) DO UPDATE SET
			     name = excluded.name, position = excluded.position, age = excluded.age,
			     height_in = excluded.height_in, weight_lb = excluded.weight_lb,
			     overall = excluded.overall, attrs_json = excluded.attrs_json,
			     updated_at = excluded.updated_at`,
			p.PlayerID, p.Name, p.Position, p.Age, p.HeightIn, p.WeightLb, p.Overall,
			string(attrsJSON), now, now)
		if err != nil {
			return fmt.Errorf("failed to upsert player %s: %w", p.PlayerID, err)
		}
	}
	return nil
}

// GetPlayer retrieves a player by id, or nil when absent.
func (r *Repository) GetPlayer(tx *database.Tx, playerID string) (*Player, error) {
	row := tx.QueryRow(
		`SELECT player_id, name, position, age, height_in, weight_lb, overall, attrs_json, created_at, updated_at
		 FROM players WHERE player_id = ?`, playerID)

	var p Player
	var attrsJSON string
	err := row.Scan(&p.PlayerID, &p.Name, &p.Position, &p.Age, &p.HeightIn,
		&p.WeightLb, &p.Overall, &attrsJSON, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player %s: %w", playerID, err)
	}
	if err := json.Unmarshal([]byte(attrsJSON), &p.Attrs); err != nil {
		return nil, fmt.Errorf("failed to decode attrs for %s: %w", playerID, err)
	}
	return &p, nil
}

// UpsertEntries inserts or updates roster rows.
func (r *Repository) UpsertEntries(tx *database.Tx, entries []Entry) error {
	now := database.NowUTC()
	for _, e := range entries {
		status := e.Status
		if status == "" {
			status = "active"
		}
		_, err := tx.Exec(
			`INSERT INTO roster (player_id, team_id, salary_amount, status, updated_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(player_id) DO UPDATE SET
			     team_id = excluded.team_id, salary_amount = excluded.salary_amount,
			     status = excluded.status, updated_at = excluded.updated_at`,
			e.PlayerID, e.TeamID, e.SalaryAmount, status, now)
		if err != nil {
			return fmt.Errorf("failed to upsert roster row %s: %w", e.PlayerID, err)
		}
	}
	return nil
}

// GetEntry returns the roster row for a player, or nil when the player is
// not rostered.
func (r *Repository) GetEntry(tx *database.Tx, playerID string) (*Entry, error) {
	row := tx.QueryRow(
		`SELECT player_id, team_id, salary_amount, status, updated_at
		 FROM roster WHERE player_id = ?`, playerID)

	var e Entry
	err := row.Scan(&e.PlayerID, &e.TeamID, &e.SalaryAmount, &e.Status, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get roster row %s: %w", playerID, err)
	}
	return &e, nil
}

// GetTeamRoster returns the roster rows for a team ordered by player id.
func (r *Repository) GetTeamRoster(tx *database.Tx, teamID string) ([]Entry, error) {
	rows, err := tx.Query(
		`SELECT player_id, team_id, salary_amount, status, updated_at
		 FROM roster WHERE team_id = ? ORDER BY player_id`, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to query roster for %s: %w", teamID, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.PlayerID, &e.TeamID, &e.SalaryAmount, &e.Status, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan roster row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AllEntries returns the full roster table ordered by player id.
func (r *Repository) AllEntries(tx *database.Tx) ([]Entry, error) {
	rows, err := tx.Query(
		`SELECT player_id, team_id, salary_amount, status, updated_at
		 FROM roster ORDER BY player_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query roster: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.PlayerID, &e.TeamID, &e.SalaryAmount, &e.Status, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan roster row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// TeamSalaryTotal returns the sum of roster salaries for a team.
func (r *Repository) TeamSalaryTotal(tx *database.Tx, teamID string) (int64, error) {
	var total int64
	err := tx.QueryRow(
		`SELECT COALESCE(SUM(salary_amount), 0) FROM roster WHERE team_id = ?`, teamID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to total salaries for %s: %w", teamID, err)
	}
	return total, nil
}

// CountTeamRoster returns the number of rostered players on a team.
func (r *Repository) CountTeamRoster(tx *database.Tx, teamID string) (int, error) {
	var count int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM roster WHERE team_id = ?`, teamID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count roster for %s: %w", teamID, err)
	}
	return count, nil
}

// TradePlayer moves a player to another team, keeping their salary.
func (r *Repository) TradePlayer(tx *database.Tx, playerID, toTeam string) error {
	res, err := tx.Exec(
		`UPDATE roster SET team_id = ?, updated_at = ? WHERE player_id = ?`,
		toTeam, database.NowUTC(), playerID)
	if err != nil {
		return fmt.Errorf("failed to move player %s: %w", playerID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.NewError(domain.ErrPlayerNotOwned, "player has no roster row", "player_id", playerID)
	}
	return nil
}

// SetSalary updates a player's roster salary.
func (r *Repository) SetSalary(tx *database.Tx, playerID string, amount int64) error {
	res, err := tx.Exec(
		`UPDATE roster SET salary_amount = ?, updated_at = ? WHERE player_id = ?`,
		amount, database.NowUTC(), playerID)
	if err != nil {
		return fmt.Errorf("failed to set salary for %s: %w", playerID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.NewError(domain.ErrPlayerNotOwned, "player has no roster row", "player_id", playerID)
	}
	return nil
}

// MoveToFreeAgency points a roster row at FA. Contract deactivation is the
// contracts service's job; use contracts.Service.ReleaseToFreeAgents.
func (r *Repository) MoveToFreeAgency(tx *database.Tx, playerID string) error {
	return r.TradePlayer(tx, playerID, domain.FreeAgencyTeam)
}

// ClearRoster wipes the roster table (replace-mode import).
func (r *Repository) ClearRoster(tx *database.Tx) error {
	if _, err := tx.Exec(`DELETE FROM roster`); err != nil {
		return fmt.Errorf("failed to clear roster: %w", err)
	}
	return nil
}

// TeamExists reports whether a team row exists.
func (r *Repository) TeamExists(tx *database.Tx, teamID string) (bool, error) {
	var one int
	err := tx.QueryRow(`SELECT 1 FROM teams WHERE team_id = ?`, teamID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check team %s: %w", teamID, err)
	}
	return true, nil
}
