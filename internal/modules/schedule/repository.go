package schedule

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/courtside/leaguecore/internal/database"
)

// Repository handles master_schedule rows. All methods run inside a
// caller-owned transaction.
type Repository struct {
	log zerolog.Logger
}

// NewRepository creates a schedule repository.
func NewRepository(log zerolog.Logger) *Repository {
	return &Repository{log: log.With().Str("repo", "schedule").Logger()}
}

const gameColumns = `game_id, date, home_team_id, away_team_id, status, home_score, away_score, season_id, phase`

// ReplaceSeason atomically swaps a season's games for a fresh set.
func (r *Repository) ReplaceSeason(tx *database.Tx, seasonID string, games []Game) error {
	if _, err := tx.Exec(`DELETE FROM master_schedule WHERE season_id = ?`, seasonID); err != nil {
		return fmt.Errorf("failed to clear season %s: %w", seasonID, err)
	}
	for _, g := range games {
		_, err := tx.Exec(
			`INSERT INTO master_schedule
			     (game_id, date, home_team_id, away_team_id, status, home_score, away_score, season_id, phase)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			g.GameID, g.Date, g.HomeTeamID, g.AwayTeamID, g.Status, g.HomeScore, g.AwayScore, g.SeasonID, g.Phase)
		if err != nil {
			return fmt.Errorf("failed to insert game %s: %w", g.GameID, err)
		}
	}
	return nil
}

// Get retrieves a game, or nil when absent.
func (r *Repository) Get(tx *database.Tx, gameID string) (*Game, error) {
	row := tx.QueryRow(`SELECT `+gameColumns+` FROM master_schedule WHERE game_id = ?`, gameID)
	var g Game
	err := row.Scan(&g.GameID, &g.Date, &g.HomeTeamID, &g.AwayTeamID, &g.Status,
		&g.HomeScore, &g.AwayScore, &g.SeasonID, &g.Phase)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game %s: %w", gameID, err)
	}
	return &g, nil
}

// ListSeason returns a season's games ordered by date then game id.
func (r *Repository) ListSeason(tx *database.Tx, seasonID string) ([]Game, error) {
	rows, err := tx.Query(
		`SELECT `+gameColumns+` FROM master_schedule WHERE season_id = ? ORDER BY date, game_id`, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to query season %s: %w", seasonID, err)
	}
	defer rows.Close()

	var games []Game
	for rows.Next() {
		var g Game
		if err := rows.Scan(&g.GameID, &g.Date, &g.HomeTeamID, &g.AwayTeamID, &g.Status,
			&g.HomeScore, &g.AwayScore, &g.SeasonID, &g.Phase); err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// SetFinal transitions a game to final with its scores.
func (r *Repository) SetFinal(tx *database.Tx, gameID string, homeScore, awayScore int) error {
	res, err := tx.Exec(
		`UPDATE master_schedule SET status = ?, home_score = ?, away_score = ? WHERE game_id = ?`,
		StatusFinal, homeScore, awayScore, gameID)
	if err != nil {
		return fmt.Errorf("failed to finalize game %s: %w", gameID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("game %s not found", gameID)
	}
	return nil
}
