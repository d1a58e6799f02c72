package results

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/courtside/leaguecore/internal/database"
)

// Repository archives full game results as msgpack blobs. All methods run
// inside a caller-owned transaction.
type Repository struct {
	log zerolog.Logger
}

// NewRepository creates a results repository.
func NewRepository(log zerolog.Logger) *Repository {
	return &Repository{log: log.With().Str("repo", "results").Logger()}
}

// Archive stores (or replaces) the binary payload for a game.
func (r *Repository) Archive(tx *database.Tx, result *GameResult) error {
	payload, err := msgpack.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result %s: %w", result.Game.GameID, err)
	}
	_, err = tx.Exec(
		`INSERT INTO game_results (game_id, replay_token, payload, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(game_id) DO UPDATE SET
		     replay_token = excluded.replay_token, payload = excluded.payload`,
		result.Game.GameID, result.ReplayToken(), payload, database.NowUTC())
	if err != nil {
		return fmt.Errorf("failed to archive result %s: %w", result.Game.GameID, err)
	}
	return nil
}

// Get retrieves an archived result, or nil when absent.
func (r *Repository) Get(tx *database.Tx, gameID string) (*GameResult, error) {
	row := tx.QueryRow(`SELECT payload FROM game_results WHERE game_id = ?`, gameID)
	var payload []byte
	err := row.Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get result %s: %w", gameID, err)
	}
	var result GameResult
	if err := msgpack.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("failed to decode result %s: %w", gameID, err)
	}
	return &result, nil
}

// Count returns how many results are archived.
func (r *Repository) Count(tx *database.Tx) (int, error) {
	var n int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM game_results`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count results: %w", err)
	}
	return n, nil
}
