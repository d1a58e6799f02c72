package trade

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/courtside/leaguecore/internal/database"
)

// LogRepository handles the append-only transactions_log. Rows are keyed by a
// hash of the canonical payload, so re-inserting the same transaction is a
// silent no-op.
type LogRepository struct {
	log zerolog.Logger
}

// NewLogRepository creates a transaction log repository.
func NewLogRepository(log zerolog.Logger) *LogRepository {
	return &LogRepository{log: log.With().Str("repo", "txlog").Logger()}
}

// LogEntry is one transaction to record.
type LogEntry struct {
	TxType  string
	TxDate  string
	DealID  string
	Source  string
	Teams   []string
	Payload map[string]any
}

// LoggedTransaction is a stored log row.
type LoggedTransaction struct {
	TxHash    string         `json:"tx_hash"`
	TxType    string         `json:"tx_type"`
	TxDate    string         `json:"tx_date"`
	DealID    string         `json:"deal_id,omitempty"`
	Source    string         `json:"source"`
	Teams     []string       `json:"teams"`
	Payload   map[string]any `json:"payload"`
	CreatedAt string         `json:"created_at"`
}

// PayloadHash computes the dedup key: SHA-1 of the payload's canonical JSON.
// encoding/json marshals map keys sorted, so equal payloads always hash the
// same.
func PayloadHash(payload map[string]any) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to serialize payload: %w", err)
	}
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:]), nil
}

// InsertTransactions appends entries, silently skipping payloads already
// logged.
func (r *LogRepository) InsertTransactions(tx *database.Tx, entries []LogEntry) (int, error) {
	now := database.NowUTC()
	inserted := 0
	for _, e := range entries {
		hash, err := PayloadHash(e.Payload)
		if err != nil {
			return inserted, err
		}
		payloadJSON, err := json.Marshal(e.Payload)
		if err != nil {
			return inserted, fmt.Errorf("failed to serialize payload: %w", err)
		}
		teams := e.Teams
		if teams == nil {
			teams = []string{}
		}
		teamsJSON, err := json.Marshal(teams)
		if err != nil {
			return inserted, fmt.Errorf("failed to serialize teams: %w", err)
		}
		res, err := tx.Exec(
			`INSERT INTO transactions_log (tx_hash, tx_type, tx_date, deal_id, source, teams_json, payload, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(tx_hash) DO NOTHING`,
			hash, e.TxType, e.TxDate, nullIfEmptyStr(e.DealID), e.Source,
			string(teamsJSON), string(payloadJSON), now)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert transaction %s: %w", hash, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	return inserted, nil
}

// ListFilter narrows a transaction listing. Zero values mean "no filter";
// Limit 0 means no cap.
type ListFilter struct {
	Limit     int
	SinceDate string
	DealID    string
	TxType    string
}

// ListTransactions returns log rows in descending (tx_date, created_at)
// order.
func (r *LogRepository) ListTransactions(tx *database.Tx, f ListFilter) ([]LoggedTransaction, error) {
	query := `SELECT tx_hash, tx_type, tx_date, deal_id, source, teams_json, payload, created_at
	          FROM transactions_log WHERE 1=1`
	var args []any
	if f.SinceDate != "" {
		query += ` AND tx_date >= ?`
		args = append(args, f.SinceDate)
	}
	if f.DealID != "" {
		query += ` AND deal_id = ?`
		args = append(args, f.DealID)
	}
	if f.TxType != "" {
		query += ` AND tx_type = ?`
		args = append(args, f.TxType)
	}
	query += ` ORDER BY tx_date DESC, created_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := tx.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []LoggedTransaction
	for rows.Next() {
		var t LoggedTransaction
		var dealID *string
		var teamsJSON, payloadJSON string
		if err := rows.Scan(&t.TxHash, &t.TxType, &t.TxDate, &dealID, &t.Source,
			&teamsJSON, &payloadJSON, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if dealID != nil {
			t.DealID = *dealID
		}
		if err := json.Unmarshal([]byte(teamsJSON), &t.Teams); err != nil {
			return nil, fmt.Errorf("failed to decode teams for %s: %w", t.TxHash, err)
		}
		if err := json.Unmarshal([]byte(payloadJSON), &t.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode payload for %s: %w", t.TxHash, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// PlayerMove is one player changing teams, extracted from a logged trade.
type PlayerMove struct {
	PlayerID string
	FromTeam string
	ToTeam   string
	Date     string
}

// PlayerMovesSince extracts every player move from trades on or after
// sinceDate, oldest first.
func (r *LogRepository) PlayerMovesSince(tx *database.Tx, sinceDate string) ([]PlayerMove, error) {
	rows, err := tx.Query(
		`SELECT tx_date, payload FROM transactions_log
		 WHERE tx_type = 'trade' AND tx_date >= ?
		 ORDER BY tx_date, created_at`, sinceDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades since %s: %w", sinceDate, err)
	}
	defer rows.Close()

	var moves []PlayerMove
	for rows.Next() {
		var txDate, payloadJSON string
		if err := rows.Scan(&txDate, &payloadJSON); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		var payload struct {
			PlayerMoves []struct {
				PlayerID string `json:"player_id"`
				FromTeam string `json:"from_team"`
				ToTeam   string `json:"to_team"`
			} `json:"player_moves"`
		}
		if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
			return nil, fmt.Errorf("failed to decode trade payload: %w", err)
		}
		for _, m := range payload.PlayerMoves {
			moves = append(moves, PlayerMove{
				PlayerID: m.PlayerID,
				FromTeam: m.FromTeam,
				ToTeam:   m.ToTeam,
				Date:     txDate,
			})
		}
	}
	return moves, rows.Err()
}

func nullIfEmptyStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
