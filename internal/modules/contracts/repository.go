package contracts

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/courtside/leaguecore/internal/database"
	"github.com/courtside/leaguecore/internal/domain"
)

// Repository handles contract rows and the derived index tables. All methods
// run inside a caller-owned transaction.
type Repository struct {
	log zerolog.Logger
}

// NewRepository creates a contracts repository.
func NewRepository(log zerolog.Logger) *Repository {
	return &Repository{log: log.With().Str("repo", "contracts").Logger()}
}

const contractColumns = `contract_id, player_id, team_id, start_season_id, end_season_id,
	salary_json, options_json, status, is_active, signed_date, start_season_year, years,
	created_at, updated_at`

// UpsertRecords inserts or updates contract rows. Options are normalized
// before write.
func (r *Repository) UpsertRecords(tx *database.Tx, records []Contract) error {
	now := database.NowUTC()
	for i := range records {
		c := &records[i]
		for j := range c.Options {
			if err := c.Options[j].Normalize(); err != nil {
				return fmt.Errorf("contract %s: %w", c.ContractID, err)
			}
		}
		if c.SalaryByYear == nil {
			c.SalaryByYear = map[string]int64{}
		}
		salaryJSON, err := json.Marshal(c.SalaryByYear)
		if err != nil {
			return fmt.Errorf("failed to encode salary for %s: %w", c.ContractID, err)
		}
		optionsJSON, err := json.Marshal(c.Options)
		if err != nil {
			return fmt.Errorf("failed to encode options for %s: %w", c.ContractID, err)
		}

		_, err = tx.Exec(
			`INSERT INTO contracts
			     (contract_id, player_id, team_id, start_season_id, end_season_id,
			      salary_json, options_json, status, is_active, signed_date,
			      start_season_year, years, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(contract_id) DO UPDATE SET
			     player_id = excluded.player_id, team_id = excluded.team_id,
			     start_season_id = excluded.start_season_id, end_season_id = excluded.end_season_id,
			     salary_json = excluded.salary_json, options_json = excluded.options_json,
			     status = excluded.status, is_active = excluded.is_active,
			     signed_date = excluded.signed_date, start_season_year = excluded.start_season_year,
			     years = excluded.years, updated_at = excluded.updated_at`,
			c.ContractID, c.PlayerID, c.TeamID, c.StartSeasonID, c.EndSeasonID,
			string(salaryJSON), string(optionsJSON), c.Status, boolToInt(c.IsActive),
			c.SignedDate, c.StartSeasonYear, c.Years, now, now)
		if err != nil {
			return fmt.Errorf("failed to upsert contract %s: %w", c.ContractID, err)
		}
	}
	return nil
}

// Get retrieves a contract by id, or nil when absent.
func (r *Repository) Get(tx *database.Tx, contractID string) (*Contract, error) {
	row := tx.QueryRow(`SELECT `+contractColumns+` FROM contracts WHERE contract_id = ?`, contractID)
	c, err := scanContract(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// ListByPlayer returns all contracts for a player ordered by contract id.
func (r *Repository) ListByPlayer(tx *database.Tx, playerID string) ([]Contract, error) {
	return r.list(tx, `SELECT `+contractColumns+` FROM contracts WHERE player_id = ? ORDER BY contract_id`, playerID)
}

// ListActive returns all is_active contracts ordered by contract id.
func (r *Repository) ListActive(tx *database.Tx) ([]Contract, error) {
	return r.list(tx, `SELECT `+contractColumns+` FROM contracts WHERE is_active = 1 ORDER BY contract_id`)
}

// ListAll returns every contract row ordered by contract id.
func (r *Repository) ListAll(tx *database.Tx) ([]Contract, error) {
	return r.list(tx, `SELECT `+contractColumns+` FROM contracts ORDER BY contract_id`)
}

// GetActiveByPlayer returns the player's active contract, or nil. When more
// than one row is active (a transient state the integrity validator
// rejects), the deterministic winner is returned: newest updated_at, ties
// broken by lexicographically greatest contract id.
func (r *Repository) GetActiveByPlayer(tx *database.Tx, playerID string) (*Contract, error) {
	records, err := r.list(tx,
		`SELECT `+contractColumns+` FROM contracts WHERE player_id = ? AND is_active = 1
		 ORDER BY updated_at DESC, contract_id DESC LIMIT 1`, playerID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// DeactivateActiveForPlayer flips every active contract of a player to
// inactive. Returns the number of rows changed.
func (r *Repository) DeactivateActiveForPlayer(tx *database.Tx, playerID string) (int64, error) {
	res, err := tx.Exec(
		`UPDATE contracts SET is_active = 0, status = ?, updated_at = ?
		 WHERE player_id = ? AND is_active = 1`,
		StatusExpired, database.NowUTC(), playerID)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate contracts for %s: %w", playerID, err)
	}
	return res.RowsAffected()
}

// SetTeam updates the team on a contract (trade side effect).
func (r *Repository) SetTeam(tx *database.Tx, contractID, teamID string) error {
	_, err := tx.Exec(
		`UPDATE contracts SET team_id = ?, updated_at = ? WHERE contract_id = ?`,
		teamID, database.NowUTC(), contractID)
	if err != nil {
		return fmt.Errorf("failed to retarget contract %s: %w", contractID, err)
	}
	return nil
}

// RebuildIndices recomputes the derived projections (player_contracts,
// active_contracts, free_agents) from the authoritative contracts and roster
// tables. Rebuilding twice yields identical content.
func (r *Repository) RebuildIndices(tx *database.Tx) error {
	for _, table := range []string{"player_contracts", "active_contracts", "free_agents"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	all, err := r.ListAll(tx)
	if err != nil {
		return err
	}

	// player_contracts: every contract keyed by player.
	for _, c := range all {
		if _, err := tx.Exec(
			`INSERT INTO player_contracts (player_id, contract_id) VALUES (?, ?)`,
			c.PlayerID, c.ContractID); err != nil {
			return fmt.Errorf("failed to index contract %s: %w", c.ContractID, err)
		}
	}

	// active_contracts: one deterministic winner per player.
	winners := map[string]Contract{}
	for _, c := range all {
		if !c.IsActive {
			continue
		}
		cur, ok := winners[c.PlayerID]
		if !ok || c.UpdatedAt > cur.UpdatedAt ||
			(c.UpdatedAt == cur.UpdatedAt && c.ContractID > cur.ContractID) {
			winners[c.PlayerID] = c
		}
	}
	playerIDs := make([]string, 0, len(winners))
	for id := range winners {
		playerIDs = append(playerIDs, id)
	}
	sort.Strings(playerIDs)
	for _, id := range playerIDs {
		c := winners[id]
		salaryJSON, err := json.Marshal(c.SalaryByYear)
		if err != nil {
			return fmt.Errorf("failed to encode salary for %s: %w", c.ContractID, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO active_contracts (player_id, contract_id, team_id, salary_json, updated_at)
			 VALUES (?, ?, ?, ?, ?)`,
			c.PlayerID, c.ContractID, c.TeamID, string(salaryJSON), c.UpdatedAt); err != nil {
			return fmt.Errorf("failed to index active contract %s: %w", c.ContractID, err)
		}
	}

	// free_agents: derived from roster rows pointing at FA.
	if _, err := tx.Exec(
		`INSERT INTO free_agents (player_id)
		 SELECT player_id FROM roster WHERE team_id = ?`, domain.FreeAgencyTeam); err != nil {
		return fmt.Errorf("failed to rebuild free_agents: %w", err)
	}

	return nil
}

// InsertNegotiation records a negotiation event (opaque payload; policy
// lives outside the core).
func (r *Repository) InsertNegotiation(tx *database.Tx, negotiationID, playerID, teamID, kind string, payload map[string]any) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode negotiation payload: %w", err)
	}
	_, err = tx.Exec(
		`INSERT INTO negotiations (negotiation_id, player_id, team_id, kind, payload_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(negotiation_id) DO NOTHING`,
		negotiationID, playerID, teamID, kind, string(payloadJSON), database.NowUTC())
	if err != nil {
		return fmt.Errorf("failed to insert negotiation %s: %w", negotiationID, err)
	}
	return nil
}

// ListNegotiations returns negotiations for a player, newest first.
func (r *Repository) ListNegotiations(tx *database.Tx, playerID string) ([]map[string]any, error) {
	rows, err := tx.Query(
		`SELECT payload_json FROM negotiations WHERE player_id = ? ORDER BY created_at DESC`, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query negotiations: %w", err)
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var payloadJSON string
		if err := rows.Scan(&payloadJSON); err != nil {
			return nil, fmt.Errorf("failed to scan negotiation: %w", err)
		}
		var payload map[string]any
		if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
			return nil, fmt.Errorf("failed to decode negotiation: %w", err)
		}
		out = append(out, payload)
	}
	return out, rows.Err()
}

func (r *Repository) list(tx *database.Tx, query string, args ...any) ([]Contract, error) {
	rows, err := tx.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query contracts: %w", err)
	}
	defer rows.Close()

	var records []Contract
	for rows.Next() {
		c, err := scanContractRows(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *c)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContract(row rowScanner) (*Contract, error) {
	var c Contract
	var salaryJSON, optionsJSON string
	var isActive int
	err := row.Scan(&c.ContractID, &c.PlayerID, &c.TeamID, &c.StartSeasonID, &c.EndSeasonID,
		&salaryJSON, &optionsJSON, &c.Status, &isActive, &c.SignedDate,
		&c.StartSeasonYear, &c.Years, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.IsActive = isActive != 0
	if err := json.Unmarshal([]byte(salaryJSON), &c.SalaryByYear); err != nil {
		return nil, fmt.Errorf("failed to decode salary for %s: %w", c.ContractID, err)
	}
	if err := json.Unmarshal([]byte(optionsJSON), &c.Options); err != nil {
		return nil, fmt.Errorf("failed to decode options for %s: %w", c.ContractID, err)
	}
	return &c, nil
}

func scanContractRows(rows *sql.Rows) (*Contract, error) {
	return scanContract(rows)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
