// Package integrity verifies cross-table invariants of the league store. It
// runs on demand and as the last step of every batch mutation, inside the
// same transaction, so an inconsistent state is never observable externally.
package integrity

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/courtside/leaguecore/internal/database"
	"github.com/courtside/leaguecore/internal/domain"
	"github.com/courtside/leaguecore/internal/ids"
)

// maxListed caps how many offending rows a violation message carries.
const maxListed = 10

// Options controls validation strictness.
type Options struct {
	// StrictIDs requires every player id to parse canonically; otherwise
	// non-empty is enough (legacy imports).
	StrictIDs bool
}

// Validate checks the full invariant set. The first failing check aborts
// with a typed error listing up to ten offenders.
func Validate(tx *database.Tx, opts Options) error {
	checks := []func(*database.Tx, Options) error{
		checkMeta,
		checkPlayerIDs,
		checkRoster,
		checkDraftPicks,
		checkSwapRights,
		checkFixedAssets,
		checkContracts,
	}
	for _, check := range checks {
		if err := check(tx, opts); err != nil {
			return err
		}
	}
	return nil
}

func violation(message string, offenders []string) error {
	if len(offenders) > maxListed {
		offenders = offenders[:maxListed]
	}
	return domain.NewError(domain.ErrIntegrity, message, "offenders", strings.Join(offenders, ","))
}

func checkMeta(tx *database.Tx, _ Options) error {
	var value string
	err := tx.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&value)
	if err != nil {
		return domain.NewError(domain.ErrIntegrity, "schema_version missing from meta")
	}
	if value != strconv.Itoa(database.SchemaVersion) {
		return domain.NewError(domain.ErrIntegrity, "schema version mismatch",
			"expected", database.SchemaVersion, "found", value)
	}
	return nil
}

func checkPlayerIDs(tx *database.Tx, opts Options) error {
	rows, err := tx.Query(`SELECT player_id FROM players`)
	if err != nil {
		return fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	var bad []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan player id: %w", err)
		}
		if opts.StrictIDs {
			if _, err := ids.NormalizePlayerID(id, true, false); err != nil {
				bad = append(bad, id)
			}
		} else if strings.TrimSpace(id) == "" {
			bad = append(bad, id)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(bad) > 0 {
		return violation("non-canonical player ids", bad)
	}
	return nil
}

func checkRoster(tx *database.Tx, _ Options) error {
	// FA team row must exist.
	var one int
	if err := tx.QueryRow(`SELECT 1 FROM teams WHERE team_id = ?`, domain.FreeAgencyTeam).Scan(&one); err != nil {
		return domain.NewError(domain.ErrIntegrity, "FA team row missing")
	}

	// Every roster row references an existing player.
	orphans, err := collect(tx,
		`SELECT r.player_id FROM roster r LEFT JOIN players p ON p.player_id = r.player_id
		 WHERE p.player_id IS NULL`)
	if err != nil {
		return err
	}
	if len(orphans) > 0 {
		return violation("roster rows without player", orphans)
	}

	// Every team id normalizes against the league vocabulary.
	teams, err := collect(tx, `SELECT DISTINCT team_id FROM roster`)
	if err != nil {
		return err
	}
	var bad []string
	for _, t := range teams {
		if !domain.IsKnownTeam(t) {
			bad = append(bad, t)
		}
	}
	if len(bad) > 0 {
		return violation("roster rows with unknown team", bad)
	}
	return nil
}

func checkDraftPicks(tx *database.Tx, _ Options) error {
	rows, err := tx.Query(`SELECT pick_id, year, round, original_team, owner_team FROM draft_picks`)
	if err != nil {
		return fmt.Errorf("failed to query draft picks: %w", err)
	}
	defer rows.Close()

	var bad []string
	for rows.Next() {
		var pickID, original, owner string
		var year, round int
		if err := rows.Scan(&pickID, &year, &round, &original, &owner); err != nil {
			return fmt.Errorf("failed to scan pick: %w", err)
		}
		if round != 1 && round != 2 {
			bad = append(bad, pickID)
			continue
		}
		if !domain.IsLeagueTeam(original) || !domain.IsLeagueTeam(owner) {
			bad = append(bad, pickID)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(bad) > 0 {
		return violation("invalid draft picks", bad)
	}
	return nil
}

func checkSwapRights(tx *database.Tx, _ Options) error {
	rows, err := tx.Query(
		`SELECT s.swap_id, s.pick_id_a, s.pick_id_b, s.year, s.round, s.pick_pair_key,
		        pa.year, pa.round, pb.year, pb.round
		 FROM swap_rights s
		 LEFT JOIN draft_picks pa ON pa.pick_id = s.pick_id_a
		 LEFT JOIN draft_picks pb ON pb.pick_id = s.pick_id_b
		 WHERE s.active = 1`)
	if err != nil {
		return fmt.Errorf("failed to query swap rights: %w", err)
	}
	defer rows.Close()

	var bad []string
	pairKeys := map[string]bool{}
	for rows.Next() {
		var swapID, pickA, pickB, pairKey string
		var year, round int
		var yearA, roundA, yearB, roundB *int
		if err := rows.Scan(&swapID, &pickA, &pickB, &year, &round, &pairKey,
			&yearA, &roundA, &yearB, &roundB); err != nil {
			return fmt.Errorf("failed to scan swap right: %w", err)
		}
		if yearA == nil || yearB == nil {
			bad = append(bad, swapID) // referenced pick missing
			continue
		}
		if *yearA != year || *yearB != year || *roundA != round || *roundB != round {
			bad = append(bad, swapID)
			continue
		}
		if pairKey != ids.ComputeSwapPairKey(pickA, pickB) {
			bad = append(bad, swapID)
			continue
		}
		if pairKeys[pairKey] {
			bad = append(bad, swapID)
			continue
		}
		pairKeys[pairKey] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(bad) > 0 {
		return violation("invalid swap rights", bad)
	}
	return nil
}

func checkFixedAssets(tx *database.Tx, _ Options) error {
	rows, err := tx.Query(
		`SELECT f.asset_id, f.owner_team, f.source_pick_id, p.pick_id
		 FROM fixed_assets f
		 LEFT JOIN draft_picks p ON p.pick_id = f.source_pick_id`)
	if err != nil {
		return fmt.Errorf("failed to query fixed assets: %w", err)
	}
	defer rows.Close()

	var bad []string
	for rows.Next() {
		var assetID, owner string
		var sourcePick, resolvedPick *string
		if err := rows.Scan(&assetID, &owner, &sourcePick, &resolvedPick); err != nil {
			return fmt.Errorf("failed to scan fixed asset: %w", err)
		}
		if !domain.IsLeagueTeam(owner) {
			bad = append(bad, assetID)
			continue
		}
		if sourcePick != nil && *sourcePick != "" && resolvedPick == nil {
			bad = append(bad, assetID)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(bad) > 0 {
		return violation("invalid fixed assets", bad)
	}
	return nil
}

func checkContracts(tx *database.Tx, _ Options) error {
	// At most one active contract per player.
	multi, err := collect(tx,
		`SELECT player_id FROM contracts WHERE is_active = 1
		 GROUP BY player_id HAVING COUNT(*) > 1`)
	if err != nil {
		return err
	}
	if len(multi) > 0 {
		return violation("players with multiple active contracts", multi)
	}

	// Free agents hold no active contract.
	faActive, err := collect(tx,
		`SELECT c.player_id FROM contracts c
		 JOIN roster r ON r.player_id = c.player_id
		 WHERE c.is_active = 1 AND r.team_id = ?`, domain.FreeAgencyTeam)
	if err != nil {
		return err
	}
	if len(faActive) > 0 {
		return violation("free agents with active contracts", faActive)
	}
	return nil
}

func collect(tx *database.Tx, query string, args ...any) ([]string, error) {
	rows, err := tx.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("integrity query failed: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("integrity scan failed: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
