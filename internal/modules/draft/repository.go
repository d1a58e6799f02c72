package draft

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

// Repository handles draft pick, swap right, and fixed asset rows. All
// methods run inside a caller-owned transaction.
type Repository struct {
	log zerolog.Logger
}

// NewRepository creates a draft repository.
func NewRepository(log zerolog.Logger) *Repository {
	return &Repository{log: log.With().Str("repo", "draft").Logger()}
}

// UpsertDraftPicks inserts or updates pick rows. original_team never changes
// on conflict.
func (r *Repository) UpsertDraftPicks(tx *database.Tx, picks []DraftPick) error {
	now := database.NowUTC()
	for _, p := range picks {
		protectionJSON, err := encodeProtection(p.Protection)
		if err != nil {
			return fmt.Errorf("pick %s: %w", p.PickID, err)
		}
		_, err = tx.Exec(
			`INSERT INTO draft_picks (pick_id, year, round, original_team, owner_team, protection_json, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(pick_id) DO UPDATE SET
			     owner_team = excluded.owner_team,
			     protection_json = excluded.protection_json,
			     updated_at = excluded.updated_at`,
			p.PickID, p.Year, p.Round, p.OriginalTeam, p.OwnerTeam, protectionJSON, now)
		if err != nil {
			return fmt.Errorf("failed to upsert pick %s: %w", p.PickID, err)
		}
	}
	return nil
}

// GetPick retrieves a pick, or nil when absent.
func (r *Repository) GetPick(tx *database.Tx, pickID string) (*DraftPick, error) {
	row := tx.QueryRow(
		`SELECT pick_id, year, round, original_team, owner_team, protection_json, updated_at
		 FROM draft_picks WHERE pick_id = ?`, pickID)

	var p DraftPick
	var protectionJSON *string
	err := row.Scan(&p.PickID, &p.Year, &p.Round, &p.OriginalTeam, &p.OwnerTeam, &protectionJSON, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pick %s: %w", pickID, err)
	}
	if p.Protection, err = decodeProtection(protectionJSON); err != nil {
		return nil, fmt.Errorf("pick %s: %w", pickID, err)
	}
	return &p, nil
}

// ListPicksByOwner returns a team's picks ordered by year, round, pick id.
func (r *Repository) ListPicksByOwner(tx *database.Tx, teamID string) ([]DraftPick, error) {
	rows, err := tx.Query(
		`SELECT pick_id, year, round, original_team, owner_team, protection_json, updated_at
		 FROM draft_picks WHERE owner_team = ? ORDER BY year, round, pick_id`, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to query picks for %s: %w", teamID, err)
	}
	defer rows.Close()

	var picks []DraftPick
	for rows.Next() {
		var p DraftPick
		var protectionJSON *string
		if err := rows.Scan(&p.PickID, &p.Year, &p.Round, &p.OriginalTeam, &p.OwnerTeam, &protectionJSON, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pick: %w", err)
		}
		if p.Protection, err = decodeProtection(protectionJSON); err != nil {
			return nil, fmt.Errorf("pick %s: %w", p.PickID, err)
		}
		picks = append(picks, p)
	}
	return picks, rows.Err()
}

// EnsureDraftPicksSeeded creates the standard two picks per team per year
// from draftYear through draftYear+yearsAhead. Existing rows (possibly
// traded) are left untouched.
func (r *Repository) EnsureDraftPicksSeeded(tx *database.Tx, draftYear int, teamIDs []string, yearsAhead int) error {
	now := database.NowUTC()
	for year := draftYear; year <= draftYear+yearsAhead; year++ {
		for _, team := range teamIDs {
			for round := 1; round <= 2; round++ {
				pickID := ids.MakePickID(year, round, team)
				_, err := tx.Exec(
					`INSERT INTO draft_picks (pick_id, year, round, original_team, owner_team, updated_at)
					 VALUES (?, ?, ?, ?, ?, ?)
					 ON CONFLICT(pick_id) DO NOTHING`,
					pickID, year, round, team, team, now)
				if err != nil {
					return fmt.Errorf("failed to seed pick %s: %w", pickID, err)
				}
			}
		}
	}
	return nil
}

// TransferPick moves pick ownership, optionally attaching a protection.
func (r *Repository) TransferPick(tx *database.Tx, pickID, toTeam string, protection *Protection) error {
	var err error
	var res sql.Result
	if protection != nil {
		if err := protection.Validate(); err != nil {
			return err
		}
		protectionJSON, encErr := encodeProtection(protection)
		if encErr != nil {
			return fmt.Errorf("pick %s: %w", pickID, encErr)
		}
		res, err = tx.Exec(
			`UPDATE draft_picks SET owner_team = ?, protection_json = ?, updated_at = ? WHERE pick_id = ?`,
			toTeam, protectionJSON, database.NowUTC(), pickID)
	} else {
		res, err = tx.Exec(
			`UPDATE draft_picks SET owner_team = ?, updated_at = ? WHERE pick_id = ?`,
			toTeam, database.NowUTC(), pickID)
	}
	if err != nil {
		return fmt.Errorf("failed to transfer pick %s: %w", pickID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.NewError(domain.ErrPickNotOwned, "pick does not exist", "pick_id", pickID)
	}
	return nil
}

// UpsertSwapRights inserts or updates swap rows, enforcing the canonical
// swap id and matching year/round between the two picks.
func (r *Repository) UpsertSwapRights(tx *database.Tx, swaps []SwapRight) error {
	now := database.NowUTC()
	for _, s := range swaps {
		if s.SwapID != ids.ComputeSwapID(s.PickIDA, s.PickIDB) {
			return domain.NewError(domain.ErrSwapInvalid, "swap id is not canonical", "swap_id", s.SwapID)
		}
		pa, err := ids.ParsePickID(s.PickIDA)
		if err != nil {
			return err
		}
		pb, err := ids.ParsePickID(s.PickIDB)
		if err != nil {
			return err
		}
		if pa.Year != pb.Year || pa.Round != pb.Round {
			return domain.NewError(domain.ErrSwapInvalid, "swap picks do not share year and round", "swap_id", s.SwapID)
		}
		_, err = tx.Exec(
			`INSERT INTO swap_rights (swap_id, pick_id_a, pick_id_b, year, round, owner_team, active, pick_pair_key, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(swap_id) DO UPDATE SET
			     owner_team = excluded.owner_team, active = excluded.active, updated_at = excluded.updated_at`,
			s.SwapID, s.PickIDA, s.PickIDB, pa.Year, pa.Round, s.OwnerTeam,
			boolToInt(s.Active), ids.ComputeSwapPairKey(s.PickIDA, s.PickIDB), now)
		if err != nil {
			return fmt.Errorf("failed to upsert swap %s: %w", s.SwapID, err)
		}
	}
	return nil
}

// GetSwap retrieves a swap right, or nil when absent.
func (r *Repository) GetSwap(tx *database.Tx, swapID string) (*SwapRight, error) {
	row := tx.QueryRow(
		`SELECT swap_id, pick_id_a, pick_id_b, year, round, owner_team, active, updated_at
		 FROM swap_rights WHERE swap_id = ?`, swapID)

	var s SwapRight
	var active int
	err := row.Scan(&s.SwapID, &s.PickIDA, &s.PickIDB, &s.Year, &s.Round, &s.OwnerTeam, &active, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get swap %s: %w", swapID, err)
	}
	s.Active = active != 0
	return &s, nil
}

// FindActiveSwapByPair returns the active swap for an unordered pick pair,
// or nil.
func (r *Repository) FindActiveSwapByPair(tx *database.Tx, pickA, pickB string) (*SwapRight, error) {
	row := tx.QueryRow(
		`SELECT swap_id FROM swap_rights WHERE pick_pair_key = ? AND active = 1`,
		ids.ComputeSwapPairKey(pickA, pickB))
	var swapID string
	err := row.Scan(&swapID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up swap pair: %w", err)
	}
	return r.GetSwap(tx, swapID)
}

// TransferSwap moves swap-right ownership.
func (r *Repository) TransferSwap(tx *database.Tx, swapID, toTeam string) error {
	res, err := tx.Exec(
		`UPDATE swap_rights SET owner_team = ?, updated_at = ? WHERE swap_id = ?`,
		toTeam, database.NowUTC(), swapID)
	if err != nil {
		return fmt.Errorf("failed to transfer swap %s: %w", swapID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.NewError(domain.ErrSwapNotOwned, "swap does not exist", "swap_id", swapID)
	}
	return nil
}

// UpsertFixedAssets inserts or updates fixed asset rows.
func (r *Repository) UpsertFixedAssets(tx *database.Tx, assets []FixedAsset) error {
	now := database.NowUTC()
	for _, a := range assets {
		attrs := a.Attrs
		if attrs == nil {
			attrs = map[string]any{}
		}
		attrsJSON, err := json.Marshal(attrs)
		if err != nil {
			return fmt.Errorf("failed to encode attrs for %s: %w", a.AssetID, err)
		}
		_, err = tx.Exec(
			`INSERT INTO fixed_assets (asset_id, label, value, owner_team, source_pick_id, draft_year, attrs_json, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(asset_id) DO UPDATE SET
			     label = excluded.label, value = excluded.value, owner_team = excluded.owner_team,
			     attrs_json = excluded.attrs_json, updated_at = excluded.updated_at`,
			a.AssetID, a.Label, a.Value, a.OwnerTeam,
			nullIfEmpty(a.SourcePickID), nullIfZero(a.DraftYear), string(attrsJSON), now)
		if err != nil {
			return fmt.Errorf("failed to upsert fixed asset %s: %w", a.AssetID, err)
		}
	}
	return nil
}

// GetFixedAsset retrieves a fixed asset, or nil when absent.
func (r *Repository) GetFixedAsset(tx *database.Tx, assetID string) (*FixedAsset, error) {
	row := tx.QueryRow(
		`SELECT asset_id, label, value, owner_team, source_pick_id, draft_year, attrs_json, updated_at
		 FROM fixed_assets WHERE asset_id = ?`, assetID)

	var a FixedAsset
	var sourcePick *string
	var draftYear *int
	var attrsJSON string
	err := row.Scan(&a.AssetID, &a.Label, &a.Value, &a.OwnerTeam, &sourcePick, &draftYear, &attrsJSON, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fixed asset %s: %w", assetID, err)
	}
	if sourcePick != nil {
		a.SourcePickID = *sourcePick
	}
	if draftYear != nil {
		a.DraftYear = *draftYear
	}
	if err := json.Unmarshal([]byte(attrsJSON), &a.Attrs); err != nil {
		return nil, fmt.Errorf("failed to decode attrs for %s: %w", assetID, err)
	}
	return &a, nil
}

// TransferFixedAsset moves fixed-asset ownership.
func (r *Repository) TransferFixedAsset(tx *database.Tx, assetID, toTeam string) error {
	res, err := tx.Exec(
		`UPDATE fixed_assets SET owner_team = ?, updated_at = ? WHERE asset_id = ?`,
		toTeam, database.NowUTC(), assetID)
	if err != nil {
		return fmt.Errorf("failed to transfer fixed asset %s: %w", assetID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.NewError(domain.ErrFixedAssetNotFound, "fixed asset does not exist", "asset_id", assetID)
	}
	return nil
}

func encodeProtection(p *Protection) (*string, error) {
	if p == nil {
		return nil, nil
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode protection: %w", err)
	}
	s := string(b)
	return &s, nil
}

func decodeProtection(raw *string) (*Protection, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	var p Protection
	if err := json.Unmarshal([]byte(*raw), &p); err != nil {
		return nil, fmt.Errorf("failed to decode protection: %w", err)
	}
	return &p, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZero(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
