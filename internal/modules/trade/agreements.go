package trade

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/courtside/leaguecore/internal/database"
	"github.com/courtside/leaguecore/internal/modules/draft"
)

// Agreement statuses.
const (
	AgreementActive      = "ACTIVE"
	AgreementExecuted    = "EXECUTED"
	AgreementExpired     = "EXPIRED"
	AgreementInvalidated = "INVALIDATED"
)

// Agreement is a committed deal awaiting execution.
type Agreement struct {
	DealID     string `json:"deal_id"`
	DealJSON   string `json:"deal_json"`
	AssetsHash string `json:"assets_hash"`
	CreatedAt  string `json:"created_at"`
	ExpiresAt  string `json:"expires_at"`
	Status     string `json:"status"`
}

// AssetLock reserves one asset for one live deal.
type AssetLock struct {
	AssetKey  string `json:"asset_key"`
	DealID    string `json:"deal_id"`
	ExpiresAt string `json:"expires_at"`
}

// AgreementRepository handles trade_agreements and asset_locks rows. All
// methods run inside a caller-owned transaction.
type AgreementRepository struct {
	log zerolog.Logger
}

// NewAgreementRepository creates an agreement repository.
func NewAgreementRepository(log zerolog.Logger) *AgreementRepository {
	return &AgreementRepository{log: log.With().Str("repo", "agreements").Logger()}
}

// Insert stores a new agreement.
func (r *AgreementRepository) Insert(tx *database.Tx, a Agreement) error {
	_, err := tx.Exec(
		`INSERT INTO trade_agreements (deal_id, deal_json, assets_hash, created_at, expires_at, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.DealID, a.DealJSON, a.AssetsHash, a.CreatedAt, a.ExpiresAt, a.Status)
	if err != nil {
		return fmt.Errorf("failed to insert agreement %s: %w", a.DealID, err)
	}
	return nil
}

// Get retrieves an agreement, or nil when absent.
func (r *AgreementRepository) Get(tx *database.Tx, dealID string) (*Agreement, error) {
	row := tx.QueryRow(
		`SELECT deal_id, deal_json, assets_hash, created_at, expires_at, status
		 FROM trade_agreements WHERE deal_id = ?`, dealID)

	var a Agreement
	err := row.Scan(&a.DealID, &a.DealJSON, &a.AssetsHash, &a.CreatedAt, &a.ExpiresAt, &a.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get agreement %s: %w", dealID, err)
	}
	return &a, nil
}

// SetStatus transitions an agreement.
func (r *AgreementRepository) SetStatus(tx *database.Tx, dealID, status string) error {
	res, err := tx.Exec(
		`UPDATE trade_agreements SET status = ? WHERE deal_id = ?`, status, dealID)
	if err != nil {
		return fmt.Errorf("failed to set agreement %s status: %w", dealID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("agreement %s not found", dealID)
	}
	return nil
}

// ListActiveExpired returns ACTIVE agreements whose expiry has passed.
func (r *AgreementRepository) ListActiveExpired(tx *database.Tx, today string) ([]Agreement, error) {
	rows, err := tx.Query(
		`SELECT deal_id, deal_json, assets_hash, created_at, expires_at, status
		 FROM trade_agreements WHERE status = ? AND expires_at < ? ORDER BY deal_id`,
		AgreementActive, today)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired agreements: %w", err)
	}
	defer rows.Close()

	var out []Agreement
	for rows.Next() {
		var a Agreement
		if err := rows.Scan(&a.DealID, &a.DealJSON, &a.AssetsHash, &a.CreatedAt, &a.ExpiresAt, &a.Status); err != nil {
			return nil, fmt.Errorf("failed to scan agreement: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// InsertLock stores an asset lock.
func (r *AgreementRepository) InsertLock(tx *database.Tx, l AssetLock) error {
	_, err := tx.Exec(
		`INSERT INTO asset_locks (asset_key, deal_id, expires_at) VALUES (?, ?, ?)`,
		l.AssetKey, l.DealID, l.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to lock asset %s: %w", l.AssetKey, err)
	}
	return nil
}

// GetLock retrieves the lock on an asset, or nil when unlocked.
func (r *AgreementRepository) GetLock(tx *database.Tx, assetKey string) (*AssetLock, error) {
	row := tx.QueryRow(
		`SELECT asset_key, deal_id, expires_at FROM asset_locks WHERE asset_key = ?`, assetKey)

	var l AssetLock
	err := row.Scan(&l.AssetKey, &l.DealID, &l.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lock %s: %w", assetKey, err)
	}
	return &l, nil
}

// DeleteLock releases one asset lock.
func (r *AgreementRepository) DeleteLock(tx *database.Tx, assetKey string) error {
	if _, err := tx.Exec(`DELETE FROM asset_locks WHERE asset_key = ?`, assetKey); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", assetKey, err)
	}
	return nil
}

// DeleteLocksForDeal releases every lock held by a deal.
func (r *AgreementRepository) DeleteLocksForDeal(tx *database.Tx, dealID string) error {
	if _, err := tx.Exec(`DELETE FROM asset_locks WHERE deal_id = ?`, dealID); err != nil {
		return fmt.Errorf("failed to release locks for %s: %w", dealID, err)
	}
	return nil
}

// ownership snapshot, hashed with the canonical deal to detect drift between
// commit and execution.
type assetsSnapshot struct {
	Players []playerSnap `json:"players"`
	Picks   []pickSnap   `json:"picks"`
	Swaps   []swapSnap   `json:"swaps"`
	Fixed   []fixedSnap  `json:"fixed"`
}

type playerSnap struct {
	PlayerID string `json:"player_id"`
	FromTeam string `json:"from_team"`
	ToTeam   string `json:"to_team"`
	Salary   int64  `json:"salary"`
}

type pickSnap struct {
	PickID     string            `json:"pick_id"`
	Owner      string            `json:"owner"`
	Protection *draft.Protection `json:"protection,omitempty"`
}

type swapSnap struct {
	SwapID string `json:"swap_id"`
	Owner  string `json:"owner"`
	Active bool   `json:"active"`
}

type fixedSnap struct {
	AssetID string `json:"asset_id"`
	Owner   string `json:"owner"`
	Value   int64  `json:"value"`
}

// assetsHash computes SHA-256 over the canonical deal payload plus the
// current ownership snapshot of every asset in it.
func (s *Service) assetsHash(tx *database.Tx, deal *Deal) (string, error) {
	dealJSON, err := CanonicalJSON(deal)
	if err != nil {
		return "", err
	}

	var snap assetsSnapshot
	for _, a := range Canonicalize(deal).AllAssets() {
		switch a.Kind {
		case KindPlayer:
			entry, err := s.roster.GetEntry(tx, a.PlayerID)
			if err != nil {
				return "", err
			}
			ps := playerSnap{PlayerID: a.PlayerID, ToTeam: a.ToTeam}
			if entry != nil {
				ps.FromTeam = entry.TeamID
				ps.Salary = entry.SalaryAmount
			}
			snap.Players = append(snap.Players, ps)
		case KindPick:
			pick, err := s.draft.GetPick(tx, a.PickID)
			if err != nil {
				return "", err
			}
			pk := pickSnap{PickID: a.PickID}
			if pick != nil {
				pk.Owner = pick.OwnerTeam
				pk.Protection = pick.Protection
			}
			snap.Picks = append(snap.Picks, pk)
		case KindSwap:
			swap, err := s.draft.GetSwap(tx, a.SwapID)
			if err != nil {
				return "", err
			}
			sw := swapSnap{SwapID: a.SwapID}
			if swap != nil {
				sw.Owner = swap.OwnerTeam
				sw.Active = swap.Active
			}
			snap.Swaps = append(snap.Swaps, sw)
		case KindFixedAsset:
			fa, err := s.draft.GetFixedAsset(tx, a.AssetID)
			if err != nil {
				return "", err
			}
			fs := fixedSnap{AssetID: a.AssetID}
			if fa != nil {
				fs.Owner = fa.OwnerTeam
				fs.Value = fa.Value
			}
			snap.Fixed = append(snap.Fixed, fs)
		}
	}

	sort.Slice(snap.Players, func(i, j int) bool { return snap.Players[i].PlayerID < snap.Players[j].PlayerID })
	sort.Slice(snap.Picks, func(i, j int) bool { return snap.Picks[i].PickID < snap.Picks[j].PickID })
	sort.Slice(snap.Swaps, func(i, j int) bool { return snap.Swaps[i].SwapID < snap.Swaps[j].SwapID })
	sort.Slice(snap.Fixed, func(i, j int) bool { return snap.Fixed[i].AssetID < snap.Fixed[j].AssetID })

	snapJSON, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	h := sha256.New()
	h.Write(dealJSON)
	h.Write(snapJSON)
	return hex.EncodeToString(h.Sum(nil)), nil
}
