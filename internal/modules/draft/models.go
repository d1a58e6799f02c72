// Package draft owns draft picks, swap rights, and fixed assets: the
// non-player side of the trade asset universe.
package draft

import (
	"github.com/courtside/leaguecore/internal/domain"
)

// ProtectionTopN is the only supported protection shape.
const ProtectionTopN = "TOP_N"

// Compensation is what a protected pick converts into when protection
// triggers.
type Compensation struct {
	Label string `json:"label"`
	Value int64  `json:"value"`
}

// Protection is a TOP_N pick protection.
type Protection struct {
	Type         string       `json:"type"`
	N            int          `json:"n"`
	Compensation Compensation `json:"compensation"`
}

// Validate checks the protection payload shape.
func (p *Protection) Validate() error {
	if p.Type != ProtectionTopN {
		return domain.NewError(domain.ErrProtectionInvalid, "unsupported protection type", "type", p.Type)
	}
	if p.N < 1 || p.N > 30 {
		return domain.NewError(domain.ErrProtectionInvalid, "protection n out of range", "n", p.N)
	}
	if p.Compensation.Value <= 0 {
		return domain.NewError(domain.ErrProtectionInvalid, "protection compensation value missing")
	}
	return nil
}

// DraftPick is a tradable pick. OriginalTeam is immutable; OwnerTeam moves
// with trades.
type DraftPick struct {
	PickID       string      `json:"pick_id"`
	Year         int         `json:"year"`
	Round        int         `json:"round"`
	OriginalTeam string      `json:"original_team"`
	OwnerTeam    string      `json:"owner_team"`
	Protection   *Protection `json:"protection,omitempty"`
	UpdatedAt    string      `json:"updated_at,omitempty"`
}

// SwapRight is the right to exchange two picks of the same year and round.
type SwapRight struct {
	SwapID    string `json:"swap_id"`
	PickIDA   string `json:"pick_id_a"`
	PickIDB   string `json:"pick_id_b"`
	Year      int    `json:"year"`
	Round     int    `json:"round"`
	OwnerTeam string `json:"owner_team"`
	Active    bool   `json:"active"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// FixedAsset is an opaque tradable object (cash, future considerations).
type FixedAsset struct {
	AssetID      string         `json:"asset_id"`
	Label        string         `json:"label"`
	Value        int64          `json:"value"`
	OwnerTeam    string         `json:"owner_team"`
	SourcePickID string         `json:"source_pick_id,omitempty"`
	DraftYear    int            `json:"draft_year,omitempty"`
	Attrs        map[string]any `json:"attrs,omitempty"`
	UpdatedAt    string         `json:"updated_at,omitempty"`
}
