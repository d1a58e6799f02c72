// Package trade implements the deal model, the rules engine, two-phase
// committed agreements with asset locking, atomic apply, and the append-only
// transaction log.
package trade

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/courtside/leaguecore/internal/domain"
	"github.com/courtside/leaguecore/internal/ids"
	"github.com/courtside/leaguecore/internal/modules/draft"
)

// AssetKind tags the tradable asset variants.
type AssetKind string

// Asset variants.
const (
	KindPlayer     AssetKind = "player"
	KindPick       AssetKind = "pick"
	KindSwap       AssetKind = "swap"
	KindFixedAsset AssetKind = "fixed_asset"
)

// variantRank orders asset kinds for canonicalization.
func variantRank(k AssetKind) int {
	switch k {
	case KindPlayer:
		return 0
	case KindPick:
		return 1
	case KindSwap:
		return 2
	case KindFixedAsset:
		return 3
	}
	return 4
}

// Asset is one tradable unit inside a deal leg. Exactly the fields of its
// variant are set.
type Asset struct {
	Kind AssetKind `json:"kind"`

	// player
	PlayerID string `json:"player_id,omitempty"`

	// pick
	PickID     string            `json:"pick_id,omitempty"`
	Protection *draft.Protection `json:"protection,omitempty"`

	// swap
	SwapID  string `json:"swap_id,omitempty"`
	PickIDA string `json:"pick_id_a,omitempty"`
	PickIDB string `json:"pick_id_b,omitempty"`

	// fixed asset
	AssetID string `json:"asset_id,omitempty"`

	ToTeam string `json:"to_team,omitempty"`
}

// Identifier returns the variant's primary id.
func (a Asset) Identifier() string {
	switch a.Kind {
	case KindPlayer:
		return a.PlayerID
	case KindPick:
		return a.PickID
	case KindSwap:
		return a.SwapID
	case KindFixedAsset:
		return a.AssetID
	}
	return ""
}

// Key returns the global asset key used for locking and duplicate detection.
func (a Asset) Key() string {
	return string(a.Kind) + ":" + a.Identifier()
}

// Deal is an ordered set of participating teams and, per team, the assets
// that team sends out.
type Deal struct {
	Teams []string           `json:"teams"`
	Legs  map[string][]Asset `json:"legs"`
	Meta  map[string]any     `json:"meta,omitempty"`
}

// AllAssets returns every asset across all legs, leg order following Teams.
func (d *Deal) AllAssets() []Asset {
	var out []Asset
	for _, team := range d.Teams {
		out = append(out, d.Legs[team]...)
	}
	return out
}

// wire structures give protection parsing pointer fields so a missing
// compensation value is distinguishable from zero.
type wireDeal struct {
	Teams []string               `json:"teams"`
	Legs  map[string][]wireAsset `json:"legs"`
	Meta  map[string]any         `json:"meta,omitempty"`
}

type wireAsset struct {
	Kind       string          `json:"kind"`
	PlayerID   string          `json:"player_id"`
	PickID     string          `json:"pick_id"`
	Protection *wireProtection `json:"protection"`
	SwapID     string          `json:"swap_id"`
	PickIDA    string          `json:"pick_id_a"`
	PickIDB    string          `json:"pick_id_b"`
	AssetID    string          `json:"asset_id"`
	ToTeam     string          `json:"to_team"`
}

type wireProtection struct {
	Type         string            `json:"type"`
	N            *int              `json:"n"`
	Compensation *wireCompensation `json:"compensation"`
}

type wireCompensation struct {
	Label string `json:"label"`
	Value *int64 `json:"value"`
}

// ParseDeal decodes and validates a raw deal payload. Bilateral deals infer
// each asset's to_team as the other team; deals with three or more teams
// must state it explicitly.
func ParseDeal(raw []byte) (*Deal, error) {
	var w wireDeal
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, domain.NewError(domain.ErrInvalidInput, "unparseable deal payload", "error", err.Error())
	}
	return buildDeal(&w)
}

func buildDeal(w *wireDeal) (*Deal, error) {
	if len(w.Teams) < 2 {
		return nil, domain.NewError(domain.ErrInvalidInput, "a deal needs at least two teams")
	}
	if err := ids.AssertUniqueIDs(w.Teams, "team"); err != nil {
		return nil, err
	}
	teams := make([]string, len(w.Teams))
	for i, t := range w.Teams {
		norm, err := ids.NormalizeTeamID(t, true, false)
		if err != nil {
			return nil, err
		}
		teams[i] = norm
	}

	multiTeam := len(teams) > 2
	otherOf := func(team string) string {
		if teams[0] == team {
			return teams[1]
		}
		return teams[0]
	}

	deal := &Deal{Teams: teams, Legs: make(map[string][]Asset, len(teams)), Meta: w.Meta}
	for rawTeam, leg := range w.Legs {
		team, err := ids.NormalizeTeamID(rawTeam, true, false)
		if err != nil {
			return nil, err
		}
		assets := make([]Asset, 0, len(leg))
		for _, wa := range leg {
			a, err := buildAsset(wa)
			if err != nil {
				return nil, err
			}
			if a.ToTeam == "" {
				if multiTeam {
					return nil, domain.NewError(domain.ErrMissingToTeam,
						"multi-team deals require to_team on every asset", "asset", a.Key())
				}
				a.ToTeam = otherOf(team)
			}
			assets = append(assets, a)
		}
		deal.Legs[team] = assets
	}
	return deal, nil
}

func buildAsset(w wireAsset) (Asset, error) {
	a := Asset{Kind: AssetKind(w.Kind), ToTeam: w.ToTeam}
	if a.ToTeam != "" {
		norm, err := ids.NormalizeTeamID(a.ToTeam, true, false)
		if err != nil {
			return Asset{}, err
		}
		a.ToTeam = norm
	}

	switch a.Kind {
	case KindPlayer:
		if w.PlayerID == "" {
			return Asset{}, domain.NewError(domain.ErrInvalidInput, "player asset missing player_id")
		}
		playerID, err := ids.NormalizePlayerID(w.PlayerID, true, false)
		if err != nil {
			return Asset{}, err
		}
		a.PlayerID = playerID

	case KindPick:
		if w.PickID == "" {
			return Asset{}, domain.NewError(domain.ErrInvalidInput, "pick asset missing pick_id")
		}
		pickID, err := ids.NormalizePickID(w.PickID)
		if err != nil {
			return Asset{}, err
		}
		a.PickID = pickID
		if w.Protection != nil {
			p, err := buildProtection(w.Protection)
			if err != nil {
				return Asset{}, err
			}
			a.Protection = p
		}

	case KindSwap:
		if w.SwapID == "" && (w.PickIDA == "" || w.PickIDB == "") {
			return Asset{}, domain.NewError(domain.ErrInvalidInput, "swap asset missing identifiers")
		}
		a.SwapID, a.PickIDA, a.PickIDB = w.SwapID, w.PickIDA, w.PickIDB
		if a.PickIDA != "" && a.PickIDB != "" {
			canonical := ids.ComputeSwapID(a.PickIDA, a.PickIDB)
			if a.SwapID == "" {
				a.SwapID = canonical
			} else if a.SwapID != canonical {
				return Asset{}, domain.NewError(domain.ErrSwapInvalid,
					"swap id does not match its pick pair", "swap_id", a.SwapID)
			}
		}

	case KindFixedAsset:
		if w.AssetID == "" {
			return Asset{}, domain.NewError(domain.ErrInvalidInput, "fixed asset missing asset_id")
		}
		a.AssetID = w.AssetID

	default:
		return Asset{}, domain.NewError(domain.ErrInvalidInput, "unknown asset kind", "kind", w.Kind)
	}
	return a, nil
}

func buildProtection(w *wireProtection) (*draft.Protection, error) {
	if w.Type != draft.ProtectionTopN {
		return nil, domain.NewError(domain.ErrProtectionInvalid, "unsupported protection type", "type", w.Type)
	}
	if w.N == nil || *w.N < 1 || *w.N > 30 {
		return nil, domain.NewError(domain.ErrProtectionInvalid, "protection n out of range")
	}
	if w.Compensation == nil || w.Compensation.Value == nil {
		return nil, domain.NewError(domain.ErrProtectionInvalid, "protection compensation value missing")
	}
	p := &draft.Protection{
		Type: draft.ProtectionTopN,
		N:    *w.N,
		Compensation: draft.Compensation{
			Label: w.Compensation.Label,
			Value: *w.Compensation.Value,
		},
	}
	return p, p.Validate()
}

// Canonicalize returns the deterministic wire form: teams sorted, each leg
// sorted by (variant rank, to_team, identifier).
func Canonicalize(d *Deal) *Deal {
	out := &Deal{
		Teams: append([]string(nil), d.Teams...),
		Legs:  make(map[string][]Asset, len(d.Legs)),
		Meta:  d.Meta,
	}
	sort.Strings(out.Teams)
	for team, leg := range d.Legs {
		sorted := append([]Asset(nil), leg...)
		sort.Slice(sorted, func(i, j int) bool {
			ri, rj := variantRank(sorted[i].Kind), variantRank(sorted[j].Kind)
			if ri != rj {
				return ri < rj
			}
			if sorted[i].ToTeam != sorted[j].ToTeam {
				return sorted[i].ToTeam < sorted[j].ToTeam
			}
			return sorted[i].Identifier() < sorted[j].Identifier()
		})
		out.Legs[team] = sorted
	}
	return out
}

// CanonicalJSON serializes the canonical form. Map keys marshal sorted, so
// equal deals always produce identical bytes.
func CanonicalJSON(d *Deal) ([]byte, error) {
	b, err := json.Marshal(Canonicalize(d))
	if err != nil {
		return nil, fmt.Errorf("failed to serialize deal: %w", err)
	}
	return b, nil
}
