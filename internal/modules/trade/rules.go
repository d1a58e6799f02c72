package trade

import (
	"fmt"
	"sort"

	"github.com/courtside/leaguecore/internal/domain"
	"github.com/courtside/leaguecore/internal/ids"
	"github.com/courtside/leaguecore/internal/modules/contracts"
)

// Rule is one trade legality check. Rules run in ascending priority and the
// first failure stops the engine.
type Rule interface {
	Name() string
	Priority() int
	Validate(c *Context, d *Deal) error
}

// Engine runs the rule chain.
type Engine struct {
	rules []Rule
}

// NewEngine builds an engine over the given rules, sorted by priority. With
// no arguments it carries the full built-in chain.
func NewEngine(rules ...Rule) *Engine {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	sorted := append([]Rule(nil), rules...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority() < sorted[j].Priority() })
	return &Engine{rules: sorted}
}

// DefaultRules returns the built-in rule chain.
func DefaultRules() []Rule {
	return []Rule{
		DeadlineRule{},
		TeamLegsRule{},
		DuplicateAssetRule{},
		PickProtectionSchemaRule{},
		SwapUniquenessRule{},
		AssetLockRule{},
		OwnershipRule{},
		RosterLimitRule{},
		PlayerEligibilityRule{},
		ReturnToTradingTeamRule{},
		PickRulesRule{},
		SalaryMatchingRule{},
	}
}

// Validate runs every rule against the deal.
func (e *Engine) Validate(c *Context, d *Deal) error {
	for _, r := range e.rules {
		if err := r.Validate(c, d); err != nil {
			return err
		}
	}
	return nil
}

// DeadlineRule rejects trades after the configured deadline.
type DeadlineRule struct{}

func (DeadlineRule) Name() string  { return "deadline" }
func (DeadlineRule) Priority() int { return 10 }

func (DeadlineRule) Validate(c *Context, d *Deal) error {
	if c.Rules.TradeDeadline != "" && c.Today > c.Rules.TradeDeadline {
		return domain.NewError(domain.ErrDeadlinePassed, "trade deadline has passed",
			"deadline", c.Rules.TradeDeadline, "date", c.Today)
	}
	return nil
}

// TeamLegsRule requires the legs map to cover exactly the declared teams,
// with no empty legs unless the deal's meta allows them.
type TeamLegsRule struct{}

func (TeamLegsRule) Name() string  { return "team_legs" }
func (TeamLegsRule) Priority() int { return 20 }

func (TeamLegsRule) Validate(c *Context, d *Deal) error {
	declared := make(map[string]bool, len(d.Teams))
	for _, t := range d.Teams {
		declared[t] = true
	}
	for team := range d.Legs {
		if !declared[team] {
			return domain.NewError(domain.ErrBadLegs, "leg for undeclared team", "team", team)
		}
	}
	allowEmpty, _ := d.Meta["allow_empty_legs"].(bool)
	for _, t := range d.Teams {
		leg, ok := d.Legs[t]
		if !ok {
			return domain.NewError(domain.ErrBadLegs, "declared team has no leg", "team", t)
		}
		if len(leg) == 0 && !allowEmpty {
			return domain.NewError(domain.ErrBadLegs, "empty leg", "team", t)
		}
	}
	return nil
}

// DuplicateAssetRule rejects any asset appearing twice across legs.
type DuplicateAssetRule struct{}

func (DuplicateAssetRule) Name() string  { return "duplicate_asset" }
func (DuplicateAssetRule) Priority() int { return 30 }

func (DuplicateAssetRule) Validate(c *Context, d *Deal) error {
	seen := make(map[string]bool)
	for _, a := range d.AllAssets() {
		key := a.Key()
		if seen[key] {
			return domain.NewError(domain.ErrDuplicateAsset, "asset appears twice", "asset", key)
		}
		seen[key] = true
	}
	return nil
}

// PickProtectionSchemaRule re-validates protection payload shapes.
type PickProtectionSchemaRule struct{}

func (PickProtectionSchemaRule) Name() string  { return "pick_protection_schema" }
func (PickProtectionSchemaRule) Priority() int { return 33 }

func (PickProtectionSchemaRule) Validate(c *Context, d *Deal) error {
	for _, a := range d.AllAssets() {
		if a.Kind == KindPick && a.Protection != nil {
			if err := a.Protection.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// SwapUniquenessRule checks swap assets: a swap that does not exist yet is
// being created by the deal and must name a valid, unclaimed pick pair.
type SwapUniquenessRule struct{}

func (SwapUniquenessRule) Name() string  { return "swap_uniqueness" }
func (SwapUniquenessRule) Priority() int { return 35 }

func (SwapUniquenessRule) Validate(c *Context, d *Deal) error {
	for _, a := range d.AllAssets() {
		if a.Kind != KindSwap {
			continue
		}
		existing, err := c.Draft.GetSwap(c.Tx, a.SwapID)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if a.PickIDA == "" || a.PickIDB == "" {
			return domain.NewError(domain.ErrSwapInvalid,
				"unknown swap id and no pick pair to create it from", "swap_id", a.SwapID)
		}
		pa, err := ids.ParsePickID(a.PickIDA)
		if err != nil {
			return err
		}
		pb, err := ids.ParsePickID(a.PickIDB)
		if err != nil {
			return err
		}
		if pa.Year != pb.Year || pa.Round != pb.Round {
			return domain.NewError(domain.ErrSwapInvalid,
				"swap picks do not share year and round", "swap_id", a.SwapID)
		}
		active, err := c.Draft.FindActiveSwapByPair(c.Tx, a.PickIDA, a.PickIDB)
		if err != nil {
			return err
		}
		if active != nil {
			return domain.NewError(domain.ErrSwapInvalid,
				"pick pair already has an active swap", "swap_id", active.SwapID)
		}
	}
	return nil
}

// AssetLockRule rejects assets locked by a different live deal. Expired
// locks are released on sight.
type AssetLockRule struct{}

func (AssetLockRule) Name() string  { return "asset_lock" }
func (AssetLockRule) Priority() int { return 40 }

func (AssetLockRule) Validate(c *Context, d *Deal) error {
	for _, a := range d.AllAssets() {
		lock, err := c.Agreements.GetLock(c.Tx, a.Key())
		if err != nil {
			return err
		}
		if lock == nil {
			continue
		}
		if lock.ExpiresAt < c.Today {
			if err := c.Agreements.DeleteLock(c.Tx, a.Key()); err != nil {
				return err
			}
			continue
		}
		if lock.DealID != c.DealID {
			return domain.NewError(domain.ErrAssetLocked, "asset locked by another deal",
				"asset", a.Key(), "deal_id", lock.DealID)
		}
	}
	return nil
}

// OwnershipRule verifies every asset is sendable by its leg's team.
type OwnershipRule struct{}

func (OwnershipRule) Name() string  { return "ownership" }
func (OwnershipRule) Priority() int { return 50 }

func (OwnershipRule) Validate(c *Context, d *Deal) error {
	for _, from := range d.Teams {
		for _, a := range d.Legs[from] {
			if err := checkOwnership(c, from, a); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkOwnership(c *Context, from string, a Asset) error {
	switch a.Kind {
	case KindPlayer:
		entry := c.Entry(a.PlayerID)
		if entry == nil || entry.TeamID != from {
			return domain.NewError(domain.ErrPlayerNotOwned, "player is not on the sending team",
				"player_id", a.PlayerID, "team", from)
		}

	case KindPick:
		pick, err := c.Draft.GetPick(c.Tx, a.PickID)
		if err != nil {
			return err
		}
		if pick == nil || pick.OwnerTeam != from {
			return domain.NewError(domain.ErrPickNotOwned, "pick is not owned by the sending team",
				"pick_id", a.PickID, "team", from)
		}
		if a.Protection != nil && pick.Protection != nil && *a.Protection != *pick.Protection {
			return domain.NewError(domain.ErrProtectionConflict,
				"pick already carries a different protection", "pick_id", a.PickID)
		}

	case KindSwap:
		existing, err := c.Draft.GetSwap(c.Tx, a.SwapID)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.OwnerTeam != from {
				return domain.NewError(domain.ErrSwapNotOwned, "swap is not owned by the sending team",
					"swap_id", a.SwapID, "team", from)
			}
			return nil
		}
		// Creating a new swap: the sender must own one of its picks.
		for _, pickID := range []string{a.PickIDA, a.PickIDB} {
			pick, err := c.Draft.GetPick(c.Tx, pickID)
			if err != nil {
				return err
			}
			if pick != nil && pick.OwnerTeam == from {
				return nil
			}
		}
		return domain.NewError(domain.ErrSwapNotOwned,
			"sending team owns neither pick of the new swap", "swap_id", a.SwapID, "team", from)

	case KindFixedAsset:
		asset, err := c.Draft.GetFixedAsset(c.Tx, a.AssetID)
		if err != nil {
			return err
		}
		if asset == nil {
			return domain.NewError(domain.ErrFixedAssetNotFound, "fixed asset does not exist",
				"asset_id", a.AssetID)
		}
		if asset.OwnerTeam != from {
			return domain.NewError(domain.ErrFixedAssetNotOwned,
				"fixed asset is not owned by the sending team", "asset_id", a.AssetID, "team", from)
		}
	}
	return nil
}

// RosterLimitRule rejects deals leaving any team over the roster maximum.
type RosterLimitRule struct{}

func (RosterLimitRule) Name() string  { return "roster_limit" }
func (RosterLimitRule) Priority() int { return 60 }

func (RosterLimitRule) Validate(c *Context, d *Deal) error {
	for _, team := range d.Teams {
		count, err := c.Roster.CountTeamRoster(c.Tx, team)
		if err != nil {
			return err
		}
		totals := c.Totals[team]
		post := count - totals.PlayersOut + totals.PlayersIn
		if post > domain.MaxRosterSize {
			return domain.NewError(domain.ErrRosterLimit, "deal exceeds roster maximum",
				"team", team, "post_count", post)
		}
	}
	return nil
}

// PlayerEligibilityRule enforces the recently-signed ban and two traded-in
// windows, each with its own day-count knob: a recently traded player cannot
// be traded again while the re-trade window runs, and cannot be aggregated
// with a teammate while the group window runs.
type PlayerEligibilityRule struct{}

func (PlayerEligibilityRule) Name() string  { return "player_eligibility" }
func (PlayerEligibilityRule) Priority() int { return 70 }

func (PlayerEligibilityRule) Validate(c *Context, d *Deal) error {
	var retradeCutoff, aggCutoff string
	var err error
	if c.Rules.RecentTradeBanDays > 0 {
		if retradeCutoff, err = addDays(c.Today, -c.Rules.RecentTradeBanDays); err != nil {
			return err
		}
	}
	if c.Rules.AggregationBanDays > 0 {
		if aggCutoff, err = addDays(c.Today, -c.Rules.AggregationBanDays); err != nil {
			return err
		}
	}
	earliest := retradeCutoff
	if earliest == "" || (aggCutoff != "" && aggCutoff < earliest) {
		earliest = aggCutoff
	}

	var recentMoves []PlayerMove
	movesLoaded := false
	for _, from := range d.Teams {
		aggregated := aggCutoff != "" && c.Totals[from].PlayersOut >= 2
		for _, a := range d.Legs[from] {
			if a.Kind != KindPlayer {
				continue
			}
			if err := checkSignBan(c, a.PlayerID); err != nil {
				return err
			}
			if retradeCutoff == "" && !aggregated {
				continue
			}
			if !movesLoaded {
				if recentMoves, err = c.Txlog.PlayerMovesSince(c.Tx, earliest); err != nil {
					return err
				}
				movesLoaded = true
			}
			for _, m := range recentMoves {
				if m.PlayerID != a.PlayerID || m.ToTeam != from {
					continue
				}
				if retradeCutoff != "" && m.Date >= retradeCutoff {
					return domain.NewError(domain.ErrPlayerIneligible,
						"recently traded player cannot be traded again yet",
						"player_id", a.PlayerID, "acquired", m.Date)
				}
				if aggregated && m.Date >= aggCutoff {
					return domain.NewError(domain.ErrPlayerIneligible,
						"recently acquired player cannot be aggregated",
						"player_id", a.PlayerID, "acquired", m.Date)
				}
			}
		}
	}
	return nil
}

// checkSignBan blocks players on a fresh sign or re-sign until
// max(signed_date + ban_days, Dec 15 of the contract's first season year).
func checkSignBan(c *Context, playerID string) error {
	contract, err := c.Contracts.GetActiveByPlayer(c.Tx, playerID)
	if err != nil {
		return err
	}
	if contract == nil || !contracts.IsSignedContractID(contract.ContractID) {
		return nil
	}
	banEnd, err := addDays(contract.SignedDate, c.Rules.NewFASignBanDays)
	if err != nil {
		return err
	}
	dec15 := fmt.Sprintf("%d-12-15", contract.StartSeasonYear)
	if dec15 > banEnd {
		banEnd = dec15
	}
	if c.Today < banEnd {
		return domain.NewError(domain.ErrPlayerIneligible, "recently signed player cannot be traded yet",
			"player_id", playerID, "eligible_from", banEnd)
	}
	return nil
}

// ReturnToTradingTeamRule blocks a player returning, within the same season,
// to a team that traded them away.
type ReturnToTradingTeamRule struct{}

func (ReturnToTradingTeamRule) Name() string  { return "return_to_trading_team" }
func (ReturnToTradingTeamRule) Priority() int { return 72 }

func (ReturnToTradingTeamRule) Validate(c *Context, d *Deal) error {
	seasonStart, err := c.SeasonStart()
	if err != nil {
		return err
	}
	var moves []PlayerMove
	loaded := false
	for _, from := range d.Teams {
		for _, a := range d.Legs[from] {
			if a.Kind != KindPlayer {
				continue
			}
			if !loaded {
				if moves, err = c.Txlog.PlayerMovesSince(c.Tx, seasonStart); err != nil {
					return err
				}
				loaded = true
			}
			for _, m := range moves {
				if m.PlayerID == a.PlayerID && m.FromTeam == a.ToTeam {
					return domain.NewError(domain.ErrReturnToTeam,
						"player cannot return to the team that traded them this season",
						"player_id", a.PlayerID, "team", a.ToTeam)
				}
			}
		}
	}
	return nil
}

// PickRulesRule enforces the future-pick horizon and the Stepien rule: after
// the deal, at every look-ahead offset a team must keep at least one
// first-round pick across the two-year window starting there.
type PickRulesRule struct{}

func (PickRulesRule) Name() string  { return "pick_rules" }
func (PickRulesRule) Priority() int { return 80 }

func (PickRulesRule) Validate(c *Context, d *Deal) error {
	draftYear, err := c.DraftYear()
	if err != nil {
		return err
	}

	outFirsts := make(map[string]map[string]bool) // team -> outgoing first-round pick ids
	inFirstYears := make(map[string][]int)        // team -> incoming first-round years
	for _, from := range d.Teams {
		for _, a := range d.Legs[from] {
			if a.Kind != KindPick {
				continue
			}
			p, err := ids.ParsePickID(a.PickID)
			if err != nil {
				return err
			}
			if p.Year > draftYear+c.Rules.MaxPickYearsAhead {
				return domain.NewError(domain.ErrPickRules, "pick is too far in the future",
					"pick_id", a.PickID, "max_year", draftYear+c.Rules.MaxPickYearsAhead)
			}
			if p.Round != 1 {
				continue
			}
			if outFirsts[from] == nil {
				outFirsts[from] = make(map[string]bool)
			}
			outFirsts[from][a.PickID] = true
			inFirstYears[a.ToTeam] = append(inFirstYears[a.ToTeam], p.Year)
		}
	}

	for team, outgoing := range outFirsts {
		owned, err := c.Draft.ListPicksByOwner(c.Tx, team)
		if err != nil {
			return err
		}
		years := make(map[int]int)
		for _, p := range owned {
			if p.Round == 1 && !outgoing[p.PickID] {
				years[p.Year]++
			}
		}
		for _, y := range inFirstYears[team] {
			years[y]++
		}
		for offset := 0; offset <= c.Rules.StepienLookahead; offset++ {
			y := draftYear + offset
			if years[y] == 0 && years[y+1] == 0 {
				return domain.NewError(domain.ErrPickRules,
					"team would have no first-round pick in a two-year window",
					"team", team, "window_start", y)
			}
		}
	}
	return nil
}

// SalaryMatchingRule enforces CBA-style matching for teams over the cap:
// incoming salary must fit under an allowance derived from outgoing salary,
// with tighter multipliers above the aprons.
type SalaryMatchingRule struct{}

func (SalaryMatchingRule) Name() string  { return "salary_matching" }
func (SalaryMatchingRule) Priority() int { return 85 }

func (SalaryMatchingRule) Validate(c *Context, d *Deal) error {
	r := c.Rules
	for _, team := range d.Teams {
		totals := c.Totals[team]
		payroll := c.Payrolls[team]
		if totals.Incoming == 0 || payroll.Post <= r.SalaryCap {
			continue
		}

		out := totals.Outgoing
		var allowed int64
		switch {
		case payroll.Pre > r.SecondApron:
			allowed = int64(float64(out) * r.SecondApronMult)
		case payroll.Pre > r.FirstApron:
			allowed = int64(float64(out)*r.FirstApronMult) + r.MatchBuffer
		case out <= r.MatchSmallOutMax:
			allowed = 2*out + r.MatchBuffer
		case out <= r.MatchMidOutMax:
			allowed = out + r.MatchMidAdd + r.MatchBuffer
		default:
			allowed = int64(float64(out)*1.25) + r.MatchBuffer
		}

		if totals.Incoming > allowed {
			return domain.NewError(domain.ErrSalaryMismatch, "incoming salary exceeds the matching allowance",
				"team", team, "incoming", totals.Incoming, "allowed", allowed)
		}
	}
	return nil
}
