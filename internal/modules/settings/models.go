// Package settings owns the meta table and the persisted league
// configuration, most importantly the trade rules under league.trade_rules.
package settings

// TradeRulesKey is the meta key holding the serialized trade rules.
const TradeRulesKey = "league.trade_rules"

// TradeRules is the persisted trade configuration. Monetary amounts are
// integer dollars.
type TradeRules struct {
	TradeDeadline string `json:"trade_deadline"` // ISO date; empty = no deadline set

	SalaryCap   int64 `json:"salary_cap"`
	FirstApron  int64 `json:"first_apron"`
	SecondApron int64 `json:"second_apron"`

	CapAutoUpdate       bool    `json:"cap_auto_update"`
	CapBaseYear         int     `json:"cap_base_year"`
	CapBaseAmount       int64   `json:"cap_base_amount"`
	CapBaseFirstApron   int64   `json:"cap_base_first_apron"`
	CapBaseSecondApron  int64   `json:"cap_base_second_apron"`
	CapAnnualGrowthRate float64 `json:"cap_annual_growth_rate"`
	CapRoundUnit        int64   `json:"cap_round_unit"`

	MatchSmallOutMax int64   `json:"match_small_out_max"`
	MatchMidOutMax   int64   `json:"match_mid_out_max"`
	MatchMidAdd      int64   `json:"match_mid_add"`
	MatchBuffer      int64   `json:"match_buffer"`
	FirstApronMult   float64 `json:"first_apron_mult"`
	SecondApronMult  float64 `json:"second_apron_mult"`

	NewFASignBanDays   int `json:"new_fa_sign_ban_days"`
	AggregationBanDays int `json:"aggregation_ban_days"`
	RecentTradeBanDays int `json:"recent_trade_ban_days"`

	MaxPickYearsAhead int `json:"max_pick_years_ahead"`
	StepienLookahead  int `json:"stepien_lookahead"`
}

// DefaultTradeRules returns the league defaults.
func DefaultTradeRules() TradeRules {
	return TradeRules{
		SalaryCap:   140_588_000,
		FirstApron:  178_132_000,
		SecondApron: 188_931_000,

		CapAutoUpdate:       true,
		CapBaseYear:         2024,
		CapBaseAmount:       140_588_000,
		CapBaseFirstApron:   178_132_000,
		CapBaseSecondApron:  188_931_000,
		CapAnnualGrowthRate: 0.07,
		CapRoundUnit:        1_000,

		MatchSmallOutMax: 7_500_000,
		MatchMidOutMax:   29_000_000,
		MatchMidAdd:      7_500_000,
		MatchBuffer:      250_000,
		FirstApronMult:   1.10,
		SecondApronMult:  1.00,

		NewFASignBanDays:   90,
		AggregationBanDays: 60,
		RecentTradeBanDays: 60,

		MaxPickYearsAhead: 7,
		StepienLookahead:  7,
	}
}
