package settings

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/courtside/leaguecore/internal/database"
)

// Repository handles meta keys and the trade rules blob. All methods run
// inside a caller-owned transaction.
type Repository struct {
	log zerolog.Logger
}

// NewRepository creates a settings repository.
func NewRepository(log zerolog.Logger) *Repository {
	return &Repository{log: log.With().Str("repo", "settings").Logger()}
}

// GetMeta returns a meta value, or "" when the key is absent.
func (r *Repository) GetMeta(tx *database.Tx, key string) (string, error) {
	var value string
	err := tx.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get meta %s: %w", key, err)
	}
	return value, nil
}

// SetMeta writes a meta key.
func (r *Repository) SetMeta(tx *database.Tx, key, value string) error {
	_, err := tx.Exec(
		`INSERT INTO meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set meta %s: %w", key, err)
	}
	return nil
}

// GetTradeRules loads the trade rules, falling back to defaults when none
// are persisted yet.
func (r *Repository) GetTradeRules(tx *database.Tx) (TradeRules, error) {
	raw, err := r.GetMeta(tx, TradeRulesKey)
	if err != nil {
		return TradeRules{}, err
	}
	if raw == "" {
		return DefaultTradeRules(), nil
	}
	rules := DefaultTradeRules()
	if err := json.Unmarshal([]byte(raw), &rules); err != nil {
		return TradeRules{}, fmt.Errorf("failed to decode trade rules: %w", err)
	}
	return rules, nil
}

// SetTradeRules persists the trade rules.
func (r *Repository) SetTradeRules(tx *database.Tx, rules TradeRules) error {
	raw, err := json.Marshal(rules)
	if err != nil {
		return fmt.Errorf("failed to encode trade rules: %w", err)
	}
	return r.SetMeta(tx, TradeRulesKey, string(raw))
}

// ApplySeasonCap recomputes the cap thresholds for a season year when
// cap_auto_update is enabled: compounded growth from the base year, rounded
// to the round unit, with cap <= first_apron <= second_apron enforced after
// rounding. Returns the (possibly updated) rules.
func (r *Repository) ApplySeasonCap(tx *database.Tx, seasonYear int) (TradeRules, error) {
	rules, err := r.GetTradeRules(tx)
	if err != nil {
		return TradeRules{}, err
	}
	if !rules.CapAutoUpdate {
		return rules, nil
	}

	grow := func(base int64) int64 {
		raw := float64(base) * math.Pow(1+rules.CapAnnualGrowthRate, float64(seasonYear-rules.CapBaseYear))
		unit := float64(rules.CapRoundUnit)
		if unit <= 0 {
			unit = 1
		}
		return int64(math.Round(raw/unit)) * int64(unit)
	}

	rules.SalaryCap = grow(rules.CapBaseAmount)
	rules.FirstApron = grow(rules.CapBaseFirstApron)
	rules.SecondApron = grow(rules.CapBaseSecondApron)
	if rules.FirstApron < rules.SalaryCap {
		rules.FirstApron = rules.SalaryCap
	}
	if rules.SecondApron < rules.FirstApron {
		rules.SecondApron = rules.FirstApron
	}

	if err := r.SetTradeRules(tx, rules); err != nil {
		return TradeRules{}, err
	}
	r.log.Debug().Int("season_year", seasonYear).Int64("cap", rules.SalaryCap).Msg("Season cap applied")
	return rules, nil
}
