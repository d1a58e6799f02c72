// Package contracts owns contract records, their lifecycle (bootstrap,
// option decisions, offseason expiry, sign/release), and the derived
// contract indices.
package contracts

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/courtside/leaguecore/internal/domain"
	"github.com/courtside/leaguecore/internal/ids"
)

// Contract statuses.
const (
	StatusActive  = "ACTIVE"
	StatusExpired = "EXPIRED"
)

// Option types.
const (
	OptionTeam   = "TEAM"
	OptionPlayer = "PLAYER"
	OptionETO    = "ETO"
)

// Option statuses.
const (
	OptionPending   = "PENDING"
	OptionExercised = "EXERCISED"
	OptionDeclined  = "DECLINED"
)

// Option is a contract-year option. DecisionDate is nil while PENDING.
type Option struct {
	SeasonYear   int     `json:"season_year"`
	Type         string  `json:"type"`
	Status       string  `json:"status"`
	DecisionDate *string `json:"decision_date,omitempty"`
}

// Normalize canonicalizes the option in place: type and status uppercased,
// missing status defaulted to PENDING.
func (o *Option) Normalize() error {
	o.Type = strings.ToUpper(strings.TrimSpace(o.Type))
	o.Status = strings.ToUpper(strings.TrimSpace(o.Status))
	if o.Status == "" {
		o.Status = OptionPending
	}
	switch o.Type {
	case OptionTeam, OptionPlayer, OptionETO:
	default:
		return domain.NewError(domain.ErrInvalidInput, "unknown option type", "type", o.Type)
	}
	switch o.Status {
	case OptionPending, OptionExercised, OptionDeclined:
	default:
		return domain.NewError(domain.ErrInvalidInput, "unknown option status", "status", o.Status)
	}
	return nil
}

// Contract is a full contract record. SalaryByYear maps season start year
// (as a string, matching the stored JSON) to integer dollars.
type Contract struct {
	ContractID      string           `json:"contract_id"`
	PlayerID        string           `json:"player_id"`
	TeamID          string           `json:"team_id"`
	StartSeasonID   string           `json:"start_season_id"`
	EndSeasonID     string           `json:"end_season_id"`
	SalaryByYear    map[string]int64 `json:"salary_by_year"`
	Options         []Option         `json:"options"`
	Status          string           `json:"status"`
	IsActive        bool             `json:"is_active"`
	SignedDate      string           `json:"signed_date"`
	StartSeasonYear int              `json:"start_season_year"`
	Years           int              `json:"years"`
	CreatedAt       string           `json:"created_at,omitempty"`
	UpdatedAt       string           `json:"updated_at,omitempty"`
}

// RecomputeYears sets Years to the longest consecutive run of salary years
// starting at StartSeasonYear and refreshes the season id bounds.
func (c *Contract) RecomputeYears() {
	years := 0
	for y := c.StartSeasonYear; ; y++ {
		if _, ok := c.SalaryByYear[strconv.Itoa(y)]; !ok {
			break
		}
		years++
	}
	c.Years = years
	c.StartSeasonID = ids.SeasonIDFromYear(c.StartSeasonYear)
	if years > 0 {
		c.EndSeasonID = ids.SeasonIDFromYear(c.StartSeasonYear + years - 1)
	} else {
		c.EndSeasonID = c.StartSeasonID
	}
}

// SalaryForYear returns the salary for a season start year, or 0.
func (c *Contract) SalaryForYear(year int) int64 {
	return c.SalaryByYear[strconv.Itoa(year)]
}

// BootstrapContractID is the deterministic id for roster-bootstrap contracts.
func BootstrapContractID(seasonYear int, playerID string) string {
	return fmt.Sprintf("BOOT_%s_%s", ids.SeasonIDFromYear(seasonYear), playerID)
}

// SignedContractID is the deterministic id for sign/re-sign contracts.
func SignedContractID(seasonYear int, playerID string) string {
	return fmt.Sprintf("SGN_%s_%s", ids.SeasonIDFromYear(seasonYear), playerID)
}

// IsSignedContractID reports whether a contract came from a sign or re-sign
// rather than the roster bootstrap. Trade eligibility bans key off this.
func IsSignedContractID(contractID string) bool {
	return strings.HasPrefix(contractID, "SGN_")
}

// Decision is an option decision returned by a DecisionPolicy.
type Decision string

// Option decisions.
const (
	DecideExercise Decision = "EXERCISE"
	DecideDecline  Decision = "DECLINE"
)

// DecisionPolicy decides a PENDING option during offseason processing. The
// default policy exercises everything.
type DecisionPolicy func(opt Option, playerID string, c *Contract) Decision

// DefaultDecisionPolicy exercises every pending option.
func DefaultDecisionPolicy(Option, string, *Contract) Decision {
	return DecideExercise
}
