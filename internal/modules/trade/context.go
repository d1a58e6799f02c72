package trade

import (
	"fmt"
	"time"

	"github.com/courtside/leaguecore/internal/database"
	"github.com/courtside/leaguecore/internal/domain"
	"github.com/courtside/leaguecore/internal/modules/contracts"
	"github.com/courtside/leaguecore/internal/modules/draft"
	"github.com/courtside/leaguecore/internal/modules/roster"
	"github.com/courtside/leaguecore/internal/modules/settings"
)

const isoDate = "2006-01-02"

// TeamTradeTotals are a team's traded salary sums for one deal.
type TeamTradeTotals struct {
	Outgoing   int64
	Incoming   int64
	PlayersOut int
	PlayersIn  int
	PicksOut   int
	PicksIn    int
	AssetsOut  int
	AssetsIn   int
}

// TeamPayroll is a team's roster salary before and after the deal.
type TeamPayroll struct {
	Pre  int64
	Post int64
}

// Context carries everything a rule needs: the open transaction, the
// repositories, the current rules, the normalized date, and precomputed
// per-team totals and payrolls.
type Context struct {
	Tx         *database.Tx
	Roster     *roster.Repository
	Contracts  *contracts.Repository
	Draft      *draft.Repository
	Agreements *AgreementRepository
	Txlog      *LogRepository

	Rules settings.TradeRules
	Today string

	// DealID is set when validating on behalf of a committed deal, so its
	// own locks do not block it.
	DealID string

	Totals   map[string]*TeamTradeTotals
	Payrolls map[string]*TeamPayroll

	entries map[string]*roster.Entry
}

// Entry returns the cached roster row for a traded player, or nil when the
// player is not rostered.
func (c *Context) Entry(playerID string) *roster.Entry {
	return c.entries[playerID]
}

// SeasonYear derives the league season year from Today: seasons roll over on
// July 1.
func (c *Context) SeasonYear() (int, error) {
	t, err := time.Parse(isoDate, c.Today)
	if err != nil {
		return 0, fmt.Errorf("invalid current date %q: %w", c.Today, err)
	}
	if t.Month() >= time.July {
		return t.Year(), nil
	}
	return t.Year() - 1, nil
}

// DraftYear is the year of the next draft relative to Today.
func (c *Context) DraftYear() (int, error) {
	year, err := c.SeasonYear()
	if err != nil {
		return 0, err
	}
	return year + 1, nil
}

// SeasonStart is the ISO date of the current season's July 1 boundary.
func (c *Context) SeasonStart() (string, error) {
	year, err := c.SeasonYear()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d-07-01", year), nil
}

// newContext precomputes trade totals and payrolls for every team in the
// deal. Missing roster rows contribute nothing to the totals; the ownership
// rule reports them before any salary rule runs.
func newContext(tx *database.Tx, s *Service, deal *Deal, today string) (*Context, error) {
	rules, err := s.settings.GetTradeRules(tx)
	if err != nil {
		return nil, err
	}

	c := &Context{
		Tx:         tx,
		Roster:     s.roster,
		Contracts:  s.contracts,
		Draft:      s.draft,
		Agreements: s.agreements,
		Txlog:      s.txlog,
		Rules:      rules,
		Today:      today,
		Totals:     make(map[string]*TeamTradeTotals, len(deal.Teams)),
		Payrolls:   make(map[string]*TeamPayroll, len(deal.Teams)),
		entries:    make(map[string]*roster.Entry),
	}

	for _, team := range deal.Teams {
		c.Totals[team] = &TeamTradeTotals{}
		pre, err := s.roster.TeamSalaryTotal(tx, team)
		if err != nil {
			return nil, err
		}
		c.Payrolls[team] = &TeamPayroll{Pre: pre, Post: pre}
	}

	for from, leg := range deal.Legs {
		fromTotals, ok := c.Totals[from]
		if !ok {
			// TeamLegsRule reports the stray leg; skip totals for it.
			continue
		}
		for _, a := range leg {
			toTotals := c.Totals[a.ToTeam]
			switch a.Kind {
			case KindPlayer:
				entry, err := s.roster.GetEntry(tx, a.PlayerID)
				if err != nil {
					return nil, err
				}
				c.entries[a.PlayerID] = entry
				fromTotals.PlayersOut++
				if toTotals != nil {
					toTotals.PlayersIn++
				}
				if entry != nil {
					fromTotals.Outgoing += entry.SalaryAmount
					if toTotals != nil {
						toTotals.Incoming += entry.SalaryAmount
					}
				}
			case KindPick:
				fromTotals.PicksOut++
				if toTotals != nil {
					toTotals.PicksIn++
				}
			default:
				fromTotals.AssetsOut++
				if toTotals != nil {
					toTotals.AssetsIn++
				}
			}
		}
	}

	for team, totals := range c.Totals {
		p := c.Payrolls[team]
		p.Post = p.Pre - totals.Outgoing + totals.Incoming
	}
	return c, nil
}

// addDays shifts an ISO date by n days.
func addDays(date string, n int) (string, error) {
	t, err := time.Parse(isoDate, date)
	if err != nil {
		return "", domain.NewError(domain.ErrInvalidInput, "invalid date", "date", date)
	}
	return t.AddDate(0, 0, n).Format(isoDate), nil
}
