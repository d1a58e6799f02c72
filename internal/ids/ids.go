// Package ids provides canonical identifier formats and normalization for
// players, teams, seasons, draft picks, and swap rights. Every id that
// reaches the database goes through this package first.
package ids

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/courtside/leaguecore/internal/domain"
)

var (
	playerIDPattern = regexp.MustCompile(`^P\d{6}$`)
	numericPattern  = regexp.MustCompile(`^\d+$`)
	teamIDPattern   = regexp.MustCompile(`^[A-Z]{2,4}$`)
	pickIDPattern   = regexp.MustCompile(`^(\d{4})_R([12])_([A-Z]{2,4})$`)
	seasonIDPattern = regexp.MustCompile(`^(\d{4})-(\d{2})$`)
)

// MakePlayerIDSeq renders a numeric sequence as a canonical player id,
// e.g. 123 -> "P000123".
func MakePlayerIDSeq(n int) string {
	return fmt.Sprintf("P%06d", n)
}

// NormalizePlayerID returns the canonical "P######" form of value.
//
// In strict mode only canonical input is accepted. When allowLegacyNumeric is
// set, bare numeric ids (from old spreadsheets) are accepted and rendered
// canonically.
func NormalizePlayerID(value string, strict, allowLegacyNumeric bool) (string, error) {
	v := strings.ToUpper(strings.TrimSpace(value))
	if v == "" {
		return "", domain.NewError(domain.ErrInvalidPlayerID, "empty player id")
	}
	if playerIDPattern.MatchString(v) {
		return v, nil
	}
	if strict {
		return "", domain.NewError(domain.ErrInvalidPlayerID, "player id not canonical", "player_id", value)
	}
	if allowLegacyNumeric && numericPattern.MatchString(v) {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 999999 {
			return "", domain.NewError(domain.ErrInvalidPlayerID, "legacy numeric id out of range", "player_id", value)
		}
		return MakePlayerIDSeq(n), nil
	}
	return "", domain.NewError(domain.ErrInvalidPlayerID, "unrecognized player id", "player_id", value)
}

// NormalizeTeamID validates value against the league vocabulary and returns
// the uppercase short code. FA is accepted only when allowFA is set.
func NormalizeTeamID(value string, strict, allowFA bool) (string, error) {
	v := strings.ToUpper(strings.TrimSpace(value))
	if v == "" {
		return "", domain.NewError(domain.ErrInvalidInput, "empty team id")
	}
	if v == domain.FreeAgencyTeam {
		if !allowFA {
			return "", domain.NewError(domain.ErrInvalidInput, "FA not allowed here")
		}
		return v, nil
	}
	if !teamIDPattern.MatchString(v) {
		return "", domain.NewError(domain.ErrInvalidInput, "malformed team id", "team_id", value)
	}
	if strict && !domain.IsLeagueTeam(v) {
		return "", domain.NewError(domain.ErrInvalidInput, "unknown team id", "team_id", value)
	}
	return v, nil
}

// MakePickID builds the canonical pick id "{year}_R{round}_{originalTeam}".
func MakePickID(year, round int, originalTeam string) string {
	return fmt.Sprintf("%d_R%d_%s", year, round, originalTeam)
}

// Pick is the parsed form of a canonical pick id.
type Pick struct {
	Year         int
	Round        int
	OriginalTeam string
}

// ParsePickID decomposes a canonical pick id.
func ParsePickID(pickID string) (Pick, error) {
	m := pickIDPattern.FindStringSubmatch(strings.TrimSpace(pickID))
	if m == nil {
		return Pick{}, domain.NewError(domain.ErrInvalidInput, "malformed pick id", "pick_id", pickID)
	}
	year, _ := strconv.Atoi(m[1])
	round, _ := strconv.Atoi(m[2])
	return Pick{Year: year, Round: round, OriginalTeam: m[3]}, nil
}

// NormalizePickID validates and canonicalizes a pick id, verifying the
// embedded team against the league vocabulary.
func NormalizePickID(value string) (string, error) {
	p, err := ParsePickID(strings.ToUpper(strings.TrimSpace(value)))
	if err != nil {
		return "", err
	}
	if !domain.IsLeagueTeam(p.OriginalTeam) {
		return "", domain.NewError(domain.ErrInvalidInput, "pick references unknown team", "pick_id", value)
	}
	return MakePickID(p.Year, p.Round, p.OriginalTeam), nil
}

// ComputeSwapPairKey returns the unordered-pair key for two pick ids. The key
// is independent of argument order.
func ComputeSwapPairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "__" + b
}

// ComputeSwapID returns the canonical swap id for two pick ids.
func ComputeSwapID(a, b string) string {
	return "SWAP_" + ComputeSwapPairKey(a, b)
}

// SeasonIDFromYear renders a start year as the "YYYY-YY" season id,
// e.g. 2025 -> "2025-26".
func SeasonIDFromYear(year int) string {
	return fmt.Sprintf("%d-%02d", year, (year+1)%100)
}

// YearFromSeasonID parses the start year out of a "YYYY-YY" season id.
func YearFromSeasonID(seasonID string) (int, error) {
	m := seasonIDPattern.FindStringSubmatch(strings.TrimSpace(seasonID))
	if m == nil {
		return 0, domain.NewError(domain.ErrInvalidInput, "malformed season id", "season_id", seasonID)
	}
	year, _ := strconv.Atoi(m[1])
	if (year+1)%100 != mustAtoi(m[2]) {
		return 0, domain.NewError(domain.ErrInvalidInput, "season id trailing digits do not follow start year", "season_id", seasonID)
	}
	return year, nil
}

// AssertUniqueIDs fails fast when seq contains duplicates, listing the
// offenders in the error.
func AssertUniqueIDs(seq []string, what string) error {
	seen := make(map[string]bool, len(seq))
	var dups []string
	for _, id := range seq {
		if seen[id] {
			dups = append(dups, id)
		}
		seen[id] = true
	}
	if len(dups) > 0 {
		return domain.NewError(domain.ErrInvalidInput,
			fmt.Sprintf("duplicate %s ids", what), "duplicates", strings.Join(dups, ","))
	}
	return nil
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
