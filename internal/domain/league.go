package domain

import "sort"

// FreeAgencyTeam is the distinguished team id holding unsigned players. It is
// a real row in the teams table and must always exist.
const FreeAgencyTeam = "FA"

// Conference names.
const (
	ConferenceEast = "EAST"
	ConferenceWest = "WEST"
)

// Divisions maps division name to its five member teams. Order within a
// division is fixed; the schedule rotation depends on it.
var Divisions = map[string][]string{
	"ATLANTIC":  {"BOS", "BKN", "NYK", "PHI", "TOR"},
	"CENTRAL":   {"CHI", "CLE", "DET", "IND", "MIL"},
	"SOUTHEAST": {"ATL", "CHA", "MIA", "ORL", "WAS"},
	"NORTHWEST": {"DEN", "MIN", "OKC", "POR", "UTA"},
	"PACIFIC":   {"GSW", "LAC", "LAL", "PHX", "SAC"},
	"SOUTHWEST": {"DAL", "HOU", "MEM", "NOP", "SAS"},
}

// ConferenceDivisions lists division names per conference, in rotation order.
var ConferenceDivisions = map[string][]string{
	ConferenceEast: {"ATLANTIC", "CENTRAL", "SOUTHEAST"},
	ConferenceWest: {"NORTHWEST", "PACIFIC", "SOUTHWEST"},
}

// LeagueTeams returns the 30 team ids in deterministic (sorted) order.
func LeagueTeams() []string {
	teams := make([]string, 0, 30)
	for _, conf := range []string{ConferenceEast, ConferenceWest} {
		for _, div := range ConferenceDivisions[conf] {
			teams = append(teams, Divisions[div]...)
		}
	}
	sort.Strings(teams)
	return teams
}

// knownTeams is the membership set for id validation.
var knownTeams = func() map[string]bool {
	m := make(map[string]bool, 31)
	for _, div := range Divisions {
		for _, t := range div {
			m[t] = true
		}
	}
	m[FreeAgencyTeam] = true
	return m
}()

// IsLeagueTeam reports whether id is one of the 30 franchise ids. FA is not a
// franchise.
func IsLeagueTeam(id string) bool {
	return id != FreeAgencyTeam && knownTeams[id]
}

// IsKnownTeam reports whether id is a franchise id or FA.
func IsKnownTeam(id string) bool {
	return knownTeams[id]
}

// DivisionOf returns the division name for a team, or "".
func DivisionOf(team string) string {
	for name, members := range Divisions {
		for _, t := range members {
			if t == team {
				return name
			}
		}
	}
	return ""
}

// ConferenceOf returns the conference name for a team, or "".
func ConferenceOf(team string) string {
	div := DivisionOf(team)
	for conf, divs := range ConferenceDivisions {
		for _, d := range divs {
			if d == div {
				return conf
			}
		}
	}
	return ""
}

// MaxRosterSize is the hard roster cap enforced by trade validation.
const MaxRosterSize = 15
