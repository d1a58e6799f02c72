package schedule

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/courtside/leaguecore/internal/domain"
	"github.com/courtside/leaguecore/internal/ids"
)

// pairKey is an unordered team pair with t1 < t2.
type pairKey struct {
	t1, t2 string
}

func makePair(a, b string) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{t1: a, t2: b}
}

// matchupCounts returns the games per unordered pair: 4 in-division, 4 or 3
// in-conference across divisions (per the rotation), 2 inter-conference.
func matchupCounts() map[pairKey]int {
	counts := make(map[pairKey]int)
	teams := domain.LeagueTeams()

	for i := 0; i < len(teams); i++ {
		for j := i + 1; j < len(teams); j++ {
			a, b := teams[i], teams[j]
			switch {
			case domain.DivisionOf(a) == domain.DivisionOf(b):
				counts[makePair(a, b)] = 4
			case domain.ConferenceOf(a) == domain.ConferenceOf(b):
				counts[makePair(a, b)] = 3 // upgraded to 4 by the rotation below
			default:
				counts[makePair(a, b)] = 2
			}
		}
	}

	// Rotation: within each pair of divisions in a conference, team i of
	// division A plays 4 games against teams (i+d) mod 5 of division B for
	// d in {0,1,2}. The mapping is part of the schedule fingerprint.
	for _, conf := range []string{domain.ConferenceEast, domain.ConferenceWest} {
		divs := domain.ConferenceDivisions[conf]
		for x := 0; x < len(divs); x++ {
			for y := x + 1; y < len(divs); y++ {
				divA := domain.Divisions[divs[x]]
				divB := domain.Divisions[divs[y]]
				for i := 0; i < len(divA); i++ {
					for d := 0; d < 3; d++ {
						counts[makePair(divA[i], divB[(i+d)%len(divB)])] = 4
					}
				}
			}
		}
	}
	return counts
}

// orientOddPairs picks the extra-home team for every 3-game pair. Every team
// sits on an even number of odd pairs, so directing the edges along Euler
// circuits gives each team equal in and out degree: it takes the extra home
// in exactly half of its odd pairs.
func orientOddPairs(pairs []pairKey) map[pairKey]string {
	adj := make(map[string][]string)
	for _, p := range pairs {
		adj[p.t1] = append(adj[p.t1], p.t2)
		adj[p.t2] = append(adj[p.t2], p.t1)
	}
	teams := make([]string, 0, len(adj))
	for t := range adj {
		sort.Strings(adj[t])
		teams = append(teams, t)
	}
	sort.Strings(teams)

	next := make(map[string]int)
	used := make(map[pairKey]bool)
	winner := make(map[pairKey]string, len(pairs))
	for _, start := range teams {
		stack := []string{start}
		for len(stack) > 0 {
			v := stack[len(stack)-1]
			advanced := false
			for next[v] < len(adj[v]) {
				w := adj[v][next[v]]
				next[v]++
				p := makePair(v, w)
				if used[p] {
					continue
				}
				used[p] = true
				winner[p] = v
				stack = append(stack, w)
				advanced = true
				break
			}
			if !advanced {
				stack = stack[:len(stack)-1]
			}
		}
	}
	return winner
}

// Build generates the full regular-season schedule for a season year. The
// same season year always yields the same schedule: date slotting draws from
// a season-seeded source.
func Build(seasonYear int) ([]Game, error) {
	counts := matchupCounts()

	// Deterministic pair order: sorted by (t1, t2).
	pairs := make([]pairKey, 0, len(counts))
	for p := range counts {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].t1 != pairs[j].t1 {
			return pairs[i].t1 < pairs[j].t1
		}
		return pairs[i].t2 < pairs[j].t2
	})

	// Home/away allocation. Even pairs split evenly; each 3-game pair has an
	// oriented winner taking the extra home so every team wins exactly half
	// of its odd pairs and lands within one game of 41 at home.
	type matchup struct {
		home, away string
	}
	var odd []pairKey
	for _, p := range pairs {
		if counts[p]%2 == 1 {
			odd = append(odd, p)
		}
	}
	extraHome := orientOddPairs(odd)

	var games []matchup
	for _, p := range pairs {
		n := counts[p]
		h1 := n / 2
		h2 := n / 2
		if n%2 == 1 {
			if extraHome[p] == p.t2 {
				h2++
			} else {
				h1++
			}
		}
		for k := 0; k < h1; k++ {
			games = append(games, matchup{home: p.t1, away: p.t2})
		}
		for k := 0; k < h2; k++ {
			games = append(games, matchup{home: p.t2, away: p.t1})
		}
	}

	if len(games) != GamesPerSeason {
		return nil, fmt.Errorf("matchup generation produced %d games, want %d", len(games), GamesPerSeason)
	}

	// Date slotting: randomized order, up to 100 attempts per game; a day
	// is acceptable when neither team already plays and fewer than 8 games
	// are slotted. Exhausted attempts fall back to a random day ignoring
	// caps (rare, acceptable tail behavior).
	rng := rand.New(rand.NewSource(int64(seasonYear)))
	rng.Shuffle(len(games), func(i, j int) { games[i], games[j] = games[j], games[i] })

	start := time.Date(seasonYear, SeasonStartMonth, SeasonStartDay, 0, 0, 0, 0, time.UTC)
	dayOf := func(offset int) string {
		return start.AddDate(0, 0, offset).Format("2006-01-02")
	}

	gamesOnDay := make(map[string]int)
	teamBusy := make(map[string]map[string]bool) // date -> team -> plays
	seen := make(map[string]bool)                // game ids already emitted
	seasonID := ids.SeasonIDFromYear(seasonYear)

	out := make([]Game, 0, len(games))
	for _, m := range games {
		date := ""
		for attempt := 0; attempt < slotAttempts; attempt++ {
			candidate := dayOf(rng.Intn(SeasonLengthDays))
			if gamesOnDay[candidate] >= MaxGamesPerDay {
				continue
			}
			if teamBusy[candidate][m.home] || teamBusy[candidate][m.away] {
				continue
			}
			date = candidate
			break
		}
		for date == "" || seen[fmt.Sprintf("%s_%s_%s", date, m.home, m.away)] {
			date = dayOf(rng.Intn(SeasonLengthDays))
		}
		seen[fmt.Sprintf("%s_%s_%s", date, m.home, m.away)] = true

		gamesOnDay[date]++
		if teamBusy[date] == nil {
			teamBusy[date] = make(map[string]bool)
		}
		teamBusy[date][m.home] = true
		teamBusy[date][m.away] = true

		out = append(out, Game{
			GameID:     fmt.Sprintf("%s_%s_%s", date, m.home, m.away),
			Date:       date,
			HomeTeamID: m.home,
			AwayTeamID: m.away,
			Status:     StatusScheduled,
			SeasonID:   seasonID,
			Phase:      PhaseRegular,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].GameID < out[j].GameID })
	return out, nil
}
