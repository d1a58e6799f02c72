// Package results ingests match-engine game results: contract validation,
// score finalization, and a binary archive of the full payload.
package results

import (
	"encoding/json"

	"github.com/courtside/leaguecore/internal/domain"
	"github.com/courtside/leaguecore/internal/ids"
	"github.com/courtside/leaguecore/internal/modules/schedule"
)

// SchemaVersion is the only accepted result contract version.
const SchemaVersion = "2.0"

// GameHeader identifies the game a result belongs to.
type GameHeader struct {
	GameID             string  `json:"game_id" msgpack:"game_id"`
	Date               string  `json:"date" msgpack:"date"`
	SeasonID           string  `json:"season_id" msgpack:"season_id"`
	Phase              string  `json:"phase" msgpack:"phase"`
	HomeTeamID         string  `json:"home_team_id" msgpack:"home_team_id"`
	AwayTeamID         string  `json:"away_team_id" msgpack:"away_team_id"`
	OvertimePeriods    int     `json:"overtime_periods" msgpack:"overtime_periods"`
	PossessionsPerTeam float64 `json:"possessions_per_team" msgpack:"possessions_per_team"`
}

// TeamBox is one team's statistical output.
type TeamBox struct {
	Totals          map[string]float64 `json:"totals" msgpack:"totals"`
	Breakdowns      map[string]any     `json:"breakdowns,omitempty" msgpack:"breakdowns,omitempty"`
	Players         []map[string]any   `json:"players" msgpack:"players"`
	ExtraTotals     map[string]any     `json:"extra_totals,omitempty" msgpack:"extra_totals,omitempty"`
	ExtraBreakdowns map[string]any     `json:"extra_breakdowns,omitempty" msgpack:"extra_breakdowns,omitempty"`
}

// GameState carries end-of-game condition tracking, keyed by team then
// player.
type GameState struct {
	TeamFouls        map[string]int                `json:"team_fouls,omitempty" msgpack:"team_fouls,omitempty"`
	PlayerFouls      map[string]map[string]int     `json:"player_fouls,omitempty" msgpack:"player_fouls,omitempty"`
	Fatigue          map[string]map[string]float64 `json:"fatigue,omitempty" msgpack:"fatigue,omitempty"`
	MinutesPlayedSec map[string]map[string]int     `json:"minutes_played_sec,omitempty" msgpack:"minutes_played_sec,omitempty"`
}

// GameResult is the full v2 result payload.
type GameResult struct {
	SchemaVersion string             `json:"schema_version" msgpack:"schema_version"`
	Game          GameHeader         `json:"game" msgpack:"game"`
	Final         map[string]int     `json:"final" msgpack:"final"`
	Teams         map[string]TeamBox `json:"teams" msgpack:"teams"`
	GameState     *GameState         `json:"game_state,omitempty" msgpack:"game_state,omitempty"`
	Meta          map[string]any     `json:"meta,omitempty" msgpack:"meta,omitempty"`
}

// ParseGameResult decodes and normalizes a raw result payload.
func ParseGameResult(raw []byte) (*GameResult, error) {
	var r GameResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, domain.NewError(domain.ErrInvalidInput, "unparseable game result", "error", err.Error())
	}
	r.remapSideKeys()
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// remapSideKeys replaces "home"/"away" map keys with the header's team ids,
// so downstream consumers only ever see team-id keys.
func (r *GameResult) remapSideKeys() {
	side := map[string]string{"home": r.Game.HomeTeamID, "away": r.Game.AwayTeamID}
	r.Final = remapKeys(r.Final, side)
	r.Teams = remapKeys(r.Teams, side)
	if r.GameState != nil {
		r.GameState.TeamFouls = remapKeys(r.GameState.TeamFouls, side)
		r.GameState.PlayerFouls = remapKeys(r.GameState.PlayerFouls, side)
		r.GameState.Fatigue = remapKeys(r.GameState.Fatigue, side)
		r.GameState.MinutesPlayedSec = remapKeys(r.GameState.MinutesPlayedSec, side)
	}
}

func remapKeys[V any](m map[string]V, side map[string]string) map[string]V {
	if m == nil {
		return nil
	}
	out := make(map[string]V, len(m))
	for k, v := range m {
		if mapped, ok := side[k]; ok && mapped != "" {
			k = mapped
		}
		out[k] = v
	}
	return out
}

// Validate checks the result against the ingestion contract.
func (r *GameResult) Validate() error {
	if r.SchemaVersion != SchemaVersion {
		return domain.NewError(domain.ErrInvalidInput, "unsupported result schema version",
			"schema_version", r.SchemaVersion)
	}
	switch r.Game.Phase {
	case schedule.PhaseRegular, schedule.PhasePlayIn, schedule.PhasePlayoffs, schedule.PhasePreseason:
	default:
		return domain.NewError(domain.ErrInvalidInput, "unknown game phase", "phase", r.Game.Phase)
	}
	if r.Game.GameID == "" || r.Game.HomeTeamID == "" || r.Game.AwayTeamID == "" {
		return domain.NewError(domain.ErrInvalidInput, "result is missing game identity")
	}

	if len(r.Final) != 2 {
		return domain.NewError(domain.ErrInvalidInput, "final must score exactly two teams",
			"teams", len(r.Final))
	}
	for _, teamID := range []string{r.Game.HomeTeamID, r.Game.AwayTeamID} {
		if _, ok := r.Final[teamID]; !ok {
			return domain.NewError(domain.ErrInvalidInput, "final is missing a team", "team", teamID)
		}
	}

	seenPlayers := make(map[string]string)
	for teamID, box := range r.Teams {
		if _, ok := box.Totals["PTS"]; !ok {
			return domain.NewError(domain.ErrInvalidInput, "team totals missing PTS", "team", teamID)
		}
		for _, line := range box.Players {
			playerID, _ := line["PlayerID"].(string)
			if _, err := ids.NormalizePlayerID(playerID, true, false); err != nil {
				return err
			}
			lineTeam, _ := line["TeamID"].(string)
			if lineTeam != teamID {
				return domain.NewError(domain.ErrInvalidInput, "player row team mismatch",
					"player_id", playerID, "team", teamID)
			}
			if other, dup := seenPlayers[playerID]; dup && other != teamID {
				return domain.NewError(domain.ErrInvalidInput, "player appears on both teams",
					"player_id", playerID)
			}
			seenPlayers[playerID] = teamID
		}
	}
	return nil
}

// ReplayToken returns the engine's replay token, when present.
func (r *GameResult) ReplayToken() string {
	token, _ := r.Meta["replay_token"].(string)
	return token
}
