package results

import (
	"fmt"
	"testing"

	"github.com/courtside/leaguecore/internal/domain"
)

func resultPayload() string {
	return `{
		"schema_version": "2.0",
		"game": {
			"game_id": "2025-10-21_BOS_LAL",
			"date": "2025-10-21",
			"season_id": "2025-26",
			"phase": "regular",
			"home_team_id": "BOS",
			"away_team_id": "LAL",
			"overtime_periods": 0,
			"possessions_per_team": 98.5
		},
		"final": {"home": 112, "away": 104},
		"teams": {
			"home": {
				"totals": {"PTS": 112, "REB": 44},
				"players": [
					{"PlayerID": "P000001", "TeamID": "BOS", "PTS": 31},
					{"PlayerID": "P000002", "TeamID": "BOS", "PTS": 18}
				]
			},
			"away": {
				"totals": {"PTS": 104, "REB": 39},
				"players": [
					{"PlayerID": "P000003", "TeamID": "LAL", "PTS": 27}
				]
			}
		},
		"game_state": {
			"team_fouls": {"home": 19, "away": 22}
		},
		"meta": {"replay_token": "tok_abc123"}
	}`
}

func TestParseGameResult_RemapsSideKeys(t *testing.T) {
	r, err := ParseGameResult([]byte(resultPayload()))
	if err != nil {
		t.Fatalf("ParseGameResult failed: %v", err)
	}

	if r.Final["BOS"] != 112 || r.Final["LAL"] != 104 {
		t.Errorf("Final not remapped to team ids: %v", r.Final)
	}
	if _, ok := r.Final["home"]; ok {
		t.Error("Side key leaked through remapping")
	}
	if r.Teams["BOS"].Totals["PTS"] != 112 {
		t.Errorf("Teams not remapped: %v", r.Teams)
	}
	if r.GameState.TeamFouls["LAL"] != 22 {
		t.Errorf("Game state not remapped: %v", r.GameState.TeamFouls)
	}
	if r.ReplayToken() != "tok_abc123" {
		t.Errorf("Unexpected replay token %q", r.ReplayToken())
	}
}

func TestParseGameResult_AcceptsTeamIDKeys(t *testing.T) {
	raw := []byte(`{
		"schema_version": "2.0",
		"game": {"game_id": "G1", "phase": "playoffs", "home_team_id": "BOS", "away_team_id": "LAL"},
		"final": {"BOS": 99, "LAL": 98},
		"teams": {
			"BOS": {"totals": {"PTS": 99}, "players": []},
			"LAL": {"totals": {"PTS": 98}, "players": []}
		}
	}`)
	if _, err := ParseGameResult(raw); err != nil {
		t.Fatalf("Expected team-id keyed payload to parse, got %v", err)
	}
}

func TestParseGameResult_RejectsContractViolations(t *testing.T) {
	base := `{
		"schema_version": %q,
		"game": {"game_id": "G1", "phase": %q, "home_team_id": "BOS", "away_team_id": "LAL"},
		"final": %s,
		"teams": %s
	}`
	okTeams := `{"BOS": {"totals": {"PTS": 99}, "players": []}, "LAL": {"totals": {"PTS": 98}, "players": []}}`

	cases := []struct {
		name    string
		version string
		phase   string
		final   string
		teams   string
	}{
		{"wrong schema version", "1.0", "regular", `{"BOS": 99, "LAL": 98}`, okTeams},
		{"unknown phase", "2.0", "friendly", `{"BOS": 99, "LAL": 98}`, okTeams},
		{"one-sided final", "2.0", "regular", `{"BOS": 99}`, okTeams},
		{"final names a stranger", "2.0", "regular", `{"BOS": 99, "MIA": 98}`, okTeams},
		{"totals missing PTS", "2.0", "regular", `{"BOS": 99, "LAL": 98}`,
			`{"BOS": {"totals": {"REB": 40}, "players": []}, "LAL": {"totals": {"PTS": 98}, "players": []}}`},
		{"player row on the wrong team", "2.0", "regular", `{"BOS": 99, "LAL": 98}`,
			`{"BOS": {"totals": {"PTS": 99}, "players": [{"PlayerID": "P000001", "TeamID": "LAL"}]},
			  "LAL": {"totals": {"PTS": 98}, "players": []}}`},
		{"malformed player id", "2.0", "regular", `{"BOS": 99, "LAL": 98}`,
			`{"BOS": {"totals": {"PTS": 99}, "players": [{"PlayerID": "???", "TeamID": "BOS"}]},
			  "LAL": {"totals": {"PTS": 98}, "players": []}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := []byte(fmt.Sprintf(base, tc.version, tc.phase, tc.final, tc.teams))
			_, err := ParseGameResult(raw)
			if domain.CodeOf(err) == "" {
				t.Fatalf("Expected a coded validation error, got %v", err)
			}
		})
	}
}

func TestParseGameResult_RejectsPlayerOnBothTeams(t *testing.T) {
	raw := []byte(`{
		"schema_version": "2.0",
		"game": {"game_id": "G1", "phase": "regular", "home_team_id": "BOS", "away_team_id": "LAL"},
		"final": {"BOS": 99, "LAL": 98},
		"teams": {
			"BOS": {"totals": {"PTS": 99}, "players": [{"PlayerID": "P000001", "TeamID": "BOS"}]},
			"LAL": {"totals": {"PTS": 98}, "players": [{"PlayerID": "P000001", "TeamID": "LAL"}]}
		}
	}`)
	_, err := ParseGameResult(raw)
	if !domain.IsCode(err, domain.ErrInvalidInput) {
		t.Fatalf("Expected INVALID_INPUT, got %v", err)
	}
}
