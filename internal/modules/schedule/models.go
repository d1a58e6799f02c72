// Package schedule generates and stores the 1230-game master schedule.
package schedule

// Game statuses.
const (
	StatusScheduled  = "scheduled"
	StatusInProgress = "in_progress"
	StatusFinal      = "final"
	StatusCanceled   = "canceled"
)

// Phases.
const (
	PhaseRegular   = "regular"
	PhasePlayIn    = "play_in"
	PhasePlayoffs  = "playoffs"
	PhasePreseason = "preseason"
)

// Game is a master schedule row.
type Game struct {
	GameID     string `json:"game_id"`
	Date       string `json:"date"`
	HomeTeamID string `json:"home_team_id"`
	AwayTeamID string `json:"away_team_id"`
	Status     string `json:"status"`
	HomeScore  *int   `json:"home_score,omitempty"`
	AwayScore  *int   `json:"away_score,omitempty"`
	SeasonID   string `json:"season_id"`
	Phase      string `json:"phase"`
}

// Season window constants.
const (
	SeasonStartMonth = 10
	SeasonStartDay   = 19
	SeasonLengthDays = 180
	MaxGamesPerDay   = 8
	slotAttempts     = 100
	GamesPerSeason   = 1230
	GamesPerTeam     = 82
)
