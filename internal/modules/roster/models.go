// Package roster owns players, teams, and the active roster table, plus the
// spreadsheet import/export surface.
package roster

// Player is a league player. Attrs is a free-form attribute mapping stored
// as JSON.
type Player struct {
	PlayerID  string         `json:"player_id"`
	Name      string         `json:"name"`
	Position  string         `json:"position"`
	Age       int            `json:"age"`
	HeightIn  int            `json:"height_in"`
	WeightLb  int            `json:"weight_lb"`
	Overall   int            `json:"overall"`
	Attrs     map[string]any `json:"attrs,omitempty"`
	CreatedAt string         `json:"created_at,omitempty"`
	UpdatedAt string         `json:"updated_at,omitempty"`
}

// Entry is a roster row. A player occupies at most one active roster slot;
// player_id is the primary key.
type Entry struct {
	PlayerID     string `json:"player_id"`
	TeamID       string `json:"team_id"`
	SalaryAmount int64  `json:"salary_amount"`
	Status       string `json:"status"`
	UpdatedAt    string `json:"updated_at"`
}

// ImportMode controls spreadsheet import behavior.
type ImportMode string

const (
	// ImportReplace wipes the roster table before loading.
	ImportReplace ImportMode = "replace"
	// ImportUpsert merges rows into the existing roster.
	ImportUpsert ImportMode = "upsert"
)
