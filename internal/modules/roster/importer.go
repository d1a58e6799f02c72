package roster

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/courtside/leaguecore/internal/database"
	"github.com/courtside/leaguecore/internal/domain"
	"github.com/courtside/leaguecore/internal/ids"
)

// Service wraps spreadsheet import/export around the roster repository. It
// owns the transaction; all file I/O happens outside of it.
type Service struct {
	db   *database.DB
	repo *Repository
	log  zerolog.Logger
}

// NewService creates a roster service.
func NewService(db *database.DB, repo *Repository, log zerolog.Logger) *Service {
	return &Service{db: db, repo: repo, log: log.With().Str("service", "roster").Logger()}
}

// sheetColumns is the expected header row for roster spreadsheets.
var sheetColumns = []string{"PlayerID", "Name", "Position", "Age", "Height", "Weight", "Overall", "Team", "Salary"}

// ImportExcel loads a roster spreadsheet. Salary cells may be floats (Excel
// money formatting); they are rounded to integer dollars at import.
func (s *Service) ImportExcel(ctx context.Context, path, sheet string, mode ImportMode, allowLegacyIDs bool) (int, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open spreadsheet %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) < 2 {
		return 0, domain.NewError(domain.ErrInvalidInput, "spreadsheet has no data rows", "sheet", sheet)
	}

	col := headerIndex(rows[0])
	for _, name := range []string{"PlayerID", "Team", "Salary"} {
		if _, ok := col[name]; !ok {
			return 0, domain.NewError(domain.ErrInvalidInput, "missing required column", "column", name)
		}
	}

	var players []Player
	var entries []Entry
	for i, row := range rows[1:] {
		get := func(name string) string {
			idx, ok := col[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}
		rawID := get("PlayerID")
		if rawID == "" {
			continue // blank tail rows
		}
		playerID, err := ids.NormalizePlayerID(rawID, !allowLegacyIDs, allowLegacyIDs)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", i+2, err)
		}
		teamID, err := ids.NormalizeTeamID(get("Team"), true, true)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", i+2, err)
		}
		salary, err := parseSalary(get("Salary"))
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", i+2, err)
		}

		players = append(players, Player{
			PlayerID: playerID,
			Name:     get("Name"),
			Position: get("Position"),
			Age:      atoiOrZero(get("Age")),
			HeightIn: atoiOrZero(get("Height")),
			WeightLb: atoiOrZero(get("Weight")),
			Overall:  atoiOrZero(get("Overall")),
		})
		entries = append(entries, Entry{PlayerID: playerID, TeamID: teamID, SalaryAmount: salary})
	}

	err = s.db.InTx(ctx, true, func(tx *database.Tx) error {
		if err := s.repo.EnsureTeamsSeeded(tx); err != nil {
			return err
		}
		if mode == ImportReplace {
			if err := s.repo.ClearRoster(tx); err != nil {
				return err
			}
		}
		if err := s.repo.UpsertPlayers(tx, players); err != nil {
			return err
		}
		return s.repo.UpsertEntries(tx, entries)
	})
	if err != nil {
		return 0, err
	}

	s.log.Info().Int("players", len(players)).Str("mode", string(mode)).Msg("Roster imported")
	return len(players), nil
}

// ExportExcel writes the current roster to a spreadsheet.
func (s *Service) ExportExcel(ctx context.Context, path string) error {
	type exportRow struct {
		player Player
		entry  Entry
	}
	var out []exportRow

	err := s.db.InTx(ctx, false, func(tx *database.Tx) error {
		entries, err := s.repo.AllEntries(tx)
		if err != nil {
			return err
		}
		for _, e := range entries {
			p, err := s.repo.GetPlayer(tx, e.PlayerID)
			if err != nil {
				return err
			}
			if p == nil {
				p = &Player{PlayerID: e.PlayerID}
			}
			out = append(out, exportRow{player: *p, entry: e})
		}
		return nil
	})
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)

	for c, name := range sheetColumns {
		cell, _ := excelize.CoordinatesToCellName(c+1, 1)
		_ = f.SetCellValue(sheet, cell, name)
	}
	for r, row := range out {
		values := []any{
			row.player.PlayerID, row.player.Name, row.player.Position,
			row.player.Age, row.player.HeightIn, row.player.WeightLb,
			row.player.Overall, row.entry.TeamID, row.entry.SalaryAmount,
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to write spreadsheet %s: %w", path, err)
	}
	s.log.Info().Int("rows", len(out)).Str("path", path).Msg("Roster exported")
	return nil
}

func headerIndex(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	return col
}

// parseSalary accepts integer or float cell text and returns integer dollars.
func parseSalary(cell string) (int64, error) {
	if cell == "" {
		return 0, nil
	}
	cell = strings.ReplaceAll(cell, ",", "")
	if n, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return n, nil
	}
	fl, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, domain.NewError(domain.ErrInvalidInput, "unparseable salary", "value", cell)
	}
	return int64(math.Round(fl)), nil
}

func atoiOrZero(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
