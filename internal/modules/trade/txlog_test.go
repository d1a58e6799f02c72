package trade

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/courtside/leaguecore/internal/database"
	ltesting "github.com/courtside/leaguecore/internal/testing"
)

func TestInsertTransactions_DeduplicatesByPayload(t *testing.T) {
	db, cleanup := ltesting.NewTestDB(t)
	defer cleanup()
	repo := NewLogRepository(zerolog.Nop())
	ctx := context.Background()

	entry := LogEntry{
		TxType: "trade",
		TxDate: "2025-09-01",
		Source: "test",
		Teams:  []string{"BOS", "LAL"},
		Payload: map[string]any{
			"type": "trade", "date": "2025-09-01",
			"player_moves": []map[string]any{
				{"player_id": "P000001", "from_team": "BOS", "to_team": "LAL"},
			},
		},
	}

	err := db.InTx(ctx, true, func(tx *database.Tx) error {
		n, err := repo.InsertTransactions(tx, []LogEntry{entry})
		if err != nil {
			return err
		}
		if n != 1 {
			t.Errorf("Expected 1 inserted, got %d", n)
		}
		n, err = repo.InsertTransactions(tx, []LogEntry{entry})
		if err != nil {
			return err
		}
		if n != 0 {
			t.Errorf("Expected duplicate skipped, got %d", n)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
}

func TestListTransactions_OrderAndFilters(t *testing.T) {
	db, cleanup := ltesting.NewTestDB(t)
	defer cleanup()
	repo := NewLogRepository(zerolog.Nop())
	ctx := context.Background()

	entries := []LogEntry{
		{TxType: "trade", TxDate: "2025-09-01", Source: "test", Teams: []string{"BOS", "LAL"},
			Payload: map[string]any{"type": "trade", "date": "2025-09-01", "n": 1}},
		{TxType: "trade", TxDate: "2025-09-10", DealID: "DEAL_X", Source: "test", Teams: []string{"MIA", "DEN"},
			Payload: map[string]any{"type": "trade", "date": "2025-09-10", "n": 2}},
		{TxType: "signing", TxDate: "2025-09-05", Source: "test", Teams: []string{"BOS"},
			Payload: map[string]any{"type": "signing", "date": "2025-09-05", "n": 3}},
	}
	err := db.InTx(ctx, true, func(tx *database.Tx) error {
		_, err := repo.InsertTransactions(tx, entries)
		return err
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	err = db.InTx(ctx, false, func(tx *database.Tx) error {
		all, err := repo.ListTransactions(tx, ListFilter{})
		if err != nil {
			return err
		}
		if len(all) != 3 {
			t.Fatalf("Expected 3 rows, got %d", len(all))
		}
		if all[0].TxDate != "2025-09-10" || all[2].TxDate != "2025-09-01" {
			t.Errorf("Expected descending date order, got %s .. %s", all[0].TxDate, all[2].TxDate)
		}

		trades, err := repo.ListTransactions(tx, ListFilter{TxType: "trade"})
		if err != nil {
			return err
		}
		if len(trades) != 2 {
			t.Errorf("Expected 2 trades, got %d", len(trades))
		}

		byDeal, err := repo.ListTransactions(tx, ListFilter{DealID: "DEAL_X"})
		if err != nil {
			return err
		}
		if len(byDeal) != 1 || byDeal[0].DealID != "DEAL_X" {
			t.Errorf("Deal filter broken: %+v", byDeal)
		}

		since, err := repo.ListTransactions(tx, ListFilter{SinceDate: "2025-09-05", Limit: 1})
		if err != nil {
			return err
		}
		if len(since) != 1 || since[0].TxDate != "2025-09-10" {
			t.Errorf("Since+limit filter broken: %+v", since)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
}

func TestPlayerMovesSince_DecodesTradePayloads(t *testing.T) {
	db, cleanup := ltesting.NewTestDB(t)
	defer cleanup()
	repo := NewLogRepository(zerolog.Nop())
	ctx := context.Background()

	entries := []LogEntry{
		{TxType: "trade", TxDate: "2025-08-01", Source: "test",
			Payload: map[string]any{"type": "trade", "date": "2025-08-01",
				"player_moves": []map[string]any{
					{"player_id": "P000001", "from_team": "MIA", "to_team": "BOS"},
				}}},
		{TxType: "trade", TxDate: "2025-09-01", Source: "test",
			Payload: map[string]any{"type": "trade", "date": "2025-09-01",
				"player_moves": []map[string]any{
					{"player_id": "P000002", "from_team": "LAL", "to_team": "DEN"},
					{"player_id": "P000003", "from_team": "DEN", "to_team": "LAL"},
				}}},
		// Non-trade rows are ignored even when shaped like one.
		{TxType: "signing", TxDate: "2025-09-02", Source: "test",
			Payload: map[string]any{"type": "signing", "date": "2025-09-02",
				"player_moves": []map[string]any{
					{"player_id": "P000009", "from_team": "FA", "to_team": "NYK"},
				}}},
	}
	err := db.InTx(ctx, true, func(tx *database.Tx) error {
		_, err := repo.InsertTransactions(tx, entries)
		return err
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	err = db.InTx(ctx, false, func(tx *database.Tx) error {
		moves, err := repo.PlayerMovesSince(tx, "2025-08-15")
		if err != nil {
			return err
		}
		if len(moves) != 2 {
			t.Fatalf("Expected 2 moves since cutoff, got %d", len(moves))
		}
		if moves[0].PlayerID != "P000002" || moves[0].Date != "2025-09-01" {
			t.Errorf("Unexpected first move: %+v", moves[0])
		}

		all, err := repo.PlayerMovesSince(tx, "2025-01-01")
		if err != nil {
			return err
		}
		if len(all) != 3 {
			t.Errorf("Expected 3 moves in total, got %d", len(all))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
}
