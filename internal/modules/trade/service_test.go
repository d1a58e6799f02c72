package trade

import (
	"context"
	"testing"

	"github.com/courtside/leaguecore/internal/database"
	"github.com/courtside/leaguecore/internal/domain"
	"github.com/courtside/leaguecore/internal/modules/contracts"
	"github.com/courtside/leaguecore/internal/modules/draft"
	ltesting "github.com/courtside/leaguecore/internal/testing"
)

func seedActiveContract(t *testing.T, f *tradeFixture, contractID, playerID, teamID string, salary int64) {
	t.Helper()
	c := contracts.Contract{
		ContractID:      contractID,
		PlayerID:        playerID,
		TeamID:          teamID,
		SalaryByYear:    map[string]int64{"2025": salary},
		Status:          contracts.StatusActive,
		IsActive:        true,
		SignedDate:      "2024-07-01",
		StartSeasonYear: 2024,
	}
	c.RecomputeYears()
	err := f.db.InTx(context.Background(), true, func(tx *database.Tx) error {
		if err := f.contracts.UpsertRecords(tx, []contracts.Contract{c}); err != nil {
			return err
		}
		return f.contracts.RebuildIndices(tx)
	})
	if err != nil {
		t.Fatalf("Failed to seed contract %s: %v", contractID, err)
	}
}

func TestApplyDeal_MovesPlayersPicksAndContracts(t *testing.T) {
	f, cleanup := newTradeFixture(t)
	defer cleanup()
	ltesting.SeedPlayer(t, f.db, "P000001", "BOS", 20_000_000)
	ltesting.SeedPlayer(t, f.db, "P000002", "LAL", 18_000_000)
	ltesting.SeedPick(t, f.db, "2027_R1_BOS", 2027, 1, "BOS", "")
	seedActiveContract(t, f, "CON_2024_P000001", "P000001", "BOS", 20_000_000)
	ctx := context.Background()

	deal := &Deal{
		Teams: []string{"BOS", "LAL"},
		Legs: map[string][]Asset{
			"BOS": {
				{Kind: KindPlayer, PlayerID: "P000001", ToTeam: "LAL"},
				{Kind: KindPick, PickID: "2027_R1_BOS", ToTeam: "LAL",
					Protection: &draft.Protection{
						Type:         draft.ProtectionTopN,
						N:            5,
						Compensation: draft.Compensation{Label: "2029 second", Value: 1},
					}},
			},
			"LAL": {{Kind: KindPlayer, PlayerID: "P000002", ToTeam: "BOS"}},
		},
	}
	if err := f.svc.ApplyDeal(ctx, deal, "test", "", "2025-09-15"); err != nil {
		t.Fatalf("ApplyDeal failed: %v", err)
	}

	err := f.db.InTx(ctx, false, func(tx *database.Tx) error {
		p1, err := f.roster.GetEntry(tx, "P000001")
		if err != nil {
			return err
		}
		if p1.TeamID != "LAL" {
			t.Errorf("Expected P000001 on LAL, got %s", p1.TeamID)
		}
		p2, err := f.roster.GetEntry(tx, "P000002")
		if err != nil {
			return err
		}
		if p2.TeamID != "BOS" {
			t.Errorf("Expected P000002 on BOS, got %s", p2.TeamID)
		}

		contract, err := f.contracts.Get(tx, "CON_2024_P000001")
		if err != nil {
			return err
		}
		if contract.TeamID != "LAL" {
			t.Errorf("Expected contract to follow the player, got %s", contract.TeamID)
		}

		pick, err := f.draft.GetPick(tx, "2027_R1_BOS")
		if err != nil {
			return err
		}
		if pick.OwnerTeam != "LAL" {
			t.Errorf("Expected pick owned by LAL, got %s", pick.OwnerTeam)
		}
		if pick.Protection == nil || pick.Protection.N != 5 {
			t.Errorf("Expected TOP_N 5 protection attached, got %+v", pick.Protection)
		}

		logged, err := f.txlog.ListTransactions(tx, ListFilter{TxType: "trade"})
		if err != nil {
			return err
		}
		if len(logged) != 1 {
			t.Fatalf("Expected one logged trade, got %d", len(logged))
		}
		if logged[0].TxDate != "2025-09-15" || logged[0].Source != "test" {
			t.Errorf("Unexpected log row: %+v", logged[0])
		}
		moves, err := f.txlog.PlayerMovesSince(tx, "2025-07-01")
		if err != nil {
			return err
		}
		if len(moves) != 2 {
			t.Errorf("Expected 2 player moves in the log, got %d", len(moves))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
}

func TestApplyDeal_RollsBackOnFailure(t *testing.T) {
	f, cleanup := newTradeFixture(t)
	defer cleanup()
	ltesting.SeedPlayer(t, f.db, "P000001", "BOS", 1_000_000)
	ltesting.SeedPlayer(t, f.db, "P000002", "MIA", 1_000_000)
	ctx := context.Background()

	// The LAL leg fails ownership, so the already-processed BOS move must
	// roll back.
	deal := playerSwapDeal("BOS", "P000001", "LAL", "P000002")
	err := f.svc.ApplyDeal(ctx, deal, "test", "", "2025-09-15")
	if !domain.IsCode(err, domain.ErrPlayerNotOwned) {
		t.Fatalf("Expected PLAYER_NOT_OWNED, got %v", err)
	}

	err = f.db.InTx(ctx, false, func(tx *database.Tx) error {
		entry, err := f.roster.GetEntry(tx, "P000001")
		if err != nil {
			return err
		}
		if entry.TeamID != "BOS" {
			t.Errorf("Expected P000001 still on BOS after rollback, got %s", entry.TeamID)
		}
		logged, err := f.txlog.ListTransactions(tx, ListFilter{})
		if err != nil {
			return err
		}
		if len(logged) != 0 {
			t.Errorf("Expected no log rows after rollback, got %d", len(logged))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
}

func TestCommittedDeal_Lifecycle(t *testing.T) {
	f, cleanup := newTradeFixture(t)
	defer cleanup()
	ltesting.SeedPlayer(t, f.db, "P000001", "BOS", 1_000_000)
	ltesting.SeedPlayer(t, f.db, "P000002", "LAL", 1_000_000)
	ltesting.SeedPlayer(t, f.db, "P000003", "MIA", 1_000_000)
	ctx := context.Background()

	deal := playerSwapDeal("BOS", "P000001", "LAL", "P000002")
	a, err := f.svc.CreateCommittedDeal(ctx, deal, 2, testToday)
	if err != nil {
		t.Fatalf("CreateCommittedDeal failed: %v", err)
	}
	if a.Status != AgreementActive || a.ExpiresAt != "2025-09-17" {
		t.Errorf("Unexpected agreement: %+v", a)
	}

	// Locked assets block a competing commitment.
	rival := playerSwapDeal("MIA", "P000003", "BOS", "P000001")
	if _, err := f.svc.CreateCommittedDeal(ctx, rival, 2, testToday); !domain.IsCode(err, domain.ErrAssetLocked) {
		t.Fatalf("Expected ASSET_LOCKED, got %v", err)
	}

	// Verify passes while the state is untouched.
	if _, err := f.svc.VerifyCommittedDeal(ctx, a.DealID, testToday); err != nil {
		t.Fatalf("VerifyCommittedDeal failed: %v", err)
	}

	if err := f.svc.ExecuteCommittedDeal(ctx, a.DealID, "test", "2025-09-16"); err != nil {
		t.Fatalf("ExecuteCommittedDeal failed: %v", err)
	}

	err = f.db.InTx(ctx, false, func(tx *database.Tx) error {
		entry, err := f.roster.GetEntry(tx, "P000001")
		if err != nil {
			return err
		}
		if entry.TeamID != "LAL" {
			t.Errorf("Expected P000001 on LAL after execution, got %s", entry.TeamID)
		}
		stored, err := f.agreements.Get(tx, a.DealID)
		if err != nil {
			return err
		}
		if stored.Status != AgreementExecuted {
			t.Errorf("Expected EXECUTED, got %s", stored.Status)
		}
		lock, err := f.agreements.GetLock(tx, "player:P000001")
		if err != nil {
			return err
		}
		if lock != nil {
			t.Error("Expected locks released after execution")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	_, err = f.svc.VerifyCommittedDeal(ctx, a.DealID, "2025-09-16")
	if !domain.IsCode(err, domain.ErrDealAlreadyExecuted) {
		t.Fatalf("Expected DEAL_ALREADY_EXECUTED, got %v", err)
	}
}

func TestCommittedDeal_ExpiryTransitionPersists(t *testing.T) {
	f, cleanup := newTradeFixture(t)
	defer cleanup()
	ltesting.SeedPlayer(t, f.db, "P000001", "BOS", 1_000_000)
	ltesting.SeedPlayer(t, f.db, "P000002", "LAL", 1_000_000)
	ctx := context.Background()

	deal := playerSwapDeal("BOS", "P000001", "LAL", "P000002")
	a, err := f.svc.CreateCommittedDeal(ctx, deal, 1, testToday)
	if err != nil {
		t.Fatalf("CreateCommittedDeal failed: %v", err)
	}

	_, err = f.svc.VerifyCommittedDeal(ctx, a.DealID, "2025-09-20")
	if !domain.IsCode(err, domain.ErrDealExpired) {
		t.Fatalf("Expected DEAL_EXPIRED, got %v", err)
	}

	// The transition committed even though verify errored.
	err = f.db.InTx(ctx, false, func(tx *database.Tx) error {
		stored, err := f.agreements.Get(tx, a.DealID)
		if err != nil {
			return err
		}
		if stored.Status != AgreementExpired {
			t.Errorf("Expected EXPIRED persisted, got %s", stored.Status)
		}
		lock, err := f.agreements.GetLock(tx, "player:P000001")
		if err != nil {
			return err
		}
		if lock != nil {
			t.Error("Expected locks released on expiry")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
}

func TestCommittedDeal_InvalidatedByOwnershipDrift(t *testing.T) {
	f, cleanup := newTradeFixture(t)
	defer cleanup()
	ltesting.SeedPlayer(t, f.db, "P000001", "BOS", 1_000_000)
	ltesting.SeedPlayer(t, f.db, "P000002", "LAL", 1_000_000)
	ctx := context.Background()

	deal := playerSwapDeal("BOS", "P000001", "LAL", "P000002")
	a, err := f.svc.CreateCommittedDeal(ctx, deal, 2, testToday)
	if err != nil {
		t.Fatalf("CreateCommittedDeal failed: %v", err)
	}

	// Someone moves a committed player out from under the agreement.
	err = f.db.InTx(ctx, true, func(tx *database.Tx) error {
		return f.roster.TradePlayer(tx, "P000001", "MIA")
	})
	if err != nil {
		t.Fatalf("Out-of-band move failed: %v", err)
	}

	_, err = f.svc.VerifyCommittedDeal(ctx, a.DealID, testToday)
	if !domain.IsCode(err, domain.ErrDealInvalidated) {
		t.Fatalf("Expected DEAL_INVALIDATED, got %v", err)
	}

	err = f.db.InTx(ctx, false, func(tx *database.Tx) error {
		stored, err := f.agreements.Get(tx, a.DealID)
		if err != nil {
			return err
		}
		if stored.Status != AgreementInvalidated {
			t.Errorf("Expected INVALIDATED persisted, got %s", stored.Status)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
}

func TestGCExpiredAgreements(t *testing.T) {
	f, cleanup := newTradeFixture(t)
	defer cleanup()
	ltesting.SeedPlayer(t, f.db, "P000001", "BOS", 1_000_000)
	ltesting.SeedPlayer(t, f.db, "P000002", "LAL", 1_000_000)
	ctx := context.Background()

	deal := playerSwapDeal("BOS", "P000001", "LAL", "P000002")
	a, err := f.svc.CreateCommittedDeal(ctx, deal, 1, testToday)
	if err != nil {
		t.Fatalf("CreateCommittedDeal failed: %v", err)
	}

	swept, err := f.svc.GCExpiredAgreements(ctx, "2025-09-20")
	if err != nil {
		t.Fatalf("GC failed: %v", err)
	}
	if swept != 1 {
		t.Errorf("Expected 1 swept agreement, got %d", swept)
	}

	swept, err = f.svc.GCExpiredAgreements(ctx, "2025-09-20")
	if err != nil {
		t.Fatalf("Second GC failed: %v", err)
	}
	if swept != 0 {
		t.Errorf("Expected idempotent sweep, got %d", swept)
	}

	err = f.db.InTx(ctx, false, func(tx *database.Tx) error {
		stored, err := f.agreements.Get(tx, a.DealID)
		if err != nil {
			return err
		}
		if stored.Status != AgreementExpired {
			t.Errorf("Expected EXPIRED, got %s", stored.Status)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
}
