package trade

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/courtside/leaguecore/internal/database"
	"github.com/courtside/leaguecore/internal/domain"
	"github.com/courtside/leaguecore/internal/integrity"
	"github.com/courtside/leaguecore/internal/modules/contracts"
	"github.com/courtside/leaguecore/internal/modules/draft"
	"github.com/courtside/leaguecore/internal/modules/roster"
	"github.com/courtside/leaguecore/internal/modules/settings"
)

// DefaultAgreementDays is how long a committed deal stays executable.
const DefaultAgreementDays = 2

// Service runs trade validation, two-phase committed deals, and atomic
// application.
type Service struct {
	db         *database.DB
	roster     *roster.Repository
	contracts  *contracts.Repository
	draft      *draft.Repository
	settings   *settings.Repository
	agreements *AgreementRepository
	txlog      *LogRepository
	engine     *Engine
	log        zerolog.Logger
}

// NewService creates a trade service with the default rule chain.
func NewService(
	db *database.DB,
	rosterRepo *roster.Repository,
	contractsRepo *contracts.Repository,
	draftRepo *draft.Repository,
	settingsRepo *settings.Repository,
	agreementRepo *AgreementRepository,
	logRepo *LogRepository,
	log zerolog.Logger,
) *Service {
	return &Service{
		db:         db,
		roster:     rosterRepo,
		contracts:  contractsRepo,
		draft:      draftRepo,
		settings:   settingsRepo,
		agreements: agreementRepo,
		txlog:      logRepo,
		engine:     NewEngine(),
		log:        log.With().Str("service", "trade").Logger(),
	}
}

// ValidateDeal runs the full rule chain against a deal without mutating
// anything.
func (s *Service) ValidateDeal(ctx context.Context, deal *Deal, today string) error {
	return s.db.InTx(ctx, false, func(tx *database.Tx) error {
		c, err := newContext(tx, s, deal, today)
		if err != nil {
			return err
		}
		return s.engine.Validate(c, deal)
	})
}

// ApplyDeal validates ownership and applies a deal atomically: player moves,
// pick transfers with protections, swap transfers, fixed assets, integrity
// check, and a transaction log entry.
func (s *Service) ApplyDeal(ctx context.Context, deal *Deal, source, dealID, tradeDate string) error {
	if tradeDate == "" {
		tradeDate = database.NowUTC()[:10]
	}
	err := s.db.InTx(ctx, true, func(tx *database.Tx) error {
		return s.applyInTx(tx, deal, source, dealID, tradeDate)
	})
	if err != nil {
		if domain.CodeOf(err) != "" {
			return err
		}
		return domain.NewError(domain.ErrApplyFailed, "deal application failed", "error", err.Error())
	}
	s.log.Info().Str("deal_id", dealID).Str("source", source).Msg("Deal applied")
	return nil
}

func (s *Service) applyInTx(tx *database.Tx, deal *Deal, source, dealID, tradeDate string) error {
	seenPlayers := make(map[string]bool)
	for _, a := range deal.AllAssets() {
		if a.Kind == KindPlayer {
			if seenPlayers[a.PlayerID] {
				return domain.NewError(domain.ErrDuplicateAsset, "player appears twice", "player_id", a.PlayerID)
			}
			seenPlayers[a.PlayerID] = true
		}
	}

	var playerMoves, pickMoves, swapMoves, fixedMoves []map[string]any

	// Players first: roster row plus the active contract's team.
	for _, from := range deal.Teams {
		for _, a := range deal.Legs[from] {
			if a.Kind != KindPlayer {
				continue
			}
			entry, err := s.roster.GetEntry(tx, a.PlayerID)
			if err != nil {
				return err
			}
			if entry == nil || entry.TeamID != from {
				return domain.NewError(domain.ErrPlayerNotOwned, "player is not on the sending team",
					"player_id", a.PlayerID, "team", from)
			}
			if err := s.roster.TradePlayer(tx, a.PlayerID, a.ToTeam); err != nil {
				return err
			}
			contract, err := s.contracts.GetActiveByPlayer(tx, a.PlayerID)
			if err != nil {
				return err
			}
			if contract != nil {
				if err := s.contracts.SetTeam(tx, contract.ContractID, a.ToTeam); err != nil {
					return err
				}
			}
			playerMoves = append(playerMoves, map[string]any{
				"player_id": a.PlayerID,
				"from_team": from,
				"to_team":   a.ToTeam,
				"salary":    entry.SalaryAmount,
			})
		}
	}

	// Picks, with any protection attached during the trade.
	for _, from := range deal.Teams {
		for _, a := range deal.Legs[from] {
			if a.Kind != KindPick {
				continue
			}
			if err := s.draft.TransferPick(tx, a.PickID, a.ToTeam, a.Protection); err != nil {
				return err
			}
			move := map[string]any{"pick_id": a.PickID, "from_team": from, "to_team": a.ToTeam}
			if a.Protection != nil {
				move["protection"] = map[string]any{"type": a.Protection.Type, "n": a.Protection.N}
			}
			pickMoves = append(pickMoves, move)
		}
	}

	// Swaps: transfer existing rights, create new ones owned by the receiver.
	for _, from := range deal.Teams {
		for _, a := range deal.Legs[from] {
			if a.Kind != KindSwap {
				continue
			}
			existing, err := s.draft.GetSwap(tx, a.SwapID)
			if err != nil {
				return err
			}
			if existing != nil {
				if err := s.draft.TransferSwap(tx, a.SwapID, a.ToTeam); err != nil {
					return err
				}
			} else {
				err := s.draft.UpsertSwapRights(tx, []draft.SwapRight{{
					SwapID:    a.SwapID,
					PickIDA:   a.PickIDA,
					PickIDB:   a.PickIDB,
					OwnerTeam: a.ToTeam,
					Active:    true,
				}})
				if err != nil {
					return err
				}
			}
			swapMoves = append(swapMoves, map[string]any{
				"swap_id": a.SwapID, "from_team": from, "to_team": a.ToTeam,
			})
		}
	}

	for _, from := range deal.Teams {
		for _, a := range deal.Legs[from] {
			if a.Kind != KindFixedAsset {
				continue
			}
			if err := s.draft.TransferFixedAsset(tx, a.AssetID, a.ToTeam); err != nil {
				return err
			}
			fixedMoves = append(fixedMoves, map[string]any{
				"asset_id": a.AssetID, "from_team": from, "to_team": a.ToTeam,
			})
		}
	}

	if err := s.contracts.RebuildIndices(tx); err != nil {
		return err
	}
	if err := integrity.Validate(tx, integrity.Options{}); err != nil {
		return err
	}

	canonical := Canonicalize(deal)
	payload := map[string]any{
		"type":              "trade",
		"date":              tradeDate,
		"teams":             canonical.Teams,
		"source":            source,
		"player_moves":      emptyIfNil(playerMoves),
		"pick_moves":        emptyIfNil(pickMoves),
		"swap_moves":        emptyIfNil(swapMoves),
		"fixed_asset_moves": emptyIfNil(fixedMoves),
	}
	if dealID != "" {
		payload["deal_id"] = dealID
	}
	_, err := s.txlog.InsertTransactions(tx, []LogEntry{{
		TxType:  "trade",
		TxDate:  tradeDate,
		DealID:  dealID,
		Source:  source,
		Teams:   canonical.Teams,
		Payload: payload,
	}})
	return err
}

func emptyIfNil(moves []map[string]any) []map[string]any {
	if moves == nil {
		return []map[string]any{}
	}
	return moves
}

// CreateCommittedDeal validates a deal, snapshots the ownership state into a
// hash, and locks every asset for the agreement's lifetime.
func (s *Service) CreateCommittedDeal(ctx context.Context, deal *Deal, validDays int, today string) (*Agreement, error) {
	if validDays <= 0 {
		validDays = DefaultAgreementDays
	}
	expiresAt, err := addDays(today, validDays)
	if err != nil {
		return nil, err
	}

	var agreement *Agreement
	err = s.db.InTx(ctx, true, func(tx *database.Tx) error {
		c, err := newContext(tx, s, deal, today)
		if err != nil {
			return err
		}
		if err := s.engine.Validate(c, deal); err != nil {
			return err
		}

		canonical := Canonicalize(deal)
		dealJSON, err := CanonicalJSON(canonical)
		if err != nil {
			return err
		}
		hash, err := s.assetsHash(tx, canonical)
		if err != nil {
			return err
		}

		a := Agreement{
			DealID:     "DEAL_" + uuid.NewString(),
			DealJSON:   string(dealJSON),
			AssetsHash: hash,
			CreatedAt:  database.NowUTC(),
			ExpiresAt:  expiresAt,
			Status:     AgreementActive,
		}
		if err := s.agreements.Insert(tx, a); err != nil {
			return err
		}

		for _, asset := range canonical.AllAssets() {
			lock, err := s.agreements.GetLock(tx, asset.Key())
			if err != nil {
				return err
			}
			if lock != nil {
				if lock.ExpiresAt >= today {
					return domain.NewError(domain.ErrAssetLocked, "asset locked by another deal",
						"asset", asset.Key(), "deal_id", lock.DealID)
				}
				if err := s.agreements.DeleteLock(tx, asset.Key()); err != nil {
					return err
				}
			}
			err = s.agreements.InsertLock(tx, AssetLock{
				AssetKey:  asset.Key(),
				DealID:    a.DealID,
				ExpiresAt: expiresAt,
			})
			if err != nil {
				return err
			}
		}

		agreement = &a
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("deal_id", agreement.DealID).Str("expires_at", expiresAt).Msg("Committed deal created")
	return agreement, nil
}

// VerifyCommittedDeal checks an agreement is still executable: not expired,
// asset state unchanged since commitment, locks intact, and the rule chain
// still passing as of today. Expiry and ownership drift transition the
// agreement and release its locks; those transitions commit even though the
// call reports an error.
func (s *Service) VerifyCommittedDeal(ctx context.Context, dealID, today string) (*Deal, error) {
	var deal *Deal
	var verdict error
	err := s.db.InTx(ctx, true, func(tx *database.Tx) error {
		deal, verdict = s.verifyInTx(tx, dealID, today)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if verdict != nil {
		return nil, verdict
	}
	return deal, nil
}

// verifyInTx returns the verdict separately so failure transitions commit.
func (s *Service) verifyInTx(tx *database.Tx, dealID, today string) (*Deal, error) {
	a, err := s.agreements.Get(tx, dealID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, domain.NewError(domain.ErrDealInvalidated, "no such agreement", "deal_id", dealID)
	}

	switch a.Status {
	case AgreementActive:
	case AgreementExecuted:
		return nil, domain.NewError(domain.ErrDealAlreadyExecuted, "deal already executed", "deal_id", dealID)
	case AgreementExpired:
		return nil, domain.NewError(domain.ErrDealExpired, "deal expired", "deal_id", dealID)
	default:
		return nil, domain.NewError(domain.ErrDealInvalidated, "deal is not active",
			"deal_id", dealID, "status", a.Status)
	}

	invalidate := func(status string, verdict error) (*Deal, error) {
		if err := s.agreements.SetStatus(tx, dealID, status); err != nil {
			return nil, err
		}
		if err := s.agreements.DeleteLocksForDeal(tx, dealID); err != nil {
			return nil, err
		}
		return nil, verdict
	}

	if today > a.ExpiresAt {
		return invalidate(AgreementExpired,
			domain.NewError(domain.ErrDealExpired, "deal expired", "deal_id", dealID))
	}

	deal, err := ParseDeal([]byte(a.DealJSON))
	if err != nil {
		return nil, err
	}
	hash, err := s.assetsHash(tx, deal)
	if err != nil {
		return nil, err
	}
	if hash != a.AssetsHash {
		return invalidate(AgreementInvalidated,
			domain.NewError(domain.ErrDealInvalidated, "asset state changed since commitment", "deal_id", dealID))
	}

	for _, asset := range Canonicalize(deal).AllAssets() {
		lock, err := s.agreements.GetLock(tx, asset.Key())
		if err != nil {
			return nil, err
		}
		if lock == nil || lock.DealID != dealID {
			return invalidate(AgreementInvalidated,
				domain.NewError(domain.ErrDealInvalidated, "asset lock lost", "deal_id", dealID, "asset", asset.Key()))
		}
	}

	// Re-run the rule chain as of today; the agreement's own locks are
	// exempt. A rule failure leaves the agreement ACTIVE for the GC sweep.
	c, err := newContext(tx, s, deal, today)
	if err != nil {
		return nil, err
	}
	c.DealID = dealID
	if err := s.engine.Validate(c, deal); err != nil {
		return nil, err
	}
	return deal, nil
}

// MarkExecuted transitions an agreement to EXECUTED and releases its locks.
func (s *Service) MarkExecuted(ctx context.Context, dealID string) error {
	return s.db.InTx(ctx, true, func(tx *database.Tx) error {
		return s.markExecutedInTx(tx, dealID)
	})
}

func (s *Service) markExecutedInTx(tx *database.Tx, dealID string) error {
	if err := s.agreements.SetStatus(tx, dealID, AgreementExecuted); err != nil {
		return err
	}
	return s.agreements.DeleteLocksForDeal(tx, dealID)
}

// ExecuteCommittedDeal verifies an agreement, applies it, and marks it
// executed. The apply and the status transition share one transaction; the
// verify runs first so its failure transitions can commit independently.
func (s *Service) ExecuteCommittedDeal(ctx context.Context, dealID, source, today string) error {
	deal, err := s.VerifyCommittedDeal(ctx, dealID, today)
	if err != nil {
		return err
	}
	err = s.db.InTx(ctx, true, func(tx *database.Tx) error {
		if err := s.applyInTx(tx, deal, source, dealID, today); err != nil {
			return err
		}
		return s.markExecutedInTx(tx, dealID)
	})
	if err != nil {
		if domain.CodeOf(err) != "" {
			return err
		}
		return domain.NewError(domain.ErrApplyFailed, "deal application failed", "error", err.Error())
	}
	s.log.Info().Str("deal_id", dealID).Msg("Committed deal executed")
	return nil
}

// GCExpiredAgreements sweeps ACTIVE agreements past expiry, transitioning
// them and releasing their locks. Returns how many were swept.
func (s *Service) GCExpiredAgreements(ctx context.Context, today string) (int, error) {
	swept := 0
	err := s.db.InTx(ctx, true, func(tx *database.Tx) error {
		expired, err := s.agreements.ListActiveExpired(tx, today)
		if err != nil {
			return err
		}
		for _, a := range expired {
			if err := s.agreements.SetStatus(tx, a.DealID, AgreementExpired); err != nil {
				return err
			}
			if err := s.agreements.DeleteLocksForDeal(tx, a.DealID); err != nil {
				return err
			}
			swept++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if swept > 0 {
		s.log.Info().Int("count", swept).Msg("Expired agreements swept")
	}
	return swept, nil
}
