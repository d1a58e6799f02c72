package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/courtside/leaguecore/internal/database"
	"github.com/courtside/leaguecore/internal/domain"
	"github.com/courtside/leaguecore/internal/ids"
	"github.com/courtside/leaguecore/internal/integrity"
	"github.com/courtside/leaguecore/internal/modules/trade"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError maps domain errors to their stable code and a 4xx status;
// everything else is a 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := domain.CodeOf(err)
	status := http.StatusInternalServerError
	if code != "" {
		status = http.StatusUnprocessableEntity
	}
	body := map[string]any{"error": err.Error()}
	if code != "" {
		body["code"] = string(code)
		var le *domain.Error
		if errors.As(err, &le) && len(le.Details) > 0 {
			body["details"] = le.Details
		}
	}
	s.writeJSON(w, status, body)
}

// handleHealth reports process and database health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.QuickCheck(r.Context()); err != nil {
		dbOK = false
		s.log.Error().Err(err).Msg("Database quick check failed")
	}

	var memUsed float64
	if vm, err := mem.VirtualMemory(); err == nil {
		memUsed = vm.UsedPercent
	}
	var cpuUsed float64
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		cpuUsed = percents[0]
	}

	status := "ok"
	code := http.StatusOK
	if !dbOK {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, map[string]any{
		"status":          status,
		"database_ok":     dbOK,
		"uptime_seconds":  int(time.Since(s.started).Seconds()),
		"goroutines":      runtime.NumGoroutine(),
		"memory_used_pct": memUsed,
		"cpu_used_pct":    cpuUsed,
	})
}

// handleValidate runs the full integrity check.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	err := s.db.InTx(r.Context(), false, func(tx *database.Tx) error {
		return integrity.Validate(tx, integrity.Options{})
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"valid": true})
}

func (s *Server) handleTeamRoster(w http.ResponseWriter, r *http.Request) {
	teamID, err := ids.NormalizeTeamID(chi.URLParam(r, "teamID"), true, true)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var entries any
	err = s.db.InTx(r.Context(), false, func(tx *database.Tx) error {
		rows, err := s.roster.GetTeamRoster(tx, teamID)
		if err != nil {
			return err
		}
		entries = rows
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"team": teamID, "roster": entries})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	f := trade.ListFilter{
		Limit:     100,
		SinceDate: r.URL.Query().Get("since"),
		DealID:    r.URL.Query().Get("deal_id"),
		TxType:    r.URL.Query().Get("type"),
	}
	var txs []trade.LoggedTransaction
	err := s.db.InTx(r.Context(), false, func(tx *database.Tx) error {
		rows, err := s.txlog.ListTransactions(tx, f)
		if err != nil {
			return err
		}
		txs = rows
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

func (s *Server) handleSeasonSchedule(w http.ResponseWriter, r *http.Request) {
	seasonID := chi.URLParam(r, "seasonID")
	var games any
	err := s.db.InTx(r.Context(), false, func(tx *database.Tx) error {
		rows, err := s.schedule.ListSeason(tx, seasonID)
		if err != nil {
			return err
		}
		games = rows
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"season": seasonID, "games": games})
}

func (s *Server) handleIngestResult(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	result, err := s.results.Ingest(r.Context(), raw)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"game_id": result.Game.GameID, "ingested": true})
}

type tradeRequest struct {
	Deal      json.RawMessage `json:"deal"`
	Date      string          `json:"date"`
	ValidDays int             `json:"valid_days"`
	Source    string          `json:"source"`
}

func (s *Server) decodeTradeRequest(r *http.Request) (*tradeRequest, *trade.Deal, error) {
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, nil, domain.NewError(domain.ErrInvalidInput, "unparseable request body", "error", err.Error())
	}
	if req.Date == "" {
		req.Date = time.Now().UTC().Format("2006-01-02")
	}
	deal, err := trade.ParseDeal(req.Deal)
	if err != nil {
		return nil, nil, err
	}
	return &req, deal, nil
}

func (s *Server) handleTradeValidate(w http.ResponseWriter, r *http.Request) {
	req, deal, err := s.decodeTradeRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.trade.ValidateDeal(r.Context(), deal, req.Date); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"valid": true})
}

func (s *Server) handleTradeCommit(w http.ResponseWriter, r *http.Request) {
	req, deal, err := s.decodeTradeRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	agreement, err := s.trade.CreateCommittedDeal(r.Context(), deal, req.ValidDays, req.Date)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"deal_id":    agreement.DealID,
		"expires_at": agreement.ExpiresAt,
	})
}

func (s *Server) handleTradeExecute(w http.ResponseWriter, r *http.Request) {
	dealID := chi.URLParam(r, "dealID")
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}
	source := r.URL.Query().Get("source")
	if source == "" {
		source = "admin"
	}
	if err := s.trade.ExecuteCommittedDeal(r.Context(), dealID, source, date); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"deal_id": dealID, "executed": true})
}

func (s *Server) handleTradeGC(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}
	swept, err := s.trade.GCExpiredAgreements(r.Context(), date)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"swept": swept})
}
