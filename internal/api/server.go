// Package api serves the dashboard UI: read-only REST views over published
// state plus a websocket stream of live updates. Mutations (mode changes) are
// submitted to the owner loop rather than applied on request goroutines.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"trade-dashboard/internal/interfaces"
	"trade-dashboard/internal/logger"
	"trade-dashboard/internal/store"
	"trade-dashboard/internal/types"
)

// Server is the HTTP/websocket surface for the dashboard.
type Server struct {
	cfg     *store.Config
	coord   interfaces.Coordinator
	journal interfaces.Journal
	// submit schedules fn on the owner loop and returns after it ran.
	submit func(fn func())

	hub *Hub
	srv *http.Server
}

func NewServer(cfg *store.Config, coord interfaces.Coordinator, journal interfaces.Journal, submit func(fn func())) *Server {
	s := &Server{
		cfg:     cfg,
		coord:   coord,
		journal: journal,
		submit:  submit,
		hub:     NewHub(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/trades", s.handleTrades)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/equity", s.handleEquity)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("POST /api/mode", s.handleModeChange)
	mux.HandleFunc("/ws", s.hub.handleWS)

	s.srv = &http.Server{
		Addr:              cfg.API.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Hub exposes the broadcast fan-out so the owner loop can push updates.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) Start(ctx context.Context) {
	go s.hub.Run()
	go func() {
		logger.Info(ctx, "API listening", "addr", s.cfg.API.Listen)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorWithErr(ctx, "API server failed", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) {
	if err := s.srv.Shutdown(ctx); err != nil {
		logger.Warn(ctx, "API shutdown incomplete", "error", err.Error())
	}
	s.hub.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.coord.Snapshot())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.coord.History())
}

// scopeParams resolves mode/account query params, defaulting to the current
// scope.
func (s *Server) scopeParams(r *http.Request) (types.Mode, string) {
	state := s.coord.Snapshot()

	mode := types.Mode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = state.Mode
	}
	account := r.URL.Query().Get("account")
	if account == "" && state.HasOpenPosition() {
		account = state.Position.Account
	}
	return mode, account
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	mode, account := s.scopeParams(r)
	if !mode.Valid() {
		writeError(w, http.StatusBadRequest, "invalid mode")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	trades, err := s.journal.Trades(r.Context(), mode, account, limit)
	if err != nil {
		logger.ErrorWithErr(r.Context(), "Trade query failed", err)
		writeError(w, http.StatusInternalServerError, "trade query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":    mode,
		"account": account,
		"trades":  trades,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	mode, account := s.scopeParams(r)
	if !mode.Valid() {
		writeError(w, http.StatusBadRequest, "invalid mode")
		return
	}

	stats, err := s.journal.Stats(r.Context(), mode, account)
	if err != nil {
		logger.ErrorWithErr(r.Context(), "Stats query failed", err)
		writeError(w, http.StatusInternalServerError, "stats query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":          stats,
		"write_failures": s.journal.WriteFailures(),
	})
}

// handleEquity serves the cached equity curve, kicking off a background load
// when the scope has not been loaded yet.
func (s *Server) handleEquity(w http.ResponseWriter, r *http.Request) {
	mode, account := s.scopeParams(r)
	if !mode.Valid() {
		writeError(w, http.StatusBadRequest, "invalid mode")
		return
	}

	if curve, ok := s.coord.EquityCurve(mode, account); ok {
		writeJSON(w, http.StatusOK, map[string]any{"loading": false, "equity": curve})
		return
	}
	s.coord.EnsureEquityCurve(r.Context(), mode, account)
	writeJSON(w, http.StatusAccepted, map[string]any{"loading": true})
}

type modeChangeRequest struct {
	Mode    string `json:"mode"`
	Account string `json:"account"`
}

func (s *Server) handleModeChange(w http.ResponseWriter, r *http.Request) {
	var req modeChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	mode := types.Mode(req.Mode)
	if !mode.Valid() {
		writeError(w, http.StatusBadRequest, "invalid mode")
		return
	}

	ctx := context.WithoutCancel(r.Context())
	var accepted bool
	s.submit(func() {
		accepted = s.coord.RequestModeChange(ctx, mode, req.Account)
	})

	status := http.StatusOK
	if !accepted {
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]any{
		"accepted": accepted,
		"mode":     s.coord.Snapshot().Mode,
	})
}
