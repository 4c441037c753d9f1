package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trade-dashboard/internal/api"
	"trade-dashboard/internal/feed"
	"trade-dashboard/internal/interfaces"
	"trade-dashboard/internal/journal"
	"trade-dashboard/internal/logger"
	"trade-dashboard/internal/orderflow"
	"trade-dashboard/internal/quotes"
	"trade-dashboard/internal/recovery"
	"trade-dashboard/internal/state"
	"trade-dashboard/internal/state/stateobs"
	"trade-dashboard/internal/store"
	"trade-dashboard/internal/trace"
	"trade-dashboard/internal/types"

	"github.com/joho/godotenv"
)

const sessionSyncInterval = 5 * time.Second

// initializeSystem initializes environment, logger, and tracer
func initializeSystem() error {
	// Load environment variables
	_ = godotenv.Load()

	// Initialize logger
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Initialize tracer
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	return nil
}

// loadConfig loads and returns the configuration
func loadConfig(ctx context.Context) (*store.Config, error) {
	path := os.Getenv("DASHBOARD_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err)
		return nil, err
	}
	return cfg, nil
}

// app owns the event loop that serializes every state mutation: feed
// callbacks, API mode changes, and async completions all run on it.
type app struct {
	cfg      *store.Config
	coord    interfaces.Coordinator
	interp   interfaces.Interpreter
	recon    *recovery.Reconciler
	journal  interfaces.Journal
	sessions interfaces.SessionStore
	quotes   *quotes.Cache
	api      *api.Server
	feed     interfaces.Feed

	loop chan func()
}

// buildApp wires the full system together
func buildApp(ctx context.Context, cfg *store.Config) (*app, error) {
	jnl, err := journal.Open(cfg.Persistence.JournalPath)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to open trade journal", err)
		return nil, err
	}

	sessions, err := store.NewSessionStore(cfg.Persistence.SessionDir)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to open session store", err)
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		journal:  jnl,
		sessions: sessions,
		quotes:   quotes.NewCache(),
		loop:     make(chan func(), 256),
	}

	// Coordinator wrapped with observability middleware. Worker-goroutine
	// completions are posted back onto the event loop before dispatch.
	a.coord = stateobs.Wrap(state.New(cfg, jnl, a.quotes, func(n types.Notification) {
		a.post(func() { a.handleNotification(n) })
	}))
	a.coord.AddListener(a.handleNotification)

	a.interp = orderflow.New(cfg, a.coord, a.quotes)
	a.recon = recovery.New(cfg, a.coord, a.quotes)
	a.api = api.NewServer(cfg, a.coord, jnl, a.submit)
	a.feed = feed.NewClient(cfg, &feedHandler{app: a})

	return a, nil
}

// post schedules fn on the event loop without waiting.
func (a *app) post(fn func()) {
	a.loop <- fn
}

// submit schedules fn on the event loop and waits for it to run.
func (a *app) submit(fn func()) {
	done := make(chan struct{})
	a.loop <- func() {
		fn()
		close(done)
	}
	<-done
}

// Run drives the event loop until SIGINT/SIGTERM.
func (a *app) Run(ctx context.Context) {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	a.api.Start(ctx)
	if err := a.feed.Start(ctx); err != nil {
		logger.ErrorWithErr(ctx, "Failed to start feed", err)
	}

	sessionTick := time.NewTicker(sessionSyncInterval)
	defer sessionTick.Stop()

	logger.Info(ctx, "Dashboard started",
		"feed", fmt.Sprintf("%s:%d", a.cfg.Feed.Host, a.cfg.Feed.Port),
		"api", a.cfg.API.Listen,
	)

	for {
		select {
		case fn := <-a.loop:
			fn()
		case <-sessionTick.C:
			a.syncSession(ctx)
		case <-sigc:
			logger.Info(ctx, "Shutting down")
			a.shutdown(ctx)
			return
		}
	}
}

func (a *app) shutdown(ctx context.Context) {
	wait := time.Duration(a.cfg.ShutdownWaitSeconds) * time.Second
	stopCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	a.feed.Stop(stopCtx)
	a.api.Shutdown(stopCtx)

	a.syncSession(ctx)
	if !a.coord.WaitBackground(wait) {
		logger.Warn(ctx, "Background work still pending at shutdown", "waited", wait.String())
	}

	if err := a.journal.Close(); err != nil {
		logger.Warn(ctx, "Journal close failed", "error", err.Error())
	}
	if err := trace.Shutdown(ctx); err != nil {
		logger.Warn(ctx, "Tracer shutdown failed", "error", err.Error())
	}
}

// handleNotification reacts to coordinator notifications on the event loop:
// fan out to websocket clients, persist trades and sessions.
func (a *app) handleNotification(n types.Notification) {
	ctx := context.Background()

	a.api.Hub().Broadcast(map[string]any{
		"kind":  n.Kind.String(),
		"event": n,
		"state": a.coord.Snapshot(),
	})

	switch {
	case n.Kind == types.NotifyPosition && n.Closed:
		if n.Trade != nil {
			trade := n.Trade
			a.coord.Background(func() {
				_ = a.journal.Append(ctx, trade)
			})
		}
		mode, account := n.Mode, n.Account
		a.coord.Background(func() {
			if err := a.sessions.Clear(mode, account); err != nil {
				logger.Warn(ctx, "Session clear failed", "error", err.Error())
			}
		})

	case n.Kind == types.NotifyPosition && n.Opened:
		if n.Position != nil && n.Position.Recovered {
			a.restoreSessionExtremes(ctx, n.Position)
		}
		a.syncSession(ctx)
	}
}

// restoreSessionExtremes replays persisted trade extremes onto a recovered
// position so MAE/MFE survive a restart.
func (a *app) restoreSessionExtremes(ctx context.Context, pos *types.PositionSnapshot) {
	sess, err := a.sessions.Load(pos.Mode, pos.Account)
	if err != nil {
		logger.Warn(ctx, "Session load failed", "error", err.Error())
		return
	}
	if sess.TradeMin > 0 {
		a.coord.MarkPrice(ctx, pos.Symbol, sess.TradeMin)
	}
	if sess.TradeMax > 0 {
		a.coord.MarkPrice(ctx, pos.Symbol, sess.TradeMax)
	}
}

// syncSession persists the open position's timers and extremes.
func (a *app) syncSession(ctx context.Context) {
	snap := a.coord.Snapshot()
	if snap == nil || !snap.HasOpenPosition() {
		return
	}
	pos := snap.Position

	sess := types.SessionState{
		Mode:           pos.Mode,
		Account:        pos.Account,
		EntryStartedAt: pos.EntryTime,
		TradeMin:       pos.TradeMin,
		TradeMax:       pos.TradeMax,
	}
	a.coord.Background(func() {
		if err := a.sessions.Save(sess); err != nil {
			logger.Warn(ctx, "Session save failed", "error", err.Error())
		}
	})
}

// feedHandler bridges feed callbacks onto the app's event loop. Enqueue
// order preserves feed order; the snapshot always reconciles before any
// event queued after it.
type feedHandler struct {
	app *app
}

var _ interfaces.FeedHandler = (*feedHandler)(nil)

func (h *feedHandler) OnSnapshot(ctx context.Context, snap types.ServerSnapshot) {
	h.app.post(func() {
		h.app.recon.Reconcile(ctx, snap)
	})
}

func (h *feedHandler) OnOrderUpdate(ctx context.Context, ev types.OrderUpdate) {
	h.app.post(func() {
		h.app.interp.HandleOrderUpdate(ctx, ev)
	})
}

func (h *feedHandler) OnPositionUpdate(ctx context.Context, ev types.PositionUpdate) {
	h.app.post(func() {
		h.app.interp.HandlePositionUpdate(ctx, ev)
	})
}

func (h *feedHandler) OnBalanceUpdate(ctx context.Context, ev types.BalanceUpdate) {
	h.app.post(func() {
		cfg := h.app.cfg
		if cfg.AccountMode(ev.Account) == types.ModeLive {
			h.app.coord.UpdateLiveBalanceFromServer(ctx, ev.Balance, ev.Account)
		} else {
			h.app.coord.UpdateBalanceForMode(ctx, cfg.AccountMode(ev.Account), ev.Balance)
		}
	})
}

func (h *feedHandler) OnMarketData(ctx context.Context, symbol string, price float64, market *types.MarketSnapshot) {
	h.app.quotes.Set(symbol, price, market)
	h.app.post(func() {
		h.app.coord.MarkPrice(ctx, symbol, price)
	})
}
