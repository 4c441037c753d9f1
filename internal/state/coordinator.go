package state

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"trade-dashboard/internal/interfaces"
	"trade-dashboard/internal/logger"
	"trade-dashboard/internal/quotes"
	"trade-dashboard/internal/store"
	"trade-dashboard/internal/types"
)

// coordinator is the single authority for {mode, position, balances}. Its
// mutating methods run on one owner goroutine; readers go through the
// published snapshot. The core invariant it protects: whenever a position is
// open, the current mode equals the position's owning mode.
type coordinator struct {
	cfg    *store.Config
	quotes *quotes.Cache

	mode     types.Mode
	account  string
	position *types.PositionSnapshot
	balances map[types.Mode]float64

	history *modeHistory
	notif   *dispatcher
	equity  *equityCache

	published atomic.Pointer[types.EngineState]

	bg sync.WaitGroup

	// asyncNotify carries worker-goroutine completions back to the owner
	// loop. The dispatcher itself is not safe off that loop, so there is no
	// direct-dispatch default; nil drops async notifications.
	asyncNotify func(types.Notification)
}

func newCoordinator(cfg *store.Config, journal interfaces.Journal, q *quotes.Cache, asyncNotify func(types.Notification)) *coordinator {
	c := &coordinator{
		cfg:         cfg,
		quotes:      q,
		mode:        types.Mode(cfg.DefaultMode),
		balances:    make(map[types.Mode]float64),
		history:     newModeHistory(),
		notif:       newDispatcher(),
		equity:      newEquityCache(journal),
		asyncNotify: asyncNotify,
	}
	c.publish()
	return c
}

func (c *coordinator) Mode() types.Mode {
	return c.mode
}

func (c *coordinator) Snapshot() *types.EngineState {
	return c.published.Load()
}

func (c *coordinator) History() []types.ModeHistoryEntry {
	return c.history.snapshot()
}

func (c *coordinator) AddListener(fn func(types.Notification)) {
	c.notif.addListener(fn)
}

func (c *coordinator) BeginAtomicUpdate() {
	c.notif.begin()
}

func (c *coordinator) EndAtomicUpdate() {
	c.notif.end()
}

func (c *coordinator) hasOpenPosition() bool {
	return c.position != nil && c.position.Quantity != 0
}

func (c *coordinator) positionMode() types.Mode {
	if c.position == nil {
		return types.ModeNone
	}
	return c.position.Mode
}

// RequestModeChange validates and applies a mode switch. Requesting the
// current mode is a no-op returning true with no notifications. Rejections
// return false with no state change.
func (c *coordinator) RequestModeChange(ctx context.Context, newMode types.Mode, account string) bool {
	if !newMode.Valid() {
		logger.Warn(ctx, "Mode change rejected",
			"requested", newMode.String(),
			"reason", "invalid mode",
		)
		return false
	}
	if newMode == c.mode {
		return true
	}

	decision := ValidateTransition(c.mode, newMode, c.hasOpenPosition(), c.positionMode())
	if !decision.Allowed {
		logger.Warn(ctx, "Mode change rejected",
			"current", c.mode.String(),
			"requested", newMode.String(),
			"reason", decision.Reason,
		)
		return false
	}

	c.BeginAtomicUpdate()
	defer c.EndAtomicUpdate()

	if decision.ImplicitClose {
		exitPrice, exitTime := c.implicitExit()
		logger.Info(ctx, "Implicitly closing position before mode switch",
			"symbol", c.position.Symbol,
			"position_mode", c.position.Mode.String(),
			"exit_price", exitPrice,
		)
		c.ClosePosition(ctx, exitPrice, exitTime)
	}

	previous := c.mode
	c.mode = newMode
	c.account = account
	c.history.append(newMode, account)
	logger.ModeChange(ctx, previous.String(), newMode.String(), account)

	c.notif.notify(types.Notification{
		Kind:    types.NotifyMode,
		Mode:    newMode,
		Account: account,
	})
	c.publish()
	return true
}

// implicitExit resolves the price for an implicit close: last-known market
// price, falling back to the entry price.
func (c *coordinator) implicitExit() (float64, time.Time) {
	exit := c.position.EntryPrice
	if c.quotes != nil {
		if last, ok := c.quotes.Last(c.position.Symbol); ok {
			exit = last
		}
	}
	return exit, time.Now()
}

// OpenPosition replaces the position snapshot and forces mode = position
// mode, enforcing the single-mode invariant. A request matching the existing
// position within tolerance is suppressed as a duplicate re-delivery.
func (c *coordinator) OpenPosition(ctx context.Context, req types.OpenRequest) {
	if !req.Mode.Valid() {
		logger.Warn(ctx, "Open position rejected",
			"symbol", req.Symbol,
			"reason", "invalid mode",
			"mode", req.Mode.String(),
		)
		return
	}
	if req.Symbol == "" || req.Quantity == 0 || req.EntryPrice <= 0 {
		logger.Warn(ctx, "Open position rejected",
			"symbol", req.Symbol,
			"qty", req.Quantity,
			"entry_price", req.EntryPrice,
			"reason", "implausible open request",
		)
		return
	}

	if c.position != nil && c.position.Matches(req.Symbol, req.Quantity, req.EntryPrice, req.Mode) {
		logger.Debug(ctx, "Duplicate open suppressed",
			"symbol", req.Symbol,
			"qty", req.Quantity,
			"entry_price", req.EntryPrice,
		)
		return
	}

	c.BeginAtomicUpdate()
	defer c.EndAtomicUpdate()

	if c.mode != req.Mode {
		previous := c.mode
		c.mode = req.Mode
		c.account = req.Account
		c.history.append(req.Mode, req.Account)
		logger.ModeChange(ctx, previous.String(), req.Mode.String(), req.Account,
			"trigger", "position_open",
		)
		c.notif.notify(types.Notification{
			Kind:    types.NotifyMode,
			Mode:    req.Mode,
			Account: req.Account,
		})
	}

	snap := types.NewPositionSnapshot(req.Symbol, req.Quantity, req.EntryPrice, req.EntryTime, req.Mode, req.Account)
	snap.Recovered = req.Recovered || !snap.HasEntryTime
	snap.EntryMarket = req.EntryMarket
	c.position = snap

	logger.Info(ctx, "Position opened",
		"symbol", snap.Symbol,
		"qty", snap.Quantity,
		"entry_price", snap.EntryPrice,
		"mode", snap.Mode.String(),
		"account", snap.Account,
		"recovered", snap.Recovered,
	)

	c.notif.notify(types.Notification{
		Kind:     types.NotifyPosition,
		Mode:     snap.Mode,
		Account:  snap.Account,
		Position: snap.Clone(),
		Opened:   true,
	})
	c.publish()
}

// ClosePosition captures the outgoing snapshot into a ClosedTrade and clears
// position state. Returns nil with no notification when already flat.
func (c *coordinator) ClosePosition(ctx context.Context, exitPrice float64, exitTime time.Time) *types.ClosedTrade {
	if c.position == nil {
		return nil
	}

	p := c.position
	if exitPrice <= 0 {
		exitPrice, _ = c.implicitExit()
	}
	if exitTime.IsZero() {
		exitTime = time.Now()
	}

	trade := buildClosedTrade(p, exitPrice, exitTime,
		c.cfg.PointValue(p.Symbol), c.cfg.Trading.CommissionPerContract)
	c.position = nil

	logger.Trade(ctx, trade.Symbol, trade.Side, trade.Quantity,
		trade.EntryPrice, trade.ExitPrice, trade.PnL, trade.Mode.String(),
		"account", trade.Account,
		"mae", trade.MAE,
		"mfe", trade.MFE,
	)

	c.notif.notify(types.Notification{
		Kind:    types.NotifyPosition,
		Mode:    trade.Mode,
		Account: trade.Account,
		Trade:   trade,
		Closed:  true,
	})
	c.equity.invalidate(trade.Mode, trade.Account)
	c.publish()
	return trade
}

// ClearPosition discards the open position without producing a trade record.
// Used when reconciliation finds the server flat while local state is not.
func (c *coordinator) ClearPosition(ctx context.Context) {
	if c.position == nil {
		return
	}
	p := c.position
	c.position = nil
	logger.Info(ctx, "Position cleared without trade record",
		"symbol", p.Symbol,
		"qty", p.Quantity,
		"mode", p.Mode.String(),
	)
	c.notif.notify(types.Notification{
		Kind:    types.NotifyPosition,
		Mode:    p.Mode,
		Account: p.Account,
		Closed:  true,
	})
	c.publish()
}

// UpdateBalanceForMode sets the mode-scoped balance. Malformed values are
// ignored rather than propagated.
func (c *coordinator) UpdateBalanceForMode(ctx context.Context, mode types.Mode, value float64) bool {
	if !mode.Valid() {
		logger.Warn(ctx, "Balance update rejected", "mode", mode.String(), "reason", "invalid mode")
		return false
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		logger.Warn(ctx, "Balance update rejected", "mode", mode.String(), "reason", "malformed value")
		return false
	}

	c.balances[mode] = value
	c.notif.notify(types.Notification{
		Kind:    types.NotifyBalance,
		Mode:    mode,
		Balance: value,
	})
	c.publish()
	return true
}

// UpdateLiveBalanceFromServer routes a server-reported balance into the LIVE
// scope, rejecting accounts that do not resolve to LIVE mode.
func (c *coordinator) UpdateLiveBalanceFromServer(ctx context.Context, value float64, account string) bool {
	if c.cfg.AccountMode(account) != types.ModeLive {
		logger.Warn(ctx, "Live balance update rejected",
			"account", account,
			"reason", "account does not resolve to LIVE mode",
		)
		return false
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		logger.Warn(ctx, "Live balance update rejected", "account", account, "reason", "malformed value")
		return false
	}

	c.balances[types.ModeLive] = value
	c.notif.notify(types.Notification{
		Kind:    types.NotifyBalance,
		Mode:    types.ModeLive,
		Account: account,
		Balance: value,
	})
	c.publish()
	return true
}

// RecordStopPrice stores an inferred stop on the open position.
func (c *coordinator) RecordStopPrice(ctx context.Context, price float64) {
	if c.position == nil || price <= 0 {
		return
	}
	c.position.StopPrice = price
	c.position.HasStop = true
	logger.Debug(ctx, "Stop price recorded", "symbol", c.position.Symbol, "stop", price)
	c.notif.notify(types.Notification{
		Kind:     types.NotifyPosition,
		Mode:     c.position.Mode,
		Account:  c.position.Account,
		Position: c.position.Clone(),
	})
	c.publish()
}

// RecordTargetPrice stores an inferred target on the open position.
func (c *coordinator) RecordTargetPrice(ctx context.Context, price float64) {
	if c.position == nil || price <= 0 {
		return
	}
	c.position.TargetPrice = price
	c.position.HasTarget = true
	logger.Debug(ctx, "Target price recorded", "symbol", c.position.Symbol, "target", price)
	c.notif.notify(types.Notification{
		Kind:     types.NotifyPosition,
		Mode:     c.position.Mode,
		Account:  c.position.Account,
		Position: c.position.Clone(),
	})
	c.publish()
}

// MarkPrice widens the open position's trade extremes with a traded price.
func (c *coordinator) MarkPrice(ctx context.Context, symbol string, price float64) {
	if c.position == nil || c.position.Symbol != symbol {
		return
	}
	c.position.ObservePrice(price)
	c.publish()
}

// EnsureEquityCurve starts a background load of the scope's equity curve
// unless it is cached or already loading. Completion arrives as a
// NotifyEquityLoaded notification.
func (c *coordinator) EnsureEquityCurve(ctx context.Context, mode types.Mode, account string) {
	if !c.equity.tryBegin(mode, account) {
		return
	}

	loadCtx := context.WithoutCancel(ctx)
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		curve, ok := c.equity.load(loadCtx, mode, account)
		if !ok || c.asyncNotify == nil {
			return
		}
		c.asyncNotify(types.Notification{
			Kind:    types.NotifyEquityLoaded,
			Mode:    mode,
			Account: account,
			Equity:  curve,
		})
	}()
}

func (c *coordinator) EquityCurve(mode types.Mode, account string) ([]types.EquityPoint, bool) {
	return c.equity.get(mode, account)
}

// Background runs fn on a tracked fire-and-forget goroutine. Completions may
// outlive the triggering request; a later state change supersedes the result.
func (c *coordinator) Background(fn func()) {
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		fn()
	}()
}

// WaitBackground blocks until outstanding background work finishes or the
// timeout elapses. A timeout is reported to the caller, not treated as fatal.
func (c *coordinator) WaitBackground(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		c.bg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// publish refreshes the lock-free snapshot observers read.
func (c *coordinator) publish() {
	balances := make(map[types.Mode]float64, len(c.balances))
	for m, v := range c.balances {
		balances[m] = v
	}

	c.published.Store(&types.EngineState{
		Mode:      c.mode,
		Balances:  balances,
		Position:  c.position.Clone(),
		History:   c.history.snapshot(),
		UpdatedAt: time.Now(),
	})
}
