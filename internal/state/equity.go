package state

import (
	"context"
	"sync"

	"trade-dashboard/internal/interfaces"
	"trade-dashboard/internal/logger"
	"trade-dashboard/internal/types"
)

type equityScope struct {
	mode    types.Mode
	account string
}

// equityCache holds equity curves per (mode, account) scope. Unlike the rest
// of the coordinator it is touched from worker goroutines, so every
// read/check/write of its maps happens under the mutex. Pending-load
// de-duplication prevents redundant concurrent loads of one scope.
type equityCache struct {
	mu      sync.Mutex
	curves  map[equityScope][]types.EquityPoint
	pending map[equityScope]bool

	journal interfaces.Journal
}

func newEquityCache(journal interfaces.Journal) *equityCache {
	return &equityCache{
		curves:  make(map[equityScope][]types.EquityPoint),
		pending: make(map[equityScope]bool),
		journal: journal,
	}
}

func (c *equityCache) get(mode types.Mode, account string) ([]types.EquityPoint, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	curve, ok := c.curves[equityScope{mode, account}]
	return curve, ok
}

func (c *equityCache) put(mode types.Mode, account string, curve []types.EquityPoint) {
	c.mu.Lock()
	defer c.mu.Unlock()

	scope := equityScope{mode, account}
	c.curves[scope] = curve
	delete(c.pending, scope)
}

// invalidate drops a cached curve so the next ensure reloads it; called after
// a new trade is journaled for the scope.
func (c *equityCache) invalidate(mode types.Mode, account string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.curves, equityScope{mode, account})
}

// tryBegin reserves a load for the scope. Returns false when the curve is
// already cached or a load is in flight.
func (c *equityCache) tryBegin(mode types.Mode, account string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	scope := equityScope{mode, account}
	if _, cached := c.curves[scope]; cached {
		return false
	}
	if c.pending[scope] {
		return false
	}
	c.pending[scope] = true
	return true
}

func (c *equityCache) abandon(mode types.Mode, account string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, equityScope{mode, account})
}

// load queries the journal for the scope's curve. Called on a worker
// goroutine; the caller delivers the completion notification.
func (c *equityCache) load(ctx context.Context, mode types.Mode, account string) ([]types.EquityPoint, bool) {
	if c.journal == nil {
		c.abandon(mode, account)
		return nil, false
	}

	curve, err := c.journal.EquityCurve(ctx, mode, account)
	if err != nil {
		logger.ErrorWithErr(ctx, "Equity curve load failed", err,
			"mode", mode.String(),
			"account", account,
		)
		c.abandon(mode, account)
		return nil, false
	}

	c.put(mode, account, curve)
	return curve, true
}
