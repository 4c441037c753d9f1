// Package quotes keeps the last-known market price per symbol. The
// interpreter's exit-price fallback and the implicit-close path read it when
// the feed supplies no fill price.
package quotes

import (
	"sync"
	"time"

	"trade-dashboard/internal/types"
)

type quote struct {
	price  float64
	market *types.MarketSnapshot
	at     time.Time
}

type Cache struct {
	mu    sync.RWMutex
	bySym map[string]quote
}

func NewCache() *Cache {
	return &Cache{bySym: make(map[string]quote)}
}

// Set records the latest traded price for a symbol. Non-positive prices are
// ignored. market may be nil.
func (c *Cache) Set(symbol string, price float64, market *types.MarketSnapshot) {
	if symbol == "" || price <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bySym[symbol] = quote{price: price, market: market, at: time.Now()}
}

// Last returns the last-known price for a symbol.
func (c *Cache) Last(symbol string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.bySym[symbol]
	if !ok {
		return 0, false
	}
	return q.price, true
}

// Market returns the latest venue snapshot (VWAP, point of control,
// cumulative delta) for a symbol, or nil.
func (c *Cache) Market(symbol string) *types.MarketSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.bySym[symbol]
	if !ok || q.market == nil {
		return nil
	}
	m := *q.market
	return &m
}
