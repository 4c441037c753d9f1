package types

import (
	"math"
	"time"
)

// Duplicate-suppression tolerances for OpenPosition requests.
const (
	QtyTolerance   = 0.0001
	PriceTolerance = 0.01
)

// MarketSnapshot captures venue statistics at entry time.
type MarketSnapshot struct {
	VWAP            float64 `json:"vwap"`
	PointOfControl  float64 `json:"point_of_control"`
	CumulativeDelta float64 `json:"cumulative_delta"`
}

// PositionSnapshot is one position-in-time. A new snapshot is created on every
// open and discarded on close; only the trade extremes mutate in place while
// the position is held.
type PositionSnapshot struct {
	Symbol       string    `json:"symbol"`
	Quantity     float64   `json:"quantity"` // signed: >0 long, <0 short
	EntryPrice   float64   `json:"entry_price"`
	EntryTime    time.Time `json:"entry_time,omitempty"`
	HasEntryTime bool      `json:"has_entry_time"` // false on recovered positions
	Recovered    bool      `json:"recovered"`
	Mode         Mode      `json:"mode"`
	Account      string    `json:"account"`

	TargetPrice float64 `json:"target_price,omitempty"`
	HasTarget   bool    `json:"has_target"`
	StopPrice   float64 `json:"stop_price,omitempty"`
	HasStop     bool    `json:"has_stop"`

	EntryMarket *MarketSnapshot `json:"entry_market,omitempty"`

	// Extremes observed since entry, seeded with the entry price.
	// They only widen while the position is open.
	TradeMin float64 `json:"trade_min"`
	TradeMax float64 `json:"trade_max"`
}

// NewPositionSnapshot builds a snapshot with extremes seeded at the entry price.
// A zero entryTime marks the position as recovered without a timestamp.
func NewPositionSnapshot(symbol string, qty, entryPrice float64, entryTime time.Time, mode Mode, account string) *PositionSnapshot {
	return &PositionSnapshot{
		Symbol:       symbol,
		Quantity:     qty,
		EntryPrice:   entryPrice,
		EntryTime:    entryTime,
		HasEntryTime: !entryTime.IsZero(),
		Mode:         mode,
		Account:      account,
		TradeMin:     entryPrice,
		TradeMax:     entryPrice,
	}
}

func (p *PositionSnapshot) IsLong() bool  { return p.Quantity > 0 }
func (p *PositionSnapshot) IsShort() bool { return p.Quantity < 0 }

// Direction returns +1 for long, -1 for short, 0 for flat.
func (p *PositionSnapshot) Direction() float64 {
	switch {
	case p.Quantity > 0:
		return 1
	case p.Quantity < 0:
		return -1
	}
	return 0
}

// AbsQuantity returns the unsigned position size.
func (p *PositionSnapshot) AbsQuantity() float64 {
	return math.Abs(p.Quantity)
}

// ObservePrice widens the trade extremes with a traded price.
func (p *PositionSnapshot) ObservePrice(price float64) {
	if price <= 0 {
		return
	}
	if price < p.TradeMin {
		p.TradeMin = price
	}
	if price > p.TradeMax {
		p.TradeMax = price
	}
}

// UnrealizedPoints returns the open profit in price points for one contract.
func (p *PositionSnapshot) UnrealizedPoints(lastPrice float64) float64 {
	return (lastPrice - p.EntryPrice) * p.Direction()
}

// Matches reports whether an open request describes this same position within
// the duplicate-suppression tolerances. Protects against duplicate protocol
// re-delivery.
func (p *PositionSnapshot) Matches(symbol string, qty, entryPrice float64, mode Mode) bool {
	return p.Symbol == symbol &&
		p.Mode == mode &&
		math.Abs(p.Quantity-qty) < QtyTolerance &&
		math.Abs(p.EntryPrice-entryPrice) < PriceTolerance
}

// Clone returns a copy safe to hand to observers.
func (p *PositionSnapshot) Clone() *PositionSnapshot {
	if p == nil {
		return nil
	}
	cp := *p
	if p.EntryMarket != nil {
		m := *p.EntryMarket
		cp.EntryMarket = &m
	}
	return &cp
}
