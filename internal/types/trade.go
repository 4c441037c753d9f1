package types

import "time"

// ClosedTrade is the immutable record produced exactly once per position
// closure. It is consumed by the journal and statistics collaborators and is
// never mutated after creation.
type ClosedTrade struct {
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"` // "LONG" or "SHORT"
	Quantity   float64   `json:"quantity"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	EntryTime  time.Time `json:"entry_time,omitempty"`
	ExitTime   time.Time `json:"exit_time"`

	PnL        float64 `json:"pnl"`        // realized, before commission
	Commission float64 `json:"commission"` // round trip

	MAE        float64 `json:"mae"` // always <= 0
	MFE        float64 `json:"mfe"` // always >= 0
	Efficiency float64 `json:"efficiency"`
	RMultiple  float64 `json:"r_multiple,omitempty"`
	HasR       bool    `json:"has_r"`

	Mode    Mode   `json:"mode"`
	Account string `json:"account"`
}

// NetPnL is the realized result after round-trip commission.
func (t *ClosedTrade) NetPnL() float64 {
	return t.PnL - t.Commission
}

// ModeHistoryEntry is one line of the mode-change audit log.
type ModeHistoryEntry struct {
	Time    time.Time `json:"time"`
	Mode    Mode      `json:"mode"`
	Account string    `json:"account"`
}

// EquityPoint is one sample of the cumulative realized P&L curve.
type EquityPoint struct {
	Time   time.Time `json:"time"`
	Equity float64   `json:"equity"`
}

// TradeStats summarizes the journal for one (mode, account) scope.
type TradeStats struct {
	Trades    int     `json:"trades"`
	Wins      int     `json:"wins"`
	Losses    int     `json:"losses"`
	TotalPnL  float64 `json:"total_pnl"`
	TotalFees float64 `json:"total_fees"`
	AvgR      float64 `json:"avg_r"`
}

// EngineState is the immutable view published after every coordinator
// mutation. Observers read it without locking.
type EngineState struct {
	Mode      Mode               `json:"mode"`
	Balances  map[Mode]float64   `json:"balances"`
	Position  *PositionSnapshot  `json:"position,omitempty"`
	History   []ModeHistoryEntry `json:"mode_history,omitempty"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// HasOpenPosition reports whether a position is held in this state.
func (s *EngineState) HasOpenPosition() bool {
	return s.Position != nil && s.Position.Quantity != 0
}
