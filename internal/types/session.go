package types

import "time"

// SessionSchemaVersion tags persisted session documents.
const SessionSchemaVersion = 2

// SessionState is the per (mode, account) document persisted between runs:
// entry/heat timers and the trade extremes of an open position. A missing
// document is a valid "no prior session" state.
type SessionState struct {
	SchemaVersion  int       `json:"schema_version"`
	Mode           Mode      `json:"mode"`
	Account        string    `json:"account"`
	EntryStartedAt time.Time `json:"entry_started_at,omitempty"`
	HeatStartedAt  time.Time `json:"heat_started_at,omitempty"`
	TradeMin       float64   `json:"trade_min,omitempty"`
	TradeMax       float64   `json:"trade_max,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// OpenRequest describes a position to open on the coordinator. A zero
// EntryTime flags the position as recovered without a timestamp.
type OpenRequest struct {
	Symbol      string
	Quantity    float64 // signed
	EntryPrice  float64
	EntryTime   time.Time
	Mode        Mode
	Account     string
	Recovered   bool
	EntryMarket *MarketSnapshot
}
