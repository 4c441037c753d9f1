package types

import "time"

// Order sides as reported by the feed.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Order status codes consumed from the feed. Both filled variants are treated
// as fills by the interpreter.
const (
	OrderStatusOpen            = 4
	OrderStatusFilled          = 7
	OrderStatusCanceled        = 8
	OrderStatusRejected        = 9
	OrderStatusPartiallyFilled = 10
)

// IsFilledStatus reports whether a status code represents an executed order.
func IsFilledStatus(status int) bool {
	return status == OrderStatusFilled || status == OrderStatusPartiallyFilled
}

// OrderUpdate is a normalized order event from the feed decoder.
type OrderUpdate struct {
	Symbol        string
	Account       string
	Status        int
	Side          string
	FilledQty     float64
	AvgFillPrice  float64
	LastFillPrice float64
	Price         float64 // primary order price
	Time          time.Time
}

// PositionUpdate is a normalized position event from the feed decoder.
// The symbol here is authoritative for position identity.
type PositionUpdate struct {
	Symbol      string
	Account     string
	Quantity    float64 // signed
	AvgPrice    float64
	HasAvgPrice bool
}

// BalanceUpdate is a normalized account-balance event from the feed decoder.
type BalanceUpdate struct {
	Account string
	Balance float64
}

// ServerPosition is one open position reported by the server during recovery.
type ServerPosition struct {
	Symbol   string
	Quantity float64 // signed
	AvgPrice float64
	Account  string
}

// ServerSnapshot is the server-side view queried once per (re)connection.
type ServerSnapshot struct {
	Positions  []ServerPosition
	Balance    float64
	HasBalance bool
	Account    string
}
