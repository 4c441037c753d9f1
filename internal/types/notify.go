package types

// NotificationKind orders state-change notifications. The dispatch order on
// atomic-scope flush is fixed: mode, then balance, then position, so that
// observers never see a balance or position attributed to a stale mode.
type NotificationKind int

const (
	NotifyMode NotificationKind = iota
	NotifyBalance
	NotifyPosition
	NotifyEquityLoaded
)

func (k NotificationKind) String() string {
	switch k {
	case NotifyMode:
		return "mode"
	case NotifyBalance:
		return "balance"
	case NotifyPosition:
		return "position"
	case NotifyEquityLoaded:
		return "equity_loaded"
	}
	return "unknown"
}

// Notification is one outbound state-change event.
type Notification struct {
	Kind     NotificationKind  `json:"kind"`
	Mode     Mode              `json:"mode"`
	Account  string            `json:"account,omitempty"`
	Balance  float64           `json:"balance,omitempty"`
	Position *PositionSnapshot `json:"position,omitempty"` // nil when flat
	Trade    *ClosedTrade      `json:"trade,omitempty"`    // set on closure
	Opened   bool              `json:"opened,omitempty"`
	Closed   bool              `json:"closed,omitempty"`
	Equity   []EquityPoint     `json:"equity,omitempty"` // NotifyEquityLoaded payload
}
