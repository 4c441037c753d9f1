package interfaces

import (
	"context"
	"time"

	"trade-dashboard/internal/types"
)

// Coordinator is the single authority for mode, position, and balances.
// Mutating methods must be called from one owner goroutine; Snapshot and
// History are safe from any goroutine.
type Coordinator interface {
	Mode() types.Mode
	Snapshot() *types.EngineState
	History() []types.ModeHistoryEntry

	// RequestModeChange is the only sanctioned way to change mode.
	RequestModeChange(ctx context.Context, newMode types.Mode, account string) bool

	// OpenPosition is idempotent under duplicate re-delivery.
	OpenPosition(ctx context.Context, req types.OpenRequest)

	// ClosePosition returns nil without notifying when already flat.
	ClosePosition(ctx context.Context, exitPrice float64, exitTime time.Time) *types.ClosedTrade

	// ClearPosition discards the open position without a trade record.
	ClearPosition(ctx context.Context)

	UpdateBalanceForMode(ctx context.Context, mode types.Mode, value float64) bool
	UpdateLiveBalanceFromServer(ctx context.Context, value float64, account string) bool

	// Bracket prices inferred from the order stream while a position is open.
	RecordStopPrice(ctx context.Context, price float64)
	RecordTargetPrice(ctx context.Context, price float64)

	// MarkPrice widens the open position's trade extremes.
	MarkPrice(ctx context.Context, symbol string, price float64)

	// Atomic-update scope: nestable; notifications buffered while depth > 0
	// and flushed mode -> balance -> position on return to depth 0.
	BeginAtomicUpdate()
	EndAtomicUpdate()

	AddListener(fn func(types.Notification))

	// EnsureEquityCurve loads the scope's equity curve on a worker if it is
	// not cached and no load is pending.
	EnsureEquityCurve(ctx context.Context, mode types.Mode, account string)
	EquityCurve(mode types.Mode, account string) ([]types.EquityPoint, bool)

	// Background runs fn on a tracked fire-and-forget goroutine.
	Background(fn func())
	// WaitBackground blocks until outstanding background work finishes or the
	// timeout elapses; false on timeout.
	WaitBackground(timeout time.Duration) bool
}
