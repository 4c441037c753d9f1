package interfaces

import (
	"context"

	"trade-dashboard/internal/types"
)

// Journal is the closed-trade persistence collaborator. Write failures are
// logged and counted, never propagated back into the event path.
type Journal interface {
	Append(ctx context.Context, trade *types.ClosedTrade) error
	Trades(ctx context.Context, mode types.Mode, account string, limit int) ([]types.ClosedTrade, error)
	EquityCurve(ctx context.Context, mode types.Mode, account string) ([]types.EquityPoint, error)
	Stats(ctx context.Context, mode types.Mode, account string) (types.TradeStats, error)
	// WriteFailures counts appends that failed since open.
	WriteFailures() int64
	Close() error
}
