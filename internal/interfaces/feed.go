package interfaces

import (
	"context"

	"trade-dashboard/internal/types"
)

// FeedHandler receives normalized events from the feed decoder. Callbacks are
// invoked sequentially from the connection's read loop; OnSnapshot fires once
// per (re)connection before event dispatch resumes.
type FeedHandler interface {
	OnSnapshot(ctx context.Context, snap types.ServerSnapshot)
	OnOrderUpdate(ctx context.Context, ev types.OrderUpdate)
	OnPositionUpdate(ctx context.Context, ev types.PositionUpdate)
	OnBalanceUpdate(ctx context.Context, ev types.BalanceUpdate)
	OnMarketData(ctx context.Context, symbol string, price float64, market *types.MarketSnapshot)
}

// Feed is the connection to the trading terminal process.
type Feed interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context)
}
