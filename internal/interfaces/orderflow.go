package interfaces

import (
	"context"

	"trade-dashboard/internal/types"
)

// Interpreter turns normalized protocol events into coordinator state
// transitions: open, update, close, or ignore.
type Interpreter interface {
	HandleOrderUpdate(ctx context.Context, ev types.OrderUpdate)
	HandlePositionUpdate(ctx context.Context, ev types.PositionUpdate)
}
