// Package stateobs wraps the coordinator with tracing and structured logging
// so the raw coordinator stays log-light.
package stateobs

import (
	"context"
	"time"

	"trade-dashboard/internal/interfaces"
	"trade-dashboard/internal/logger"
	"trade-dashboard/internal/trace"
	"trade-dashboard/internal/types"
)

type observableCoordinator struct {
	coord interfaces.Coordinator
}

var _ interfaces.Coordinator = (*observableCoordinator)(nil)

func Wrap(coord interfaces.Coordinator) interfaces.Coordinator {
	return &observableCoordinator{
		coord: coord,
	}
}

func (oc *observableCoordinator) Mode() types.Mode {
	return oc.coord.Mode()
}

func (oc *observableCoordinator) Snapshot() *types.EngineState {
	return oc.coord.Snapshot()
}

func (oc *observableCoordinator) History() []types.ModeHistoryEntry {
	return oc.coord.History()
}

func (oc *observableCoordinator) RequestModeChange(ctx context.Context, newMode types.Mode, account string) bool {
	ctx, span := trace.StartSpan(ctx, "state.RequestModeChange")
	defer span.End()

	start := time.Now()
	ok := oc.coord.RequestModeChange(ctx, newMode, account)

	logger.Debug(ctx, "Mode change processed",
		"requested", newMode.String(),
		"account", account,
		"accepted", ok,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return ok
}

func (oc *observableCoordinator) OpenPosition(ctx context.Context, req types.OpenRequest) {
	ctx, span := trace.StartSpan(ctx, "state.OpenPosition")
	defer span.End()

	oc.coord.OpenPosition(ctx, req)
}

func (oc *observableCoordinator) ClosePosition(ctx context.Context, exitPrice float64, exitTime time.Time) *types.ClosedTrade {
	ctx, span := trace.StartSpan(ctx, "state.ClosePosition")
	defer span.End()

	trade := oc.coord.ClosePosition(ctx, exitPrice, exitTime)
	if trade != nil {
		logger.Debug(ctx, "Closure processed",
			"symbol", trade.Symbol,
			"pnl", trade.PnL,
			"efficiency", trade.Efficiency,
		)
	}
	return trade
}

func (oc *observableCoordinator) ClearPosition(ctx context.Context) {
	ctx, span := trace.StartSpan(ctx, "state.ClearPosition")
	defer span.End()

	oc.coord.ClearPosition(ctx)
}

func (oc *observableCoordinator) UpdateBalanceForMode(ctx context.Context, mode types.Mode, value float64) bool {
	ctx, span := trace.StartSpan(ctx, "state.UpdateBalanceForMode")
	defer span.End()

	return oc.coord.UpdateBalanceForMode(ctx, mode, value)
}

func (oc *observableCoordinator) UpdateLiveBalanceFromServer(ctx context.Context, value float64, account string) bool {
	ctx, span := trace.StartSpan(ctx, "state.UpdateLiveBalanceFromServer")
	defer span.End()

	return oc.coord.UpdateLiveBalanceFromServer(ctx, value, account)
}

func (oc *observableCoordinator) RecordStopPrice(ctx context.Context, price float64) {
	oc.coord.RecordStopPrice(ctx, price)
}

func (oc *observableCoordinator) RecordTargetPrice(ctx context.Context, price float64) {
	oc.coord.RecordTargetPrice(ctx, price)
}

func (oc *observableCoordinator) MarkPrice(ctx context.Context, symbol string, price float64) {
	oc.coord.MarkPrice(ctx, symbol, price)
}

func (oc *observableCoordinator) BeginAtomicUpdate() {
	oc.coord.BeginAtomicUpdate()
}

func (oc *observableCoordinator) EndAtomicUpdate() {
	oc.coord.EndAtomicUpdate()
}

func (oc *observableCoordinator) AddListener(fn func(types.Notification)) {
	oc.coord.AddListener(fn)
}

func (oc *observableCoordinator) EnsureEquityCurve(ctx context.Context, mode types.Mode, account string) {
	oc.coord.EnsureEquityCurve(ctx, mode, account)
}

func (oc *observableCoordinator) EquityCurve(mode types.Mode, account string) ([]types.EquityPoint, bool) {
	return oc.coord.EquityCurve(mode, account)
}

func (oc *observableCoordinator) Background(fn func()) {
	oc.coord.Background(fn)
}

func (oc *observableCoordinator) WaitBackground(timeout time.Duration) bool {
	return oc.coord.WaitBackground(timeout)
}
