package state

import (
	"math"
	"time"

	"trade-dashboard/internal/types"
)

// Efficiency is clamped to [0, 1.5]: it can exceed 1.0 when price recedes
// after exceeding the exit, so realized gain beats the tracked MFE.
const (
	efficiencyMin = 0.0
	efficiencyMax = 1.5
)

// buildClosedTrade derives the immutable closure record from the outgoing
// snapshot. qty is the absolute entry quantity; commission is a flat
// per-contract fee for the round trip.
func buildClosedTrade(p *types.PositionSnapshot, exitPrice float64, exitTime time.Time, pointValue, commissionPerContract float64) *types.ClosedTrade {
	qty := p.AbsQuantity()
	dir := p.Direction()
	gainPoints := (exitPrice - p.EntryPrice) * dir

	side := "LONG"
	if dir < 0 {
		side = "SHORT"
	}

	// Adverse extreme is the tracked minimum for longs and maximum for
	// shorts; favorable is the opposite.
	adverse, favorable := p.TradeMin, p.TradeMax
	if dir < 0 {
		adverse, favorable = p.TradeMax, p.TradeMin
	}

	mae := (adverse - p.EntryPrice) * dir * qty * pointValue
	if mae > 0 {
		mae = 0
	}
	mfe := (favorable - p.EntryPrice) * dir * qty * pointValue
	if mfe < 0 {
		mfe = 0
	}

	pnl := gainPoints * qty * pointValue

	efficiency := 0.0
	if mfe > 0 {
		efficiency = pnl / mfe
		if efficiency < efficiencyMin {
			efficiency = efficiencyMin
		}
		if efficiency > efficiencyMax {
			efficiency = efficiencyMax
		}
	}

	var rMultiple float64
	hasR := false
	if p.HasStop {
		risk := math.Abs(p.EntryPrice - p.StopPrice)
		if risk > 0 {
			rMultiple = gainPoints / risk
			hasR = true
		}
	}

	return &types.ClosedTrade{
		Symbol:     p.Symbol,
		Side:       side,
		Quantity:   qty,
		EntryPrice: p.EntryPrice,
		ExitPrice:  exitPrice,
		EntryTime:  p.EntryTime,
		ExitTime:   exitTime,
		PnL:        pnl,
		Commission: commissionPerContract * qty * 2,
		MAE:        mae,
		MFE:        mfe,
		Efficiency: efficiency,
		RMultiple:  rMultiple,
		HasR:       hasR,
		Mode:       p.Mode,
		Account:    p.Account,
	}
}
