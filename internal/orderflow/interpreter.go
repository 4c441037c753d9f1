// Package orderflow interprets normalized protocol events into state
// transitions. It carries the protocol quirk handling: in SIM operation the
// upstream server never emits a non-zero position update, only order fills,
// so positions are seeded and closed from the order stream.
package orderflow

import (
	"context"
	"time"

	"trade-dashboard/internal/interfaces"
	"trade-dashboard/internal/logger"
	"trade-dashboard/internal/quotes"
	"trade-dashboard/internal/store"
	"trade-dashboard/internal/types"
)

type interpreter struct {
	cfg    *store.Config
	coord  interfaces.Coordinator
	quotes *quotes.Cache

	// Last fill price seen per symbol; position updates carry no fill price
	// on flat transitions, so closures fall back to this, then to the quote.
	lastFill map[string]float64
}

func New(cfg *store.Config, coord interfaces.Coordinator, q *quotes.Cache) interfaces.Interpreter {
	return &interpreter{
		cfg:      cfg,
		coord:    coord,
		quotes:   q,
		lastFill: make(map[string]float64),
	}
}

func (i *interpreter) openPosition() *types.PositionSnapshot {
	snap := i.coord.Snapshot()
	if snap == nil || !snap.HasOpenPosition() {
		return nil
	}
	return snap.Position
}

// HandleOrderUpdate processes one order event: bracket inference, SIM-mode
// position seeding from fills, and partial-fill closures.
func (i *interpreter) HandleOrderUpdate(ctx context.Context, ev types.OrderUpdate) {
	pos := i.openPosition()

	// A sell-side order price relative to the entry identifies the bracket
	// leg it represents, regardless of fill status.
	if pos != nil && ev.Side == types.SideSell && ev.Price > 0 &&
		(ev.Symbol == "" || ev.Symbol == pos.Symbol) {
		switch {
		case ev.Price < pos.EntryPrice:
			i.coord.RecordStopPrice(ctx, ev.Price)
		case ev.Price > pos.EntryPrice:
			i.coord.RecordTargetPrice(ctx, ev.Price)
		}
	}

	if !types.IsFilledStatus(ev.Status) {
		return
	}

	if fp := firstPositive(ev.LastFillPrice, ev.AvgFillPrice); fp > 0 && ev.Symbol != "" {
		i.lastFill[ev.Symbol] = fp
	}

	if pos == nil {
		i.seedFromFill(ctx, ev)
		return
	}

	if ev.Symbol != "" && ev.Symbol != pos.Symbol {
		logger.Debug(ctx, "Fill for non-held symbol ignored",
			"symbol", ev.Symbol,
			"held", pos.Symbol,
		)
		return
	}

	// Only a reported fill quantity strictly below the held quantity means
	// the position is leaving; equal-or-greater is adding to or maintaining
	// it and must be ignored.
	if ev.FilledQty >= pos.AbsQuantity() {
		logger.Debug(ctx, "Fill treated as add/maintain, ignored",
			"symbol", pos.Symbol,
			"filled_qty", ev.FilledQty,
			"held_qty", pos.AbsQuantity(),
		)
		return
	}

	exit, ok := i.resolveOrderExit(ev, pos.Symbol)
	if !ok {
		logger.Warn(ctx, "Closure abandoned: no resolvable exit price",
			"symbol", pos.Symbol,
			"filled_qty", ev.FilledQty,
		)
		return
	}

	exitTime := ev.Time
	if exitTime.IsZero() {
		exitTime = time.Now()
	}
	i.coord.ClosePosition(ctx, exit, exitTime)
}

// seedFromFill opens a position directly from a filled order while flat.
// This is the SIM-mode workaround for servers that never report a non-zero
// position.
func (i *interpreter) seedFromFill(ctx context.Context, ev types.OrderUpdate) {
	if ev.FilledQty <= 0 || ev.Symbol == "" {
		return
	}

	price := firstPositive(ev.AvgFillPrice, ev.LastFillPrice, ev.Price)
	if price <= 0 {
		if last, ok := i.quotes.Last(ev.Symbol); ok {
			price = last
		}
	}
	if price <= 0 {
		logger.Warn(ctx, "Fill dropped: no resolvable entry price",
			"symbol", ev.Symbol,
			"filled_qty", ev.FilledQty,
		)
		return
	}

	qty := ev.FilledQty
	if ev.Side == types.SideSell {
		qty = -qty
	}

	entryTime := ev.Time
	if entryTime.IsZero() {
		entryTime = time.Now()
	}

	i.coord.OpenPosition(ctx, types.OpenRequest{
		Symbol:      ev.Symbol,
		Quantity:    qty,
		EntryPrice:  price,
		EntryTime:   entryTime,
		Mode:        i.cfg.AccountMode(ev.Account),
		Account:     ev.Account,
		EntryMarket: i.quotes.Market(ev.Symbol),
	})
}

// resolveOrderExit applies the fixed fallback order: last fill price, average
// fill price, primary order price, last-known market price.
func (i *interpreter) resolveOrderExit(ev types.OrderUpdate, symbol string) (float64, bool) {
	if p := firstPositive(ev.LastFillPrice, ev.AvgFillPrice, ev.Price); p > 0 {
		return p, true
	}
	if last, ok := i.quotes.Last(symbol); ok {
		return last, true
	}
	return 0, false
}

// HandlePositionUpdate processes one position event. The payload's symbol is
// authoritative for position identity.
func (i *interpreter) HandlePositionUpdate(ctx context.Context, ev types.PositionUpdate) {
	pos := i.openPosition()

	if ev.Quantity == 0 {
		if pos == nil {
			return
		}
		// The server reports no price on flat transitions.
		exit := i.lastFill[pos.Symbol]
		if exit <= 0 {
			if last, ok := i.quotes.Last(pos.Symbol); ok {
				exit = last
			}
		}
		if exit <= 0 {
			exit = pos.EntryPrice
		}
		i.coord.ClosePosition(ctx, exit, time.Now())
		return
	}

	// A quantity without a price is untrustworthy; reject rather than
	// zero-fill.
	if !ev.HasAvgPrice || ev.AvgPrice <= 0 {
		logger.Warn(ctx, "Position update rejected: quantity without price",
			"symbol", ev.Symbol,
			"qty", ev.Quantity,
		)
		return
	}
	if ev.Symbol == "" {
		logger.Warn(ctx, "Position update rejected: missing symbol", "qty", ev.Quantity)
		return
	}

	i.coord.OpenPosition(ctx, types.OpenRequest{
		Symbol:      ev.Symbol,
		Quantity:    ev.Quantity,
		EntryPrice:  ev.AvgPrice,
		EntryTime:   time.Now(),
		Mode:        i.cfg.AccountMode(ev.Account),
		Account:     ev.Account,
		EntryMarket: i.quotes.Market(ev.Symbol),
	})
}

func firstPositive(vals ...float64) float64 {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
