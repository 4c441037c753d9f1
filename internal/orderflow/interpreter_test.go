package orderflow

import (
	"context"
	"testing"
	"time"

	"trade-dashboard/internal/interfaces"
	"trade-dashboard/internal/quotes"
	"trade-dashboard/internal/state"
	"trade-dashboard/internal/store"
	"trade-dashboard/internal/types"
)

func testConfig() *store.Config {
	cfg := &store.Config{DefaultMode: string(types.ModeSim)}
	cfg.Trading.CommissionPerContract = 0.62
	cfg.Trading.DefaultPointValue = 1
	cfg.Trading.PointValues = map[string]float64{"MES": 5}
	cfg.Accounts.Live = []string{"APEX-001"}
	cfg.Accounts.Sim = []string{"Sim1"}
	return cfg
}

type fixture struct {
	coord  interfaces.Coordinator
	interp interfaces.Interpreter
	quotes *quotes.Cache
	trades []*types.ClosedTrade
}

func newFixture() *fixture {
	f := &fixture{quotes: quotes.NewCache()}
	f.coord = state.New(testConfig(), nil, f.quotes, nil)
	f.coord.AddListener(func(n types.Notification) {
		if n.Closed && n.Trade != nil {
			f.trades = append(f.trades, n.Trade)
		}
	})
	f.interp = New(testConfig(), f.coord, f.quotes)
	return f
}

func (f *fixture) openSim(t *testing.T, symbol string, qty, price float64) {
	t.Helper()
	f.coord.OpenPosition(context.Background(), types.OpenRequest{
		Symbol:     symbol,
		Quantity:   qty,
		EntryPrice: price,
		EntryTime:  time.Now(),
		Mode:       types.ModeSim,
		Account:    "Sim1",
	})
	if !f.coord.Snapshot().HasOpenPosition() {
		t.Fatal("Fixture position did not open")
	}
}

func TestSeedFromFillWhileFlat(t *testing.T) {
	f := newFixture()

	f.interp.HandleOrderUpdate(context.Background(), types.OrderUpdate{
		Symbol:       "MES",
		Account:      "Sim1",
		Status:       types.OrderStatusFilled,
		Side:         types.SideBuy,
		FilledQty:    2,
		AvgFillPrice: 5000,
		Time:         time.Now(),
	})

	snap := f.coord.Snapshot()
	if !snap.HasOpenPosition() {
		t.Fatal("Expected a position seeded from the fill")
	}
	pos := snap.Position
	if pos.Quantity != 2 || pos.EntryPrice != 5000 {
		t.Errorf("Expected long 2 @ 5000, got %+v", pos)
	}
	if pos.Mode != types.ModeSim {
		t.Errorf("Expected SIM mode from account resolution, got %s", pos.Mode)
	}
	if !pos.HasEntryTime {
		t.Error("Expected seeded position to carry an entry time")
	}
}

func TestSellFillSeedsShort(t *testing.T) {
	f := newFixture()

	f.interp.HandleOrderUpdate(context.Background(), types.OrderUpdate{
		Symbol:        "MES",
		Account:       "Sim1",
		Status:        types.OrderStatusPartiallyFilled,
		Side:          types.SideSell,
		FilledQty:     1,
		LastFillPrice: 5005,
	})

	pos := f.coord.Snapshot().Position
	if pos == nil || pos.Quantity != -1 {
		t.Fatalf("Expected short 1, got %+v", pos)
	}
}

func TestUnfilledStatusDoesNotSeed(t *testing.T) {
	f := newFixture()

	for _, status := range []int{types.OrderStatusOpen, types.OrderStatusCanceled, types.OrderStatusRejected} {
		f.interp.HandleOrderUpdate(context.Background(), types.OrderUpdate{
			Symbol:    "MES",
			Account:   "Sim1",
			Status:    status,
			Side:      types.SideBuy,
			FilledQty: 2,
			Price:     5000,
		})
	}

	if f.coord.Snapshot().HasOpenPosition() {
		t.Error("Expected no position from unfilled statuses")
	}
}

func TestPartialFillClosesStrictlyBelowHeld(t *testing.T) {
	f := newFixture()
	f.openSim(t, "MES", 2, 5000)

	// Equal to held: adding/maintaining, must be ignored
	f.interp.HandleOrderUpdate(context.Background(), types.OrderUpdate{
		Symbol:       "MES",
		Account:      "Sim1",
		Status:       types.OrderStatusFilled,
		Side:         types.SideBuy,
		FilledQty:    2,
		AvgFillPrice: 5001,
	})
	if !f.coord.Snapshot().HasOpenPosition() {
		t.Fatal("Expected position to survive an equal-quantity fill")
	}

	// Strictly below held: the position is leaving
	f.interp.HandleOrderUpdate(context.Background(), types.OrderUpdate{
		Symbol:       "MES",
		Account:      "Sim1",
		Status:       types.OrderStatusFilled,
		Side:         types.SideSell,
		FilledQty:    0,
		AvgFillPrice: 5010,
	})
	if f.coord.Snapshot().HasOpenPosition() {
		t.Fatal("Expected closure")
	}
	if len(f.trades) != 1 {
		t.Fatalf("Expected one ClosedTrade, got %d", len(f.trades))
	}
}

// The canonical SIM round trip: long 2 MES @ 5000, sell fill reports only an
// average fill price of 5010.
func TestSimRoundTrip(t *testing.T) {
	f := newFixture()
	f.openSim(t, "MES", 2, 5000)

	f.interp.HandleOrderUpdate(context.Background(), types.OrderUpdate{
		Symbol:       "MES",
		Account:      "Sim1",
		Status:       types.OrderStatusFilled,
		Side:         types.SideSell,
		FilledQty:    0,
		AvgFillPrice: 5010,
	})

	if len(f.trades) != 1 {
		t.Fatalf("Expected one ClosedTrade, got %d", len(f.trades))
	}
	trade := f.trades[0]
	if trade.Quantity != 2 {
		t.Errorf("Expected qty 2, got %.2f", trade.Quantity)
	}
	if trade.ExitPrice != 5010 {
		t.Errorf("Expected exit from average fill price 5010, got %.2f", trade.ExitPrice)
	}
	// 2 * (5010-5000) * point value 5
	if trade.PnL != 100 {
		t.Errorf("Expected PnL 100, got %.2f", trade.PnL)
	}
	if trade.Mode != types.ModeSim {
		t.Errorf("Expected SIM trade, got %s", trade.Mode)
	}
}

func TestExitFallbackToQuote(t *testing.T) {
	f := newFixture()
	f.openSim(t, "MES", 2, 5000)
	f.quotes.Set("MES", 5007, nil)

	f.interp.HandleOrderUpdate(context.Background(), types.OrderUpdate{
		Symbol:    "MES",
		Account:   "Sim1",
		Status:    types.OrderStatusFilled,
		Side:      types.SideSell,
		FilledQty: 0,
	})

	if len(f.trades) != 1 {
		t.Fatalf("Expected one ClosedTrade, got %d", len(f.trades))
	}
	if f.trades[0].ExitPrice != 5007 {
		t.Errorf("Expected exit from last-known market price 5007, got %.2f", f.trades[0].ExitPrice)
	}
}

func TestClosureAbandonedWithoutExitPrice(t *testing.T) {
	f := newFixture()
	f.openSim(t, "MES", 2, 5000)

	f.interp.HandleOrderUpdate(context.Background(), types.OrderUpdate{
		Symbol:    "MES",
		Account:   "Sim1",
		Status:    types.OrderStatusFilled,
		Side:      types.SideSell,
		FilledQty: 0,
	})

	if !f.coord.Snapshot().HasOpenPosition() {
		t.Error("Expected position unchanged when no exit price resolves")
	}
	if len(f.trades) != 0 {
		t.Errorf("Expected no trades, got %d", len(f.trades))
	}
}

func TestBracketInference(t *testing.T) {
	f := newFixture()
	f.openSim(t, "MES", 2, 5000)

	// Working sell below entry is the stop; above is the target. Fill
	// status is irrelevant.
	f.interp.HandleOrderUpdate(context.Background(), types.OrderUpdate{
		Symbol: "MES", Account: "Sim1",
		Status: types.OrderStatusOpen, Side: types.SideSell, Price: 4990,
	})
	f.interp.HandleOrderUpdate(context.Background(), types.OrderUpdate{
		Symbol: "MES", Account: "Sim1",
		Status: types.OrderStatusOpen, Side: types.SideSell, Price: 5015,
	})

	pos := f.coord.Snapshot().Position
	if !pos.HasStop || pos.StopPrice != 4990 {
		t.Errorf("Expected stop 4990, got %+v", pos)
	}
	if !pos.HasTarget || pos.TargetPrice != 5015 {
		t.Errorf("Expected target 5015, got %+v", pos)
	}
}

func TestBuySideOrderSetsNoBracket(t *testing.T) {
	f := newFixture()
	f.openSim(t, "MES", 2, 5000)

	f.interp.HandleOrderUpdate(context.Background(), types.OrderUpdate{
		Symbol: "MES", Account: "Sim1",
		Status: types.OrderStatusOpen, Side: types.SideBuy, Price: 4990,
	})

	pos := f.coord.Snapshot().Position
	if pos.HasStop || pos.HasTarget {
		t.Errorf("Expected no brackets from a buy-side order, got %+v", pos)
	}
}

func TestZeroQuantityPositionUpdateCloses(t *testing.T) {
	f := newFixture()
	f.openSim(t, "MES", 2, 5000)

	// Prior fill price gets remembered and used as the exit
	f.interp.HandleOrderUpdate(context.Background(), types.OrderUpdate{
		Symbol: "MES", Account: "Sim1",
		Status: types.OrderStatusFilled, Side: types.SideBuy,
		FilledQty: 2, LastFillPrice: 5003,
	})
	f.interp.HandlePositionUpdate(context.Background(), types.PositionUpdate{
		Symbol: "MES", Account: "Sim1", Quantity: 0,
	})

	if f.coord.Snapshot().HasOpenPosition() {
		t.Fatal("Expected zero-quantity update to close the position")
	}
	if len(f.trades) != 1 {
		t.Fatalf("Expected one ClosedTrade, got %d", len(f.trades))
	}
	if f.trades[0].ExitPrice != 5003 {
		t.Errorf("Expected exit from remembered fill 5003, got %.2f", f.trades[0].ExitPrice)
	}
}

func TestZeroQuantityWhileFlatIsNoop(t *testing.T) {
	f := newFixture()

	f.interp.HandlePositionUpdate(context.Background(), types.PositionUpdate{
		Symbol: "MES", Account: "Sim1", Quantity: 0,
	})

	if len(f.trades) != 0 || f.coord.Snapshot().HasOpenPosition() {
		t.Error("Expected nothing to happen")
	}
}

func TestPositionUpdateRejectsMissingPrice(t *testing.T) {
	f := newFixture()

	f.interp.HandlePositionUpdate(context.Background(), types.PositionUpdate{
		Symbol:   "MES",
		Account:  "Sim1",
		Quantity: 2,
	})

	if f.coord.Snapshot().HasOpenPosition() {
		t.Error("Expected update without a price to be rejected")
	}
}

func TestPositionUpdateOpens(t *testing.T) {
	f := newFixture()

	f.interp.HandlePositionUpdate(context.Background(), types.PositionUpdate{
		Symbol:      "NQ",
		Account:     "APEX-001",
		Quantity:    -3,
		AvgPrice:    17000,
		HasAvgPrice: true,
	})

	pos := f.coord.Snapshot().Position
	if pos == nil {
		t.Fatal("Expected a position")
	}
	if pos.Quantity != -3 || pos.EntryPrice != 17000 {
		t.Errorf("Expected short 3 @ 17000, got %+v", pos)
	}
	if pos.Mode != types.ModeLive {
		t.Errorf("Expected LIVE mode from account resolution, got %s", pos.Mode)
	}
}
