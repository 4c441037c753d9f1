package types

import (
	"testing"
	"time"
)

func TestSnapshotSeedsExtremesAtEntry(t *testing.T) {
	p := NewPositionSnapshot("MES", 2, 5000, time.Now(), ModeSim, "Sim1")

	if p.TradeMin != 5000 || p.TradeMax != 5000 {
		t.Errorf("Expected extremes seeded at entry, got min=%.2f max=%.2f", p.TradeMin, p.TradeMax)
	}
	if !p.HasEntryTime {
		t.Error("Expected entry time to be set")
	}
}

func TestZeroEntryTimeFlagsRecovery(t *testing.T) {
	p := NewPositionSnapshot("MES", 2, 5000, time.Time{}, ModeSim, "Sim1")

	if p.HasEntryTime {
		t.Error("Expected zero entry time to be flagged absent")
	}
}

func TestExtremesWidenMonotonically(t *testing.T) {
	p := NewPositionSnapshot("MES", 2, 5000, time.Now(), ModeSim, "Sim1")

	p.ObservePrice(4995)
	p.ObservePrice(5010)
	p.ObservePrice(5002) // inside the band, no effect
	p.ObservePrice(0)    // garbage, ignored

	if p.TradeMin != 4995 {
		t.Errorf("Expected min 4995, got %.2f", p.TradeMin)
	}
	if p.TradeMax != 5010 {
		t.Errorf("Expected max 5010, got %.2f", p.TradeMax)
	}
}

func TestDirectionAndSides(t *testing.T) {
	long := NewPositionSnapshot("MES", 2, 5000, time.Now(), ModeSim, "Sim1")
	short := NewPositionSnapshot("MES", -2, 5000, time.Now(), ModeSim, "Sim1")

	if !long.IsLong() || long.Direction() != 1 {
		t.Error("Expected long direction +1")
	}
	if !short.IsShort() || short.Direction() != -1 {
		t.Error("Expected short direction -1")
	}
	if short.AbsQuantity() != 2 {
		t.Errorf("Expected abs quantity 2, got %.2f", short.AbsQuantity())
	}
}

func TestUnrealizedPoints(t *testing.T) {
	long := NewPositionSnapshot("MES", 2, 5000, time.Now(), ModeSim, "Sim1")
	if got := long.UnrealizedPoints(5010); got != 10 {
		t.Errorf("Expected +10 points, got %.2f", got)
	}

	short := NewPositionSnapshot("MES", -2, 5000, time.Now(), ModeSim, "Sim1")
	if got := short.UnrealizedPoints(5010); got != -10 {
		t.Errorf("Expected -10 points, got %.2f", got)
	}
}

func TestMatchesTolerances(t *testing.T) {
	p := NewPositionSnapshot("MES", 2, 5000, time.Now(), ModeSim, "Sim1")

	if !p.Matches("MES", 2.00005, 5000.005, ModeSim) {
		t.Error("Expected match within tolerance")
	}
	if p.Matches("MES", 2.01, 5000, ModeSim) {
		t.Error("Expected quantity outside tolerance to miss")
	}
	if p.Matches("MES", 2, 5000.02, ModeSim) {
		t.Error("Expected price outside tolerance to miss")
	}
	if p.Matches("NQ", 2, 5000, ModeSim) {
		t.Error("Expected different symbol to miss")
	}
	if p.Matches("MES", 2, 5000, ModeLive) {
		t.Error("Expected different mode to miss")
	}
}

func TestCloneIsDeep(t *testing.T) {
	p := NewPositionSnapshot("MES", 2, 5000, time.Now(), ModeSim, "Sim1")
	p.EntryMarket = &MarketSnapshot{VWAP: 4999.5}

	cp := p.Clone()
	cp.ObservePrice(5100)
	cp.EntryMarket.VWAP = 0

	if p.TradeMax != 5000 {
		t.Error("Expected clone mutation not to touch the original extremes")
	}
	if p.EntryMarket.VWAP != 4999.5 {
		t.Error("Expected clone mutation not to touch the original market snapshot")
	}
}

func TestIsFilledStatus(t *testing.T) {
	if !IsFilledStatus(OrderStatusFilled) || !IsFilledStatus(OrderStatusPartiallyFilled) {
		t.Error("Expected filled and partially-filled to count as fills")
	}
	for _, status := range []int{OrderStatusOpen, OrderStatusCanceled, OrderStatusRejected} {
		if IsFilledStatus(status) {
			t.Errorf("Status %d should not count as a fill", status)
		}
	}
}

func TestNetPnL(t *testing.T) {
	trade := ClosedTrade{PnL: 100, Commission: 2.48}
	if got := trade.NetPnL(); got < 97.5199 || got > 97.5201 {
		t.Errorf("Expected net 97.52, got %.4f", got)
	}
}
