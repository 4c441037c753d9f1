package state

import (
	"context"
	"testing"
	"time"

	"trade-dashboard/internal/quotes"
	"trade-dashboard/internal/store"
	"trade-dashboard/internal/types"
)

type fakeJournal struct {
	curve    []types.EquityPoint
	curveErr error
	appended []*types.ClosedTrade
}

func (f *fakeJournal) Append(ctx context.Context, trade *types.ClosedTrade) error {
	f.appended = append(f.appended, trade)
	return nil
}

func (f *fakeJournal) Trades(ctx context.Context, mode types.Mode, account string, limit int) ([]types.ClosedTrade, error) {
	return nil, nil
}

func (f *fakeJournal) EquityCurve(ctx context.Context, mode types.Mode, account string) ([]types.EquityPoint, error) {
	return f.curve, f.curveErr
}

func (f *fakeJournal) Stats(ctx context.Context, mode types.Mode, account string) (types.TradeStats, error) {
	return types.TradeStats{}, nil
}

func (f *fakeJournal) WriteFailures() int64 { return 0 }

func (f *fakeJournal) Close() error { return nil }

func testConfig() *store.Config {
	cfg := &store.Config{DefaultMode: string(types.ModeSim)}
	cfg.Trading.CommissionPerContract = 0.62
	cfg.Trading.DefaultPointValue = 1
	cfg.Trading.PointValues = map[string]float64{"MES": 5}
	cfg.Accounts.Live = []string{"APEX-001"}
	cfg.Accounts.Sim = []string{"Sim1"}
	return cfg
}

func testCoordinator() (*coordinator, *fakeJournal) {
	jnl := &fakeJournal{}
	return newCoordinator(testConfig(), jnl, quotes.NewCache(), nil), jnl
}

func openSim(c *coordinator, symbol string, qty, price float64) {
	c.OpenPosition(context.Background(), types.OpenRequest{
		Symbol:     symbol,
		Quantity:   qty,
		EntryPrice: price,
		EntryTime:  time.Now(),
		Mode:       types.ModeSim,
		Account:    "Sim1",
	})
}

func TestModeInvariantOnOpen(t *testing.T) {
	c, _ := testCoordinator()
	ctx := context.Background()

	c.OpenPosition(ctx, types.OpenRequest{
		Symbol:     "MES",
		Quantity:   2,
		EntryPrice: 5000,
		EntryTime:  time.Now(),
		Mode:       types.ModeLive,
		Account:    "APEX-001",
	})

	if c.Mode() != types.ModeLive {
		t.Errorf("Expected mode LIVE after opening a LIVE position, got %s", c.Mode())
	}
	snap := c.Snapshot()
	if !snap.HasOpenPosition() {
		t.Fatal("Expected an open position")
	}
	if snap.Position.Mode != c.Mode() {
		t.Errorf("Invariant violated: mode %s but position mode %s", c.Mode(), snap.Position.Mode)
	}
}

func TestDuplicateOpenSuppressed(t *testing.T) {
	c, _ := testCoordinator()

	opened := 0
	c.AddListener(func(n types.Notification) {
		if n.Kind == types.NotifyPosition && n.Opened {
			opened++
		}
	})

	openSim(c, "MES", 2, 5000.00)
	// Re-delivery within tolerance: qty off by 0.00005, price off by 0.005
	openSim(c, "MES", 2.00005, 5000.005)

	if opened != 1 {
		t.Errorf("Expected exactly one opened notification, got %d", opened)
	}
}

func TestOpenRejectsImplausibleRequest(t *testing.T) {
	c, _ := testCoordinator()
	ctx := context.Background()

	c.OpenPosition(ctx, types.OpenRequest{Symbol: "MES", Quantity: 2, EntryPrice: 0, Mode: types.ModeSim})
	c.OpenPosition(ctx, types.OpenRequest{Symbol: "", Quantity: 2, EntryPrice: 5000, Mode: types.ModeSim})
	c.OpenPosition(ctx, types.OpenRequest{Symbol: "MES", Quantity: 0, EntryPrice: 5000, Mode: types.ModeSim})

	if c.Snapshot().HasOpenPosition() {
		t.Error("Expected no position after implausible open requests")
	}
}

func TestCloseWhenFlat(t *testing.T) {
	c, _ := testCoordinator()

	notified := 0
	c.AddListener(func(n types.Notification) { notified++ })

	if trade := c.ClosePosition(context.Background(), 5000, time.Now()); trade != nil {
		t.Errorf("Expected nil trade when flat, got %+v", trade)
	}
	if notified != 0 {
		t.Errorf("Expected no notifications, got %d", notified)
	}
}

func TestNotificationFlushOrder(t *testing.T) {
	c, _ := testCoordinator()
	ctx := context.Background()

	var kinds []types.NotificationKind
	c.AddListener(func(n types.Notification) {
		kinds = append(kinds, n.Kind)
	})

	// Buffer mode, position, balance in that call order
	c.BeginAtomicUpdate()
	c.RequestModeChange(ctx, types.ModeDebug, "")
	c.OpenPosition(ctx, types.OpenRequest{
		Symbol:     "MES",
		Quantity:   1,
		EntryPrice: 5000,
		EntryTime:  time.Now(),
		Mode:       types.ModeDebug,
	})
	c.UpdateBalanceForMode(ctx, types.ModeDebug, 25000)
	c.EndAtomicUpdate()

	want := []types.NotificationKind{types.NotifyMode, types.NotifyBalance, types.NotifyPosition}
	if len(kinds) != len(want) {
		t.Fatalf("Expected %d notifications, got %d: %v", len(want), len(kinds), kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("Notification %d: expected %s, got %s", i, want[i], kinds[i])
		}
	}
}

func TestNestedScopesFlushOnce(t *testing.T) {
	c, _ := testCoordinator()
	ctx := context.Background()

	var kinds []types.NotificationKind
	c.AddListener(func(n types.Notification) { kinds = append(kinds, n.Kind) })

	c.BeginAtomicUpdate()
	c.BeginAtomicUpdate()
	c.UpdateBalanceForMode(ctx, types.ModeSim, 1000)
	c.EndAtomicUpdate()
	if len(kinds) != 0 {
		t.Fatal("Expected inner scope exit to flush nothing")
	}
	c.EndAtomicUpdate()

	if len(kinds) != 1 || kinds[0] != types.NotifyBalance {
		t.Errorf("Expected one balance notification after outer scope exit, got %v", kinds)
	}
}

func TestLivePositionBlocksSim(t *testing.T) {
	c, _ := testCoordinator()
	ctx := context.Background()

	c.OpenPosition(ctx, types.OpenRequest{
		Symbol:     "MES",
		Quantity:   1,
		EntryPrice: 5000,
		EntryTime:  time.Now(),
		Mode:       types.ModeLive,
		Account:    "APEX-001",
	})

	if c.RequestModeChange(ctx, types.ModeSim, "Sim1") {
		t.Error("Expected SIM request to be denied with an open LIVE position")
	}
	if c.Mode() != types.ModeLive {
		t.Errorf("Expected mode unchanged, got %s", c.Mode())
	}
	if !c.Snapshot().HasOpenPosition() {
		t.Error("Expected position unchanged")
	}
}

func TestSimPositionClosedOnLiveRequest(t *testing.T) {
	c, _ := testCoordinator()
	ctx := context.Background()

	var trades []*types.ClosedTrade
	c.AddListener(func(n types.Notification) {
		if n.Closed && n.Trade != nil {
			trades = append(trades, n.Trade)
		}
	})

	openSim(c, "MES", 2, 5000)
	if !c.RequestModeChange(ctx, types.ModeLive, "APEX-001") {
		t.Fatal("Expected LIVE request to be accepted")
	}

	if len(trades) != 1 {
		t.Fatalf("Expected exactly one ClosedTrade, got %d", len(trades))
	}
	if trades[0].Mode != types.ModeSim {
		t.Errorf("Expected closed trade in SIM mode, got %s", trades[0].Mode)
	}
	if c.Mode() != types.ModeLive {
		t.Errorf("Expected mode LIVE afterward, got %s", c.Mode())
	}
	if c.Snapshot().HasOpenPosition() {
		t.Error("Expected flat after implicit close")
	}
}

func TestRequestingCurrentModeIsNoop(t *testing.T) {
	c, _ := testCoordinator()

	notified := 0
	c.AddListener(func(n types.Notification) { notified++ })

	if !c.RequestModeChange(context.Background(), types.ModeSim, "Sim1") {
		t.Error("Expected request for current mode to succeed")
	}
	if notified != 0 {
		t.Errorf("Expected no notifications, got %d", notified)
	}
}

func TestCloseComputesMetrics(t *testing.T) {
	c, _ := testCoordinator()
	ctx := context.Background()

	openSim(c, "MES", 2, 5000)
	c.MarkPrice(ctx, "MES", 4995)
	c.MarkPrice(ctx, "MES", 5012)
	c.RecordStopPrice(ctx, 4990)

	trade := c.ClosePosition(ctx, 5010, time.Now())
	if trade == nil {
		t.Fatal("Expected a ClosedTrade")
	}

	// Point value 5: pnl = 2 * (5010-5000) * 5
	if trade.PnL != 100 {
		t.Errorf("Expected PnL 100, got %.2f", trade.PnL)
	}
	if trade.MAE != -50 {
		t.Errorf("Expected MAE -50, got %.2f", trade.MAE)
	}
	if trade.MFE != 120 {
		t.Errorf("Expected MFE 120, got %.2f", trade.MFE)
	}
	if got := trade.Efficiency; got < 0.83 || got > 0.84 {
		t.Errorf("Expected efficiency ~0.833, got %.4f", got)
	}
	if !trade.HasR || trade.RMultiple != 1 {
		t.Errorf("Expected R-multiple 1, got %.2f (has=%v)", trade.RMultiple, trade.HasR)
	}
	// Flat 0.62/contract, 2 contracts, round trip
	if trade.Commission != 2.48 {
		t.Errorf("Expected commission 2.48, got %.2f", trade.Commission)
	}
	if trade.Side != "LONG" {
		t.Errorf("Expected LONG, got %s", trade.Side)
	}

	if c.Snapshot().HasOpenPosition() {
		t.Error("Expected flat after close")
	}
}

func TestShortSideMetrics(t *testing.T) {
	c, _ := testCoordinator()
	ctx := context.Background()

	openSim(c, "MES", -2, 5000)
	c.MarkPrice(ctx, "MES", 5004) // adverse for a short
	c.MarkPrice(ctx, "MES", 4990) // favorable for a short

	trade := c.ClosePosition(ctx, 4992, time.Now())
	if trade == nil {
		t.Fatal("Expected a ClosedTrade")
	}
	if trade.Side != "SHORT" {
		t.Errorf("Expected SHORT, got %s", trade.Side)
	}
	// pnl = (4992-5000) * -1 * 2 * 5 = 80
	if trade.PnL != 80 {
		t.Errorf("Expected PnL 80, got %.2f", trade.PnL)
	}
	if trade.MAE != -40 {
		t.Errorf("Expected MAE -40, got %.2f", trade.MAE)
	}
	if trade.MFE != 100 {
		t.Errorf("Expected MFE 100, got %.2f", trade.MFE)
	}
}

func TestEfficiencyClamp(t *testing.T) {
	c, _ := testCoordinator()
	ctx := context.Background()

	// Tiny tracked MFE against a larger realized gain
	openSim(c, "MES", 2, 5000)
	c.MarkPrice(ctx, "MES", 5002)

	trade := c.ClosePosition(ctx, 5010, time.Now())
	if trade == nil {
		t.Fatal("Expected a ClosedTrade")
	}
	if trade.Efficiency != efficiencyMax {
		t.Errorf("Expected efficiency clamped to %.1f, got %.4f", efficiencyMax, trade.Efficiency)
	}
}

func TestBalanceUpdateValidation(t *testing.T) {
	c, _ := testCoordinator()
	ctx := context.Background()

	if c.UpdateBalanceForMode(ctx, types.Mode("BOGUS"), 1000) {
		t.Error("Expected invalid mode to be rejected")
	}
	if !c.UpdateBalanceForMode(ctx, types.ModeSim, 25000) {
		t.Error("Expected valid balance update to succeed")
	}
	if got := c.Snapshot().Balances[types.ModeSim]; got != 25000 {
		t.Errorf("Expected SIM balance 25000, got %.2f", got)
	}
}

func TestLiveBalanceRejectsSimAccount(t *testing.T) {
	c, _ := testCoordinator()
	ctx := context.Background()

	if c.UpdateLiveBalanceFromServer(ctx, 50000, "Sim1") {
		t.Error("Expected SIM account to be rejected on the LIVE balance path")
	}
	if !c.UpdateLiveBalanceFromServer(ctx, 50000, "APEX-001") {
		t.Error("Expected LIVE account to be accepted")
	}
	if got := c.Snapshot().Balances[types.ModeLive]; got != 50000 {
		t.Errorf("Expected LIVE balance 50000, got %.2f", got)
	}
}

func TestClearPositionEmitsNoTrade(t *testing.T) {
	c, _ := testCoordinator()

	var trades int
	c.AddListener(func(n types.Notification) {
		if n.Trade != nil {
			trades++
		}
	})

	openSim(c, "MES", 1, 5000)
	c.ClearPosition(context.Background())

	if trades != 0 {
		t.Errorf("Expected no trade records from a clear, got %d", trades)
	}
	if c.Snapshot().HasOpenPosition() {
		t.Error("Expected flat after clear")
	}
}

func TestEquityCurveLoad(t *testing.T) {
	jnl := &fakeJournal{curve: []types.EquityPoint{{Equity: 100}, {Equity: 180}}}
	loaded := make(chan types.Notification, 1)
	c := newCoordinator(testConfig(), jnl, quotes.NewCache(), func(n types.Notification) {
		loaded <- n
	})

	c.EnsureEquityCurve(context.Background(), types.ModeSim, "Sim1")

	select {
	case n := <-loaded:
		if n.Kind != types.NotifyEquityLoaded {
			t.Errorf("Expected equity-loaded notification, got %s", n.Kind)
		}
		if len(n.Equity) != 2 {
			t.Errorf("Expected 2 equity points, got %d", len(n.Equity))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for equity load")
	}

	if curve, ok := c.EquityCurve(types.ModeSim, "Sim1"); !ok || len(curve) != 2 {
		t.Error("Expected curve to be cached after load")
	}
}

func TestEquityLoadWithoutCallbackStillCaches(t *testing.T) {
	jnl := &fakeJournal{curve: []types.EquityPoint{{Equity: 100}}}
	c := newCoordinator(testConfig(), jnl, quotes.NewCache(), nil)

	c.EnsureEquityCurve(context.Background(), types.ModeSim, "Sim1")
	if !c.WaitBackground(2 * time.Second) {
		t.Fatal("Timed out waiting for equity load")
	}

	if curve, ok := c.EquityCurve(types.ModeSim, "Sim1"); !ok || len(curve) != 1 {
		t.Error("Expected curve cached even with no async consumer")
	}
}

func TestWaitBackgroundTimeout(t *testing.T) {
	c, _ := testCoordinator()

	release := make(chan struct{})
	c.Background(func() { <-release })

	if c.WaitBackground(50 * time.Millisecond) {
		t.Error("Expected timeout while work is outstanding")
	}
	close(release)
	if !c.WaitBackground(2 * time.Second) {
		t.Error("Expected background work to drain")
	}
}
