package feed

import (
	"time"

	"trade-dashboard/internal/types"
)

// Wire message types.
const (
	msgLogonRequest     = "LOGON_REQUEST"
	msgLogonResponse    = "LOGON_RESPONSE"
	msgHeartbeat        = "HEARTBEAT"
	msgOrderUpdate      = "ORDER_UPDATE"
	msgPositionUpdate   = "POSITION_UPDATE"
	msgBalanceUpdate    = "ACCOUNT_BALANCE_UPDATE"
	msgMarketData       = "MARKET_DATA"
	msgSnapshotRequest  = "POSITION_SNAPSHOT_REQUEST"
	msgSnapshotResponse = "POSITION_SNAPSHOT"
)

type header struct {
	Type string `json:"Type"`
}

type logonRequest struct {
	Type            string `json:"Type"`
	ProtocolVersion int    `json:"ProtocolVersion"`
	ClientName      string `json:"ClientName"`
	HeartbeatSec    int    `json:"HeartbeatIntervalInSeconds"`
}

type heartbeat struct {
	Type string `json:"Type"`
}

type snapshotRequest struct {
	Type string `json:"Type"`
}

type orderUpdateMsg struct {
	OrderStatus      int     `json:"OrderStatus"`
	BuySell          string  `json:"BuySell"` // "BUY" or "SELL"
	FilledQuantity   float64 `json:"FilledQuantity"`
	AverageFillPrice float64 `json:"AverageFillPrice"`
	LastFillPrice    float64 `json:"LastFillPrice"`
	Price            float64 `json:"Price"`
	Symbol           string  `json:"Symbol"`
	TradeAccount     string  `json:"TradeAccount"`
	DateTimeMs       int64   `json:"DateTime"`
}

func (m *orderUpdateMsg) normalize() types.OrderUpdate {
	ev := types.OrderUpdate{
		Symbol:        m.Symbol,
		Account:       m.TradeAccount,
		Status:        m.OrderStatus,
		Side:          types.SideBuy,
		FilledQty:     m.FilledQuantity,
		AvgFillPrice:  m.AverageFillPrice,
		LastFillPrice: m.LastFillPrice,
		Price:         m.Price,
	}
	if m.BuySell == "SELL" {
		ev.Side = types.SideSell
	}
	if m.DateTimeMs > 0 {
		ev.Time = time.UnixMilli(m.DateTimeMs)
	}
	return ev
}

type positionUpdateMsg struct {
	Symbol           string   `json:"Symbol"`
	TradeAccount     string   `json:"TradeAccount"`
	PositionQuantity float64  `json:"PositionQuantity"`
	AveragePrice     *float64 `json:"AveragePrice"`
}

func (m *positionUpdateMsg) normalize() types.PositionUpdate {
	ev := types.PositionUpdate{
		Symbol:   m.Symbol,
		Account:  m.TradeAccount,
		Quantity: m.PositionQuantity,
	}
	if m.AveragePrice != nil {
		ev.AvgPrice = *m.AveragePrice
		ev.HasAvgPrice = true
	}
	return ev
}

type balanceUpdateMsg struct {
	CashBalance  float64 `json:"CashBalance"`
	TradeAccount string  `json:"TradeAccount"`
}

func (m *balanceUpdateMsg) normalize() types.BalanceUpdate {
	return types.BalanceUpdate{
		Account: m.TradeAccount,
		Balance: m.CashBalance,
	}
}

type marketDataMsg struct {
	Symbol          string  `json:"Symbol"`
	LastTradePrice  float64 `json:"LastTradePrice"`
	VWAP            float64 `json:"VWAP"`
	PointOfControl  float64 `json:"PointOfControl"`
	CumulativeDelta float64 `json:"CumulativeDelta"`
}

func (m *marketDataMsg) market() *types.MarketSnapshot {
	if m.VWAP == 0 && m.PointOfControl == 0 && m.CumulativeDelta == 0 {
		return nil
	}
	return &types.MarketSnapshot{
		VWAP:            m.VWAP,
		PointOfControl:  m.PointOfControl,
		CumulativeDelta: m.CumulativeDelta,
	}
}

type snapshotPositionMsg struct {
	Symbol           string  `json:"Symbol"`
	PositionQuantity float64 `json:"PositionQuantity"`
	AveragePrice     float64 `json:"AveragePrice"`
	TradeAccount     string  `json:"TradeAccount"`
}

type snapshotMsg struct {
	Positions    []snapshotPositionMsg `json:"Positions"`
	CashBalance  *float64              `json:"CashBalance"`
	TradeAccount string                `json:"TradeAccount"`
}

func (m *snapshotMsg) normalize() types.ServerSnapshot {
	snap := types.ServerSnapshot{Account: m.TradeAccount}
	for _, p := range m.Positions {
		snap.Positions = append(snap.Positions, types.ServerPosition{
			Symbol:   p.Symbol,
			Quantity: p.PositionQuantity,
			AvgPrice: p.AveragePrice,
			Account:  p.TradeAccount,
		})
	}
	if m.CashBalance != nil {
		snap.Balance = *m.CashBalance
		snap.HasBalance = true
	}
	return snap
}
