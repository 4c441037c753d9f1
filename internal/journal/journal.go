// Package journal persists closed trades to SQLite. The journal is an
// append-mostly sink off the hot path: writes happen on background
// goroutines and failures are counted, not propagated.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"trade-dashboard/internal/interfaces"
	"trade-dashboard/internal/logger"
	"trade-dashboard/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS closed_trades (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol      TEXT NOT NULL,
	side        TEXT NOT NULL,
	quantity    REAL NOT NULL,
	entry_price REAL NOT NULL,
	exit_price  REAL NOT NULL,
	entry_time  INTEGER,
	exit_time   INTEGER NOT NULL,
	pnl         REAL NOT NULL,
	commission  REAL NOT NULL,
	mae         REAL NOT NULL,
	mfe         REAL NOT NULL,
	efficiency  REAL NOT NULL,
	r_multiple  REAL,
	mode        TEXT NOT NULL,
	account     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_closed_trades_scope
	ON closed_trades (mode, account, exit_time);
`

type sqliteJournal struct {
	db         *sql.DB
	writeFails atomic.Int64
}

// Open creates (or opens) the trade journal at path. ":memory:" is accepted
// for tests.
func Open(path string) (interfaces.Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal db: %w", err)
	}
	// modernc.org/sqlite serializes per connection; one connection avoids
	// SQLITE_BUSY between writer and readers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying journal schema: %w", err)
	}
	return &sqliteJournal{db: db}, nil
}

func (j *sqliteJournal) Close() error {
	return j.db.Close()
}

// WriteFailures reports how many appends have failed since open.
func (j *sqliteJournal) WriteFailures() int64 {
	return j.writeFails.Load()
}

func (j *sqliteJournal) Append(ctx context.Context, trade *types.ClosedTrade) error {
	var entryTime any
	if !trade.EntryTime.IsZero() {
		entryTime = trade.EntryTime.UnixMilli()
	}
	var rMultiple any
	if trade.HasR {
		rMultiple = trade.RMultiple
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO closed_trades
			(symbol, side, quantity, entry_price, exit_price, entry_time,
			 exit_time, pnl, commission, mae, mfe, efficiency, r_multiple,
			 mode, account)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.Symbol, trade.Side, trade.Quantity, trade.EntryPrice,
		trade.ExitPrice, entryTime, trade.ExitTime.UnixMilli(), trade.PnL,
		trade.Commission, trade.MAE, trade.MFE, trade.Efficiency, rMultiple,
		string(trade.Mode), trade.Account,
	)
	if err != nil {
		j.writeFails.Add(1)
		logger.ErrorWithErr(ctx, "Journal append failed", err,
			"symbol", trade.Symbol,
			"write_failures", j.writeFails.Load(),
		)
		return fmt.Errorf("appending trade: %w", err)
	}
	return nil
}

func (j *sqliteJournal) Trades(ctx context.Context, mode types.Mode, account string, limit int) ([]types.ClosedTrade, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT symbol, side, quantity, entry_price, exit_price, entry_time,
		       exit_time, pnl, commission, mae, mfe, efficiency, r_multiple,
		       mode, account
		FROM closed_trades
		WHERE mode = ? AND account = ?
		ORDER BY exit_time DESC, id DESC
		LIMIT ?`,
		string(mode), account, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying trades: %w", err)
	}
	defer rows.Close()

	var trades []types.ClosedTrade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func scanTrade(rows *sql.Rows) (types.ClosedTrade, error) {
	var (
		t         types.ClosedTrade
		entryTime sql.NullInt64
		exitTime  int64
		rMultiple sql.NullFloat64
		mode      string
	)
	err := rows.Scan(&t.Symbol, &t.Side, &t.Quantity, &t.EntryPrice,
		&t.ExitPrice, &entryTime, &exitTime, &t.PnL, &t.Commission,
		&t.MAE, &t.MFE, &t.Efficiency, &rMultiple, &mode, &t.Account)
	if err != nil {
		return t, fmt.Errorf("scanning trade: %w", err)
	}
	if entryTime.Valid {
		t.EntryTime = time.UnixMilli(entryTime.Int64)
	}
	t.ExitTime = time.UnixMilli(exitTime)
	if rMultiple.Valid {
		t.RMultiple = rMultiple.Float64
		t.HasR = true
	}
	t.Mode = types.Mode(mode)
	return t, nil
}

// EquityCurve returns cumulative net P&L by exit time for one scope.
func (j *sqliteJournal) EquityCurve(ctx context.Context, mode types.Mode, account string) ([]types.EquityPoint, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT exit_time, pnl - commission
		FROM closed_trades
		WHERE mode = ? AND account = ?
		ORDER BY exit_time ASC, id ASC`,
		string(mode), account,
	)
	if err != nil {
		return nil, fmt.Errorf("querying equity curve: %w", err)
	}
	defer rows.Close()

	var (
		curve  []types.EquityPoint
		equity float64
	)
	for rows.Next() {
		var (
			exitTime int64
			net      float64
		)
		if err := rows.Scan(&exitTime, &net); err != nil {
			return nil, fmt.Errorf("scanning equity point: %w", err)
		}
		equity += net
		curve = append(curve, types.EquityPoint{
			Time:   time.UnixMilli(exitTime),
			Equity: equity,
		})
	}
	return curve, rows.Err()
}

func (j *sqliteJournal) Stats(ctx context.Context, mode types.Mode, account string) (types.TradeStats, error) {
	var (
		stats types.TradeStats
		avgR  sql.NullFloat64
	)
	err := j.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN pnl > 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN pnl < 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(pnl), 0),
		       COALESCE(SUM(commission), 0),
		       AVG(r_multiple)
		FROM closed_trades
		WHERE mode = ? AND account = ?`,
		string(mode), account,
	).Scan(&stats.Trades, &stats.Wins, &stats.Losses, &stats.TotalPnL,
		&stats.TotalFees, &avgR)
	if err != nil {
		return stats, fmt.Errorf("querying stats: %w", err)
	}
	if avgR.Valid {
		stats.AvgR = avgR.Float64
	}
	return stats, nil
}
