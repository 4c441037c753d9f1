// Package recovery reconciles local state against the server-side snapshot
// queried on each (re)connection. The server is authoritative: conflicts are
// resolved in its favor and recorded for display.
package recovery

import (
	"context"
	"fmt"
	"time"

	"trade-dashboard/internal/interfaces"
	"trade-dashboard/internal/logger"
	"trade-dashboard/internal/quotes"
	"trade-dashboard/internal/store"
	"trade-dashboard/internal/types"
)

// Conflict kinds recorded in a Report.
const (
	ConflictPhantomPosition   = "phantom_position"
	ConflictPositionMismatch  = "position_mismatch"
	ConflictMultiplePositions = "multiple_positions"
)

// Conflict is one discrepancy found during reconciliation.
type Conflict struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// Report summarizes one reconciliation pass.
type Report struct {
	At               time.Time  `json:"at"`
	Account          string     `json:"account"`
	Mode             types.Mode `json:"mode"`
	PositionsApplied int        `json:"positions_applied"`
	BalanceApplied   bool       `json:"balance_applied"`
	Conflicts        []Conflict `json:"conflicts,omitempty"`
}

func (r *Report) addConflict(ctx context.Context, kind, detail string) {
	r.Conflicts = append(r.Conflicts, Conflict{Kind: kind, Detail: detail})
	logger.Conflict(ctx, kind, detail)
}

// Reconciler applies server snapshots to the coordinator.
type Reconciler struct {
	cfg    *store.Config
	coord  interfaces.Coordinator
	quotes *quotes.Cache

	last *Report
}

func New(cfg *store.Config, coord interfaces.Coordinator, q *quotes.Cache) *Reconciler {
	return &Reconciler{cfg: cfg, coord: coord, quotes: q}
}

// LastReport returns the most recent reconciliation report, or nil. Must be
// called from the owner goroutine, like Reconcile.
func (r *Reconciler) LastReport() *Report {
	return r.last
}

// Reconcile replaces local position and balance state with the server's view.
// The whole pass runs inside one atomic-update scope so observers see a
// single consistent transition.
func (r *Reconciler) Reconcile(ctx context.Context, snap types.ServerSnapshot) *Report {
	report := &Report{
		At:      time.Now(),
		Account: snap.Account,
		Mode:    r.cfg.AccountMode(snap.Account),
	}

	r.coord.BeginAtomicUpdate()
	defer r.coord.EndAtomicUpdate()

	if snap.Account != "" {
		r.coord.RequestModeChange(ctx, report.Mode, snap.Account)
	}

	local := r.localPosition()

	if len(snap.Positions) == 0 {
		if local != nil {
			// The server has no record of this position; discarding it is
			// correct, inventing a trade record for it is not.
			report.addConflict(ctx, ConflictPhantomPosition,
				fmt.Sprintf("held %s x%.2f unknown to server", local.Symbol, local.Quantity))
			r.coord.ClearPosition(ctx)
		}
	} else {
		if len(snap.Positions) > 1 {
			report.addConflict(ctx, ConflictMultiplePositions,
				fmt.Sprintf("server reports %d open positions, applying first", len(snap.Positions)))
		}
		sp := snap.Positions[0]
		if local != nil && !local.Matches(sp.Symbol, sp.Quantity, sp.AvgPrice, r.accountMode(sp.Account, snap.Account)) {
			report.addConflict(ctx, ConflictPositionMismatch,
				fmt.Sprintf("local %s x%.2f @ %.2f vs server %s x%.2f @ %.2f",
					local.Symbol, local.Quantity, local.EntryPrice,
					sp.Symbol, sp.Quantity, sp.AvgPrice))
		}
		r.applyServerPosition(ctx, sp, snap.Account)
		report.PositionsApplied = 1
	}

	if snap.HasBalance {
		account := snap.Account
		if account == "" && len(snap.Positions) > 0 {
			account = snap.Positions[0].Account
		}
		if r.cfg.AccountMode(account) == types.ModeLive {
			report.BalanceApplied = r.coord.UpdateLiveBalanceFromServer(ctx, snap.Balance, account)
		} else {
			report.BalanceApplied = r.coord.UpdateBalanceForMode(ctx, r.cfg.AccountMode(account), snap.Balance)
		}
	}

	logger.Info(ctx, "Reconciliation complete",
		"account", snap.Account,
		"mode", report.Mode.String(),
		"positions_applied", report.PositionsApplied,
		"balance_applied", report.BalanceApplied,
		"conflicts", len(report.Conflicts),
	)

	r.last = report
	return report
}

func (r *Reconciler) localPosition() *types.PositionSnapshot {
	state := r.coord.Snapshot()
	if state == nil || !state.HasOpenPosition() {
		return nil
	}
	return state.Position
}

func (r *Reconciler) accountMode(positionAccount, snapshotAccount string) types.Mode {
	if positionAccount != "" {
		return r.cfg.AccountMode(positionAccount)
	}
	return r.cfg.AccountMode(snapshotAccount)
}

// applyServerPosition installs a server-reported position. Recovered
// positions carry no entry time; duration-derived metrics stay absent for
// the life of the trade.
func (r *Reconciler) applyServerPosition(ctx context.Context, sp types.ServerPosition, snapshotAccount string) {
	account := sp.Account
	if account == "" {
		account = snapshotAccount
	}

	r.coord.OpenPosition(ctx, types.OpenRequest{
		Symbol:      sp.Symbol,
		Quantity:    sp.Quantity,
		EntryPrice:  sp.AvgPrice,
		Mode:        r.accountMode(sp.Account, snapshotAccount),
		Account:     account,
		Recovered:   true,
		EntryMarket: r.quotes.Market(sp.Symbol),
	})
}
