package state

import (
	"sync"
	"time"

	"trade-dashboard/internal/types"
)

// modeHistoryCap bounds the audit log of mode changes.
const modeHistoryCap = 100

// modeHistory is an append-only ring of the last modeHistoryCap mode changes,
// used only for diagnostics of mode thrashing.
type modeHistory struct {
	mu      sync.RWMutex
	entries []types.ModeHistoryEntry
}

func newModeHistory() *modeHistory {
	return &modeHistory{}
}

func (h *modeHistory) append(mode types.Mode, account string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, types.ModeHistoryEntry{
		Time:    time.Now(),
		Mode:    mode,
		Account: account,
	})
	if len(h.entries) > modeHistoryCap {
		h.entries = h.entries[len(h.entries)-modeHistoryCap:]
	}
}

// snapshot returns a copy, newest last.
func (h *modeHistory) snapshot() []types.ModeHistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]types.ModeHistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}
