package state

import (
	"trade-dashboard/internal/interfaces"
	"trade-dashboard/internal/quotes"
	"trade-dashboard/internal/store"
	"trade-dashboard/internal/types"
)

// New builds the coordinator. asyncNotify receives notifications produced on
// worker goroutines (equity load completions) and must re-serialize them onto
// the goroutine that owns the coordinator; nil drops them.
func New(cfg *store.Config, journal interfaces.Journal, q *quotes.Cache, asyncNotify func(types.Notification)) interfaces.Coordinator {
	return newCoordinator(cfg, journal, q, asyncNotify)
}
