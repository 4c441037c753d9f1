package interfaces

import "trade-dashboard/internal/types"

// SessionStore persists one document per (mode, account) scope. Load of a
// missing document returns a zero-value state, not an error.
type SessionStore interface {
	Load(mode types.Mode, account string) (types.SessionState, error)
	Save(state types.SessionState) error
	Clear(mode types.Mode, account string) error
}
