package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"trade-dashboard/internal/interfaces"
	"trade-dashboard/internal/types"
)

// sessionStore persists one JSON document per (mode, account) scope. Writes
// go through a temp file and rename so a crash never leaves a torn document.
type sessionStore struct {
	dir string
}

func NewSessionStore(dir string) (interfaces.SessionStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}
	return &sessionStore{dir: dir}, nil
}

func (s *sessionStore) path(mode types.Mode, account string) string {
	name := fmt.Sprintf("session_%s_%s.json",
		strings.ToLower(string(mode)), sanitizeAccount(account))
	return filepath.Join(s.dir, name)
}

// sanitizeAccount keeps account-derived filenames portable.
func sanitizeAccount(account string) string {
	if account == "" {
		return "default"
	}
	var b strings.Builder
	for _, r := range account {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Load returns the persisted session for a scope, or a zero-value state when
// no document exists. An unreadable or stale-schema document is discarded.
func (s *sessionStore) Load(mode types.Mode, account string) (types.SessionState, error) {
	var state types.SessionState

	data, err := os.ReadFile(s.path(mode, account))
	if errors.Is(err, os.ErrNotExist) {
		return state, nil
	}
	if err != nil {
		return state, fmt.Errorf("reading session: %w", err)
	}

	if err := json.Unmarshal(data, &state); err != nil {
		return types.SessionState{}, fmt.Errorf("decoding session: %w", err)
	}
	if state.SchemaVersion != types.SessionSchemaVersion {
		return types.SessionState{}, nil
	}
	return state, nil
}

func (s *sessionStore) Save(state types.SessionState) error {
	state.SchemaVersion = types.SessionSchemaVersion
	state.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	final := s.path(state.Mode, state.Account)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("committing session: %w", err)
	}
	return nil
}

func (s *sessionStore) Clear(mode types.Mode, account string) error {
	err := os.Remove(s.path(mode, account))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
