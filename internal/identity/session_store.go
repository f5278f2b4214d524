package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"farmverse/internal/persistence"
)

// SessionKey is where the CLI keeps the active session between runs. It is
// stored apart from the client state so tokens never end up in the store.
const SessionKey = "farmverse-session"

// SaveSession stores s, or removes the saved session when s is nil.
func SaveSession(ctx context.Context, storage persistence.Storage, s *Session) error {
	if s == nil {
		return storage.Delete(ctx, SessionKey)
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return storage.Save(ctx, SessionKey, raw)
}

// LoadSession returns the saved session, or nil when there is none.
func LoadSession(ctx context.Context, storage persistence.Storage) (*Session, error) {
	raw, err := storage.Load(ctx, SessionKey)
	if errors.Is(err, persistence.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to decode saved session: %w", err)
	}
	return &s, nil
}
