package contract

import (
	"context"

	"audiocodes-connector/pkg/store"
)

// SessionRepository persists connector sessions between turns.
// Load returns a fresh empty session when none is stored under id.
type SessionRepository interface {
	Load(ctx context.Context, id string) (*store.Session, error)
	Save(ctx context.Context, session *store.Session) error
	Delete(ctx context.Context, id string) error
}
