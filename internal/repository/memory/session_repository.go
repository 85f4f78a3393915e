package memory

import (
	"context"
	"encoding/json"
	"time"

	"audiocodes-connector/internal/repository/contract"
	"audiocodes-connector/pkg/store"

	"github.com/patrickmn/go-cache"
)

type SessionRepository struct {
	cache *cache.Cache
}

var _ contract.SessionRepository = (*SessionRepository)(nil)

func NewSessionRepository(ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	// Purge expired items every 10 minutes
	c := cache.New(ttl, 10*time.Minute)
	return &SessionRepository{
		cache: c,
	}
}

// Save stores a snapshot of the session values, later changes to session are not seen.
func (r *SessionRepository) Save(ctx context.Context, session *store.Session) error {
	r.cache.Set(session.ID, session.Values(), cache.DefaultExpiration)
	return nil
}

func (r *SessionRepository) Load(ctx context.Context, id string) (*store.Session, error) {
	if x, found := r.cache.Get(id); found {
		return store.Restore(id, x.(map[string]json.RawMessage)), nil
	}
	return store.NewSession(id), nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	r.cache.Delete(id)
	return nil
}
