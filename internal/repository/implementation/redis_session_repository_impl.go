package implementation

import (
	"context"
	"errors"
	"time"

	"audiocodes-connector/internal/mapper"
	"audiocodes-connector/internal/repository/contract"
	"audiocodes-connector/pkg/store"

	"github.com/redis/go-redis/v9"
)

const redisSessionPrefix = "connector:session:"

// RedisSessionRepository keeps each session as a JSON string with a TTL.
type RedisSessionRepository struct {
	rdb    *redis.Client
	ttl    time.Duration
	mapper *mapper.SessionMapper
}

func NewRedisSessionRepository(rdb *redis.Client, ttl time.Duration) contract.SessionRepository {
	return &RedisSessionRepository{
		rdb:    rdb,
		ttl:    ttl,
		mapper: mapper.NewSessionMapper(),
	}
}

func (r *RedisSessionRepository) Load(ctx context.Context, id string) (*store.Session, error) {
	data, err := r.rdb.Get(ctx, redisSessionPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return store.NewSession(id), nil
		}
		return nil, err
	}
	return r.mapper.DecodeValues(id, data)
}

func (r *RedisSessionRepository) Save(ctx context.Context, session *store.Session) error {
	data, err := r.mapper.EncodeValues(session)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, redisSessionPrefix+session.ID, data, r.ttl).Err()
}

func (r *RedisSessionRepository) Delete(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, redisSessionPrefix+id).Err()
}
