package implementation

import (
	"context"
	"errors"
	"time"

	"audiocodes-connector/internal/mapper"
	"audiocodes-connector/internal/model"
	"audiocodes-connector/internal/repository/contract"
	"audiocodes-connector/pkg/store"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionRepositoryImpl keeps sessions in Postgres, one jsonb row per conversation.
type SessionRepositoryImpl struct {
	db     *gorm.DB
	ttl    time.Duration
	mapper *mapper.SessionMapper
}

var _ contract.SessionRepository = (*SessionRepositoryImpl)(nil)

func NewSessionRepository(db *gorm.DB, ttl time.Duration) *SessionRepositoryImpl {
	return &SessionRepositoryImpl{
		db:     db,
		ttl:    ttl,
		mapper: mapper.NewSessionMapper(),
	}
}

func (r *SessionRepositoryImpl) Load(ctx context.Context, id string) (*store.Session, error) {
	var m model.ConnectorSession
	err := r.db.WithContext(ctx).
		Where("id = ? AND expires_at > ?", id, time.Now()).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return store.NewSession(id), nil
		}
		return nil, err
	}
	return r.mapper.SessionToStore(&m)
}

func (r *SessionRepositoryImpl) Save(ctx context.Context, session *store.Session) error {
	m, err := r.mapper.SessionToModel(session, r.ttl)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "expires_at", "updated_at"}),
		}).
		Create(m).Error
}

func (r *SessionRepositoryImpl) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&model.ConnectorSession{}, "id = ?", id).Error
}

// DeleteExpired removes rows whose TTL has passed.
func (r *SessionRepositoryImpl) DeleteExpired(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", time.Now()).Delete(&model.ConnectorSession{})
	return res.RowsAffected, res.Error
}
