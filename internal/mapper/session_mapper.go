package mapper

import (
	"encoding/json"
	"fmt"
	"time"

	"audiocodes-connector/internal/model"
	"audiocodes-connector/pkg/store"

	"gorm.io/datatypes"
)

type SessionMapper struct{}

func NewSessionMapper() *SessionMapper {
	return &SessionMapper{}
}

// EncodeValues serialises the session values into a single JSON object.
func (m *SessionMapper) EncodeValues(s *store.Session) ([]byte, error) {
	data, err := json.Marshal(s.Values())
	if err != nil {
		return nil, fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	return data, nil
}

// DecodeValues rebuilds a session from a JSON object produced by EncodeValues.
func (m *SessionMapper) DecodeValues(id string, data []byte) (*store.Session, error) {
	values := map[string]json.RawMessage{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &values); err != nil {
			return nil, fmt.Errorf("decode session %s: %w", id, err)
		}
	}
	return store.Restore(id, values), nil
}

func (m *SessionMapper) SessionToModel(s *store.Session, ttl time.Duration) (*model.ConnectorSession, error) {
	data, err := m.EncodeValues(s)
	if err != nil {
		return nil, err
	}
	return &model.ConnectorSession{
		Id:        s.ID,
		Values:    datatypes.JSON(data),
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

func (m *SessionMapper) SessionToStore(s *model.ConnectorSession) (*store.Session, error) {
	if s == nil {
		return nil, nil
	}
	return m.DecodeValues(s.Id, s.Values)
}
