package store

import (
	"encoding/json"
	"fmt"
)

// Session is the key/value state kept for one external conversation.
// Values are held JSON-encoded so every repository backend can persist them as-is.
type Session struct {
	ID     string `json:"id"` // External conversation id ("ac-<conversation>")
	values map[string]json.RawMessage
}

// Session keys shared by the digester, the turn handler and the bot API client.
const (
	KeyOptions             = "options"
	KeyLastUserQuestion    = "lastUserQuestion"
	KeyOptionListValues    = "optionListValues"
	KeyAskingForEscalation = "askingForEscalation"
	KeyEscalationType      = "escalationType"
	KeyEscalationV2        = "escalationV2"
	KeyNoResultsCount      = "noResultsCount"
	KeyNegativeRatingCount = "negativeRatingCount"
	KeyChatbotSessionToken = "chatbotSessionToken"
	KeyChatbotSessionID    = "chatbotSessionId"
)

func NewSession(id string) *Session {
	return &Session{
		ID:     id,
		values: make(map[string]json.RawMessage),
	}
}

// Restore rebuilds a session from persisted values. The map is copied.
func Restore(id string, values map[string]json.RawMessage) *Session {
	s := NewSession(id)
	for k, v := range values {
		s.values[k] = v
	}
	return s
}

func (s *Session) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Get decodes the value stored under key into dst. It reports false when the key
// is missing or the stored value does not fit dst.
func (s *Session) Get(key string, dst interface{}) bool {
	raw, ok := s.values[key]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func (s *Session) GetString(key, fallback string) string {
	var v string
	if !s.Get(key, &v) {
		return fallback
	}
	return v
}

func (s *Session) GetBool(key string, fallback bool) bool {
	var v bool
	if !s.Get(key, &v) {
		return fallback
	}
	return v
}

func (s *Session) GetInt(key string, fallback int) int {
	var v int
	if !s.Get(key, &v) {
		return fallback
	}
	return v
}

// Set stores value under key. A value that cannot be encoded leaves the key untouched.
func (s *Session) Set(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("session value %q: %w", key, err)
	}
	s.values[key] = raw
	return nil
}

func (s *Session) Delete(key string) {
	delete(s.values, key)
}

// Values returns a copy of the encoded values, ready to be persisted.
func (s *Session) Values() map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Replace swaps the session contents for those of other, keeping the same pointer
// alive for everyone holding it.
func (s *Session) Replace(other *Session) {
	s.values = other.Values()
}
