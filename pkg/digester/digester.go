// Package digester translates between the AudioCodes Bot API wire format and
// the Chatbot API request/response format.
//
// Inbound, a list of channel activities becomes a list of bot request fragments;
// a pending selection stored in the session is consulted first so that a free-text
// reply can be resolved against the options presented on the previous turn.
// Outbound, a bot response is classified per message type and expanded into one
// or more channel activities, possibly storing a new pending selection.
package digester

import (
	"errors"
)

const channelName = "PhoneCall"

// Translator resolves a translation key into a localized string.
type Translator interface {
	Translate(key string) string
}

// SessionStore is the conversation-scoped state the digester reads and writes.
// *store.Session satisfies it.
type SessionStore interface {
	Has(key string) bool
	Get(key string, dst interface{}) bool
	GetString(key, fallback string) string
	GetInt(key string, fallback int) int
	Set(key string, value interface{}) error
	Delete(key string)
}

// ErrMalformedPayload marks a channel payload that is not JSON or has no activities.
var ErrMalformedPayload = errors.New("malformed channel payload")

// UnknownResponseKindError is returned when a bot response matches no known
// message type and carries no text to fall back on.
type UnknownResponseKindError struct {
	Payload string
}

func (e *UnknownResponseKindError) Error() string {
	return "unknown chatbot API response: " + e.Payload
}

// Digester is bound to the session of a single conversation turn.
type Digester struct {
	lang    Translator
	session SessionStore
}

// New returns a digester reading and writing the given session.
func New(lang Translator, session SessionStore) *Digester {
	return &Digester{
		lang:    lang,
		session: session,
	}
}

// DiscardPendingSelection forgets the options presented on the previous turn.
func (d *Digester) DiscardPendingSelection() {
	clearPendingSelection(d.session)
}

// Channel returns the channel name reported to the Chatbot API.
func (d *Digester) Channel() string {
	return channelName
}
