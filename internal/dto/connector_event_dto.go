package dto

import "time"

const (
	ConnectorEventCreated      = "created"
	ConnectorEventEscalated    = "escalated"
	ConnectorEventDisconnected = "disconnected"
	ConnectorEventTurnFailed   = "turn-failed"
)

// ConnectorEventMessage travels on the in-process event bus and is exported to NATS
// under connector.<type>.
type ConnectorEventMessage struct {
	Type       string                 `json:"type"`
	ExternalID string                 `json:"external_id"`
	Data       map[string]interface{} `json:"data,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// ConnectorEventsTopic is the in-process topic connector events are published on.
const ConnectorEventsTopic = "connector_events"
