package dto

import "encoding/json"

// AudioCodes Bot API DTOs

const (
	ActivityTypeMessage = "message"
	ActivityTypeEvent   = "event"

	EventStart    = "start"
	EventHangup   = "hangup"
	EventHandover = "handover"
)

// Activity is one unit of the channel wire format sent back to AudioCodes.
type Activity struct {
	Type           string                 `json:"type"`
	Text           string                 `json:"text,omitempty"`
	Name           string                 `json:"name,omitempty"`
	ID             string                 `json:"id,omitempty"`
	Timestamp      string                 `json:"timestamp,omitempty"`
	ActivityParams map[string]interface{} `json:"activityParams,omitempty"`
}

// InboundActivity is an activity as posted by AudioCodes.
type InboundActivity struct {
	Type string `json:"type"`
	Text string `json:"text"`
	Name string `json:"name"`
}

// ActivitiesPayload is the body of POST /conversation/:id/activities.
type ActivitiesPayload struct {
	Conversation string            `json:"conversation"`
	Activities   []InboundActivity `json:"activities"`
}

// InboundRequest is built once by the controller and handed to the service.
type InboundRequest struct {
	ExternalID string
	Body       json.RawMessage
}

type ActivitiesResponse struct {
	Activities []Activity `json:"activities"`
}

type CreateConversationRequest struct {
	Conversation string `json:"conversation" query:"conversation" validate:"required"`
}

type CreateConversationResponse struct {
	ActivitiesURL  string `json:"activitiesURL"`
	RefreshURL     string `json:"refreshURL"`
	DisconnectURL  string `json:"disconnectURL"`
	ExpiresSeconds int    `json:"expiresSeconds"`
}

type RefreshResponse struct {
	ExpiresSeconds int `json:"expiresSeconds"`
}

type DisconnectRequest struct {
	Conversation string `json:"conversation"`
	Reason       string `json:"reason"`
}
