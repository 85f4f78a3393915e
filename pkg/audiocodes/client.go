// Package audiocodes builds the activities returned to the AudioCodes Bot API.
package audiocodes

import (
	"time"

	"audiocodes-connector/internal/dto"

	"github.com/google/uuid"
)

const (
	ExternalIDPrefix = "ac-"
	TimestampLayout  = "2006-01-02T15:04:05.000Z"

	handoverReasonUserRequest = "userRequest"
)

type Client struct {
	now   func() time.Time
	newID func() string
}

func NewClient() *Client {
	return &Client{
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// ExternalID derives the session identifier of an AudioCodes conversation.
func ExternalID(conversation string) string {
	if conversation == "" {
		return ""
	}
	return ExternalIDPrefix + conversation
}

// SendMessage stamps every activity with a fresh id and the current UTC time.
// The input slice is left untouched.
func (c *Client) SendMessage(activities []dto.Activity) []dto.Activity {
	out := make([]dto.Activity, len(activities))
	for i, a := range activities {
		c.stamp(&a)
		out[i] = a
	}
	return out
}

// Escalate returns the handover event that transfers the call to address.
func (c *Client) Escalate(address string) dto.Activity {
	a := dto.Activity{
		Type: dto.ActivityTypeEvent,
		Name: dto.EventHandover,
		ActivityParams: map[string]interface{}{
			"handoverReason": handoverReasonUserRequest,
			"transferTarget": address,
		},
	}
	c.stamp(&a)
	return a
}

func (c *Client) stamp(a *dto.Activity) {
	a.ID = c.newID()
	a.Timestamp = c.now().UTC().Format(TimestampLayout)
}
