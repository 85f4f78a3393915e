package chatbotapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"audiocodes-connector/internal/dto"
)

// RemoteError is a failure reported by the Chatbot API, either through its
// {"errors":[...]} envelope or through a non-2xx status.
type RemoteError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("chatbot API error %d: %s", e.Code, e.Message)
	}
	return "chatbot API error: " + e.Message
}

func remoteError(status int, body []byte) error {
	var envelope dto.ErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Errors) > 0 {
		first := envelope.Errors[0]
		return &RemoteError{StatusCode: status, Code: first.Code, Message: first.Message}
	}
	if status < 200 || status >= 300 {
		return &RemoteError{StatusCode: status, Message: http.StatusText(status)}
	}
	return nil
}
