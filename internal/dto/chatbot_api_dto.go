package dto

import "encoding/json"

// Chatbot API DTOs

const (
	BotMessageAnswer                 = "answer"
	BotMessagePolarQuestion          = "polarQuestion"
	BotMessageMultipleChoiceQuestion = "multipleChoiceQuestion"
	BotMessageExtendedContentsAnswer = "extendedContentsAnswer"

	DirectCallWelcome    = "sys-welcome"
	DirectCallGoodbye    = "sys-goodbye"
	DirectCallEscalation = "escalationStart"

	AttrDirectCall      = "DIRECT_CALL"
	AttrSidebubbleText  = "SIDEBUBBLE_TEXT"
	AttrDynamicRedirect = "DYNAMIC_REDIRECT"

	FlagNoResults = "no-results"

	ActionFieldDefault = "default"
	ActionFieldList    = "list"
)

// BotRequest is one request fragment for POST /v1/conversation/message.
// Message is a pointer so that events can send an explicit empty message.
type BotRequest struct {
	Message    *string     `json:"message,omitempty"`
	Option     interface{} `json:"option,omitempty"`
	DirectCall string      `json:"directCall,omitempty"`
}

func MessageRequest(text string) BotRequest {
	return BotRequest{Message: &text}
}

func OptionRequest(value interface{}) BotRequest {
	return BotRequest{Option: value}
}

func DirectCallRequest(name string) BotRequest {
	empty := ""
	return BotRequest{Message: &empty, DirectCall: name}
}

// Text returns the free-text message, or "" when the fragment carries none.
func (r BotRequest) Text() string {
	if r.Message == nil {
		return ""
	}
	return *r.Message
}

// Attributes is the open attribute map attached to bot messages and options.
type Attributes map[string]interface{}

// String returns the attribute as a string, or "" when it is missing or not a string.
func (a Attributes) String(key string) string {
	if a == nil {
		return ""
	}
	v, ok := a[key].(string)
	if !ok {
		return ""
	}
	return v
}

type BotOption struct {
	Label      string      `json:"label"`
	Value      interface{} `json:"value,omitempty"`
	Attributes Attributes  `json:"attributes,omitempty"`
}

type ListValue struct {
	Option string          `json:"option"`
	Label  json.RawMessage `json:"label,omitempty"`
}

type ListValues struct {
	Values []ListValue `json:"values"`
}

type ActionField struct {
	FieldType  string      `json:"fieldType"`
	ListValues *ListValues `json:"listValues,omitempty"`
}

type MessageText struct {
	Body *string `json:"body,omitempty"`
}

// BotMessage is one message of a Chatbot API response.
type BotMessage struct {
	Type        string       `json:"type,omitempty"`
	Message     string       `json:"message,omitempty"`
	Attributes  Attributes   `json:"attributes,omitempty"`
	Options     []BotOption  `json:"options,omitempty"`
	ActionField *ActionField `json:"actionField,omitempty"`
	Flags       []string     `json:"flags,omitempty"`
	Text        *MessageText `json:"text,omitempty"`
}

// HasFlag reports whether the message carries the given flag.
func (m BotMessage) HasFlag(flag string) bool {
	for _, f := range m.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// TextBody returns text.body when present.
func (m BotMessage) TextBody() (string, bool) {
	if m.Text == nil || m.Text.Body == nil {
		return "", false
	}
	return *m.Text.Body, true
}

// BotResponse covers the three response shapes of the Chatbot API: an "answers"
// list, a single message object (promoted through the embedded BotMessage) and
// the legacy "messages" list.
type BotResponse struct {
	Answers  []BotMessage `json:"answers,omitempty"`
	Messages []BotMessage `json:"messages,omitempty"`
	BotMessage

	Raw json.RawMessage `json:"-"`
}

// ParseBotResponse decodes a Chatbot API response, keeping the raw payload for diagnostics.
func ParseBotResponse(raw []byte) (*BotResponse, error) {
	var resp BotResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	resp.Raw = append(json.RawMessage(nil), raw...)
	return &resp, nil
}

// AllMessages returns the answers list when present, otherwise the single message.
func (r *BotResponse) AllMessages() []BotMessage {
	if r.Answers != nil {
		return r.Answers
	}
	if r.Type != "" {
		return []BotMessage{r.BotMessage}
	}
	return nil
}

// APIError is one entry of the {"errors":[...]} envelope.
type APIError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type ErrorEnvelope struct {
	Errors []APIError `json:"errors"`
}
