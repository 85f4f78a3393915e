package digester

import (
	"strings"

	"audiocodes-connector/internal/dto"
)

// botMessage is one classified Chatbot API message.
type botMessage interface {
	isBotMessage()
}

type answer struct {
	text        string
	attributes  dto.Attributes
	actionField *dto.ActionField
}

type polarQuestion struct {
	text    string
	options []dto.BotOption
}

type multipleChoiceQuestion struct {
	text    string
	options []dto.BotOption
}

type extendedContentsAnswer struct {
	text string
}

func (answer) isBotMessage()                 {}
func (polarQuestion) isBotMessage()          {}
func (multipleChoiceQuestion) isBotMessage() {}
func (extendedContentsAnswer) isBotMessage() {}

func classify(m dto.BotMessage) (botMessage, bool) {
	switch m.Type {
	case dto.BotMessageAnswer:
		return answer{text: m.Message, attributes: m.Attributes, actionField: m.ActionField}, true
	case dto.BotMessagePolarQuestion:
		return polarQuestion{text: m.Message, options: m.Options}, true
	case dto.BotMessageMultipleChoiceQuestion:
		return multipleChoiceQuestion{text: m.Message, options: m.Options}, true
	case dto.BotMessageExtendedContentsAnswer:
		return extendedContentsAnswer{text: m.Message}, true
	}
	return nil, false
}

// asTextAnswer treats a message of unknown type as a plain answer when it carries text.
func asTextAnswer(m dto.BotMessage) (botMessage, bool) {
	if body, ok := m.TextBody(); ok {
		return answer{text: body}, true
	}
	if strings.TrimSpace(m.Message) != "" {
		return answer{text: m.Message, attributes: m.Attributes}, true
	}
	return nil, false
}

func classifyResponse(resp *dto.BotResponse) ([]botMessage, error) {
	if resp == nil {
		return nil, &UnknownResponseKindError{Payload: "null"}
	}

	if resp.Answers != nil {
		out := make([]botMessage, 0, len(resp.Answers))
		for _, m := range resp.Answers {
			msg, ok := classify(m)
			if !ok {
				msg, ok = asTextAnswer(m)
			}
			if !ok {
				return nil, &UnknownResponseKindError{Payload: string(resp.Raw)}
			}
			out = append(out, msg)
		}
		return out, nil
	}

	if msg, ok := classify(resp.BotMessage); ok {
		return []botMessage{msg}, nil
	}
	if len(resp.Messages) > 0 {
		if msg, ok := asTextAnswer(resp.Messages[0]); ok {
			return []botMessage{msg}, nil
		}
	}
	if msg, ok := asTextAnswer(resp.BotMessage); ok {
		return []botMessage{msg}, nil
	}
	return nil, &UnknownResponseKindError{Payload: string(resp.Raw)}
}

// DigestFromAPI turns a Chatbot API response into the activities to send to AudioCodes.
// lastUserQuestion is stored alongside any options presented in this turn.
func (d *Digester) DigestFromAPI(resp *dto.BotResponse, lastUserQuestion string) ([]dto.Activity, error) {
	messages, err := classifyResponse(resp)
	if err != nil {
		return nil, err
	}

	out := []dto.Activity{}
	for _, msg := range messages {
		activities, err := d.digestBotMessage(msg, lastUserQuestion)
		if err != nil {
			return nil, err
		}
		out = append(out, activities...)
	}
	return out, nil
}

func (d *Digester) digestBotMessage(msg botMessage, lastUserQuestion string) ([]dto.Activity, error) {
	switch m := msg.(type) {
	case answer:
		return d.digestAnswer(m, lastUserQuestion)
	case polarQuestion:
		return d.digestQuestion(m.text, questionOptions(m.options, true), lastUserQuestion)
	case multipleChoiceQuestion:
		return d.digestQuestion(m.text, questionOptions(m.options, false), lastUserQuestion)
	case extendedContentsAnswer:
		return textActivities(CleanMessage(m.text)), nil
	}
	return nil, nil
}

func (d *Digester) digestAnswer(a answer, lastUserQuestion string) ([]dto.Activity, error) {
	text := CleanMessage(a.text)

	if a.attributes.String(dto.AttrDirectCall) == dto.DirectCallGoodbye {
		return []dto.Activity{messageActivity(text), d.BuildHangoutMessage()}, nil
	}

	out := textActivities(text)
	if sidebubble := CleanMessage(a.attributes.String(dto.AttrSidebubbleText)); sidebubble != "" {
		out = append(out, messageActivity(sidebubble))
	}
	if a.actionField != nil && a.actionField.FieldType != dto.ActionFieldDefault {
		listed, err := d.digestActionField(*a.actionField, lastUserQuestion)
		if err != nil {
			return nil, err
		}
		out = append(out, listed...)
	}
	return out, nil
}

func (d *Digester) digestActionField(field dto.ActionField, lastUserQuestion string) ([]dto.Activity, error) {
	if field.FieldType != dto.ActionFieldList || field.ListValues == nil {
		return nil, nil
	}

	options := listOptions(field.ListValues.Values)
	if len(options) == 0 {
		return nil, nil
	}

	out := make([]dto.Activity, 0, len(options))
	for _, opt := range options {
		out = append(out, messageActivity(opt.Label))
	}
	if err := savePendingSelection(d.session, PendingSelection{
		LastUserQuestion: lastUserQuestion,
		Options:          options,
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// digestQuestion reads the question and then each option label as its own message.
func (d *Digester) digestQuestion(text string, options []Option, lastUserQuestion string) ([]dto.Activity, error) {
	out := textActivities(CleanMessage(text))
	for _, opt := range options {
		out = append(out, textActivities(CleanMessage(opt.Label))...)
	}
	if err := savePendingSelection(d.session, PendingSelection{
		LastUserQuestion: lastUserQuestion,
		Options:          options,
	}); err != nil {
		return nil, err
	}
	return out, nil
}

func messageActivity(text string) dto.Activity {
	return dto.Activity{Type: dto.ActivityTypeMessage, Text: text}
}

// textActivities returns a single message activity, or none for blank text.
func textActivities(text string) []dto.Activity {
	if text == "" {
		return []dto.Activity{}
	}
	return []dto.Activity{messageActivity(text)}
}
