package digester

import (
	"encoding/json"
	"fmt"

	"audiocodes-connector/internal/dto"
	"audiocodes-connector/pkg/store"
)

// CheckRequest reports whether raw looks like an AudioCodes activities payload.
func CheckRequest(raw []byte) bool {
	_, err := parsePayload(raw)
	return err == nil
}

func parsePayload(raw []byte) (*dto.ActivitiesPayload, error) {
	var payload dto.ActivitiesPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if len(payload.Activities) == 0 {
		return nil, fmt.Errorf("%w: no activities", ErrMalformedPayload)
	}
	return &payload, nil
}

// DigestToAPI turns a channel payload into Chatbot API request fragments.
// A payload that is not an activities payload yields an empty result.
func (d *Digester) DigestToAPI(raw []byte) []dto.BotRequest {
	payload, err := parsePayload(raw)
	if err != nil {
		return []dto.BotRequest{}
	}

	if utterance, ok := selectionUtterance(payload.Activities[0]); ok {
		if out := d.resolvePendingSelection(utterance); len(out) > 0 {
			return out
		}
	}

	out := make([]dto.BotRequest, 0, len(payload.Activities))
	for _, activity := range payload.Activities {
		if req, ok := digestActivity(activity); ok {
			out = append(out, req)
		}
	}
	return out
}

// selectionUtterance returns what the caller said or chose in a reply that may
// answer a pending selection. Lifecycle events and unnamed events never do.
func selectionUtterance(a dto.InboundActivity) (string, bool) {
	switch a.Type {
	case dto.ActivityTypeMessage:
		return a.Text, true
	case dto.ActivityTypeEvent:
		if a.Name == "" || a.Name == dto.EventStart || a.Name == dto.EventHangup {
			return "", false
		}
		return a.Name, true
	}
	return "", false
}

func digestActivity(a dto.InboundActivity) (dto.BotRequest, bool) {
	switch a.Type {
	case dto.ActivityTypeMessage:
		return dto.MessageRequest(a.Text), true
	case dto.ActivityTypeEvent:
		switch a.Name {
		case "":
			return dto.BotRequest{}, false
		case dto.EventStart:
			return dto.DirectCallRequest(dto.DirectCallWelcome), true
		case dto.EventHangup:
			return dto.DirectCallRequest(dto.DirectCallGoodbye), true
		default:
			return dto.MessageRequest(a.Name), true
		}
	}
	return dto.BotRequest{}, false
}

// resolvePendingSelection matches the utterance against the stored options.
// The selection is consumed in every case; unmatched list selections are re-armed once.
func (d *Digester) resolvePendingSelection(utterance string) []dto.BotRequest {
	pending, ok := LoadPendingSelection(d.session)
	if !ok {
		return nil
	}
	clearPendingSelection(d.session)

	isList := pending.isList()
	isPolar := pending.isPolar()
	said := normalize(utterance)

	for _, opt := range pending.Options {
		if said != normalize(d.lang.Translate(opt.Label)) {
			continue
		}
		if isList || opt.redirectsToEscalation() {
			return []dto.BotRequest{dto.MessageRequest(opt.Label)}
		}
		lastUserQuestion := pending.LastUserQuestion
		if opt.Title != "" && !isPolar {
			lastUserQuestion = opt.Title
		}
		if lastUserQuestion != "" {
			d.session.Set(store.KeyLastUserQuestion, lastUserQuestion)
		}
		return []dto.BotRequest{dto.OptionRequest(opt.value())}
	}

	switch {
	case isList:
		if !pending.ListValuesRetry {
			pending.ListValuesRetry = true
			// A selection that cannot be re-armed is dropped like a second miss.
			if err := savePendingSelection(d.session, pending); err != nil {
				clearPendingSelection(d.session)
			}
		}
	case isPolar:
		return []dto.BotRequest{d.negativeAnswer(pending.Options)}
	}
	return nil
}

// negativeAnswer resolves an unrecognised polar reply exactly as an explicit "no".
func (d *Digester) negativeAnswer(options []Option) dto.BotRequest {
	no := d.lang.Translate("no")
	target := normalize(no)
	for _, opt := range options {
		if normalize(d.lang.Translate(opt.Label)) == target {
			return dto.OptionRequest(opt.value())
		}
	}
	return dto.MessageRequest(no)
}
