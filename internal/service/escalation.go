package service

import (
	"context"
	"regexp"
	"strings"

	"audiocodes-connector/internal/dto"
	"audiocodes-connector/pkg/digester"
	"audiocodes-connector/pkg/store"
)

const (
	escalationTypeDirect    = "direct"
	escalationTypeAPIFlag   = "api_flag"
	escalationTypeNoResults = "no_results"

	flagEscalate = "escalate"

	trackChatAttended = "CHAT_ATTENDED"
)

var yesKeys = []string{"yes", "yes1", "yes2", "yes3", "yes4", "yes5"}

// checkEscalation reports whether the bot response asks for a human agent and
// records why in the session. Nothing escalates while chat is disabled.
func (t *turn) checkEscalation(resp *dto.BotResponse) bool {
	if !t.svc.opts.ChatEnabled {
		return false
	}

	messages := resp.AllMessages()
	if len(messages) == 0 && len(resp.Messages) > 0 {
		messages = resp.Messages
	}

	for _, m := range messages {
		switch {
		case m.Attributes.String(dto.AttrDirectCall) == dto.DirectCallEscalation:
			t.session.Set(store.KeyEscalationType, escalationTypeDirect)
			return true
		case m.Attributes.String(dto.AttrDynamicRedirect) == dto.DirectCallEscalation:
			t.session.Set(store.KeyEscalationType, escalationTypeDirect)
			t.session.Set(store.KeyEscalationV2, true)
			return true
		case m.HasFlag(flagEscalate):
			t.session.Set(store.KeyEscalationType, escalationTypeAPIFlag)
			return true
		case m.HasFlag(dto.FlagNoResults) && t.svc.opts.NoResultsThreshold > 0:
			count := t.session.GetInt(store.KeyNoResultsCount, 0) + 1
			t.session.Set(store.KeyNoResultsCount, count)
			if count >= t.svc.opts.NoResultsThreshold {
				t.session.Set(store.KeyEscalationType, escalationTypeNoResults)
				return true
			}
		}
	}
	return false
}

// startEscalation hands off right away in direct mode, otherwise asks the caller first.
func (t *turn) startEscalation(ctx context.Context) error {
	direct := t.svc.opts.EscalationMode == EscalationModeDirect ||
		t.session.GetString(store.KeyEscalationType, "") == escalationTypeDirect
	if direct {
		return t.escalateToAgent(ctx)
	}

	t.session.Set(store.KeyAskingForEscalation, true)
	t.emit(t.digester.BuildEscalationMessage())
	return nil
}

// handleEscalationAnswer treats the turn as the reply to the escalation question.
// Anything that does not look like a yes is sent to the bot as "no".
func (t *turn) handleEscalationAnswer(ctx context.Context, requests []dto.BotRequest) error {
	t.session.Set(store.KeyAskingForEscalation, false)
	t.session.Set(store.KeyNoResultsCount, 0)
	t.session.Set(store.KeyNegativeRatingCount, 0)

	if len(requests) > 0 && requests[0].Message != nil && t.isYes(*requests[0].Message) {
		return t.escalateToAgent(ctx)
	}

	no := strings.ToLower(t.svc.lang.Translate("no"))
	resp, err := t.sendToBot(ctx, dto.OptionRequest(no))
	if err != nil {
		return err
	}
	return t.relay(resp)
}

func (t *turn) isYes(text string) bool {
	re := yesPattern(t.svc.lang)
	return re != nil && re.MatchString(strings.ToLower(text))
}

// yesPattern matches any of the translated yes-synonyms anywhere in the text.
func yesPattern(lang digester.Translator) *regexp.Regexp {
	alternatives := make([]string, 0, len(yesKeys))
	for _, key := range yesKeys {
		if v := strings.ToLower(strings.TrimSpace(lang.Translate(key))); v != "" {
			alternatives = append(alternatives, regexp.QuoteMeta(v))
		}
	}
	if len(alternatives) == 0 {
		return nil
	}
	return regexp.MustCompile(strings.Join(alternatives, "|"))
}

// escalateToAgent emits the transfer notice followed by the handover event.
func (t *turn) escalateToAgent(ctx context.Context) error {
	t.session.Delete(store.KeyEscalationType)
	t.session.Delete(store.KeyEscalationV2)

	t.emit(t.digester.BuildEscalatedMessage())
	t.out = append(t.out, t.svc.channel.Escalate(t.svc.opts.ChatAddress))

	if err := t.bot.TrackEvent(ctx, trackChatAttended, map[string]interface{}{"value": "true"}); err != nil {
		t.svc.logger.Warn(connectorModule, "Failed to track escalation", map[string]interface{}{
			"external_id": t.session.ID,
			"error":       err.Error(),
		})
	}

	t.svc.publish(ctx, dto.ConnectorEventEscalated, t.session.ID, map[string]interface{}{
		"transfer_target": t.svc.opts.ChatAddress,
	})
	return nil
}
