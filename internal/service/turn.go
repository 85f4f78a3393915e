package service

import (
	"context"
	"fmt"

	"audiocodes-connector/internal/dto"
	"audiocodes-connector/pkg/digester"
	"audiocodes-connector/pkg/store"
)

// turn holds the state of one activities request.
type turn struct {
	svc      *connectorService
	session  *store.Session
	digester *digester.Digester
	bot      ChatbotConversation
	out      []dto.Activity
}

func (t *turn) run(ctx context.Context, body []byte) error {
	if t.session.GetBool(store.KeyAskingForEscalation, false) {
		// The reply answers the agent question, not options shown alongside it.
		t.digester.DiscardPendingSelection()
		return t.handleEscalationAnswer(ctx, t.digester.DigestToAPI(body))
	}
	return t.handleBotActions(ctx, t.digester.DigestToAPI(body))
}

func (t *turn) handleBotActions(ctx context.Context, requests []dto.BotRequest) error {
	needEscalation := false

	for _, req := range requests {
		if text := req.Text(); text != "" {
			t.session.Set(store.KeyLastUserQuestion, text)
		}

		resp, err := t.sendToBot(ctx, req)
		if err != nil {
			return err
		}
		if t.checkEscalation(resp) {
			needEscalation = true
		}
		if err := t.relay(resp); err != nil {
			return err
		}
	}

	if needEscalation {
		return t.startEscalation(ctx)
	}
	return nil
}

// sendToBot persists the session around the chatbot call and reloads it afterwards.
func (t *turn) sendToBot(ctx context.Context, req dto.BotRequest) (*dto.BotResponse, error) {
	if err := t.bot.Start(ctx); err != nil {
		return nil, err
	}
	if err := t.svc.sessions.Save(ctx, t.session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	resp, err := t.bot.SendMessage(ctx, req)
	if err != nil {
		return nil, err
	}

	reloaded, err := t.svc.sessions.Load(ctx, t.session.ID)
	if err != nil {
		return nil, fmt.Errorf("reload session: %w", err)
	}
	t.session.Replace(reloaded)
	return resp, nil
}

// relay digests a bot response and queues the resulting activities.
func (t *turn) relay(resp *dto.BotResponse) error {
	activities, err := t.digester.DigestFromAPI(resp, t.session.GetString(store.KeyLastUserQuestion, ""))
	if err != nil {
		return err
	}
	t.emit(activities...)
	return nil
}

func (t *turn) emit(activities ...dto.Activity) {
	t.out = append(t.out, t.svc.channel.SendMessage(activities)...)
}
