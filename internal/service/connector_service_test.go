package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"audiocodes-connector/internal/dto"
	"audiocodes-connector/internal/pkg/logger"
	"audiocodes-connector/internal/repository/memory"
	"audiocodes-connector/pkg/audiocodes"
	"audiocodes-connector/pkg/chatbotapi"
	"audiocodes-connector/pkg/digester"
	"audiocodes-connector/pkg/lang"
	"audiocodes-connector/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBot struct {
	requests  []dto.BotRequest
	responses []string
	err       error
	started   int
	userInfo  []map[string]interface{}
	tracked   []string
	onSend    func(req dto.BotRequest)
}

func (b *fakeBot) Start(ctx context.Context) error {
	b.started++
	return nil
}

func (b *fakeBot) SendMessage(ctx context.Context, req dto.BotRequest) (*dto.BotResponse, error) {
	b.requests = append(b.requests, req)
	if b.onSend != nil {
		b.onSend(req)
	}
	if b.err != nil {
		return nil, b.err
	}
	raw := `{"answers":[]}`
	if len(b.responses) > 0 {
		raw, b.responses = b.responses[0], b.responses[1:]
	}
	return dto.ParseBotResponse([]byte(raw))
}

func (b *fakeBot) SetUserInfo(ctx context.Context, data map[string]interface{}) error {
	b.userInfo = append(b.userInfo, data)
	return b.err
}

func (b *fakeBot) TrackEvent(ctx context.Context, eventType string, data map[string]interface{}) error {
	b.tracked = append(b.tracked, eventType)
	return nil
}

type publishedEvent struct {
	Type       string
	ExternalID string
	Data       map[string]interface{}
}

type fakePublisher struct {
	events []publishedEvent
}

func (p *fakePublisher) Publish(ctx context.Context, payload []byte) error {
	return nil
}

func (p *fakePublisher) PublishEvent(ctx context.Context, eventType, externalID string, data map[string]interface{}) error {
	p.events = append(p.events, publishedEvent{Type: eventType, ExternalID: externalID, Data: data})
	return nil
}

func (p *fakePublisher) types() []string {
	out := []string{}
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type harness struct {
	svc       IConnectorService
	bot       *fakeBot
	sessions  *memory.SessionRepository
	publisher *fakePublisher
}

var testTranslations = map[string]string{
	"yes":             "yes",
	"yes1":            "yeah",
	"yes2":            "claro",
	"no":              "No",
	"ask-to-escalate": "Do you want to talk to an agent?",
	"creating_chat":   "Transferring you now",
}

func newHarness(opts ConnectorOptions) *harness {
	h := &harness{
		bot:       &fakeBot{},
		sessions:  memory.NewSessionRepository(time.Minute),
		publisher: &fakePublisher{},
	}
	h.svc = NewConnectorService(
		h.sessions,
		func(*store.Session) ChatbotConversation { return h.bot },
		audiocodes.NewClient(),
		lang.NewFromMap("en", testTranslations),
		h.publisher,
		logger.NewNopLogger(),
		opts,
	)
	return h
}

func (h *harness) turn(t *testing.T, body string) []dto.Activity {
	t.Helper()
	resp, err := h.svc.HandleActivities(context.Background(), &dto.InboundRequest{ExternalID: "ac-1", Body: []byte(body)})
	require.NoError(t, err)
	return resp.Activities
}

func (h *harness) session(t *testing.T) *store.Session {
	t.Helper()
	s, err := h.sessions.Load(context.Background(), "ac-1")
	require.NoError(t, err)
	return s
}

func say(text string) string {
	return `{"conversation":"1","activities":[{"type":"message","text":"` + text + `"}]}`
}

func activityTexts(activities []dto.Activity) []string {
	out := []string{}
	for _, a := range activities {
		out = append(out, a.Text)
	}
	return out
}

func TestHandleActivitiesHello(t *testing.T) {
	h := newHarness(ConnectorOptions{})
	h.bot.responses = []string{`{"answers":[{"type":"answer","message":"<p>Hi there!</p>"}]}`}
	h.bot.onSend = func(req dto.BotRequest) {
		// The session is persisted before the chatbot is called.
		assert.Equal(t, "Hello", h.session(t).GetString(store.KeyLastUserQuestion, ""))
	}

	out := h.turn(t, say("Hello"))

	assert.Equal(t, []dto.BotRequest{dto.MessageRequest("Hello")}, h.bot.requests)
	require.Len(t, out, 1)
	assert.Equal(t, dto.ActivityTypeMessage, out[0].Type)
	assert.Equal(t, "Hi there!", out[0].Text)
	assert.NotEmpty(t, out[0].ID)
	assert.NotEmpty(t, out[0].Timestamp)
	assert.Equal(t, 1, h.bot.started)
}

func TestHandleActivitiesLifecycleEvents(t *testing.T) {
	h := newHarness(ConnectorOptions{})
	h.bot.responses = []string{
		`{"answers":[{"type":"answer","message":"Welcome"}]}`,
		`{"answers":[{"type":"answer","message":"Bye","attributes":{"DIRECT_CALL":"sys-goodbye"}}]}`,
	}

	welcome := h.turn(t, `{"activities":[{"type":"event","name":"start"}]}`)
	bye := h.turn(t, `{"activities":[{"type":"event","name":"hangup"}]}`)

	assert.Equal(t, []string{"Welcome"}, activityTexts(welcome))
	require.Len(t, bye, 2)
	assert.Equal(t, "Bye", bye[0].Text)
	assert.Equal(t, dto.EventHangup, bye[1].Name)
	assert.Equal(t, []dto.BotRequest{
		dto.DirectCallRequest(dto.DirectCallWelcome),
		dto.DirectCallRequest(dto.DirectCallGoodbye),
	}, h.bot.requests)
	assert.False(t, h.session(t).Has(store.KeyLastUserQuestion))
}

func TestHandleActivitiesPolarQuestionDefaultsToNo(t *testing.T) {
	h := newHarness(ConnectorOptions{})
	h.bot.responses = []string{
		`{"answers":[{"type":"polarQuestion","message":"Continue?","options":[{"label":"Yes","value":"yes"},{"label":"No","value":"no"}]}]}`,
		`{"answers":[{"type":"answer","message":"Ok, stopping."}]}`,
	}

	first := h.turn(t, say("cancel my order"))
	assert.Equal(t, []string{"Continue?", "Yes", "No"}, activityTexts(first))
	pending, ok := digester.LoadPendingSelection(h.session(t))
	require.True(t, ok)
	assert.Len(t, pending.Options, 2)

	second := h.turn(t, say("hmm not sure"))
	assert.Equal(t, []string{"Ok, stopping."}, activityTexts(second))
	assert.Equal(t, dto.OptionRequest("no"), h.bot.requests[1])
	assert.False(t, h.session(t).Has(store.KeyOptions))
}

func TestHandleActivitiesMalformedPayload(t *testing.T) {
	h := newHarness(ConnectorOptions{})

	out := h.turn(t, `{"activities":[]}`)

	assert.Empty(t, out)
	assert.Empty(t, h.bot.requests)
}

func TestHandleActivitiesRemoteErrorPropagates(t *testing.T) {
	h := newHarness(ConnectorOptions{})
	remote := &chatbotapi.RemoteError{StatusCode: 400, Code: 12, Message: "Invalid session"}
	h.bot.err = remote

	_, err := h.svc.HandleActivities(context.Background(), &dto.InboundRequest{ExternalID: "ac-1", Body: []byte(say("Hello"))})

	assert.Same(t, remote, err)
	assert.Equal(t, []string{dto.ConnectorEventTurnFailed}, h.publisher.types())
}

func TestHandleActivitiesUnknownResponse(t *testing.T) {
	h := newHarness(ConnectorOptions{})
	h.bot.responses = []string{`{"answers":[{"type":"carousel"}]}`}

	_, err := h.svc.HandleActivities(context.Background(), &dto.InboundRequest{ExternalID: "ac-1", Body: []byte(say("Hello"))})

	var unknown *digester.UnknownResponseKindError
	assert.True(t, errors.As(err, &unknown))
}

func TestCreateConversation(t *testing.T) {
	h := newHarness(ConnectorOptions{ExpiresSeconds: 120})

	resp, err := h.svc.CreateConversation(context.Background(), "abc")
	require.NoError(t, err)

	assert.Equal(t, &dto.CreateConversationResponse{
		ActivitiesURL:  "conversation/abc/activities",
		RefreshURL:     "conversation/abc/refresh",
		DisconnectURL:  "conversation/abc/disconnect",
		ExpiresSeconds: 120,
	}, resp)
	require.Len(t, h.publisher.events, 1)
	assert.Equal(t, publishedEvent{Type: dto.ConnectorEventCreated, ExternalID: "ac-abc"}, h.publisher.events[0])

	_, err = h.svc.CreateConversation(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingConversation)
}

func TestRefresh(t *testing.T) {
	h := newHarness(ConnectorOptions{ExpiresSeconds: 90})
	assert.Equal(t, &dto.RefreshResponse{ExpiresSeconds: 90}, h.svc.Refresh(context.Background()))
}

func TestDisconnect(t *testing.T) {
	h := newHarness(ConnectorOptions{})

	require.NoError(t, h.svc.Disconnect(context.Background(), "ac-1", &dto.DisconnectRequest{Reason: "Caller hung up"}))
	require.NoError(t, h.svc.Disconnect(context.Background(), "ac-1", &dto.DisconnectRequest{}))

	assert.Equal(t, []map[string]interface{}{{"disconnect_reason": "Caller hung up"}}, h.bot.userInfo)
	assert.Equal(t, []string{dto.ConnectorEventDisconnected, dto.ConnectorEventDisconnected}, h.publisher.types())
}

func TestDisconnectRemoteError(t *testing.T) {
	h := newHarness(ConnectorOptions{})
	h.bot.err = &chatbotapi.RemoteError{Message: "down"}

	err := h.svc.Disconnect(context.Background(), "ac-1", &dto.DisconnectRequest{Reason: "x"})

	var remote *chatbotapi.RemoteError
	assert.True(t, errors.As(err, &remote))
}
