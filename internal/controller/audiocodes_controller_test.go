package controller

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"audiocodes-connector/internal/dto"
	"audiocodes-connector/internal/pkg/serverutils"
	"audiocodes-connector/pkg/chatbotapi"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConnectorService struct {
	created      string
	inbound      *dto.InboundRequest
	disconnected string
	reason       string
	turnErr      error
}

func (s *fakeConnectorService) CreateConversation(ctx context.Context, conversation string) (*dto.CreateConversationResponse, error) {
	s.created = conversation
	return &dto.CreateConversationResponse{
		ActivitiesURL:  "conversation/" + conversation + "/activities",
		RefreshURL:     "conversation/" + conversation + "/refresh",
		DisconnectURL:  "conversation/" + conversation + "/disconnect",
		ExpiresSeconds: 120,
	}, nil
}

func (s *fakeConnectorService) Refresh(ctx context.Context) *dto.RefreshResponse {
	return &dto.RefreshResponse{ExpiresSeconds: 120}
}

func (s *fakeConnectorService) Disconnect(ctx context.Context, externalID string, req *dto.DisconnectRequest) error {
	s.disconnected = externalID
	s.reason = req.Reason
	return nil
}

func (s *fakeConnectorService) HandleActivities(ctx context.Context, req *dto.InboundRequest) (*dto.ActivitiesResponse, error) {
	s.inbound = req
	if s.turnErr != nil {
		return nil, s.turnErr
	}
	return &dto.ActivitiesResponse{Activities: []dto.Activity{{Type: "message", Text: "Hi", ID: "1", Timestamp: "2024-01-01T00:00:00.000Z"}}}, nil
}

func newTestApp(svc *fakeConnectorService) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	NewAudiocodesController(svc).RegisterRoutes(app, serverutils.ChannelAuthMiddleware("Bearer", "tok"))
	return app
}

func do(t *testing.T, app *fiber.App, method, target, body string, authorized bool) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if authorized {
		req.Header.Set("Authorization", "Bearer tok")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestCreateConversation(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{"post body", "POST", "/CreateConversation", `{"conversation":"abc"}`},
		{"get query", "GET", "/CreateConversation?conversation=abc", ""},
		{"post query", "POST", "/CreateConversation?conversation=abc", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeConnectorService{}
			status, out := do(t, newTestApp(svc), tt.method, tt.target, tt.body, true)

			assert.Equal(t, 200, status)
			assert.Equal(t, "abc", svc.created)
			assert.Equal(t, "conversation/abc/activities", out["activitiesURL"])
			assert.Equal(t, "conversation/abc/refresh", out["refreshURL"])
			assert.Equal(t, "conversation/abc/disconnect", out["disconnectURL"])
			assert.Equal(t, float64(120), out["expiresSeconds"])
		})
	}
}

func TestCreateConversationWithoutID(t *testing.T) {
	svc := &fakeConnectorService{}
	status, out := do(t, newTestApp(svc), "POST", "/CreateConversation", `{}`, true)

	assert.Equal(t, 400, status)
	assert.Equal(t, false, out["success"])
	assert.Empty(t, svc.created)
}

func TestRoutesRequireAuthorization(t *testing.T) {
	app := newTestApp(&fakeConnectorService{})

	for _, target := range []string{"/CreateConversation?conversation=a", "/conversation/a/activities", "/conversation/a/refresh", "/conversation/a/disconnect"} {
		status, out := do(t, app, "POST", target, `{}`, false)
		assert.Equal(t, 401, status, target)
		assert.Equal(t, "Invalid request!", out["message"], target)
	}
}

func TestActivities(t *testing.T) {
	svc := &fakeConnectorService{}
	body := `{"conversation":"conv-1","activities":[{"type":"message","text":"Hello"}]}`

	status, out := do(t, newTestApp(svc), "POST", "/conversation/path-id/activities", body, true)

	assert.Equal(t, 200, status)
	require.NotNil(t, svc.inbound)
	assert.Equal(t, "ac-conv-1", svc.inbound.ExternalID)
	assert.JSONEq(t, body, string(svc.inbound.Body))
	activities := out["activities"].([]interface{})
	require.Len(t, activities, 1)
	assert.Equal(t, "Hi", activities[0].(map[string]interface{})["text"])
}

func TestActivitiesExternalIDFallbacks(t *testing.T) {
	svc := &fakeConnectorService{}
	app := newTestApp(svc)

	do(t, app, "POST", "/conversation/path-id/activities?conversation=query-id", `{"activities":[]}`, true)
	assert.Equal(t, "ac-query-id", svc.inbound.ExternalID)

	do(t, app, "POST", "/conversation/path-id/activities", `{"activities":[]}`, true)
	assert.Equal(t, "ac-path-id", svc.inbound.ExternalID)
}

func TestActivitiesRemoteError(t *testing.T) {
	svc := &fakeConnectorService{turnErr: &chatbotapi.RemoteError{Code: 400, Message: "Invalid session"}}

	status, out := do(t, newTestApp(svc), "POST", "/conversation/a/activities", `{"activities":[{"type":"message","text":"x"}]}`, true)

	assert.Equal(t, 502, status)
	assert.Equal(t, float64(502), out["code"])
	assert.Equal(t, "chatbot API error 400: Invalid session", out["message"])
}

func TestRefresh(t *testing.T) {
	status, out := do(t, newTestApp(&fakeConnectorService{}), "POST", "/conversation/a/refresh", "", true)

	assert.Equal(t, 200, status)
	assert.Equal(t, map[string]interface{}{"expiresSeconds": float64(120)}, out)
}

func TestDisconnect(t *testing.T) {
	svc := &fakeConnectorService{}

	status, out := do(t, newTestApp(svc), "POST", "/conversation/a/disconnect", `{"conversation":"a","reason":"Client Side"}`, true)

	assert.Equal(t, 200, status)
	assert.Empty(t, out)
	assert.Equal(t, "ac-a", svc.disconnected)
	assert.Equal(t, "Client Side", svc.reason)
}

func TestDisconnectRequiresBody(t *testing.T) {
	status, _ := do(t, newTestApp(&fakeConnectorService{}), "POST", "/conversation/a/disconnect", "", true)
	assert.Equal(t, 400, status)
}
