package chatbotapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"audiocodes-connector/internal/dto"
	"audiocodes-connector/pkg/store"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBotAPI struct {
	server        *httptest.Server
	authCalls     int32
	convCalls     int32
	lastMessage   map[string]interface{}
	lastUserInfo  map[string]interface{}
	lastEvent     map[string]interface{}
	lastHeaders   http.Header
	messageStatus int
	messageBody   string
	rejectToken   string
}

func newFakeBotAPI(t *testing.T) *fakeBotAPI {
	f := &fakeBotAPI{messageStatus: http.StatusOK, messageBody: `{"answers":[{"type":"answer","message":"Hi"}]}`}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&f.authCalls, 1)
		assert.Equal(t, "key", r.Header.Get(headerKey))
		var body authRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "secret", body.Secret)

		token := "access-1"
		if n > 1 {
			token = "access-2"
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"accessToken": token,
			"expiration":  time.Now().Add(time.Hour).Unix(),
			"apis":        map[string]string{"chatbot": f.server.URL + "/"},
		})
	})
	mux.HandleFunc(pathConversation, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.convCalls, 1)
		assert.Empty(t, r.Header.Get(headerSession))
		_, _ = io.WriteString(w, `{"sessionToken":"sess-token","sessionId":"sess-id"}`)
	})
	mux.HandleFunc(pathMessage, func(w http.ResponseWriter, r *http.Request) {
		if f.rejectToken != "" && r.Header.Get("Authorization") == "Bearer "+f.rejectToken {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"errors":[{"message":"expired token","code":401}]}`)
			return
		}
		f.lastHeaders = r.Header.Clone()
		f.lastMessage = map[string]interface{}{}
		_ = json.NewDecoder(r.Body).Decode(&f.lastMessage)
		w.WriteHeader(f.messageStatus)
		_, _ = io.WriteString(w, f.messageBody)
	})
	mux.HandleFunc(pathUserInfo, func(w http.ResponseWriter, r *http.Request) {
		f.lastUserInfo = map[string]interface{}{}
		_ = json.NewDecoder(r.Body).Decode(&f.lastUserInfo)
		_, _ = io.WriteString(w, `{}`)
	})
	mux.HandleFunc(pathEvents, func(w http.ResponseWriter, r *http.Request) {
		f.lastEvent = map[string]interface{}{}
		_ = json.NewDecoder(r.Body).Decode(&f.lastEvent)
		_, _ = io.WriteString(w, `{}`)
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeBotAPI) client() *Client {
	return NewClient(Config{
		APIKey:      "key",
		Secret:      "secret",
		AuthURL:     f.server.URL + "/auth",
		Environment: "development",
		UserType:    "0",
		Source:      "audiocodes",
		Timeout:     5 * time.Second,
	})
}

func TestSendMessage(t *testing.T) {
	api := newFakeBotAPI(t)
	sess := store.NewSession("ac-1")
	conv := api.client().Conversation(sess)

	resp, err := conv.SendMessage(context.Background(), dto.MessageRequest("Hello"))
	require.NoError(t, err)

	require.Len(t, resp.Answers, 1)
	assert.Equal(t, "Hi", resp.Answers[0].Message)
	assert.JSONEq(t, api.messageBody, string(resp.Raw))
	assert.Equal(t, map[string]interface{}{"message": "Hello"}, api.lastMessage)

	assert.Equal(t, "key", api.lastHeaders.Get(headerKey))
	assert.Equal(t, "Bearer access-1", api.lastHeaders.Get("Authorization"))
	assert.Equal(t, "Bearer sess-token", api.lastHeaders.Get(headerSession))
	assert.Equal(t, "audiocodes", api.lastHeaders.Get(headerSource))
	assert.Equal(t, "development", api.lastHeaders.Get(headerEnvironment))
	assert.Equal(t, "0", api.lastHeaders.Get(headerUserType))

	assert.Equal(t, "sess-token", sess.GetString(store.KeyChatbotSessionToken, ""))
	assert.Equal(t, "sess-id", sess.GetString(store.KeyChatbotSessionID, ""))
}

func TestTokensAreReused(t *testing.T) {
	api := newFakeBotAPI(t)
	client := api.client()
	sess := store.NewSession("ac-1")

	for i := 0; i < 3; i++ {
		_, err := client.Conversation(sess).SendMessage(context.Background(), dto.DirectCallRequest(dto.DirectCallWelcome))
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&api.authCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&api.convCalls))
	assert.Equal(t, map[string]interface{}{"message": "", "directCall": "sys-welcome"}, api.lastMessage)
}

func TestSeparateSessionsOpenSeparateConversations(t *testing.T) {
	api := newFakeBotAPI(t)
	client := api.client()

	_, err := client.Conversation(store.NewSession("ac-1")).SendMessage(context.Background(), dto.MessageRequest("a"))
	require.NoError(t, err)
	_, err = client.Conversation(store.NewSession("ac-2")).SendMessage(context.Background(), dto.MessageRequest("b"))
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&api.authCalls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&api.convCalls))
}

func TestRejectedAccessTokenIsDropped(t *testing.T) {
	api := newFakeBotAPI(t)
	api.rejectToken = "access-1"
	client := api.client()
	sess := store.NewSession("ac-1")

	_, err := client.Conversation(sess).SendMessage(context.Background(), dto.MessageRequest("Hello"))
	var remote *RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, http.StatusUnauthorized, remote.StatusCode)
	assert.Equal(t, "expired token", remote.Message)

	_, err = client.Conversation(sess).SendMessage(context.Background(), dto.MessageRequest("Hello"))
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&api.authCalls))
	assert.Equal(t, "Bearer access-2", api.lastHeaders.Get("Authorization"))
}

func TestErrorEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		code    int
		message string
	}{
		{"envelope with 200", http.StatusOK, `{"errors":[{"message":"Invalid option","code":12}]}`, 12, "Invalid option"},
		{"envelope with 400", http.StatusBadRequest, `{"errors":[{"message":"Bad request","code":400}]}`, 400, "Bad request"},
		{"bare 500", http.StatusInternalServerError, `oops`, 0, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeBotAPI(t)
			api.messageStatus = tt.status
			api.messageBody = tt.body

			_, err := api.client().Conversation(store.NewSession("ac-1")).SendMessage(context.Background(), dto.MessageRequest("x"))

			var remote *RemoteError
			require.True(t, errors.As(err, &remote))
			assert.Equal(t, tt.status, remote.StatusCode)
			assert.Equal(t, tt.code, remote.Code)
			assert.Equal(t, tt.message, remote.Message)
		})
	}
}

func TestSetUserInfoAndTrackEvent(t *testing.T) {
	api := newFakeBotAPI(t)
	conv := api.client().Conversation(store.NewSession("ac-1"))

	require.NoError(t, conv.SetUserInfo(context.Background(), map[string]interface{}{"disconnect_reason": "user hung up"}))
	assert.Equal(t, map[string]interface{}{"data": map[string]interface{}{"disconnect_reason": "user hung up"}}, api.lastUserInfo)

	require.NoError(t, conv.TrackEvent(context.Background(), "CHAT_ATTENDED", map[string]interface{}{"value": "true"}))
	assert.Equal(t, "CHAT_ATTENDED", api.lastEvent["type"])
	assert.Equal(t, map[string]interface{}{"value": "true"}, api.lastEvent["data"])
}

func TestAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"errors":[{"message":"Invalid API key","code":401}]}`)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", AuthURL: server.URL})
	_, err := client.Conversation(store.NewSession("ac-1")).SendMessage(context.Background(), dto.MessageRequest("x"))

	var remote *RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, "Invalid API key", remote.Message)
}

func TestTokenExpiryFallsBackToJWTClaim(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("k"))
	require.NoError(t, err)

	assert.True(t, tokenExpiry(authResponse{AccessToken: signed}).Equal(exp))
	assert.True(t, tokenExpiry(authResponse{AccessToken: "opaque"}).IsZero())
	assert.Equal(t, int64(42), tokenExpiry(authResponse{AccessToken: signed, Expiration: 42}).Unix())
}

func TestStartOpensSessionOnce(t *testing.T) {
	api := newFakeBotAPI(t)
	sess := store.NewSession("ac-1")
	conv := api.client().Conversation(sess)

	require.NoError(t, conv.Start(context.Background()))
	require.NoError(t, conv.Start(context.Background()))
	_, err := conv.SendMessage(context.Background(), dto.MessageRequest("x"))
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&api.convCalls))
	assert.Equal(t, "sess-token", sess.GetString(store.KeyChatbotSessionToken, ""))
}
