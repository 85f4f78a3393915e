// Package chatbotapi is a client for the Chatbot API used as the conversational backend.
package chatbotapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"audiocodes-connector/internal/dto"
	"audiocodes-connector/pkg/store"

	"golang.org/x/oauth2"
)

const (
	headerKey         = "x-inbenta-key"
	headerSession     = "x-inbenta-session"
	headerSource      = "x-inbenta-source"
	headerEnvironment = "x-inbenta-env"
	headerUserType    = "x-inbenta-user-type"

	pathConversation = "/v1/conversation"
	pathMessage      = "/v1/conversation/message"
	pathUserInfo     = "/v1/tracking/session/user"
	pathEvents       = "/v1/tracking/events"
)

type Config struct {
	APIKey      string
	Secret      string
	AuthURL     string
	Environment string
	UserType    string
	Source      string
	Timeout     time.Duration
}

// Client holds the credentials shared by every conversation.
type Client struct {
	cfg    Config
	http   *http.Client
	auth   oauth2.TokenSource
	mu     sync.Mutex
	tokens oauth2.TokenSource
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}

	c := &Client{
		cfg:  cfg,
		http: httpClient,
		auth: &authTokenSource{
			ctx:    context.Background(),
			client: httpClient,
			url:    cfg.AuthURL,
			key:    cfg.APIKey,
			secret: cfg.Secret,
		},
	}
	c.tokens = oauth2.ReuseTokenSource(nil, c.auth)
	return c
}

func (c *Client) token() (*oauth2.Token, error) {
	c.mu.Lock()
	ts := c.tokens
	c.mu.Unlock()
	return ts.Token()
}

// invalidate drops the cached access token so the next call authenticates again.
func (c *Client) invalidate() {
	c.mu.Lock()
	c.tokens = oauth2.ReuseTokenSource(nil, c.auth)
	c.mu.Unlock()
}

// SessionStore is where a conversation keeps its chatbot session token.
type SessionStore interface {
	GetString(key, fallback string) string
	Set(key string, value interface{}) error
	Delete(key string)
}

// Conversation is a chatbot session bound to one connector session.
type Conversation struct {
	client  *Client
	session SessionStore
}

func (c *Client) Conversation(session SessionStore) *Conversation {
	return &Conversation{client: c, session: session}
}

type conversationResponse struct {
	SessionToken string `json:"sessionToken"`
	SessionID    string `json:"sessionId"`
}

type userInfoRequest struct {
	Data map[string]interface{} `json:"data"`
}

type trackEventRequest struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data,omitempty"`
}

// Start opens the chatbot session unless the connector session already holds one.
func (c *Conversation) Start(ctx context.Context) error {
	tok, err := c.client.token()
	if err != nil {
		return err
	}
	_, err = c.sessionToken(ctx, tok)
	return err
}

// SendMessage posts one request fragment and returns the raw-preserving bot response.
func (c *Conversation) SendMessage(ctx context.Context, req dto.BotRequest) (*dto.BotResponse, error) {
	body, err := c.call(ctx, pathMessage, req)
	if err != nil {
		return nil, err
	}
	resp, err := dto.ParseBotResponse(body)
	if err != nil {
		return nil, fmt.Errorf("decode chatbot response: %w", err)
	}
	return resp, nil
}

// SetUserInfo records data in the user info of the chatbot session.
func (c *Conversation) SetUserInfo(ctx context.Context, data map[string]interface{}) error {
	_, err := c.call(ctx, pathUserInfo, userInfoRequest{Data: data})
	return err
}

// TrackEvent records a tracking event such as CHAT_ATTENDED.
func (c *Conversation) TrackEvent(ctx context.Context, eventType string, data map[string]interface{}) error {
	_, err := c.call(ctx, pathEvents, trackEventRequest{Type: eventType, Data: data})
	return err
}

// call sends a session-scoped request, opening the chatbot session first when needed.
// A rejected access token is dropped so that the next call authenticates again.
func (c *Conversation) call(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	tok, err := c.client.token()
	if err != nil {
		return nil, err
	}
	sessionToken, err := c.sessionToken(ctx, tok)
	if err == nil {
		var body []byte
		body, err = c.client.do(ctx, tok, path, sessionToken, payload)
		if err == nil {
			return body, nil
		}
	}

	var remote *RemoteError
	if errors.As(err, &remote) && remote.StatusCode == http.StatusUnauthorized {
		c.client.invalidate()
	}
	return nil, err
}

func (c *Conversation) sessionToken(ctx context.Context, tok *oauth2.Token) (string, error) {
	if t := c.session.GetString(store.KeyChatbotSessionToken, ""); t != "" {
		return t, nil
	}

	body, err := c.client.do(ctx, tok, pathConversation, "", struct{}{})
	if err != nil {
		return "", err
	}
	var conv conversationResponse
	if err := json.Unmarshal(body, &conv); err != nil {
		return "", fmt.Errorf("decode conversation response: %w", err)
	}
	if conv.SessionToken == "" {
		return "", &RemoteError{Message: "conversation response without session token"}
	}

	if err := c.session.Set(store.KeyChatbotSessionToken, conv.SessionToken); err != nil {
		return "", fmt.Errorf("store session token: %w", err)
	}
	if conv.SessionID != "" {
		if err := c.session.Set(store.KeyChatbotSessionID, conv.SessionID); err != nil {
			return "", fmt.Errorf("store session id: %w", err)
		}
	}
	return conv.SessionToken, nil
}

func (c *Client) do(ctx context.Context, tok *oauth2.Token, path, sessionToken string, payload interface{}) ([]byte, error) {
	base := strings.TrimRight(chatbotURL(tok), "/")
	if base == "" {
		return nil, errors.New("chatbot API url missing from auth response")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerKey, c.cfg.APIKey)
	tok.SetAuthHeader(req)
	if sessionToken != "" {
		req.Header.Set(headerSession, "Bearer "+sessionToken)
	}
	if c.cfg.Source != "" {
		req.Header.Set(headerSource, c.cfg.Source)
	}
	if c.cfg.Environment != "" {
		req.Header.Set(headerEnvironment, c.cfg.Environment)
	}
	if c.cfg.UserType != "" {
		req.Header.Set(headerUserType, c.cfg.UserType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chatbot API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if err := remoteError(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}
