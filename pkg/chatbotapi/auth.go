package chatbotapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// extraChatbotURL is the token extra holding the chatbot API base URL returned by /auth.
const extraChatbotURL = "chatbotURL"

type authRequest struct {
	Secret string `json:"secret"`
}

type authResponse struct {
	AccessToken string `json:"accessToken"`
	Expiration  int64  `json:"expiration"`
	Apis        struct {
		Chatbot string `json:"chatbot"`
	} `json:"apis"`
}

// authTokenSource exchanges the API key and secret for an access token.
// Wrap it in oauth2.ReuseTokenSource to cache the token until it expires.
type authTokenSource struct {
	ctx    context.Context
	client *http.Client
	url    string
	key    string
	secret string
}

func (s *authTokenSource) Token() (*oauth2.Token, error) {
	payload, err := json.Marshal(authRequest{Secret: s.secret})
	if err != nil {
		return nil, fmt.Errorf("marshal auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(s.ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerKey, s.key)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read auth response: %w", err)
	}
	if err := remoteError(resp.StatusCode, body); err != nil {
		return nil, err
	}

	var auth authResponse
	if err := json.Unmarshal(body, &auth); err != nil {
		return nil, fmt.Errorf("decode auth response: %w", err)
	}
	if auth.AccessToken == "" {
		return nil, &RemoteError{StatusCode: resp.StatusCode, Message: "auth response without access token"}
	}

	tok := &oauth2.Token{
		AccessToken: auth.AccessToken,
		TokenType:   "Bearer",
		Expiry:      tokenExpiry(auth),
	}
	return tok.WithExtra(map[string]interface{}{extraChatbotURL: auth.Apis.Chatbot}), nil
}

// tokenExpiry prefers the expiration reported by /auth and falls back to the
// exp claim of the access token itself.
func tokenExpiry(auth authResponse) time.Time {
	if auth.Expiration > 0 {
		return time.Unix(auth.Expiration, 0)
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(auth.AccessToken, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

func chatbotURL(tok *oauth2.Token) string {
	if v, ok := tok.Extra(extraChatbotURL).(string); ok {
		return v
	}
	return ""
}
