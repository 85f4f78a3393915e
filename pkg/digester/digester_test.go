package digester

import (
	"testing"

	"audiocodes-connector/internal/dto"
	"audiocodes-connector/pkg/store"

	"github.com/stretchr/testify/require"
)

type fakeTranslator map[string]string

func (f fakeTranslator) Translate(key string) string {
	if v, ok := f[key]; ok {
		return v
	}
	return key
}

var testLang = fakeTranslator{
	"no":              "No",
	"yes":             "Yes",
	"ask-to-escalate": "Do you want to talk to an agent?",
	"creating_chat":   "Transferring you to an agent",
	"ask-information": "Please tell me more",
}

func newTestDigester() (*Digester, *store.Session) {
	sess := store.NewSession("ac-test")
	return New(testLang, sess), sess
}

func mustResponse(t *testing.T, raw string) *dto.BotResponse {
	t.Helper()
	resp, err := dto.ParseBotResponse([]byte(raw))
	require.NoError(t, err)
	return resp
}
