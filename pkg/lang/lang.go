// Package lang holds the translation tables used in connector replies.
package lang

import (
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const DefaultLanguage = "en"

//go:embed translations/*.yaml
var builtin embed.FS

// Manager resolves translation keys for one language.
type Manager struct {
	language string
	entries  map[string]string
}

// New loads the built-in table for language. When overridePath is set, the
// entries of that YAML file replace the built-in ones key by key.
func New(language, overridePath string) (*Manager, error) {
	if language == "" {
		language = DefaultLanguage
	}

	entries, err := loadBuiltin(language)
	if err != nil {
		return nil, err
	}

	if overridePath != "" {
		data, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read translations: %w", err)
		}
		override, err := parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", overridePath, err)
		}
		for k, v := range override {
			entries[k] = v
		}
	}

	return &Manager{language: language, entries: entries}, nil
}

// NewFromMap builds a Manager from an in-memory table.
func NewFromMap(language string, entries map[string]string) *Manager {
	m := &Manager{language: language, entries: make(map[string]string, len(entries))}
	for k, v := range entries {
		m.entries[k] = v
	}
	return m
}

func loadBuiltin(language string) (map[string]string, error) {
	data, err := builtin.ReadFile("translations/" + language + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unsupported language %q", language)
	}
	return parse(data)
}

func parse(data []byte) (map[string]string, error) {
	entries := map[string]string{}
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Translate returns the translation for key, or the key itself when there is none.
func (m *Manager) Translate(key string) string {
	if v, ok := m.entries[key]; ok {
		return v
	}
	return key
}

func (m *Manager) Language() string {
	return m.language
}
