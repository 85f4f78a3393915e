package digester

import (
	"fmt"

	"audiocodes-connector/internal/dto"
	"audiocodes-connector/pkg/store"
)

// maxListOptions is how many list values are read out to the caller.
const maxListOptions = 6

// Option is an option presented to the user, as remembered in the session.
type Option struct {
	Label      string         `json:"label"`
	Value      interface{}    `json:"value,omitempty"`
	Title      string         `json:"title,omitempty"`
	Attributes dto.Attributes `json:"attributes,omitempty"`
	ListValues bool           `json:"list_values,omitempty"`
	IsPolar    bool           `json:"is_polar,omitempty"`
}

// value is what gets sent back when the option is chosen.
func (o Option) value() interface{} {
	if o.Value == nil {
		return o.Label
	}
	return o.Value
}

func (o Option) redirectsToEscalation() bool {
	return o.Attributes.String(dto.AttrDynamicRedirect) == dto.DirectCallEscalation
}

// PendingSelection is the options list waiting for the user's next reply.
type PendingSelection struct {
	LastUserQuestion string
	Options          []Option
	ListValuesRetry  bool
}

func (p PendingSelection) isList() bool {
	for _, o := range p.Options {
		if o.ListValues {
			return true
		}
	}
	return false
}

func (p PendingSelection) isPolar() bool {
	for _, o := range p.Options {
		if o.IsPolar {
			return true
		}
	}
	return false
}

// LoadPendingSelection returns the pending selection stored in the session, if any.
func LoadPendingSelection(s SessionStore) (PendingSelection, bool) {
	if !s.Has(store.KeyOptions) {
		return PendingSelection{}, false
	}
	var options []Option
	s.Get(store.KeyOptions, &options)
	return PendingSelection{
		LastUserQuestion: s.GetString(store.KeyLastUserQuestion, ""),
		Options:          options,
		ListValuesRetry:  s.GetInt(store.KeyOptionListValues, 0) > 0,
	}, true
}

func savePendingSelection(s SessionStore, p PendingSelection) error {
	if p.Options == nil {
		p.Options = []Option{}
	}
	if err := s.Set(store.KeyOptions, p.Options); err != nil {
		return fmt.Errorf("save pending options: %w", err)
	}
	if err := s.Set(store.KeyLastUserQuestion, p.LastUserQuestion); err != nil {
		return fmt.Errorf("save pending options: %w", err)
	}
	if p.ListValuesRetry {
		return s.Set(store.KeyOptionListValues, 1)
	}
	s.Delete(store.KeyOptionListValues)
	return nil
}

func clearPendingSelection(s SessionStore) {
	s.Delete(store.KeyOptions)
	s.Delete(store.KeyLastUserQuestion)
	s.Delete(store.KeyOptionListValues)
}

// questionOptions builds fresh option views for a polar or multiple-choice question.
func questionOptions(options []dto.BotOption, polar bool) []Option {
	out := make([]Option, 0, len(options))
	for _, o := range options {
		opt := Option{
			Label:      o.Label,
			Value:      o.Value,
			Attributes: o.Attributes,
		}
		if polar {
			opt.IsPolar = true
		} else {
			opt.Title = o.Attributes.String("title")
		}
		out = append(out, opt)
	}
	return out
}

// listOptions builds option views for the first values of a "list" action field.
func listOptions(values []dto.ListValue) []Option {
	out := make([]Option, 0, maxListOptions)
	for _, v := range values {
		if len(out) == maxListOptions {
			break
		}
		out = append(out, Option{
			Label:      v.Option,
			Value:      v.Option,
			ListValues: true,
		})
	}
	return out
}
