package render

import (
	"errors"
	"strings"

	"github.com/goliatone/go-formgrid/pkg/form"
)

// Translator resolves a message key for a locale.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// TranslatorFunc adapts a function into a Translator.
type TranslatorFunc func(locale, key string, args ...any) (string, error)

// Translate implements Translator.
func (fn TranslatorFunc) Translate(locale, key string, args ...any) (string, error) {
	return fn(locale, key, args...)
}

// MissingTranslationHandler decides what to show when a key cannot be
// translated.
type MissingTranslationHandler func(locale, key string, fallback string, err error) string

// ErrMissingTranslator is passed to the missing handler when no translator
// is configured.
var ErrMissingTranslator = errors.New("render: translator is nil")

// Translate resolves key, falling back to fallback when the translator is
// missing or fails and no missing handler is set.
func Translate(opts Options, key, fallback string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}
	var err error
	if opts.Translator == nil {
		err = ErrMissingTranslator
	} else {
		var result string
		result, err = opts.Translator.Translate(opts.Locale, key)
		if err == nil && strings.TrimSpace(result) != "" {
			return result
		}
	}
	if opts.OnMissing != nil {
		return opts.OnMissing(opts.Locale, key, fallback, err)
	}
	return fallback
}

// Localize returns a copy of view with titles, labels, placeholders and
// help texts translated. Keys follow forms.<id>.title and
// fields.<name>.label / .placeholder / .help; untranslated entries keep their
// schema text.
func Localize(view FormView, opts Options) FormView {
	if opts.Translator == nil {
		return view
	}
	out := view
	out.Form.Title = Translate(opts, "forms."+view.Form.ID+".title", view.Form.Title)
	out.Form.SubmitLabel = Translate(opts, "forms."+view.Form.ID+".submit", view.Form.SubmitLabel)

	out.Fields = make([]form.FieldState, len(view.Fields))
	for idx, state := range view.Fields {
		field := state.Field
		if field.Name != "" {
			prefix := "fields." + field.Name
			field.Label = Translate(opts, prefix+".label", field.DisplayLabel())
			field.Placeholder = Translate(opts, prefix+".placeholder", field.Placeholder)
			field.Help = Translate(opts, prefix+".help", field.Help)
		}
		state.Field = field
		out.Fields[idx] = state
	}
	return out
}
