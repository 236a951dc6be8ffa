package form

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-formgrid/pkg/schema"
)

// ServerErrors splits a server validation payload into field and form level
// messages.
type ServerErrors struct {
	Fields map[string][]string
	Form   []string
}

// MapServerErrors resolves payload keys, which may be plain names, dotted
// paths or JSON pointers such as "/body/email", onto the form's field names.
// Keys that match no field are kept as form level messages.
func MapServerErrors(form schema.Form, payload map[string][]string) ServerErrors {
	out := ServerErrors{Fields: make(map[string][]string)}
	names := make(map[string]struct{})
	for _, field := range form.DataFields() {
		names[field.Name] = struct{}{}
	}

	for raw, messages := range payload {
		messages = dedupe(messages)
		if len(messages) == 0 {
			continue
		}
		name, ok := resolvePath(raw, names)
		if !ok {
			out.Form = append(out.Form, messages...)
			continue
		}
		out.Fields[name] = dedupe(append(out.Fields[name], messages...))
	}
	out.Form = dedupe(out.Form)
	return out
}

func resolvePath(raw string, names map[string]struct{}) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", ".", "/", "#", "$", "form", "__all__", "non_field_errors":
		return "", false
	}
	if _, ok := names[strings.TrimSpace(raw)]; ok {
		return strings.TrimSpace(raw), true
	}

	segments := splitPath(raw)
	for len(segments) > 0 && isWrapper(segments[0]) {
		segments = segments[1:]
	}
	kept := segments[:0:0]
	for _, segment := range segments {
		if _, err := strconv.Atoi(segment); err != nil {
			kept = append(kept, segment)
		}
	}
	for end := len(kept); end > 0; end-- {
		candidate := strings.Join(kept[:end], ".")
		if _, ok := names[candidate]; ok {
			return candidate, true
		}
	}
	return "", false
}

func splitPath(raw string) []string {
	clean := strings.NewReplacer("[", ".", "]", "").Replace(strings.TrimSpace(raw))
	clean = strings.TrimLeft(clean, "#$./")
	parts := strings.FieldsFunc(clean, func(r rune) bool { return r == '.' || r == '/' })
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.ReplaceAll(strings.ReplaceAll(strings.TrimSpace(part), "~1", "/"), "~0", "~")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isWrapper(segment string) bool {
	switch strings.ToLower(segment) {
	case "body", "request", "payload", "data", "attributes":
		return true
	}
	return false
}

func dedupe(messages []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		message = strings.TrimSpace(message)
		if message == "" {
			continue
		}
		if _, ok := seen[message]; ok {
			continue
		}
		seen[message] = struct{}{}
		out = append(out, message)
	}
	return out
}
