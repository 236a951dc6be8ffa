package grid

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/goliatone/go-formgrid/pkg/schema"
)

// Record is one row as returned by the endpoint. The engine adds a "checked"
// flag when row selection is enabled; "actions" is passed through for hosts.
type Record map[string]any

// Checked reports the selection display flag.
func (r Record) Checked() bool {
	checked, _ := r["checked"].(bool)
	return checked
}

// Actions returns the per-row action payload, if any.
func (r Record) Actions() map[string]any {
	actions, _ := r["actions"].(map[string]any)
	return actions
}

// Key returns the record's value for field as a string.
func (r Record) Key(field string) string {
	return keyString(r[field])
}

func (r Record) clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Response is the normalised shape of a grid payload.
type Response struct {
	List           []Record         `json:"list"`
	Headers        []schema.Column  `json:"headers"`
	SearchForm     schema.Catalogue `json:"searchForm,omitempty"`
	TotalCount     int              `json:"totalCount"`
	EnableCheckbox bool             `json:"enableCheckbox,omitempty"`
}

// Normalize accepts the payload shapes endpoints produce: wrapped under "data"
// or flat, rows under "list" or "records" or as a bare array, headers as an
// array or an object keyed by field.
func Normalize(response any) (Response, error) {
	base := response
	if m, ok := response.(map[string]any); ok {
		if data, exists := m["data"]; exists && data != nil {
			base = data
		}
	}

	var out Response
	switch typed := base.(type) {
	case nil:
		return out, nil
	case []any:
		out.List = toRecords(typed)
		out.TotalCount = len(out.List)
		return out, nil
	case map[string]any:
		switch {
		case typed["list"] != nil:
			out.List = toRecords(typed["list"])
		case typed["records"] != nil:
			out.List = toRecords(typed["records"])
		}

		headers, err := toColumns(typed["headers"])
		if err != nil {
			return Response{}, err
		}
		out.Headers = headers

		if raw, ok := typed["searchForm"].(map[string]any); ok && len(raw) > 0 {
			if err := remarshal(raw, &out.SearchForm); err != nil {
				return Response{}, fmt.Errorf("grid: decode searchForm: %w", err)
			}
		}

		total, ok := toInt(typed["totalCount"])
		if !ok {
			if outer, isMap := response.(map[string]any); isMap {
				total, _ = toInt(outer["totalCount"])
			}
		}
		out.TotalCount = total
		out.EnableCheckbox, _ = typed["enableCheckbox"].(bool)
		return out, nil
	default:
		return Response{}, fmt.Errorf("grid: unexpected response type %T", base)
	}
}

func toRecords(value any) []Record {
	items, ok := value.([]any)
	if !ok {
		return []Record{}
	}
	out := make([]Record, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, Record(m).clone())
		}
	}
	return out
}

func toColumns(value any) ([]schema.Column, error) {
	switch typed := value.(type) {
	case nil:
		return []schema.Column{}, nil
	case []any:
		var out []schema.Column
		if err := remarshal(typed, &out); err != nil {
			return nil, fmt.Errorf("grid: decode headers: %w", err)
		}
		return out, nil
	case map[string]any:
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		out := make([]schema.Column, 0, len(keys))
		for _, key := range keys {
			var column schema.Column
			if err := remarshal(typed[key], &column); err != nil {
				return nil, fmt.Errorf("grid: decode header %q: %w", key, err)
			}
			if column.Field == "" {
				column.Field = key
			}
			out = append(out, column)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("grid: unexpected headers type %T", value)
	}
}

func remarshal(in any, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func toInt(value any) (int, bool) {
	switch typed := value.(type) {
	case float64:
		return int(typed), true
	case int:
		return typed, true
	case int64:
		return int(typed), true
	case string:
		n, err := strconv.Atoi(typed)
		return n, err == nil
	default:
		return 0, false
	}
}

func keyString(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		return fmt.Sprint(typed)
	}
}

// ExportURL extracts the file reference from an export response, accepting
// both {file} and {data:{file}}.
func ExportURL(response any) string {
	m, ok := response.(map[string]any)
	if !ok {
		return ""
	}
	if file, ok := m["file"].(string); ok && file != "" {
		return file
	}
	if data, ok := m["data"].(map[string]any); ok {
		if file, ok := data["file"].(string); ok {
			return file
		}
	}
	return ""
}
