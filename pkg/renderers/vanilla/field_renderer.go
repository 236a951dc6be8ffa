package vanilla

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formgrid/pkg/form"
	"github.com/goliatone/go-formgrid/pkg/render"
	"github.com/goliatone/go-formgrid/pkg/schema"
	"github.com/goliatone/go-formgrid/pkg/widgets"
)

// control describes how one kind is drawn: the partial template, the input
// type for generic inputs and whether the field chrome (label, help, error)
// wraps it.
type control struct {
	partial   string
	inputType string
	bare      bool
}

var controls = render.MustKindTable(map[schema.Kind]control{
	schema.KindInput:       {partial: "input", inputType: "text"},
	schema.KindNumber:      {partial: "input", inputType: "number"},
	schema.KindEmail:       {partial: "input", inputType: "email"},
	schema.KindDate:        {partial: "input", inputType: "date"},
	schema.KindTime:        {partial: "input", inputType: "time"},
	schema.KindDateTime:    {partial: "input", inputType: "datetime-local"},
	schema.KindSelect:      {partial: "select"},
	schema.KindMultiSelect: {partial: "select"},
	schema.KindCheckbox:    {partial: "checkbox"},
	schema.KindRadioGroup:  {partial: "radiogroup"},
	schema.KindDateRange:   {partial: "daterange"},
	schema.KindFile:        {partial: "file"},
	schema.KindMultiFile:   {partial: "file"},
	schema.KindTextarea:    {partial: "textarea"},
	schema.KindHTML:        {partial: "html", bare: true},
	schema.KindHidden:      {partial: "hidden", bare: true},
	schema.KindHeader:      {partial: "header", bare: true},
	schema.KindAlert:       {partial: "alert", bare: true},
	schema.KindLineBreak:   {partial: "linebreak", bare: true},
})

type optionModel struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

type fieldModel struct {
	Kind        string        `json:"kind"`
	Name        string        `json:"name"`
	ID          string        `json:"id"`
	LabelID     string        `json:"labelId"`
	Label       string        `json:"label"`
	LabelFor    bool          `json:"labelFor"`
	InputType   string        `json:"inputType,omitempty"`
	Placeholder string        `json:"placeholder,omitempty"`
	Help        string        `json:"help,omitempty"`
	Error       string        `json:"error,omitempty"`
	Value       string        `json:"value"`
	Values      []string      `json:"values,omitempty"`
	From        string        `json:"from,omitempty"`
	To          string        `json:"to,omitempty"`
	Options     []optionModel `json:"options,omitempty"`
	Checked     bool          `json:"checked"`
	Required    bool          `json:"required"`
	Disabled    bool          `json:"disabled"`
	Multiple    bool          `json:"multiple"`
	Rows        int           `json:"rows,omitempty"`
	MaxLength   int           `json:"maxLength,omitempty"`
	CharCount   int           `json:"charCount"`
	Min         string        `json:"min,omitempty"`
	Max         string        `json:"max,omitempty"`
	Accept      string        `json:"accept,omitempty"`
	MaxSize     int64         `json:"maxSize,omitempty"`
	MaxFiles    int           `json:"maxFiles,omitempty"`
	Variant     string        `json:"variant,omitempty"`
	Content     string        `json:"content,omitempty"`
}

var markupPolicy = bluemonday.UGCPolicy()

func buildField(state form.FieldState, ctl control) fieldModel {
	field := state.Field
	model := fieldModel{
		Kind:        string(field.Type),
		Name:        field.Name,
		ID:          controlID(field.Name),
		LabelID:     labelID(field.Name),
		LabelFor:    labelSupportsFor(field.Type),
		InputType:   ctl.inputType,
		Placeholder: field.Placeholder,
		Help:        field.Help,
		Error:       state.Error,
		Required:    field.Required,
		Disabled:    state.Disabled,
		Multiple:    field.Type.Multi(),
		Rows:        field.Rows,
		MaxLength:   field.MaxLength,
		CharCount:   state.CharCount,
		Accept:      field.Accept,
		MaxFiles:    field.MaxFiles,
		MaxSize:     field.MaxSize,
		Variant:     field.Variant,
	}
	if field.Name != "" {
		model.Label = field.DisplayLabel()
	} else {
		model.Label = strings.TrimSpace(field.Label)
	}
	if field.Min != nil {
		model.Min = strconv.FormatFloat(*field.Min, 'f', -1, 64)
	}
	if field.Max != nil {
		model.Max = strconv.FormatFloat(*field.Max, 'f', -1, 64)
	}
	if model.Rows == 0 && field.Type == schema.KindTextarea {
		model.Rows = 4
	}

	switch field.Type {
	case schema.KindMultiSelect, schema.KindMultiFile:
		model.Values = stringValues(state.Value)
	case schema.KindCheckbox:
		model.Checked = checked(state.Value)
	case schema.KindDateRange:
		model.From, model.To = rangeBounds(state.Value)
	case schema.KindDateTime:
		model.Value = strings.Replace(widgets.Text(state.Value), " ", "T", 1)
	case schema.KindFile:
		model.Value = widgets.Text(state.Value)
		if model.Value != "" {
			model.Values = []string{model.Value}
		}
	case schema.KindHTML:
		model.Content = markupPolicy.Sanitize(field.Content)
	case schema.KindHeader, schema.KindAlert:
		model.Content = field.Content
		if model.Content == "" {
			model.Content = model.Label
		}
	default:
		model.Value = widgets.Text(state.Value)
	}

	if field.Type.HasOptions() {
		selected := map[string]bool{}
		if field.Type.Multi() {
			for _, value := range model.Values {
				selected[value] = true
			}
		} else {
			selected[model.Value] = true
		}
		model.Options = make([]optionModel, 0, len(state.Options))
		for _, opt := range state.Options {
			model.Options = append(model.Options, optionModel{
				Value:    opt.Value,
				Label:    opt.Label,
				Selected: selected[opt.Value],
			})
		}
	}
	return model
}

func stringValues(value any) []string {
	switch typed := value.(type) {
	case []string:
		return append([]string(nil), typed...)
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			out = append(out, widgets.Text(item))
		}
		return out
	case nil:
		return nil
	default:
		return []string{fmt.Sprint(typed)}
	}
}

func checked(value any) bool {
	switch typed := value.(type) {
	case bool:
		return typed
	case string:
		return typed == "true" || typed == "on" || typed == "1"
	default:
		return false
	}
}

func rangeBounds(value any) (string, string) {
	switch typed := value.(type) {
	case []schema.DateSelection:
		if len(typed) > 0 {
			return typed[0].StartDate, typed[0].EndDate
		}
	case schema.DateRange:
		return typed.From, typed.To
	}
	return "", ""
}
