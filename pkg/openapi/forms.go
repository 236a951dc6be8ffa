package openapi

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formgrid/pkg/schema"
)

// ExtensionKey is the vendor extension read from schema properties and
// operations.
const ExtensionKey = "x-formgrid"

// ErrOperationNotFound is returned when no operation matches an id.
var ErrOperationNotFound = errors.New("openapi: operation not found")

var preferredContentTypes = []string{
	"application/json",
	"application/x-www-form-urlencoded",
	"multipart/form-data",
}

// FormFromOperation builds the form for one operation. id matches either the
// operationId or "method:path", e.g. "post:/users".
func FormFromOperation(doc *openapi3.T, id string) (schema.Form, error) {
	if doc == nil {
		return schema.Form{}, errors.New("openapi: document is nil")
	}
	id = strings.TrimSpace(id)
	for _, op := range operations(doc) {
		if op.id == id || op.key == strings.ToLower(id) {
			return buildForm(op)
		}
	}
	return schema.Form{}, fmt.Errorf("%w: %q", ErrOperationNotFound, id)
}

// Forms builds a form for every operation that declares an object request
// body, keyed by operation id.
func Forms(doc *openapi3.T) (map[string]schema.Form, error) {
	if doc == nil {
		return nil, errors.New("openapi: document is nil")
	}
	out := make(map[string]schema.Form)
	for _, op := range operations(doc) {
		if requestSchema(op.operation) == nil {
			continue
		}
		form, err := buildForm(op)
		if err != nil {
			return nil, err
		}
		if _, exists := out[form.ID]; exists {
			return nil, fmt.Errorf("openapi: duplicate operation id %q", form.ID)
		}
		out[form.ID] = form
	}
	return out, nil
}

// Document wraps Forms as a schema.Document so it merges into a catalog.
func Document(doc *openapi3.T) (schema.Document, error) {
	forms, err := Forms(doc)
	if err != nil {
		return schema.Document{}, err
	}
	return schema.Document{Forms: forms, Grids: map[string]schema.Grid{}}, nil
}

type operationRef struct {
	id        string
	key       string
	method    string
	path      string
	operation *openapi3.Operation
}

func operations(doc *openapi3.T) []operationRef {
	if doc.Paths == nil {
		return nil
	}
	paths := doc.Paths.Map()
	keys := make([]string, 0, len(paths))
	for path := range paths {
		keys = append(keys, path)
	}
	sort.Strings(keys)

	var out []operationRef
	for _, path := range keys {
		item := paths[path]
		if item == nil {
			continue
		}
		ops := item.Operations()
		methods := make([]string, 0, len(ops))
		for method := range ops {
			methods = append(methods, method)
		}
		sort.Strings(methods)
		for _, method := range methods {
			op := ops[method]
			if op == nil {
				continue
			}
			key := strings.ToLower(method) + ":" + path
			id := strings.TrimSpace(op.OperationID)
			if id == "" {
				id = key
			}
			out = append(out, operationRef{id: id, key: key, method: method, path: path, operation: op})
		}
	}
	return out
}

func requestSchema(op *openapi3.Operation) *openapi3.Schema {
	if op == nil || op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	content := op.RequestBody.Value.Content
	for _, mediaType := range preferredContentTypes {
		if media := content.Get(mediaType); media != nil && media.Schema != nil && media.Schema.Value != nil {
			return media.Schema.Value
		}
	}
	return nil
}

func buildForm(op operationRef) (schema.Form, error) {
	body := requestSchema(op.operation)
	if body == nil {
		return schema.Form{}, fmt.Errorf("openapi: operation %q has no request body schema", op.id)
	}
	if !hasType(body, "object") && len(body.Properties) == 0 {
		return schema.Form{}, fmt.Errorf("openapi: operation %q request body is not an object", op.id)
	}

	form := schema.Form{
		ID:     op.id,
		Title:  firstNonEmpty(op.operation.Summary, body.Title),
		Action: op.path,
	}
	if ext := extension(op.operation.Extensions); ext != nil {
		form.SubmitLabel = stringValue(ext["submitLabel"])
		if action := stringValue(ext["action"]); action != "" {
			form.Action = action
		}
	}

	required := make(map[string]bool, len(body.Required))
	for _, name := range body.Required {
		required[name] = true
	}

	names := make([]string, 0, len(body.Properties))
	for name := range body.Properties {
		names = append(names, name)
	}
	sort.SliceStable(names, func(i, j int) bool {
		a, b := propertyOrder(body.Properties[names[i]]), propertyOrder(body.Properties[names[j]])
		if a != b {
			return a < b
		}
		return names[i] < names[j]
	})

	for _, name := range names {
		ref := body.Properties[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		field, ok, err := buildField(name, ref.Value, required[name])
		if err != nil {
			return schema.Form{}, fmt.Errorf("openapi: operation %q: %w", op.id, err)
		}
		if ok {
			form.Fields = append(form.Fields, field)
		}
	}
	if err := form.Normalize(); err != nil {
		return schema.Form{}, fmt.Errorf("openapi: operation %q: %w", op.id, err)
	}
	return form, nil
}

// buildField maps one property. Nested objects have no form representation
// and are skipped.
func buildField(name string, prop *openapi3.Schema, required bool) (schema.Field, bool, error) {
	field := schema.Field{
		Name:     name,
		Label:    prop.Title,
		Help:     prop.Description,
		Required: required,
		Value:    prop.Default,
		Min:      prop.Min,
		Max:      prop.Max,
	}
	if prop.MaxLength != nil {
		field.MaxLength = int(*prop.MaxLength)
	}

	switch {
	case hasType(prop, "string"):
		field.Type = stringKind(prop)
		field.Options = enumOptions(prop.Enum)
	case hasType(prop, "integer"), hasType(prop, "number"):
		field.Type = schema.KindNumber
		if field.Value != nil {
			field.Value = stringValue(field.Value)
		}
		if len(prop.Enum) > 0 {
			field.Type = schema.KindSelect
			field.Options = enumOptions(prop.Enum)
		}
	case hasType(prop, "boolean"):
		field.Type = schema.KindCheckbox
	case hasType(prop, "array"):
		items := itemSchema(prop)
		switch {
		case items != nil && hasType(items, "string") && items.Format == "binary":
			field.Type = schema.KindMultiFile
		case items != nil && len(items.Enum) > 0:
			field.Type = schema.KindMultiSelect
			field.Options = enumOptions(items.Enum)
		default:
			field.Type = schema.KindMultiSelect
		}
	default:
		if ext := extension(prop.Extensions); ext == nil || stringValue(ext["type"]) == "" {
			return schema.Field{}, false, nil
		}
	}

	if err := applyExtension(&field, extension(prop.Extensions)); err != nil {
		return schema.Field{}, false, fmt.Errorf("property %q: %w", name, err)
	}
	return field, true, nil
}

func stringKind(prop *openapi3.Schema) schema.Kind {
	if len(prop.Enum) > 0 {
		return schema.KindSelect
	}
	switch strings.ToLower(prop.Format) {
	case "email":
		return schema.KindEmail
	case "date":
		return schema.KindDate
	case "date-time":
		return schema.KindDateTime
	case "time":
		return schema.KindTime
	case "binary":
		return schema.KindFile
	case "textarea", "markdown":
		return schema.KindTextarea
	default:
		return schema.KindInput
	}
}

func applyExtension(field *schema.Field, ext map[string]any) error {
	if ext == nil {
		return nil
	}
	if raw := stringValue(ext["type"]); raw != "" {
		kind, err := schema.ParseKind(raw)
		if err != nil {
			return err
		}
		field.Type = kind
	}
	if v := stringValue(ext["label"]); v != "" {
		field.Label = v
	}
	if v := stringValue(ext["placeholder"]); v != "" {
		field.Placeholder = v
	}
	if v := stringValue(ext["variant"]); v != "" {
		field.Variant = v
	}
	if v := stringValue(ext["accept"]); v != "" {
		field.Accept = v
	}
	if v := stringValue(ext["optionsUrl"]); v != "" {
		field.OptionsURL = v
	}
	if v, ok := ext["showIf"]; ok {
		field.ShowIf = schema.Predicate(stringValue(v))
	}
	if v, ok := ext["disabled"]; ok {
		field.Disabled = schema.Predicate(stringValue(v))
	}
	if v, ok := ext["dependsOn"]; ok {
		field.DependsOn = stringList(v)
	}
	if v, ok := intValue(ext["rows"]); ok {
		field.Rows = v
	}
	if v, ok := intValue(ext["maxFiles"]); ok {
		field.MaxFiles = v
	}
	if v, ok := intValue(ext["maxSize"]); ok {
		field.MaxSize = int64(v)
	}
	if v, ok := ext["options"]; ok {
		field.Options = schema.OptionsFrom(v)
	}
	return nil
}

func extension(exts map[string]any) map[string]any {
	if exts == nil {
		return nil
	}
	raw, ok := exts[ExtensionKey]
	if !ok {
		return nil
	}
	ext, _ := raw.(map[string]any)
	return ext
}

func propertyOrder(ref *openapi3.SchemaRef) int {
	if ref == nil || ref.Value == nil {
		return 0
	}
	if v, ok := intValue(extension(ref.Value.Extensions)["order"]); ok {
		return v
	}
	return 0
}

func itemSchema(prop *openapi3.Schema) *openapi3.Schema {
	if prop.Items == nil {
		return nil
	}
	return prop.Items.Value
}

func hasType(s *openapi3.Schema, typ string) bool {
	if s == nil || s.Type == nil {
		return false
	}
	for _, candidate := range s.Type.Slice() {
		if candidate == typ {
			return true
		}
	}
	return false
}

func enumOptions(values []any) []schema.Option {
	if len(values) == 0 {
		return nil
	}
	out := make([]schema.Option, 0, len(values))
	for _, v := range values {
		if v == nil {
			continue
		}
		s := stringValue(v)
		out = append(out, schema.Option{Value: s, Label: s})
	}
	return out
}

func stringValue(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	case bool:
		return strconv.FormatBool(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case int:
		return strconv.Itoa(typed)
	default:
		return fmt.Sprint(typed)
	}
}

func intValue(v any) (int, bool) {
	switch typed := v.(type) {
	case int:
		return typed, true
	case int64:
		return int(typed), true
	case float64:
		return int(typed), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(typed))
		return n, err == nil
	default:
		return 0, false
	}
}

func stringList(v any) []string {
	switch typed := v.(type) {
	case string:
		if typed == "" {
			return nil
		}
		return []string{typed}
	case []string:
		return append([]string(nil), typed...)
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			if s := stringValue(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
