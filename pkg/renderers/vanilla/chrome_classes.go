package vanilla

// ChromeClass is a typed identifier for semantic chrome CSS classes.
type ChromeClass string

const (
	ClassForm       ChromeClass = "formgrid-form"
	ClassHeader     ChromeClass = "formgrid-header"
	ClassField      ChromeClass = "formgrid-field"
	ClassActions    ChromeClass = "formgrid-actions"
	ClassErrors     ChromeClass = "formgrid-errors"
	ClassGrid       ChromeClass = "formgrid-grid"
	ClassChips      ChromeClass = "formgrid-chips"
	ClassPagination ChromeClass = "formgrid-pagination"
)

// Classes overrides the chrome classes. Empty entries keep the defaults.
type Classes struct {
	Form       string
	Header     string
	Field      string
	Actions    string
	Errors     string
	Grid       string
	Chips      string
	Pagination string
}

func (c Classes) resolve() map[string]string {
	pick := func(override string, fallback ChromeClass) string {
		if cleaned := sanitizeClassList(override); cleaned != "" {
			return cleaned
		}
		return string(fallback)
	}
	return map[string]string{
		"form":       pick(c.Form, ClassForm),
		"header":     pick(c.Header, ClassHeader),
		"field":      pick(c.Field, ClassField),
		"actions":    pick(c.Actions, ClassActions),
		"errors":     pick(c.Errors, ClassErrors),
		"grid":       pick(c.Grid, ClassGrid),
		"chips":      pick(c.Chips, ClassChips),
		"pagination": pick(c.Pagination, ClassPagination),
	}
}
