package template

import (
	"io"
)

// TemplateRenderer is the engine contract the HTML renderer draws with.
// RenderTemplate executes a named template; GlobalContext seeds values every
// template can read.
type TemplateRenderer interface {
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	GlobalContext(data any) error
}
