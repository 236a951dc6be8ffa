package vanilla

import (
	"fmt"

	"github.com/goliatone/go-formgrid/pkg/upload"
	"github.com/goliatone/go-formgrid/pkg/widgets"
)

// TemplateFuncs returns the filters the bundled templates use:
//
//	filesize    byte count in binary units, e.g. {{ field.maxSize|filesize }}
//	cell_class  class list of a formatted grid cell, e.g. {{ cell|cell_class }}
func TemplateFuncs() map[string]any {
	return map[string]any{
		"filesize":   fileSize,
		"cell_class": cellClass,
	}
}

func fileSize(in any) string {
	switch n := in.(type) {
	case float64:
		return upload.FormatFileSize(int64(n))
	case int:
		return upload.FormatFileSize(int64(n))
	case int64:
		return upload.FormatFileSize(n)
	default:
		return ""
	}
}

// cellClass accepts a cell as templates see it, a decoded JSON object.
func cellClass(in any) string {
	switch cell := in.(type) {
	case widgets.Cell:
		return cell.Class()
	case map[string]any:
		widget, _ := cell["widget"].(string)
		tone, _ := cell["tone"].(string)
		return widgets.CellClass(widget, tone)
	default:
		return widgets.CellClass(fmt.Sprint(in), "")
	}
}
