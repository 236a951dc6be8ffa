package demo

import (
	"embed"
	"io/fs"
)

//go:embed schemas/*.yaml
var schemaFS embed.FS

// Schemas returns the demo form and grid documents.
func Schemas() fs.FS {
	sub, err := fs.Sub(schemaFS, "schemas")
	if err != nil {
		panic(err)
	}
	return sub
}
