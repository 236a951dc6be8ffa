package vanilla

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.tpl templates/fields/*.tpl
var embeddedTemplates embed.FS

//go:embed assets/*
var embeddedAssets embed.FS

// StylesheetName is the asset name of the default stylesheet.
const StylesheetName = "formgrid.css"

// TemplatesFS exposes the embedded template bundle for consumers that want to
// use the built-in form and grid rendering out of the box.
func TemplatesFS() fs.FS {
	return embeddedTemplates
}

// AssetsFS exposes the embedded asset bundle so callers can serve it over HTTP
// or copy it into their own asset pipeline.
func AssetsFS() fs.FS {
	sub, err := fs.Sub(embeddedAssets, "assets")
	if err != nil {
		return embeddedAssets
	}
	return sub
}
