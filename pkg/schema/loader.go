package schema

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is the parsed content of one schema file. A file either declares
// named `forms` and `grids`, or is a single form with top-level `fields`.
type Document struct {
	Forms map[string]Form `json:"forms,omitempty" yaml:"forms,omitempty"`
	Grids map[string]Grid `json:"grids,omitempty" yaml:"grids,omitempty"`
}

type documentFile struct {
	Forms  map[string]Form `json:"forms" yaml:"forms"`
	Grids  map[string]Grid `json:"grids" yaml:"grids"`
	ID     string          `json:"id" yaml:"id"`
	Title  string          `json:"title" yaml:"title"`
	Action string          `json:"action" yaml:"action"`
	Submit string          `json:"submitLabel" yaml:"submitLabel"`
	Fields []Field         `json:"fields" yaml:"fields"`
}

// ParseDocument decodes JSON or YAML schema content. source names the file in
// error messages and provides the id of single-form documents.
func ParseDocument(data []byte, source string) (Document, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Document{}, fmt.Errorf("schema: file %s is empty", source)
	}

	var raw documentFile
	if err := json.Unmarshal(data, &raw); err != nil {
		raw = documentFile{}
		if yerr := yaml.Unmarshal(data, &raw); yerr != nil {
			return Document{}, fmt.Errorf("schema: parse %s: invalid JSON or YAML: %w", source, yerr)
		}
	}

	doc := Document{
		Forms: make(map[string]Form, len(raw.Forms)+1),
		Grids: make(map[string]Grid, len(raw.Grids)),
	}
	for id, form := range raw.Forms {
		if err := addForm(doc.Forms, id, form, source); err != nil {
			return Document{}, err
		}
	}
	if len(raw.Fields) > 0 {
		id := raw.ID
		if id == "" {
			id = strings.TrimSuffix(path.Base(source), path.Ext(source))
		}
		single := Form{ID: id, Title: raw.Title, Action: raw.Action, SubmitLabel: raw.Submit, Fields: raw.Fields}
		if err := addForm(doc.Forms, id, single, source); err != nil {
			return Document{}, err
		}
	}
	for id, grid := range raw.Grids {
		id = strings.TrimSpace(id)
		if id == "" {
			return Document{}, fmt.Errorf("schema: file %s defines an empty grid id", source)
		}
		if strings.TrimSpace(grid.Endpoint) == "" {
			return Document{}, fmt.Errorf("schema: grid %q (file %s) has no endpoint", id, source)
		}
		grid.ID = id
		doc.Grids[id] = grid
	}
	return doc, nil
}

func addForm(target map[string]Form, id string, form Form, source string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("schema: file %s defines an empty form id", source)
	}
	if _, exists := target[id]; exists {
		return fmt.Errorf("schema: duplicate form %q (file %s)", id, source)
	}
	form.ID = id
	if err := form.Normalize(); err != nil {
		return fmt.Errorf("schema: form %q (file %s): %w", id, source, err)
	}
	target[id] = form
	return nil
}

// Catalog collects forms and grids from many schema files.
type Catalog struct {
	forms map[string]Form
	grids map[string]Grid
}

// LoadFS walks fsys and parses every .json, .yaml and .yml file. Duplicate ids
// across files are an error.
func LoadFS(fsys fs.FS) (*Catalog, error) {
	catalog := &Catalog{forms: make(map[string]Form), grids: make(map[string]Grid)}
	if fsys == nil {
		return catalog, nil
	}

	err := fs.WalkDir(fsys, ".", func(name string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isSchemaFile(name) {
			return nil
		}
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("schema: read %s: %w", name, err)
		}
		doc, err := ParseDocument(data, name)
		if err != nil {
			return err
		}
		return catalog.merge(doc, name)
	})
	if err != nil {
		return nil, err
	}
	return catalog, nil
}

func (c *Catalog) merge(doc Document, source string) error {
	for id, form := range doc.Forms {
		if _, exists := c.forms[id]; exists {
			return fmt.Errorf("schema: duplicate form %q (file %s)", id, source)
		}
		c.forms[id] = form
	}
	for id, grid := range doc.Grids {
		if _, exists := c.grids[id]; exists {
			return fmt.Errorf("schema: duplicate grid %q (file %s)", id, source)
		}
		c.grids[id] = grid
	}
	return nil
}

// Form returns a form by id.
func (c *Catalog) Form(id string) (Form, bool) {
	if c == nil {
		return Form{}, false
	}
	form, ok := c.forms[id]
	return form, ok
}

// Grid returns a grid by id.
func (c *Catalog) Grid(id string) (Grid, bool) {
	if c == nil {
		return Grid{}, false
	}
	grid, ok := c.grids[id]
	return grid, ok
}

// FormIDs lists form ids in sorted order.
func (c *Catalog) FormIDs() []string {
	if c == nil {
		return nil
	}
	ids := make([]string, 0, len(c.forms))
	for id := range c.forms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GridIDs lists grid ids in sorted order.
func (c *Catalog) GridIDs() []string {
	if c == nil {
		return nil
	}
	ids := make([]string, 0, len(c.grids))
	for id := range c.grids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func isSchemaFile(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// Add merges a document built outside the file loader, such as one derived
// from an API description. Duplicate ids are an error.
func (c *Catalog) Add(doc Document, source string) error {
	if c.forms == nil {
		c.forms = make(map[string]Form)
	}
	if c.grids == nil {
		c.grids = make(map[string]Grid)
	}
	return c.merge(doc, source)
}
