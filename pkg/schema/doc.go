// Package schema holds the passive data model shared by the form and grid
// engines: field definitions and their closed set of kinds, grid columns,
// filter definitions, and the loaders that read them from JSON or YAML files.
package schema
