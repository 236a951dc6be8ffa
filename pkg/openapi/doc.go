// Package openapi builds form schemas from OpenAPI 3 documents. Every
// operation with a request body becomes a form whose fields mirror the body's
// top-level properties; the x-formgrid extension refines kinds, predicates
// and remote options per property.
package openapi
