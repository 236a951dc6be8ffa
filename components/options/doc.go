// Package options serves remote select options for form fields that declare
// an options endpoint. Responses have the shape {"data":[{"value","label"}]}.
//
// The handler answers GET and HEAD with query parameters and POST with a JSON
// body, which is how the form engine's data client calls it. Dependent fields
// receive the current form values in the POST body so a source can narrow its
// results.
package options
