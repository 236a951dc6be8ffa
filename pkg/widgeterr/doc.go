// Package widgeterr defines the error taxonomy shared by the form and grid
// engines: configuration errors are returned to the caller, network and upload
// failures are logged and surfaced as notifications, and validation results
// travel as data.
package widgeterr
