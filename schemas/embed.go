// Package schemas provides access to embedded JSON schemas.
package schemas

import (
	_ "embed"
)

// Embed the procedure JSON Schema into the binary for validation and tooling.
// The schema defines the structure of procedure definitions and enables
// IDE autocompletion, early validation, and schema-based tools.
//
//go:embed procedure.schema.json
var procedureSchema []byte

// GetProcedureSchema returns the embedded procedure JSON Schema as raw bytes.
// This schema can be used for validation, IDE integration, or schema export.
func GetProcedureSchema() []byte {
	return procedureSchema
}

// GetProcedureSchemaString returns the embedded procedure JSON Schema as a string.
// This is a convenience method for use cases that need the schema as a string.
func GetProcedureSchemaString() string {
	return string(procedureSchema)
}
