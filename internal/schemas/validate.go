// Package schemas validates persisted CV records against their JSON Schema.
package schemas

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed cv_record.schema.json
var recordSchema string

// RecordSchemaPath labels errors raised by the embedded record schema.
const RecordSchemaPath = "cv_record.schema.json"

var (
	compileOnce    sync.Once
	compiledRecord *gojsonschema.Schema
	compileErr     error
)

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// RecordSchema returns the embedded CV record schema.
func RecordSchema() string {
	return recordSchema
}

// ValidateRecord validates a serialized CV record
func ValidateRecord(data []byte) error {
	compileOnce.Do(func() {
		compiledRecord, compileErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(recordSchema))
	})
	if compileErr != nil {
		return &SchemaLoadError{Path: RecordSchemaPath, Message: "invalid schema", Cause: compileErr}
	}

	result, err := compiledRecord.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return &ValidationError{Errors: []FieldError{{Field: "(root)", Message: err.Error()}}}
	}
	return resultError(result)
}

// ValidateRecordFile validates a CV record stored on disk
func ValidateRecordFile(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve JSON path: %w", err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("JSON file not found: %s", absPath)
		}
		return fmt.Errorf("failed to read %s: %w", absPath, err)
	}
	return ValidateRecord(data)
}

// ValidateJSONString validates JSON string content against schema string content
func ValidateJSONString(schemaContent, jsonContent string) error {
	schemaLoader := gojsonschema.NewStringLoader(schemaContent)
	documentLoader := gojsonschema.NewStringLoader(jsonContent)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return &SchemaLoadError{
			Path:    "(string schema)",
			Message: "schema validation failed during load",
			Cause:   err,
		}
	}
	return resultError(result)
}

// resultError converts a failed result into a ValidationError.
func resultError(result *gojsonschema.Result) error {
	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}
