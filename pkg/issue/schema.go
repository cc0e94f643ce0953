package issue

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed report.schema.json
var reportSchema []byte

// ErrSchemaViolation indicates a serialized report does not conform to
// the published report schema.
var ErrSchemaViolation = errors.New("issue: report violates schema")

// ValidateReportJSON checks serialized report bytes against the
// embedded JSON schema. Used by tests and by the CLI --validate flag to
// guard the wire format against accidental drift.
func ValidateReportJSON(data []byte) error {
	schemaLoader := gojsonschema.NewBytesLoader(reportSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("issue: validate report: %w", err)
	}

	if result.Valid() {
		return nil
	}

	descriptions := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		descriptions = append(descriptions, desc.String())
	}

	return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(descriptions, "; "))
}
