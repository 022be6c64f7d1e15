package eventlog

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/enrollment_event.json
var enrollmentEventSchema string

var eventSchema = jsonschema.MustCompileString(
	"enrollment_event.json", enrollmentEventSchema)

// ValidateDocument checks a full enrollment event document against the
// embedded JSON schema. Used to verify generated documents before they
// are written out, and available to strict ingestion paths.
func ValidateDocument(doc []byte) error {
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return fmt.Errorf("document is not valid JSON: %w", err)
	}
	if err := eventSchema.Validate(v); err != nil {
		return fmt.Errorf("document failed schema validation: %w", err)
	}
	return nil
}
