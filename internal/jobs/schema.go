package jobs

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// statusSchema is an advisory shape check for backend job-status payloads.
// Validation failures are logged and never block a response; the backend
// owns the format and may extend it ahead of this service.
const statusSchema = `{
  "type": "object",
  "required": ["job_id", "status"],
  "properties": {
    "job_id": {"type": "string"},
    "status": {"type": "string", "enum": ["queued", "running", "done", "failed", "not_found"]},
    "progress": {"type": ["number", "null"]},
    "stage": {"type": ["string", "null"]},
    "started_at_unix": {"type": ["number", "null"]},
    "finished_at_unix": {"type": ["number", "null"]},
    "error": {
      "type": ["object", "null"],
      "properties": {
        "message": {"type": "string"}
      }
    },
    "result": {"type": ["object", "null"]}
  }
}`

var statusSchemaLoader = gojsonschema.NewStringLoader(statusSchema)

// ValidateStatusPayload checks a raw job-status document against the
// expected shape, returning a single error listing every violation.
func ValidateStatusPayload(data []byte) error {
	result, err := gojsonschema.Validate(statusSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	return fmt.Errorf("invalid job status payload: %s", strings.Join(violations, "; "))
}
