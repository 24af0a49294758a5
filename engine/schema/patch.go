package schema

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

// ApplyPatch applies a JSON-Patch (RFC 6902) document to a workflow schema
// and returns the patched copy, re-validated structurally. The server's
// PATCH workflow endpoint uses this to rewrite a workflow file; a run that
// is already in flight keeps the schema it started with.
func ApplyPatch(s *WorkflowSchema, patchJSON []byte) (*WorkflowSchema, error) {
	patch, err := jsonpatch.DecodePatch(patchJSON)
	if err != nil {
		return nil, fmt.Errorf("decode patch: %w", err)
	}

	original, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal schema for patch: %w", err)
	}

	patched, err := patch.Apply(original)
	if err != nil {
		return nil, fmt.Errorf("apply patch: %w", err)
	}

	var out WorkflowSchema
	if err := json.Unmarshal(patched, &out); err != nil {
		return nil, fmt.Errorf("unmarshal patched schema: %w", err)
	}
	normalizeDefaults(&out)

	if issues := Validate(&out); HasErrors(issues) {
		return nil, fmt.Errorf("patched schema is invalid: %v", issues)
	}

	return &out, nil
}
