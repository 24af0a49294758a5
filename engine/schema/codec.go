package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format names the wire encoding of a workflow document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// StructuralError is raised by Parse when the document cannot be decoded at
// all (as opposed to decoding but failing Validate).
type StructuralError struct {
	Format Format
	Err    error
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("structural error parsing %s workflow: %v", e.Format, e.Err)
}

func (e *StructuralError) Unwrap() error { return e.Err }

// Parse decodes bytes into a WorkflowSchema. YAML is the canonical format;
// JSON is accepted on read as a convenience (it is valid YAML, but we decode
// it with encoding/json directly to get stricter field errors).
func Parse(data []byte, format Format) (*WorkflowSchema, error) {
	var out WorkflowSchema
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, &StructuralError{Format: format, Err: err}
		}
	case FormatYAML, "":
		if err := yaml.Unmarshal(data, &out); err != nil {
			return nil, &StructuralError{Format: FormatYAML, Err: err}
		}
	default:
		return nil, &StructuralError{Format: format, Err: fmt.Errorf("unknown format %q", format)}
	}
	normalizeDefaults(&out)
	return &out, nil
}

// normalizeDefaults fills in field defaults the wire format leaves implicit,
// so every caller that builds a WorkflowSchema through a decode path
// (Parse, ApplyPatch) sees them without re-deriving the same rule.
func normalizeDefaults(s *WorkflowSchema) {
	for i := range s.Nodes {
		n := &s.Nodes[i]
		if n.Data.NodeType == "loop" && n.Data.MaxIterations == 0 {
			n.Data.MaxIterations = DefaultLoopMaxIterations
		}
	}
}

// DetectFormat guesses a document's format from a ".json" file extension or,
// failing that, from its leading bytes, used by callers that accept either
// extension.
func DetectFormat(name string, data []byte) Format {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".json") {
		return FormatJSON
	}
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		return FormatJSON
	}
	return FormatYAML
}

// Serialize encodes a WorkflowSchema back to bytes in the given format.
func Serialize(schema *WorkflowSchema, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(schema, "", "  ")
	case FormatYAML, "":
		return yaml.Marshal(schema)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}
