// Package template implements the pure string-substitution grammar applied
// to a node's script/prompt/path fields before execution.
package template

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// OutputLookup is the minimal view of an ExecutionContext the resolver
// needs: the already-computed outputs of a given node. Satisfied directly
// by *schema.ExecutionContext, kept as a local interface so this package
// never imports engine/schema, matching the narrow local interface style
// used throughout this codebase instead of importing concrete types.
type OutputLookup interface {
	Output(nodeID string) (map[string]any, bool)
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// Resolve substitutes `{{ input }}`, `{{ inputs.<name> }}` and
// `{{ <nodeRef>.<port> }}` references in text. nodeRef may be a node id or a
// label normalized by NormalizeLabel; labels maps normalized label -> node
// id. Unknown references are left literally unchanged; non-string values
// are JSON-encoded when substituted.
func Resolve(text string, outputs OutputLookup, labels map[string]string, inputs map[string]any) string {
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		sub := placeholderPattern.FindStringSubmatch(match)
		if len(sub) != 2 {
			return match
		}
		expr := strings.TrimSpace(sub[1])

		value, ok := lookup(expr, outputs, labels, inputs)
		if !ok {
			return match
		}
		return stringify(value)
	})
}

func lookup(expr string, outputs OutputLookup, labels map[string]string, inputs map[string]any) (any, bool) {
	if expr == "input" {
		v, ok := inputs["input"]
		return v, ok
	}
	if rest, ok := cutPrefix(expr, "inputs."); ok {
		v, ok := inputs[rest]
		return v, ok
	}

	nodeRef, port, ok := splitOnce(expr, ".")
	if !ok {
		return nil, false
	}

	nodeID := nodeRef
	if labels != nil {
		if id, ok := labels[nodeRef]; ok {
			nodeID = id
		}
	}

	nodeOutputs, ok := outputs.Output(nodeID)
	if !ok {
		return nil, false
	}

	if v, ok := nodeOutputs[port]; ok {
		return v, true
	}

	// Fall back to a dotted-path lookup within the output map for nested
	// fields, e.g. {{ agent1.structured.summary }}.
	payload, err := json.Marshal(nodeOutputs)
	if err != nil {
		return nil, false
	}
	result := gjson.GetBytes(payload, port)
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// NormalizeLabel lowercases a node label and replaces whitespace with
// underscores, matching how `{{ <label>.<port> }}` references are resolved
// to a node id.
func NormalizeLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	return strings.Join(strings.Fields(label), "_")
}

func cutPrefix(s, prefix string) (string, bool) {
	if !strings.HasPrefix(s, prefix) {
		return "", false
	}
	return s[len(prefix):], true
}

func splitOnce(s, sep string) (string, string, bool) {
	i := strings.Index(s, sep)
	if i < 0 {
		return "", "", false
	}
	return s[:i], s[i+len(sep):], true
}
