package nodeexec

import (
	"encoding/json"
	"regexp"

	"github.com/lyzr/workflow-engine/engine/schema"
	"github.com/tidwall/gjson"
)

// BuildOutputValues shapes a node's declared output ports from its raw
// NodeResult: start from whatever the executor already populated in
// result.Output (true for trigger/constant/workdir/interface-* nodes,
// which ARE their own output map), then, for any remaining declared port,
// select a canonical raw source for the node kind and apply the port's
// extract rule against it.
func BuildOutputValues(node *schema.WorkflowNode, result *schema.NodeResult) map[string]any {
	out := make(map[string]any, len(node.Data.Outputs))
	for k, v := range result.Output {
		out[k] = v
	}

	rawText := canonicalRawText(node.Data.NodeType, result)
	structured := canonicalStructured(node.Data.NodeType, result)

	for _, port := range node.Data.Outputs {
		if _, already := out[port.Name]; already {
			continue
		}
		ex := port.Extract()
		if ex.Kind == schema.ExtractFull {
			if val, ok := wellKnownValue(node.Data.NodeType, port.Name, result); ok {
				out[port.Name] = val
				continue
			}
		}
		val, ok := applyExtract(ex, port.Name, rawText, structured)
		if ok {
			out[port.Name] = val
		}
	}
	return out
}

// wellKnownValue maps a declared output port name to its concrete
// NodeResult field for the node kinds with fixed canonical outputs (shell's
// stdout/stderr/exitCode, agent's response), ahead of the generic
// raw-text/extract fallback below, so an unconfigured "stderr" or
// "exitCode" port doesn't silently resolve to the stdout text.
func wellKnownValue(nodeType, portName string, result *schema.NodeResult) (any, bool) {
	switch nodeType {
	case "shell", "script":
		switch portName {
		case "stdout":
			return result.Stdout, true
		case "stderr":
			return result.Stderr, true
		case "exitCode":
			if result.ExitCode != nil {
				return *result.ExitCode, true
			}
			return nil, false
		}
	case "agent":
		switch portName {
		case "response", "structured":
			if result.StructuredOutput != nil {
				return result.StructuredOutput, true
			}
			return result.RawOutput, true
		}
	}
	return nil, false
}

func canonicalRawText(nodeType string, result *schema.NodeResult) string {
	switch nodeType {
	case "shell", "script":
		return result.Stdout
	case "agent", "function":
		return result.RawOutput
	default:
		return result.RawOutput
	}
}

func canonicalStructured(nodeType string, result *schema.NodeResult) any {
	if result.StructuredOutput != nil {
		return result.StructuredOutput
	}
	if len(result.Output) > 0 {
		return result.Output
	}
	return nil
}

func applyExtract(ex schema.Extract, portName, rawText string, structured any) (any, bool) {
	switch ex.Kind {
	case schema.ExtractRegex:
		re, err := regexp.Compile(ex.Arg)
		if err != nil {
			return nil, false
		}
		m := re.FindStringSubmatch(rawText)
		if len(m) < 2 {
			return nil, false
		}
		return m[1], true

	case schema.ExtractJSONPath:
		payload := structured
		if payload == nil {
			payload = rawText
		}
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, false
		}
		res := gjson.GetBytes(b, ex.Arg)
		if !res.Exists() {
			return nil, false
		}
		return res.Value(), true

	default: // full
		if structured != nil {
			if m, ok := structured.(map[string]any); ok {
				if v, ok := m[portName]; ok {
					return v, true
				}
			}
		}
		if rawText != "" {
			return rawText, true
		}
		return nil, false
	}
}
