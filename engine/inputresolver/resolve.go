// Package inputresolver implements the Input Resolver: given a node and the
// edges that target it, produces either a complete input-bindings map or a
// typed resolution error.
package inputresolver

import (
	"fmt"
	"strings"

	"github.com/lyzr/workflow-engine/engine/schema"
)

// Code identifies the kind of input resolution failure.
type Code string

const (
	CodeMissingRequired Code = "MissingRequired"
	CodeDuplicateInput  Code = "DuplicateInput"
	CodeMissingOutput   Code = "MissingOutput"
	CodeTypeMismatch    Code = "TypeMismatch"
)

// Error is a typed input-resolution failure.
type Error struct {
	Code   Code
	NodeID string
	Port   string
	detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: node %s port %s: %s", e.Code, e.NodeID, e.Port, e.detail)
}

func fail(code Code, nodeID, port, detail string) *Error {
	return &Error{Code: code, NodeID: nodeID, Port: port, detail: detail}
}

// Outputs is the minimal view of an ExecutionContext the resolver needs,
// satisfied directly by *schema.ExecutionContext.
type Outputs interface {
	Output(nodeID string) (map[string]any, bool)
}

// Resolve binds a node's declared input ports from upstream outputs and
// literal config. nodeByID is used to look up the declared output port
// type of an edge's source node, for the TypeMismatch check; it may be
// nil to skip that check (e.g. dock-fed ports have no schema source
// node).
func Resolve(node *schema.WorkflowNode, edges []schema.WorkflowEdge, nodeByID map[string]*schema.WorkflowNode, ctx *schema.ExecutionContext) (map[string]any, error) {
	byHandle, err := groupByTargetHandle(node.ID, edges)
	if err != nil {
		return nil, err
	}

	bindings := make(map[string]any, len(node.Data.Inputs))

	for _, port := range node.Data.Inputs {
		handle := "input:" + port.Name
		edge, hasEdge := byHandle[handle]

		if !hasEdge {
			if port.Required && port.Default == nil {
				return nil, fail(CodeMissingRequired, node.ID, port.Name, "no edge and no default")
			}
			if port.Default != nil {
				bindings[port.Name] = port.Default
			}
			continue
		}

		value, srcType, ok := readEdgeValue(edge, nodeByID, ctx)
		if !ok {
			return nil, fail(CodeMissingOutput, node.ID, port.Name,
				fmt.Sprintf("source %q has not produced an output", edge.Source))
		}

		if srcType != "" && port.Type != "" && !schema.Compatible(srcType, port.Type) {
			return nil, fail(CodeTypeMismatch, node.ID, port.Name,
				fmt.Sprintf("source type %s incompatible with port type %s", srcType, port.Type))
		}

		bindings[port.Name] = value
	}

	return bindings, nil
}

func groupByTargetHandle(nodeID string, edges []schema.WorkflowEdge) (map[string]schema.WorkflowEdge, error) {
	byHandle := make(map[string]schema.WorkflowEdge)
	for _, e := range edges {
		if e.Target != nodeID {
			continue
		}
		handle := stripInternal(e.TargetHandle)
		if prior, dup := byHandle[handle]; dup && prior.ID != e.ID {
			return nil, fail(CodeDuplicateInput, nodeID, handle,
				fmt.Sprintf("edges %s and %s both target it", prior.ID, e.ID))
		}
		byHandle[handle] = e
	}
	return byHandle, nil
}

// readEdgeValue returns the value flowing along edge, and the source port's
// declared type when known (empty string if it cannot be determined, e.g.
// a dock-fed value, or nodeByID is nil).
func readEdgeValue(edge schema.WorkflowEdge, nodeByID map[string]*schema.WorkflowNode, ctx *schema.ExecutionContext) (any, schema.ValueType, bool) {
	if ctx.Dock != nil && (strings.HasPrefix(edge.SourceHandle, "dock:") || strings.HasPrefix(edge.SourceHandle, "input:")) {
		v, ok := ctx.Dock.Get(edge.SourceHandle)
		return v, "", ok
	}

	out, ok := ctx.Output(edge.Source)
	if !ok {
		return nil, "", false
	}
	port := stripPrefix(stripInternal(edge.SourceHandle), "output:")
	v, ok := out[port]
	if !ok {
		return nil, "", false
	}
	return v, sourcePortType(nodeByID, edge.Source, port), true
}

// sourcePortType looks up the declared output type of portName on the node
// identified by sourceID, for the TypeMismatch check above.
func sourcePortType(nodeByID map[string]*schema.WorkflowNode, sourceID, portName string) schema.ValueType {
	if nodeByID == nil {
		return ""
	}
	src, ok := nodeByID[sourceID]
	if !ok {
		return ""
	}
	for _, p := range src.Data.Outputs {
		if p.Name == portName {
			return p.Type
		}
	}
	return ""
}

func stripInternal(handle string) string {
	const suf = ":internal"
	if strings.HasSuffix(handle, suf) {
		return handle[:len(handle)-len(suf)]
	}
	return handle
}

func stripPrefix(s, prefix string) string {
	if strings.HasPrefix(s, prefix) {
		return s[len(prefix):]
	}
	return s
}
