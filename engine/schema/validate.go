package schema

import "fmt"

// Severity distinguishes a validator finding that must block execution from
// one that is merely informational.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue codes. Errors are fatal (validate fails); warnings are advisory.
const (
	CodeUnknownVersion     = "unknown_version"
	CodeMissingMetadata    = "missing_metadata"
	CodeDuplicateNodeID    = "duplicate_node_id"
	CodeDanglingEdge       = "dangling_edge"
	CodeDuplicateInput     = "duplicate_input"
	CodeNoEntryNode        = "no_entry_node"
	CodeNoTerminalNode     = "no_terminal_node"
	CodeCycle              = "cycle"
	CodeLoopInvariant      = "loop_invariant"
	CodeUnreferencedOutput = "unreferenced_output"
	CodeNodeHasNoEffect    = "node_has_no_effect"
)

// Issue is a single structural finding from Validate.
type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	NodeID   string   `json:"nodeId,omitempty"`
	EdgeID   string   `json:"edgeId,omitempty"`
}

func errIssue(code, msg string) Issue {
	return Issue{Severity: SeverityError, Code: code, Message: msg}
}

func warnIssue(code, msg string) Issue {
	return Issue{Severity: SeverityWarning, Code: code, Message: msg}
}

// HasErrors reports whether any issue in the slice is an error (as opposed
// to a warning).
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// isFeedbackHandle reports whether a handle carries a previous iteration's
// value rather than a forward dependency: dock ":input"/":current" targets
// on a loop are excluded from the dependency graph.
func isFeedbackHandle(handle string) bool {
	if len(handle) < 5 || handle[:5] != "dock:" {
		return false
	}
	return hasSuffix(handle, ":input") || hasSuffix(handle, ":current")
}

func hasSuffix(s, suf string) bool {
	return len(s) >= len(suf) && s[len(s)-len(suf):] == suf
}

// Validate performs structural validation only: schema version, node/edge
// reference resolution, duplicate ids, loop dock invariants, and
// reachability (entry/terminal nodes, cycle detection excluding feedback
// edges). Typing errors are deferred to the Input Resolver.
func Validate(s *WorkflowSchema) []Issue {
	var issues []Issue

	if s.Version <= 0 || s.Version > CurrentVersion {
		issues = append(issues, errIssue(CodeUnknownVersion,
			fmt.Sprintf("unknown schema version %d (supported up to %d)", s.Version, CurrentVersion)))
	}
	if s.Metadata.Name == "" {
		issues = append(issues, errIssue(CodeMissingMetadata, "metadata.name is required"))
	}

	nodeByID := make(map[string]*WorkflowNode, len(s.Nodes))
	for i := range s.Nodes {
		n := &s.Nodes[i]
		if _, dup := nodeByID[n.ID]; dup {
			issues = append(issues, errIssue(CodeDuplicateNodeID, fmt.Sprintf("duplicate node id %q", n.ID)))
			continue
		}
		nodeByID[n.ID] = n
	}

	for _, e := range s.Edges {
		if _, ok := nodeByID[e.Source]; !ok {
			issues = append(issues, Issue{Severity: SeverityError, Code: CodeDanglingEdge,
				Message: fmt.Sprintf("edge %s references unknown source node %q", e.ID, e.Source), EdgeID: e.ID})
		}
		if _, ok := nodeByID[e.Target]; !ok {
			issues = append(issues, Issue{Severity: SeverityError, Code: CodeDanglingEdge,
				Message: fmt.Sprintf("edge %s references unknown target node %q", e.ID, e.Target), EdgeID: e.ID})
		}
	}

	issues = append(issues, checkDuplicateInputs(s)...)
	issues = append(issues, checkLoopInvariants(s, nodeByID)...)
	issues = append(issues, checkReachability(s, nodeByID)...)
	issues = append(issues, checkUnusedOutputs(s)...)

	return issues
}

func checkDuplicateInputs(s *WorkflowSchema) []Issue {
	var issues []Issue
	seen := make(map[string]map[string]string) // target -> strippedHandle -> edgeID
	for _, e := range s.Edges {
		handle := stripInternalSuffix(e.TargetHandle)
		if seen[e.Target] == nil {
			seen[e.Target] = make(map[string]string)
		}
		if prior, dup := seen[e.Target][handle]; dup {
			issues = append(issues, Issue{Severity: SeverityError, Code: CodeDuplicateInput,
				Message: fmt.Sprintf("node %s: input handle %q already wired by edge %s", e.Target, handle, prior),
				NodeID:  e.Target, EdgeID: e.ID})
			continue
		}
		seen[e.Target][handle] = e.ID
	}
	return issues
}

func stripInternalSuffix(handle string) string {
	const suf = ":internal"
	if hasSuffix(handle, suf) {
		return handle[:len(handle)-len(suf)]
	}
	return handle
}

func checkLoopInvariants(s *WorkflowSchema, nodeByID map[string]*WorkflowNode) []Issue {
	var issues []Issue
	for _, n := range s.Nodes {
		if n.Data.NodeType != "loop" {
			continue
		}
		var hasInput, hasOutput, hasContinue, continueWired bool
		for _, inner := range s.Nodes {
			if inner.ParentID != n.ID {
				continue
			}
			switch inner.Data.NodeType {
			case "interface-input":
				hasInput = true
			case "interface-output":
				hasOutput = true
			case "interface-continue":
				hasContinue = true
				for _, e := range s.Edges {
					if e.Target == inner.ID && stripInternalSuffix(e.TargetHandle) == "input:continue" {
						continueWired = true
					}
				}
			}
		}
		if !hasInput || !hasOutput || !hasContinue {
			issues = append(issues, Issue{Severity: SeverityError, Code: CodeLoopInvariant,
				Message: fmt.Sprintf("loop %s must contain exactly one interface-input, interface-output and interface-continue node", n.ID),
				NodeID:  n.ID})
		}
		if hasContinue && !continueWired {
			issues = append(issues, Issue{Severity: SeverityError, Code: CodeLoopInvariant,
				Message: fmt.Sprintf("loop %s: interface-continue.continue has no incoming edge", n.ID), NodeID: n.ID})
		}
	}
	return issues
}

// checkReachability validates there is at least one entry node, at least one
// terminal node among top-level nodes, and that the graph (ignoring
// feedback edges) is acyclic.
func checkReachability(s *WorkflowSchema, nodeByID map[string]*WorkflowNode) []Issue {
	var issues []Issue

	deps := make(map[string][]string)    // nodeID -> predecessor node ids (forward edges only)
	dependents := make(map[string][]string)
	for _, e := range s.Edges {
		if isFeedbackHandle(e.TargetHandle) {
			continue
		}
		deps[e.Target] = append(deps[e.Target], e.Source)
		dependents[e.Source] = append(dependents[e.Source], e.Target)
	}

	topLevel := func(n WorkflowNode) bool { return n.ParentID == "" }

	entryCount := 0
	for _, n := range s.Nodes {
		if !topLevel(n) {
			continue
		}
		if len(deps[n.ID]) == 0 {
			entryCount++
		}
	}
	if entryCount == 0 {
		issues = append(issues, errIssue(CodeNoEntryNode, "workflow has no entry nodes at the top level"))
	}

	terminalCount := 0
	for _, n := range s.Nodes {
		if !topLevel(n) {
			continue
		}
		if len(dependents[n.ID]) == 0 {
			terminalCount++
		}
	}
	if terminalCount == 0 {
		issues = append(issues, errIssue(CodeNoTerminalNode, "workflow has no terminal nodes (would run forever)"))
	}

	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	var hasCycle func(id string) bool
	hasCycle = func(id string) bool {
		visited[id] = true
		recStack[id] = true
		for _, dep := range dependents[id] {
			if !visited[dep] {
				if hasCycle(dep) {
					return true
				}
			} else if recStack[dep] {
				return true
			}
		}
		recStack[id] = false
		return false
	}
	for _, n := range s.Nodes {
		if !visited[n.ID] {
			if hasCycle(n.ID) {
				issues = append(issues, errIssue(CodeCycle, "workflow contains a cycle not expressed as a loop container"))
				break
			}
		}
	}

	return issues
}

func checkUnusedOutputs(s *WorkflowSchema) []Issue {
	var issues []Issue
	referenced := make(map[string]map[string]bool) // nodeID -> outputName -> used
	for _, e := range s.Edges {
		if referenced[e.Source] == nil {
			referenced[e.Source] = make(map[string]bool)
		}
		referenced[e.Source][portName(e.SourceHandle)] = true
	}
	for _, n := range s.Nodes {
		if len(n.Data.Outputs) == 0 {
			continue
		}
		anyUsed := false
		for _, p := range n.Data.Outputs {
			if referenced[n.ID][p.Name] {
				anyUsed = true
			}
		}
		if !anyUsed {
			issues = append(issues, warnIssue(CodeUnreferencedOutput,
				fmt.Sprintf("node %s: no declared output is consumed by any edge", n.ID)))
		}
	}
	return issues
}

func portName(handle string) string {
	handle = stripInternalSuffix(handle)
	const prefix = "output:"
	if len(handle) > len(prefix) && handle[:len(prefix)] == prefix {
		return handle[len(prefix):]
	}
	return handle
}
