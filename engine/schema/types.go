// Package schema defines the workflow wire format: the typed node/edge graph
// authored by the editor, its (de)serialization, and structural validation.
package schema

import "time"

// ValueType is the closed set of types a port can carry. Compatibility is
// strict equality except that ValueAny is bidirectionally compatible with
// every other type.
type ValueType string

const (
	ValueString  ValueType = "string"
	ValueNumber  ValueType = "number"
	ValueBoolean ValueType = "boolean"
	ValueJSON    ValueType = "json"
	ValueFile    ValueType = "file"
	ValueFiles   ValueType = "files"
	ValueAny     ValueType = "any"
)

// Compatible reports whether a value produced by src may flow into a port
// declared dst.
func Compatible(src, dst ValueType) bool {
	if src == ValueAny || dst == ValueAny {
		return true
	}
	return src == dst
}

// ExtractKind is how a port's value is computed from a raw string payload.
type ExtractKind string

const (
	ExtractFull     ExtractKind = "full"
	ExtractRegex    ExtractKind = "regex"
	ExtractJSONPath ExtractKind = "json_path"
)

// Extract describes a port's extraction rule, parsed from the schema's
// `extract` string field (e.g. "regex(foo.*)" or "json_path(a.b.c)").
type Extract struct {
	Kind ExtractKind
	Arg  string // pattern for regex, dotted path for json_path; empty for full
}

// PortDefinition is a named, typed connection point on a node.
type PortDefinition struct {
	Name        string    `json:"name" yaml:"name"`
	Type        ValueType `json:"type" yaml:"type"`
	Required    bool      `json:"required,omitempty" yaml:"required,omitempty"`
	Default     any       `json:"default,omitempty" yaml:"default,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Array       bool      `json:"array,omitempty" yaml:"array,omitempty"`
	ArrayParent string    `json:"arrayParent,omitempty" yaml:"arrayParent,omitempty"`
	ArrayIndex  *int      `json:"arrayIndex,omitempty" yaml:"arrayIndex,omitempty"`
	ExtractRaw  string    `json:"extract,omitempty" yaml:"extract,omitempty"`
}

// NodeData carries the node-kind-specific payload. Only the fields relevant
// to the node's `nodeType` are populated; the rest are left zero.
type NodeData struct {
	NodeType          string           `json:"nodeType" yaml:"nodeType"`
	Label             string           `json:"label,omitempty" yaml:"label,omitempty"`
	Inputs            []PortDefinition `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs           []PortDefinition `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	ContinueOnFailure bool             `json:"continueOnFailure,omitempty" yaml:"continueOnFailure,omitempty"`

	// shell / script
	Script     string   `json:"script,omitempty" yaml:"script,omitempty"`
	Commands   []string `json:"commands,omitempty" yaml:"commands,omitempty"`
	ScriptFile string   `json:"scriptFile,omitempty" yaml:"scriptFile,omitempty"`
	ScriptArgs []string `json:"scriptArgs,omitempty" yaml:"scriptArgs,omitempty"`

	// agent
	Prompt       string   `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	PromptFiles  []string `json:"promptFiles,omitempty" yaml:"promptFiles,omitempty"`
	Runner       string   `json:"runner,omitempty" yaml:"runner,omitempty"`
	Model        string   `json:"model,omitempty" yaml:"model,omitempty"`
	OutputSchema any      `json:"outputSchema,omitempty" yaml:"outputSchema,omitempty"`

	// component
	WorkflowPath string `json:"workflowPath,omitempty" yaml:"workflowPath,omitempty"`

	// loop: MaxIterations defaults to DefaultLoopMaxIterations when unset;
	// see normalizeDefaults.
	MaxIterations int        `json:"maxIterations,omitempty" yaml:"maxIterations,omitempty"`
	DockSlots     []DockSlot `json:"dockSlots,omitempty" yaml:"dockSlots,omitempty"`

	// constant
	ValueType ValueType `json:"valueType,omitempty" yaml:"valueType,omitempty"`
	Value     any       `json:"value,omitempty" yaml:"value,omitempty"`

	// function
	Code string `json:"code,omitempty" yaml:"code,omitempty"`
	File string `json:"file,omitempty" yaml:"file,omitempty"`

	// workdir
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// trigger: TriggerKind is "cron" or "idle" (default "manual", meaning
	// the node only fires from an explicit external caller, never from the
	// Trigger Scheduler).
	TriggerKind string `json:"triggerKind,omitempty" yaml:"triggerKind,omitempty"`
	CronExpr    string `json:"cronExpr,omitempty" yaml:"cronExpr,omitempty"`
	IdleMinutes int    `json:"idleMinutes,omitempty" yaml:"idleMinutes,omitempty"`
}

// DockSlot names a loop container's iteration-control port. Kind is one of
// "iteration", "continue", "feedback".
type DockSlot struct {
	Name string `json:"name" yaml:"name"`
	Kind string `json:"kind" yaml:"kind"`
	Type ValueType `json:"type,omitempty" yaml:"type,omitempty"`
}

// Position is the editor's canvas coordinate for a node; the engine ignores
// it beyond round-tripping it through parse/serialize.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// WorkflowNode is one vertex of the graph.
type WorkflowNode struct {
	ID       string    `json:"id" yaml:"id"`
	Type     string    `json:"type" yaml:"type"`
	Position *Position `json:"position,omitempty" yaml:"position,omitempty"`
	Data     NodeData  `json:"data" yaml:"data"`
	ParentID string    `json:"parentId,omitempty" yaml:"parentId,omitempty"`
	Extent   string    `json:"extent,omitempty" yaml:"extent,omitempty"`
	Style    any       `json:"style,omitempty" yaml:"style,omitempty"`
}

// WorkflowEdge is one typed directed arc of the graph. Handles encode
// direction and, for loop docks, the iteration-control role:
// "input:<name>", "output:<name>" (optional ":internal" suffix), and
// "dock:<slot>:<prev|current|output|input>".
type WorkflowEdge struct {
	ID            string `json:"id" yaml:"id"`
	Source        string `json:"source" yaml:"source"`
	Target        string `json:"target" yaml:"target"`
	SourceHandle  string `json:"sourceHandle,omitempty" yaml:"sourceHandle,omitempty"`
	TargetHandle  string `json:"targetHandle,omitempty" yaml:"targetHandle,omitempty"`
}

// Metadata is the workflow-level descriptive header.
type Metadata struct {
	Name          string `json:"name" yaml:"name"`
	Description   string `json:"description,omitempty" yaml:"description,omitempty"`
	RootDirectory string `json:"rootDirectory,omitempty" yaml:"rootDirectory,omitempty"`
}

// WorkflowSchema is the full parsed workflow document. Once loaded and
// validated it is treated as immutable by the Scheduler.
type WorkflowSchema struct {
	Version  int            `json:"version" yaml:"version"`
	Metadata Metadata       `json:"metadata" yaml:"metadata"`
	Nodes    []WorkflowNode `json:"nodes" yaml:"nodes"`
	Edges    []WorkflowEdge `json:"edges" yaml:"edges"`
}

// CurrentVersion is the highest schema version this build understands.
// Validate rejects any schema with a higher Version.
const CurrentVersion = 1

// DefaultLoopMaxIterations is the iteration cap a loop node gets when its
// workflow document omits maxIterations, so an author relying on the
// documented default still gets a safety net against a continue condition
// that never flips.
const DefaultLoopMaxIterations = 10

// NodeResult is the outcome of running one node once.
type NodeResult struct {
	NodeID           string         `json:"nodeId"`
	Status           string         `json:"status"` // "completed" | "failed"
	Output           map[string]any `json:"output,omitempty"`
	RawOutput        string         `json:"rawOutput,omitempty"`
	Stdout           string         `json:"stdout,omitempty"`
	Stderr           string         `json:"stderr,omitempty"`
	ExitCode         *int           `json:"exitCode,omitempty"`
	StructuredOutput any            `json:"structuredOutput,omitempty"`
	Error            string         `json:"error,omitempty"`
	StartTime        time.Time      `json:"startTime"`
	EndTime          time.Time      `json:"endTime"`
}

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)
