package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func helloShellSchema() *WorkflowSchema {
	return &WorkflowSchema{
		Version:  1,
		Metadata: Metadata{Name: "hello-shell"},
		Nodes: []WorkflowNode{
			{ID: "trigger1", Type: "trigger", Data: NodeData{NodeType: "trigger"}},
			{ID: "shell1", Type: "shell", Data: NodeData{
				NodeType: "shell",
				Script:   `echo "Hello from Core!"`,
			}},
		},
		Edges: []WorkflowEdge{
			{ID: "e1", Source: "trigger1", Target: "shell1", SourceHandle: "output:timestamp", TargetHandle: "input:timestamp"},
		},
	}
}

func TestValidate_ValidSchemaHasNoErrors(t *testing.T) {
	issues := Validate(helloShellSchema())
	assert.False(t, HasErrors(issues), "expected no errors, got %+v", issues)
}

func TestValidate_UnknownVersion(t *testing.T) {
	s := helloShellSchema()
	s.Version = CurrentVersion + 1
	issues := Validate(s)
	require.True(t, HasErrors(issues))
	assert.Equal(t, CodeUnknownVersion, issues[0].Code)
}

func TestValidate_DanglingEdge(t *testing.T) {
	s := helloShellSchema()
	s.Edges = append(s.Edges, WorkflowEdge{ID: "e2", Source: "trigger1", Target: "ghost"})
	issues := Validate(s)
	require.True(t, HasErrors(issues))
	found := false
	for _, i := range issues {
		if i.Code == CodeDanglingEdge && i.EdgeID == "e2" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidate_DuplicateInput(t *testing.T) {
	s := helloShellSchema()
	s.Nodes = append(s.Nodes, WorkflowNode{ID: "trigger2", Type: "trigger", Data: NodeData{NodeType: "trigger"}})
	s.Edges = append(s.Edges, WorkflowEdge{
		ID: "e2", Source: "trigger2", Target: "shell1",
		SourceHandle: "output:timestamp", TargetHandle: "input:timestamp",
	})
	issues := Validate(s)
	require.True(t, HasErrors(issues))
	assert.Equal(t, CodeDuplicateInput, issues[len(issues)-1].Code)
}

func TestValidate_NoTerminalNode(t *testing.T) {
	s := helloShellSchema()
	s.Edges = append(s.Edges, WorkflowEdge{ID: "e2", Source: "shell1", Target: "trigger1"})
	issues := Validate(s)
	require.True(t, HasErrors(issues))
}

func TestParseSerializeRoundTrip(t *testing.T) {
	s := helloShellSchema()

	yamlBytes, err := Serialize(s, FormatYAML)
	require.NoError(t, err)
	back, err := Parse(yamlBytes, FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, s.Metadata.Name, back.Metadata.Name)
	assert.Len(t, back.Nodes, len(s.Nodes))
	assert.Len(t, back.Edges, len(s.Edges))

	jsonBytes, err := Serialize(s, FormatJSON)
	require.NoError(t, err)
	back2, err := Parse(jsonBytes, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, s.Nodes[1].Data.Script, back2.Nodes[1].Data.Script)
}

func TestParseInvalidYAMLIsStructuralError(t *testing.T) {
	_, err := Parse([]byte("nodes: [this is not: valid"), FormatYAML)
	require.Error(t, err)
	var structErr *StructuralError
	assert.ErrorAs(t, err, &structErr)
}

func TestParseExtract(t *testing.T) {
	assert.Equal(t, Extract{Kind: ExtractFull}, ParseExtract(""))
	assert.Equal(t, Extract{Kind: ExtractFull}, ParseExtract("full"))
	assert.Equal(t, Extract{Kind: ExtractRegex, Arg: "foo.*"}, ParseExtract("regex(foo.*)"))
	assert.Equal(t, Extract{Kind: ExtractJSONPath, Arg: "a.b.c"}, ParseExtract("json_path(a.b.c)"))
}

func TestParse_DefaultsLoopMaxIterationsWhenUnset(t *testing.T) {
	s := &WorkflowSchema{
		Version:  1,
		Metadata: Metadata{Name: "loopy"},
		Nodes: []WorkflowNode{
			{ID: "loop1", Type: "loop", Data: NodeData{NodeType: "loop"}},
		},
	}
	yamlBytes, err := Serialize(s, FormatYAML)
	require.NoError(t, err)

	back, err := Parse(yamlBytes, FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, DefaultLoopMaxIterations, back.Nodes[0].Data.MaxIterations)
}

func TestParse_PreservesExplicitLoopMaxIterations(t *testing.T) {
	s := &WorkflowSchema{
		Version:  1,
		Metadata: Metadata{Name: "loopy"},
		Nodes: []WorkflowNode{
			{ID: "loop1", Type: "loop", Data: NodeData{NodeType: "loop", MaxIterations: 3}},
		},
	}
	yamlBytes, err := Serialize(s, FormatYAML)
	require.NoError(t, err)

	back, err := Parse(yamlBytes, FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, 3, back.Nodes[0].Data.MaxIterations)
}

func TestApplyPatch_AddsNode(t *testing.T) {
	s := helloShellSchema()
	patch := []byte(`[{"op":"add","path":"/nodes/-","value":{"id":"shell2","type":"shell","data":{"nodeType":"shell","script":"echo hi"}}}]`)
	patched, err := ApplyPatch(s, patch)
	require.NoError(t, err)
	assert.Len(t, patched.Nodes, 3)
	assert.Len(t, s.Nodes, 2, "original schema must not be mutated")
}
