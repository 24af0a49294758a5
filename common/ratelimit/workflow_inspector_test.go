package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func node(nodeType string) map[string]interface{} {
	return map[string]interface{}{"type": nodeType}
}

func TestInspectWorkflow_NoAgentsIsSimpleTier(t *testing.T) {
	wf := map[string]interface{}{
		"nodes": []interface{}{node("shell"), node("function")},
	}
	profile := InspectWorkflow(wf)
	assert.Equal(t, TierSimple, profile.Tier)
	assert.False(t, profile.HasAgentNodes)
	assert.Equal(t, 0, profile.AgentCount)
	assert.Equal(t, 2, profile.TotalNodes)
}

func TestInspectWorkflow_OneOrTwoAgentsIsStandardTier(t *testing.T) {
	wf := map[string]interface{}{
		"nodes": []interface{}{node("agent"), node("shell")},
	}
	profile := InspectWorkflow(wf)
	assert.Equal(t, TierStandard, profile.Tier)
	assert.True(t, profile.HasAgentNodes)
	assert.Equal(t, 1, profile.AgentCount)
}

func TestInspectWorkflow_ThreeOrMoreAgentsIsHeavyTier(t *testing.T) {
	wf := map[string]interface{}{
		"nodes": []interface{}{node("agent"), node("agent"), node("agent")},
	}
	profile := InspectWorkflow(wf)
	assert.Equal(t, TierHeavy, profile.Tier)
	assert.Equal(t, 3, profile.AgentCount)
}

func TestInspectWorkflow_HandlesMapFormatNodes(t *testing.T) {
	wf := map[string]interface{}{
		"nodes": map[string]interface{}{
			"n1": node("agent"),
			"n2": node("agent"),
			"n3": node("agent"),
		},
	}
	profile := InspectWorkflow(wf)
	assert.Equal(t, TierHeavy, profile.Tier)
	assert.Equal(t, 3, profile.TotalNodes)
}

func TestInspectWorkflow_MissingNodesKeyIsSimpleTier(t *testing.T) {
	profile := InspectWorkflow(map[string]interface{}{})
	assert.Equal(t, TierSimple, profile.Tier)
	assert.Equal(t, 0, profile.TotalNodes)
}

func TestWorkflowTier_String(t *testing.T) {
	assert.Equal(t, "simple", TierSimple.String())
	assert.Equal(t, "standard", TierStandard.String())
	assert.Equal(t, "heavy", TierHeavy.String())
	assert.Equal(t, "unknown", WorkflowTier("bogus").String())
}
