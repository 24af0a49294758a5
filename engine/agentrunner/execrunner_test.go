package agentrunner

import (
	"context"
	"testing"

	"github.com/lyzr/workflow-engine/engine/nodeexec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_UsesCatAsEchoingBinary(t *testing.T) {
	r := NewRunner("cat", nil)
	result, err := r.Run(context.Background(), nodeexec.AgentRunConfig{Prompt: "hello agent"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "hello agent", result.Output)
}

func TestRunner_MissingBinaryErrors(t *testing.T) {
	r := NewRunner("", nil)
	_, err := r.Run(context.Background(), nodeexec.AgentRunConfig{Prompt: "hi"})
	require.Error(t, err)
}

func TestRunner_RejectsPathTraversalPromptFile(t *testing.T) {
	r := NewRunner("cat", nil)
	_, err := r.Run(context.Background(), nodeexec.AgentRunConfig{PromptFiles: []string{"../../etc/passwd"}})
	require.Error(t, err)
}

func TestPathGuard_AllowsOrdinaryRelativePath(t *testing.T) {
	g := newPathGuard()
	assert.NoError(t, g.Validate("docs/prompt.md"))
}
