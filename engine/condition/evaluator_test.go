package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_BooleanExpression(t *testing.T) {
	e := NewEvaluator()
	ok, err := e.EvaluateBool("inputs.x > 3 && inputs.y", map[string]any{"x": 5, "y": true})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluate_CachesCompiledProgram(t *testing.T) {
	e := NewEvaluator()
	_, err := e.Evaluate("inputs.x + 1", map[string]any{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, 1, e.CacheSize())

	_, err = e.Evaluate("inputs.x + 1", map[string]any{"x": 2})
	require.NoError(t, err)
	assert.Equal(t, 1, e.CacheSize())
}

func TestEvaluateBool_NonBooleanResultErrors(t *testing.T) {
	e := NewEvaluator()
	_, err := e.EvaluateBool("inputs.x + 1", map[string]any{"x": 1})
	require.Error(t, err)
}
