package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/lyzr/workflow-engine/engine/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamEvents_WritesNDJSONSeparatedByBlankLines(t *testing.T) {
	events := make(chan schema.Event, 2)
	events <- schema.NewNodeStart("n1")
	events <- schema.NewWorkflowComplete(true, "")
	close(events)

	var buf bytes.Buffer
	streamEvents(&buf, events)

	chunks := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n\n")
	require.Len(t, chunks, 2)

	var first schema.Event
	require.NoError(t, json.Unmarshal([]byte(chunks[0]), &first))
	assert.Equal(t, schema.EventNodeStart, first.Type)
	assert.Equal(t, "n1", first.NodeID)

	var second schema.Event
	require.NoError(t, json.Unmarshal([]byte(chunks[1]), &second))
	assert.Equal(t, schema.EventWorkflowComplete, second.Type)
	assert.True(t, second.Success)
}

func TestStreamEvents_EmptyChannelWritesNothing(t *testing.T) {
	events := make(chan schema.Event)
	close(events)

	var buf bytes.Buffer
	streamEvents(&buf, events)

	assert.Empty(t, buf.String())
}
