package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStore_SaveAndGet(t *testing.T) {
	store, err := NewFSStore(t.TempDir(), 10)
	require.NoError(t, err)

	record := &RunRecord{
		ID:           "run-1",
		Workspace:    "ws",
		WorkflowPath: "flow.yaml",
		StartedAt:    time.Now(),
		CompletedAt:  time.Now(),
		Status:       StatusCompleted,
		NodeCount:    2,
	}
	require.NoError(t, store.Save(context.Background(), record))

	got, err := store.Get(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.ID)
	assert.Equal(t, StatusCompleted, got.Status)
}

func TestFSStore_ListIsCappedAndMostRecentFirst(t *testing.T) {
	store, err := NewFSStore(t.TempDir(), 2)
	require.NoError(t, err)

	ctx := context.Background()
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		record := &RunRecord{
			ID:           id,
			Workspace:    "ws",
			WorkflowPath: "flow.yaml",
			StartedAt:    time.Now().Add(time.Duration(i) * time.Minute),
			Status:       StatusCompleted,
		}
		require.NoError(t, store.Save(ctx, record))
	}

	summaries, err := store.List(ctx, "ws", "flow.yaml")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "run-c", summaries[0].ID)
	assert.Equal(t, "run-b", summaries[1].ID)
}

func TestFSStore_ListUnknownKeyReturnsEmpty(t *testing.T) {
	store, err := NewFSStore(t.TempDir(), 10)
	require.NoError(t, err)

	summaries, err := store.List(context.Background(), "ws", "missing.yaml")
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestFSStore_GetUnknownRunErrors(t *testing.T) {
	store, err := NewFSStore(t.TempDir(), 10)
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "nope")
	assert.Error(t, err)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, StatusCancelled, StatusFor(true, true))
	assert.Equal(t, StatusCompleted, StatusFor(true, false))
	assert.Equal(t, StatusFailed, StatusFor(false, false))
}

func TestIndexKey(t *testing.T) {
	assert.Equal(t, "ws:flow.yaml", IndexKey("ws", "flow.yaml"))
}
