package trigger

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLogger struct{}

func (fakeLogger) Info(msg string, args ...any)  {}
func (fakeLogger) Error(msg string, args ...any) {}
func (fakeLogger) Debug(msg string, args ...any) {}

func TestScheduler_RegisterRejectsInvalidCron(t *testing.T) {
	s := New(fakeLogger{}, NewMemoryState(), func(ctx context.Context, ws, path, source string) error { return nil }, time.Second)
	err := s.Register(Entry{Workspace: "ws", WorkflowPath: "flow.yaml", NodeID: "n1", Kind: KindCron, CronExpr: "not a cron"})
	assert.Error(t, err)
}

func TestScheduler_IdleTriggerFiresWhenNeverRun(t *testing.T) {
	var fired atomic.Int32
	done := make(chan struct{})
	runFn := func(ctx context.Context, ws, path, source string) error {
		fired.Add(1)
		assert.Equal(t, "idle", source)
		close(done)
		return nil
	}

	s := New(fakeLogger{}, NewMemoryState(), runFn, 10*time.Millisecond)
	require.NoError(t, s.Register(Entry{Workspace: "ws", WorkflowPath: "flow.yaml", NodeID: "n1", Kind: KindIdle, IdleMinutes: 1}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx)
	defer s.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("idle trigger never fired")
	}
	assert.Equal(t, int32(1), fired.Load())
}

func TestScheduler_SkipsConcurrentFireForSameWorkflow(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	var once sync.Once

	runFn := func(ctx context.Context, ws, path, source string) error {
		calls.Add(1)
		once.Do(func() { <-release })
		return nil
	}

	s := New(fakeLogger{}, NewMemoryState(), runFn, 5*time.Millisecond)
	require.NoError(t, s.Register(Entry{Workspace: "ws", WorkflowPath: "flow.yaml", NodeID: "n1", Kind: KindIdle, IdleMinutes: 1}))

	ctx, cancel := context.WithCancel(context.Background())
	go s.Start(ctx)

	time.Sleep(50 * time.Millisecond)
	close(release)
	cancel()
	s.Stop()

	assert.Equal(t, int32(1), calls.Load())
}

func TestScheduler_UnregisterStopsFurtherFires(t *testing.T) {
	var fired atomic.Int32
	runFn := func(ctx context.Context, ws, path, source string) error {
		fired.Add(1)
		return nil
	}

	s := New(fakeLogger{}, NewMemoryState(), runFn, 5*time.Millisecond)
	require.NoError(t, s.Register(Entry{Workspace: "ws", WorkflowPath: "flow.yaml", NodeID: "n1", Kind: KindIdle, IdleMinutes: 1}))
	s.Unregister("ws", "flow.yaml", "n1")

	ctx, cancel := context.WithCancel(context.Background())
	go s.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	cancel()
	s.Stop()

	assert.Equal(t, int32(0), fired.Load())
}

func TestMemoryState_RoundTrips(t *testing.T) {
	st := NewMemoryState()
	ctx := context.Background()

	_, ok := st.NextRun(ctx, "k1")
	assert.False(t, ok)

	now := time.Now()
	st.SetNextRun(ctx, "k1", now)
	got, ok := st.NextRun(ctx, "k1")
	require.True(t, ok)
	assert.True(t, got.Equal(now))

	_, ok = st.LastRun(ctx, "ws", "flow.yaml")
	assert.False(t, ok)

	st.SetLastRun(ctx, "ws", "flow.yaml", now)
	got, ok = st.LastRun(ctx, "ws", "flow.yaml")
	require.True(t, ok)
	assert.True(t, got.Equal(now))
}
