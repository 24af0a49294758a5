// Package trigger implements the Trigger Scheduler: a long-lived component
// that evaluates cron expressions and idle predicates against registered
// workflow trigger nodes and invokes the engine Scheduler when they fire.
//
// Built around a single polling ticker re-evaluating every registered
// entry each tick, generalized from a single timeout check to an
// arbitrary set of cron and idle entries. Cron expressions are evaluated
// with github.com/robfig/cron/v3.
package trigger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Kind is the trigger node's evaluation strategy.
type Kind string

const (
	KindCron Kind = "cron"
	KindIdle Kind = "idle"
)

// Logger is the narrow logging surface this package depends on.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}

// RunFunc is the Scheduler entry point the Trigger Scheduler invokes on
// fire, tagging the run's source for history. It must not block longer
// than the caller is willing to let one tick's firing take — long runs
// should be started and returned from quickly (e.g. by launching the
// actual Scheduler.Run in a goroutine) or the ticker will back up.
type RunFunc func(ctx context.Context, workspace, workflowPath string, source string) error

// Entry is one registered trigger node: a workflow's cron or idle trigger.
type Entry struct {
	Workspace    string
	WorkflowPath string
	NodeID       string
	Kind         Kind
	CronExpr     string // for KindCron
	IdleMinutes  int    // for KindIdle
}

func (e Entry) key() string {
	return e.Workspace + ":" + e.WorkflowPath + ":" + e.NodeID
}

// Scheduler evaluates registered Entries against a single ticker and
// invokes RunFunc when one fires. One workflow may have at most one
// concurrent top-level run in flight through this scheduler; a fire while
// a run for the same (workspace, workflowPath) is active is skipped.
type Scheduler struct {
	log      Logger
	state    StateStore
	run      RunFunc
	interval time.Duration

	schedules sync.Map // key -> cron.Schedule, for KindCron entries
	entries   sync.Map // key -> Entry

	mu      sync.Mutex
	active  map[string]bool // workspace:workflowPath -> run in flight
	stopCh  chan struct{}
	stopped chan struct{}
}

// New builds a Scheduler. interval is the ticker period (10s default);
// state tracks per-entry nextRun/lastRun bookkeeping (in-memory by
// default, optionally Redis-backed via RedisState for multi-process
// deployments).
func New(log Logger, state StateStore, run RunFunc, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Scheduler{
		log:      log,
		state:    state,
		run:      run,
		interval: interval,
		active:   make(map[string]bool),
	}
}

// Register adds or replaces a trigger entry. For KindCron entries the
// cron expression is parsed eagerly so a malformed schedule is reported at
// registration time rather than silently never firing.
func (s *Scheduler) Register(e Entry) error {
	if e.Kind == KindCron {
		schedule, err := cron.ParseStandard(e.CronExpr)
		if err != nil {
			return fmt.Errorf("trigger %s: invalid cron expression %q: %w", e.key(), e.CronExpr, err)
		}
		s.schedules.Store(e.key(), schedule)
	}
	s.entries.Store(e.key(), e)
	return nil
}

// Unregister removes a trigger entry, e.g. when its workflow is removed
// from the workspace.
func (s *Scheduler) Unregister(workspace, workflowPath, nodeID string) {
	key := Entry{Workspace: workspace, WorkflowPath: workflowPath, NodeID: nodeID}.key()
	s.entries.Delete(key)
	s.schedules.Delete(key)
}

// Start runs the evaluation ticker until ctx is cancelled. Blocks; run as
// a goroutine. Safe to call once per Scheduler.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.stopCh = make(chan struct{})
	s.stopped = make(chan struct{})
	s.mu.Unlock()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(s.stopped)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// Stop signals Start to return and waits for it to do so.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	stopCh := s.stopCh
	stopped := s.stopped
	s.mu.Unlock()
	if stopCh == nil {
		return
	}
	close(stopCh)
	if stopped != nil {
		<-stopped
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now()
	s.entries.Range(func(_, v any) bool {
		entry := v.(Entry)
		fire, reason := s.shouldFire(ctx, entry, now)
		if !fire {
			return true
		}
		s.fire(ctx, entry, reason, now)
		return true
	})
}

func (s *Scheduler) shouldFire(ctx context.Context, e Entry, now time.Time) (bool, string) {
	if s.isActive(e.Workspace, e.WorkflowPath) {
		return false, ""
	}

	switch e.Kind {
	case KindCron:
		sched, ok := s.schedules.Load(e.key())
		if !ok {
			return false, ""
		}
		next, ok := s.state.NextRun(ctx, e.key())
		if !ok {
			next = sched.(cron.Schedule).Next(now)
			s.state.SetNextRun(ctx, e.key(), next)
			return false, ""
		}
		if now.Before(next) {
			return false, ""
		}
		s.state.SetNextRun(ctx, e.key(), sched.(cron.Schedule).Next(now))
		return true, "cron"

	case KindIdle:
		last, ok := s.state.LastRun(ctx, e.Workspace, e.WorkflowPath)
		if !ok {
			// Never run: idle since registration, always eligible.
			return true, "idle"
		}
		threshold := time.Duration(e.IdleMinutes) * time.Minute
		if now.Sub(last) >= threshold {
			return true, "idle"
		}
		return false, ""
	}
	return false, ""
}

func (s *Scheduler) fire(ctx context.Context, e Entry, source string, now time.Time) {
	s.setActive(e.Workspace, e.WorkflowPath, true)
	s.log.Info("trigger fired", "workspace", e.Workspace, "workflow", e.WorkflowPath, "node", e.NodeID, "source", source)

	go func() {
		defer s.setActive(e.Workspace, e.WorkflowPath, false)
		defer s.state.SetLastRun(ctx, e.Workspace, e.WorkflowPath, time.Now())

		if err := s.run(ctx, e.Workspace, e.WorkflowPath, source); err != nil {
			s.log.Error("triggered run failed", "workspace", e.Workspace, "workflow", e.WorkflowPath, "error", err)
		}
	}()
}

func (s *Scheduler) isActive(workspace, workflowPath string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[workspace+":"+workflowPath]
}

func (s *Scheduler) setActive(workspace, workflowPath string, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v {
		s.active[workspace+":"+workflowPath] = true
	} else {
		delete(s.active, workspace+":"+workflowPath)
	}
}
