package cli

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/lyzr/workflow-engine/engine/schema"
	"github.com/lyzr/workflow-engine/engine/trigger"
	"github.com/lyzr/workflow-engine/internal/runtime"
	"github.com/lyzr/workflow-engine/internal/workspace"
)

// BuildTriggerScheduler scans every registered workspace for trigger nodes
// with a cron or idle kind and registers one entry per node, wiring fires
// back through rt.RunAndRecord so triggered runs are recorded exactly like
// manual ones, tagged with their firing source.
func BuildTriggerScheduler(env *Env, reg *workspace.Registry, rt *runtime.Runtime) *trigger.Scheduler {
	runFn := func(ctx context.Context, ws, workflowPath, source string) error {
		w, err := reg.Get(ws)
		if err != nil {
			return err
		}
		_, _, err = rt.RunAndRecord(ctx, ws, w.RootDirectory, workflowPath, nil, source, nil)
		return err
	}

	state := trigger.NewMemoryState()
	sched := trigger.New(env.Log, state, runFn, env.Config.Workflow.TriggerTickInterval)

	RegisterAllTriggerEntries(env, reg, sched)
	return sched
}

// RegisterAllTriggerEntries (re)populates sched with every trigger node
// discovered across all registered workspaces. Re-running it is safe:
// Scheduler.Register replaces an entry with the same key.
func RegisterAllTriggerEntries(env *Env, reg *workspace.Registry, sched *trigger.Scheduler) {
	workspaces, err := reg.List()
	if err != nil {
		env.Log.Error("failed to list workspaces for trigger registration", "error", err)
		return
	}

	for _, ws := range workspaces {
		_ = filepath.WalkDir(ws.RootDirectory, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || !isWorkflowFile(path) {
				return nil
			}
			relPath, relErr := filepath.Rel(ws.RootDirectory, path)
			if relErr != nil {
				relPath = path
			}

			wfSchema, loadErr := runtime.LoadWorkflow(path)
			if loadErr != nil {
				env.Log.Debug("skipping unparsable workflow during trigger scan", "path", path, "error", loadErr)
				return nil
			}

			for _, node := range wfSchema.Nodes {
				if node.Data.NodeType != "trigger" {
					continue
				}
				entry, ok := triggerEntryFor(ws.Name, relPath, node)
				if !ok {
					continue
				}
				if regErr := sched.Register(entry); regErr != nil {
					env.Log.Error("failed to register trigger entry", "workspace", ws.Name, "path", relPath, "node", node.ID, "error", regErr)
				}
			}
			return nil
		})
	}
}

func triggerEntryFor(workspaceName, workflowPath string, node schema.WorkflowNode) (trigger.Entry, bool) {
	switch node.Data.TriggerKind {
	case "cron":
		if node.Data.CronExpr == "" {
			return trigger.Entry{}, false
		}
		return trigger.Entry{
			Workspace:    workspaceName,
			WorkflowPath: workflowPath,
			NodeID:       node.ID,
			Kind:         trigger.KindCron,
			CronExpr:     node.Data.CronExpr,
		}, true
	case "idle":
		if node.Data.IdleMinutes <= 0 {
			return trigger.Entry{}, false
		}
		return trigger.Entry{
			Workspace:    workspaceName,
			WorkflowPath: workflowPath,
			NodeID:       node.ID,
			Kind:         trigger.KindIdle,
			IdleMinutes:  node.Data.IdleMinutes,
		}, true
	default:
		return trigger.Entry{}, false
	}
}

func isWorkflowFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml" || ext == ".json"
}

// WatchRegistry watches the workspace registry file for changes (new/
// removed workspaces) and re-scans trigger entries on each write, so a
// running server picks up the workflows of newly added workspaces without a
// restart. Workflow files added inside an already registered workspace are
// seen only at the next registry write, and the re-scan never unregisters
// entries, so those of a removed workspace stay registered. Returns a stop
// function.
func WatchRegistry(env *Env, reg *workspace.Registry, sched *trigger.Scheduler) func() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		env.Log.Error("failed to start workspace registry watcher", "error", err)
		return func() {}
	}
	if err := watcher.Add(filepath.Dir(reg.Path())); err != nil {
		env.Log.Error("failed to watch workflow home directory", "error", err)
		watcher.Close()
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name == reg.Path() && (event.Op&(fsnotify.Write|fsnotify.Create) != 0) {
					env.Log.Info("workspace registry changed, re-scanning trigger entries")
					RegisterAllTriggerEntries(env, reg, sched)
				}
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				env.Log.Error("workspace registry watcher error", "error", werr)
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}
}
