// Package workspace manages the registered-workspaces list: a simple JSON
// file under <home>/ mapping workspace name to root directory, and the
// `init`/`add`/`remove`/`list` CLI workspace operations that maintain it.
package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Workspace is one registered root directory of workflow files.
type Workspace struct {
	Name          string `json:"name"`
	RootDirectory string `json:"rootDirectory"`
}

// Registry is the <home>/workspaces.json file.
type Registry struct {
	path string
}

// New opens the registry file under homeDir, creating its parent
// directory if needed (the file itself is created lazily on first Add).
func New(homeDir string) (*Registry, error) {
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		return nil, fmt.Errorf("create workflow home: %w", err)
	}
	return &Registry{path: filepath.Join(homeDir, "workspaces.json")}, nil
}

// Path returns the registry's backing file, so callers (e.g. the serve
// command's fsnotify watcher) can watch it for changes.
func (r *Registry) Path() string { return r.path }

// List returns all registered workspaces, sorted by name.
func (r *Registry) List() ([]Workspace, error) {
	all, err := r.read()
	if err != nil {
		return nil, err
	}
	out := make([]Workspace, 0, len(all))
	for _, w := range all {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Get returns the workspace named name, or an error if it isn't registered.
func (r *Registry) Get(name string) (Workspace, error) {
	all, err := r.read()
	if err != nil {
		return Workspace{}, err
	}
	w, ok := all[name]
	if !ok {
		return Workspace{}, fmt.Errorf("workspace %q is not registered", name)
	}
	return w, nil
}

// Add registers (or re-points) a workspace.
func (r *Registry) Add(name, rootDirectory string) error {
	abs, err := filepath.Abs(rootDirectory)
	if err != nil {
		return fmt.Errorf("resolve workspace path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("workspace directory %q: %w", abs, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("workspace path %q is not a directory", abs)
	}

	all, err := r.read()
	if err != nil {
		return err
	}
	all[name] = Workspace{Name: name, RootDirectory: abs}
	return r.write(all)
}

// Remove unregisters a workspace by name. Removing an unknown name is a
// no-op, matching the idempotent semantics of `workflow remove`.
func (r *Registry) Remove(name string) error {
	all, err := r.read()
	if err != nil {
		return err
	}
	delete(all, name)
	return r.write(all)
}

func (r *Registry) read() (map[string]Workspace, error) {
	raw, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return make(map[string]Workspace), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read workspace registry: %w", err)
	}
	out := make(map[string]Workspace)
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse workspace registry: %w", err)
	}
	return out, nil
}

func (r *Registry) write(all map[string]Workspace) error {
	raw, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal workspace registry: %w", err)
	}
	return os.WriteFile(r.path, raw, 0o644)
}
