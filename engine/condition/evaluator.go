// Package condition wraps google/cel-go as a cached expression evaluator,
// used by the `function` node executor's inline-`code` expression mode
// (loop continuation is a plain boolean dock port, not a CEL expression).
package condition

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// Evaluator compiles and caches CEL programs keyed by expression text.
type Evaluator struct {
	cache map[string]cel.Program
	mu    sync.RWMutex
}

// NewEvaluator creates a new expression evaluator with an empty cache.
func NewEvaluator() *Evaluator {
	return &Evaluator{cache: make(map[string]cel.Program)}
}

// Evaluate compiles (or reuses a cached compilation of) expr and runs it
// against inputs, exposed to the expression as the variable `inputs`.
func (e *Evaluator) Evaluate(expr string, inputs map[string]any) (any, error) {
	prg, err := e.program(expr)
	if err != nil {
		return nil, err
	}

	out, _, err := prg.Eval(map[string]any{"inputs": inputs})
	if err != nil {
		return nil, fmt.Errorf("CEL evaluation error: %w", err)
	}
	return out.Value(), nil
}

// EvaluateBool is Evaluate constrained to a boolean result, used wherever a
// condition (rather than a general expression) is required.
func (e *Evaluator) EvaluateBool(expr string, inputs map[string]any) (bool, error) {
	v, err := e.Evaluate(expr, inputs)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return boolean, got %T", v)
	}
	return b, nil
}

func (e *Evaluator) program(expr string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.cache[expr]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	prg, err := e.compile(expr)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[expr] = prg
	e.mu.Unlock()
	return prg, nil
}

func (e *Evaluator) compile(expr string) (cel.Program, error) {
	env, err := cel.NewEnv(cel.Variable("inputs", cel.DynType))
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compilation error: %w", issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}
	return prg, nil
}

// ClearCache empties the compiled-expression cache.
func (e *Evaluator) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = make(map[string]cel.Program)
}

// CacheSize returns the number of cached expressions.
func (e *Evaluator) CacheSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}
