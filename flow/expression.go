package flow

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// exprCache compiles CEL expressions over the response map and caches the
// resulting programs keyed by source text. Safe for concurrent use.
type exprCache struct {
	env      *cel.Env
	mu       sync.RWMutex
	programs map[string]cel.Program
}

func newExprCache() (*exprCache, error) {
	env, err := cel.NewEnv(
		cel.Variable("responses", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &exprCache{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// compile returns the cached program for src, compiling on first use.
// The cost limit keeps a runaway authored expression from pinning a
// session's evaluation pass.
func (c *exprCache) compile(src string) (cel.Program, error) {
	c.mu.RLock()
	prog, ok := c.programs[src]
	c.mu.RUnlock()
	if ok {
		return prog, nil
	}

	ast, issues := c.env.Compile(src)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}

	prog, err := c.env.Program(ast, cel.CostLimit(1000000))
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}

	c.mu.Lock()
	c.programs[src] = prog
	c.mu.Unlock()

	return prog, nil
}

// evalBool evaluates src against responses; a non-boolean result is false.
func (c *exprCache) evalBool(src string, responses Responses) (bool, error) {
	out, err := c.eval(src, responses)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	return ok && b, nil
}

// eval evaluates src and returns the native Go value of the result.
func (c *exprCache) eval(src string, responses Responses) (any, error) {
	prog, err := c.compile(src)
	if err != nil {
		return nil, err
	}

	out, _, err := prog.Eval(map[string]any{
		"responses": map[string]any(responses),
	})
	if err != nil {
		return nil, err
	}
	return out.Value(), nil
}
