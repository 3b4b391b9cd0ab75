package function

import (
	"fmt"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ConditionEvaluator evaluates step condition expressions against an
// execution context. Compiled programs are cached for repeated evaluation.
//
// A condition that is exactly one template expression resolves through the
// template resolver and its value is tested for truthiness. Any other
// condition first has embedded {{ ... }} references rendered in place, then
// the remaining text compiles as a boolean expression.
type ConditionEvaluator struct {
	resolver *Resolver
	cache    map[string]*vm.Program
	mu       sync.RWMutex
}

// NewConditionEvaluator creates a condition evaluator backed by the given
// template resolver.
func NewConditionEvaluator(resolver *Resolver) *ConditionEvaluator {
	if resolver == nil {
		resolver = NewResolver(nil)
	}
	return &ConditionEvaluator{
		resolver: resolver,
		cache:    make(map[string]*vm.Program),
	}
}

// Evaluate resolves and evaluates a condition. An empty condition is true.
func (e *ConditionEvaluator) Evaluate(condition string, fctx *Context) (bool, error) {
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return true, nil
	}

	if inner, ok := PureExpression(condition); ok {
		value, err := e.resolver.Eval(inner, fctx)
		if err != nil {
			return false, fmt.Errorf("condition %q: %w", condition, err)
		}
		return Truthy(value), nil
	}

	rendered := condition
	if IsTemplate(condition) {
		resolved := e.resolver.ResolveString(condition, fctx)
		str, ok := resolved.(string)
		if !ok {
			return Truthy(resolved), nil
		}
		rendered = str
	}

	program, err := e.compile(rendered)
	if err != nil {
		return false, fmt.Errorf("failed to compile condition %q: %w", rendered, err)
	}

	result, err := expr.Run(program, e.environment(fctx))
	if err != nil {
		return false, fmt.Errorf("condition %q evaluation failed: %w", rendered, err)
	}

	boolResult, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q must return boolean, got %T", rendered, result)
	}
	return boolResult, nil
}

// environment builds the expr evaluation environment from the context.
// Step results appear under steps.<name> as maps so field access works.
func (e *ConditionEvaluator) environment(fctx *Context) map[string]any {
	steps := make(map[string]any)
	variables := make(map[string]any)
	for key, value := range fctx.variables {
		if name, ok := strings.CutPrefix(key, stepResultPrefix); ok {
			if m, converted := asTraversable(value); converted {
				steps[name] = m
			} else {
				steps[name] = value
			}
			continue
		}
		variables[key] = value
	}

	env := map[string]any{
		"params":    fctx.params,
		"steps":     steps,
		"variables": variables,
		"has":       containsFunc,
		"includes":  containsFunc,
		"length":    lenFunc,
	}
	if item, ok := fctx.variables[ItemKey]; ok {
		env[ItemKey] = item
	}
	if index, ok := fctx.variables[ItemIndexKey]; ok {
		env[ItemIndexKey] = index
	}
	return env
}

// compile compiles an expression and caches the program.
func (e *ConditionEvaluator) compile(expression string) (*vm.Program, error) {
	e.mu.RLock()
	if prog, ok := e.cache[expression]; ok {
		e.mu.RUnlock()
		return prog, nil
	}
	e.mu.RUnlock()

	prog, err := expr.Compile(expression,
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[expression] = prog
	e.mu.Unlock()
	return prog, nil
}

// CacheSize returns the number of cached compiled conditions.
func (e *ConditionEvaluator) CacheSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}

// containsFunc reports whether a collection contains a value.
// "contains" is reserved in expr for string operations, so conditions use
// has() or includes().
func containsFunc(collection any, value any) bool {
	switch c := collection.(type) {
	case []any:
		for _, item := range c {
			if fmt.Sprintf("%v", item) == fmt.Sprintf("%v", value) {
				return true
			}
		}
	case []string:
		for _, item := range c {
			if item == fmt.Sprintf("%v", value) {
				return true
			}
		}
	case map[string]any:
		key, ok := value.(string)
		if !ok {
			return false
		}
		_, found := c[key]
		return found
	case string:
		return strings.Contains(c, fmt.Sprintf("%v", value))
	}
	return false
}

// lenFunc returns the length of a collection or string.
func lenFunc(value any) int {
	switch v := value.(type) {
	case []any:
		return len(v)
	case []string:
		return len(v)
	case map[string]any:
		return len(v)
	case string:
		return len(v)
	}
	return 0
}
