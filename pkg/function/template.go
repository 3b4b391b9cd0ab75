package function

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
)

// ErrNoValue is returned when a template path traverses into a segment that
// does not exist on the current value. Template rendering fails closed: the
// caller receives this well-defined result instead of a crash, and parameter
// substitution degrades to the literal template text.
var ErrNoValue = errors.New("no value")

// templateRefPattern matches one {{ ... }} expression.
var templateRefPattern = regexp.MustCompile(`\{\{([^{}]*)\}\}`)

// IdentifierPattern matches a single valid path segment.
var IdentifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// TemplateRefs returns the trimmed inner expression of every {{ ... }}
// occurrence in a string, in order. The validator uses this to build the
// template-reference graph without evaluating anything.
func TemplateRefs(s string) []string {
	matches := templateRefPattern.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil
	}
	refs := make([]string, 0, len(matches))
	for _, match := range matches {
		refs = append(refs, strings.TrimSpace(match[1]))
	}
	return refs
}

// IsTemplate reports whether a string contains template syntax.
func IsTemplate(s string) bool {
	open := strings.Index(s, "{{")
	return open >= 0 && strings.Index(s[open:], "}}") > 0
}

// PureExpression returns the inner expression when the entire string is
// exactly one {{ expr }} with nothing else around it.
func PureExpression(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) < 4 || !strings.HasPrefix(trimmed, "{{") || !strings.HasSuffix(trimmed, "}}") {
		return "", false
	}
	inner := trimmed[2 : len(trimmed)-2]
	if strings.Contains(inner, "{{") || strings.Contains(inner, "}}") {
		return "", false
	}
	return strings.TrimSpace(inner), true
}

// Resolver resolves template expressions in step parameters against an
// execution context.
//
// Two evaluation modes apply. When an entire parameter value is exactly one
// {{ expr }}, the expression resolves by direct key traversal and yields the
// original typed value: a step output that is a list of records survives
// unmodified into the next step's parameters. Any other occurrence renders
// to a string and substitutes in place.
type Resolver struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewResolver creates a template resolver. A nil logger falls back to
// slog.Default().
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger, now: time.Now}
}

// ResolveParams resolves every value in a step's params map, recursing
// through nested maps and lists. Resolution is total: values that fail to
// resolve keep their literal template text and the failure is logged, so a
// single bad reference never aborts the whole procedure.
func (r *Resolver) ResolveParams(params map[string]any, fctx *Context) map[string]any {
	resolved := make(map[string]any, len(params))
	for key, value := range params {
		resolved[key] = r.Resolve(value, fctx)
	}
	return resolved
}

// Resolve resolves template expressions in a single value of the parameter
// union type (nil, bool, number, string, list, map).
func (r *Resolver) Resolve(value any, fctx *Context) any {
	switch v := value.(type) {
	case string:
		return r.ResolveString(v, fctx)
	case map[string]any:
		resolved := make(map[string]any, len(v))
		for k, val := range v {
			resolved[k] = r.Resolve(val, fctx)
		}
		return resolved
	case []any:
		resolved := make([]any, len(v))
		for i, val := range v {
			resolved[i] = r.Resolve(val, fctx)
		}
		return resolved
	default:
		return value
	}
}

// ResolveString resolves a single string parameter value. Pure expressions
// preserve the referenced value's type; mixed text interpolates each
// expression into the surrounding string.
func (r *Resolver) ResolveString(s string, fctx *Context) any {
	if !IsTemplate(s) {
		return s
	}

	if inner, ok := PureExpression(s); ok {
		value, err := r.Eval(inner, fctx)
		if err != nil {
			r.logger.Warn("template resolution failed, keeping literal text",
				"expression", inner,
				"error", err,
			)
			return s
		}
		return value
	}

	return templateRefPattern.ReplaceAllStringFunc(s, func(match string) string {
		inner := strings.TrimSpace(match[2 : len(match)-2])
		value, err := r.Eval(inner, fctx)
		if err != nil {
			r.logger.Warn("template interpolation failed, keeping literal text",
				"expression", inner,
				"error", err,
			)
			return match
		}
		return formatValue(value)
	})
}

// Eval evaluates one template expression: a dotted path rooted at params,
// steps, or variables, the foreach bindings item/item_index, or the
// zero-argument time helpers now() and today().
func (r *Resolver) Eval(expr string, fctx *Context) (any, error) {
	expr = strings.TrimSpace(expr)

	switch expr {
	case "now()":
		return r.now().UTC().Format(time.RFC3339), nil
	case "today()":
		return r.now().UTC().Format("2006-01-02"), nil
	}

	parts := strings.Split(expr, ".")
	for _, part := range parts {
		if !IdentifierPattern.MatchString(part) {
			return nil, fmt.Errorf("invalid template expression %q", expr)
		}
	}

	switch parts[0] {
	case "params":
		if len(parts) < 2 {
			return nil, fmt.Errorf("invalid template expression %q: params requires a name", expr)
		}
		value, ok := fctx.params[parts[1]]
		if !ok {
			return nil, fmt.Errorf("params.%s: %w", parts[1], ErrNoValue)
		}
		return traversePath(value, parts[2:], expr)

	case "steps":
		if len(parts) < 2 {
			return nil, fmt.Errorf("invalid template expression %q: steps requires a name", expr)
		}
		value, ok := fctx.variables[stepResultPrefix+parts[1]]
		if !ok {
			return nil, fmt.Errorf("steps.%s: %w", parts[1], ErrNoValue)
		}
		return traversePath(value, parts[2:], expr)

	case "variables":
		if len(parts) < 2 {
			return nil, fmt.Errorf("invalid template expression %q: variables requires a name", expr)
		}
		value, ok := fctx.variables[parts[1]]
		if !ok {
			return nil, fmt.Errorf("variables.%s: %w", parts[1], ErrNoValue)
		}
		return traversePath(value, parts[2:], expr)

	case ItemKey:
		value, ok := fctx.variables[ItemKey]
		if !ok {
			return nil, fmt.Errorf("item is only bound inside foreach branches: %w", ErrNoValue)
		}
		return traversePath(value, parts[1:], expr)

	case ItemIndexKey:
		if len(parts) > 1 {
			return nil, fmt.Errorf("invalid template expression %q: item_index has no fields", expr)
		}
		value, ok := fctx.variables[ItemIndexKey]
		if !ok {
			return nil, fmt.Errorf("item_index is only bound inside foreach branches: %w", ErrNoValue)
		}
		return value, nil

	default:
		return nil, fmt.Errorf("unknown template root %q in %q", parts[0], expr)
	}
}

// traversePath walks the remaining dotted segments into a value.
func traversePath(current any, parts []string, expr string) (any, error) {
	for _, part := range parts {
		m, ok := asTraversable(current)
		if !ok {
			return nil, fmt.Errorf("%s: segment %q on non-object value: %w", expr, part, ErrNoValue)
		}
		next, ok := m[part]
		if !ok {
			return nil, fmt.Errorf("%s: segment %q: %w", expr, part, ErrNoValue)
		}
		current = next
	}
	return current, nil
}

// asTraversable converts a value to a string-keyed map for path traversal.
// Step results and YAML-decoded maps both participate.
func asTraversable(value any) (map[string]any, bool) {
	switch v := value.(type) {
	case map[string]any:
		return v, true
	case map[any]any:
		converted := make(map[string]any, len(v))
		for k, val := range v {
			key, ok := k.(string)
			if !ok {
				continue
			}
			converted[key] = val
		}
		return converted, true
	case *Result:
		return v.ToMap(), true
	case Result:
		return v.ToMap(), true
	default:
		return nil, false
	}
}

// formatValue renders a resolved value into interpolated text.
func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Truthy reports whether a resolved value counts as true in conditions:
// nil, false, zero numbers, empty strings, and empty collections are false.
func Truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}
