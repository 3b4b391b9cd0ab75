package function

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"
)

// Invoke runs a registered function through the invocation envelope.
//
// The envelope is the single place duration, error-shape, and parameter
// guarantees are enforced, independent of what any individual function does
// internally:
//
//  1. params are validated against the declared metadata and defaults are
//     applied for omitted optional parameters;
//  2. wall-clock start time is recorded;
//  3. the implementation runs; any returned error or panic is converted to
//     a failed Result rather than propagating;
//  4. duration_ms is stamped on the result before it is handed back.
//
// Callers therefore always receive a well-formed Result, never a raw error.
func (r *Registry) Invoke(ctx context.Context, fctx *Context, name string, params map[string]any) *Result {
	start := time.Now()

	fn, err := r.Get(name)
	if err != nil {
		return finishResult(Failed("%s", err.Error()), name, start)
	}
	meta := fn.Meta()

	resolved, err := prepareParams(&meta, params)
	if err != nil {
		return finishResult(Failed("%s", err.Error()), name, start)
	}

	result, err := safeExecute(ctx, fn, fctx, resolved)
	switch {
	case err != nil:
		result = Failed("%s", err.Error())
	case result == nil:
		result = Failed("function %s returned no result", name)
	case result.Status == StatusFailed && result.Error == "":
		// failed implies error is set
		result.Error = result.Message
		if result.Error == "" {
			result.Error = fmt.Sprintf("function %s failed", name)
		}
	}

	if fctx != nil && fctx.Logger != nil {
		fctx.Logger.Debug("function invoked",
			"function", name,
			"status", string(result.Status),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}

	return finishResult(result, name, start)
}

// finishResult stamps duration and records invocation metrics.
func finishResult(result *Result, name string, start time.Time) *Result {
	elapsed := time.Since(start)
	result.DurationMs = elapsed.Milliseconds()
	observeInvocation(name, result.Status, elapsed)
	return result
}

// safeExecute runs the implementation and converts panics into errors.
func safeExecute(ctx context.Context, fn Function, fctx *Context, params map[string]any) (result *Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = fmt.Errorf("function panicked: %v\n%s", rec, debug.Stack())
		}
	}()
	return fn.Execute(ctx, fctx, params)
}

// prepareParams validates the supplied params against the declared metadata
// and returns a copy with defaults applied for omitted optional parameters.
//
// A required parameter whose supplied value is an unresolved template string
// is accepted: resolution is deferred to the executor at run time. A required
// parameter that is absent or nil is a parameter error.
func prepareParams(meta *Meta, params map[string]any) (map[string]any, error) {
	resolved := make(map[string]any, len(params)+len(meta.Parameters))
	for k, v := range params {
		resolved[k] = v
	}

	for _, doc := range meta.Parameters {
		value, present := resolved[doc.Name]

		if !present || value == nil {
			if doc.Required {
				return nil, fmt.Errorf("function %s: missing required parameter %q", meta.Name, doc.Name)
			}
			if doc.Default != nil {
				resolved[doc.Name] = doc.Default
			}
			continue
		}

		if str, ok := value.(string); ok {
			if IsTemplate(str) {
				// unresolved template, resolution deferred to the executor
				continue
			}
			if len(doc.EnumValues) > 0 && !containsString(doc.EnumValues, str) {
				return nil, fmt.Errorf("function %s: parameter %q must be one of %v, got %q",
					meta.Name, doc.Name, doc.EnumValues, str)
			}
		}
	}

	return resolved, nil
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
