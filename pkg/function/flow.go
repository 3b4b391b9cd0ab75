package function

import (
	"context"
	"fmt"
)

// Names of the flow-control functions. They do not perform work themselves;
// each returns a Result whose Flow directive tells the external executor
// which embedded branch step-lists to run and under what concurrency.
const (
	FuncIfBranch     = "if_branch"
	FuncSwitchBranch = "switch_branch"
	FuncParallel     = "parallel"
	FuncForeach      = "foreach"
)

// Branch names with framework meaning.
const (
	BranchThen    = "then"
	BranchElse    = "else"
	BranchDefault = "default"
	BranchEach    = "each"
)

// IsFlowFunction reports whether a function name is one of the flow-control
// functions.
func IsFlowFunction(name string) bool {
	switch name {
	case FuncIfBranch, FuncSwitchBranch, FuncParallel, FuncForeach:
		return true
	}
	return false
}

// RegisterFlowFunctions registers the four flow-control functions.
func RegisterFlowFunctions(r *Registry) error {
	for _, fn := range []Function{
		&ifBranchFunction{},
		&switchBranchFunction{},
		&parallelFunction{},
		&foreachFunction{},
	} {
		if err := r.RegisterFunction(fn); err != nil {
			return err
		}
	}
	return nil
}

// ifBranchFunction selects the then or else branch from an already-evaluated
// condition value.
type ifBranchFunction struct{}

func (f *ifBranchFunction) Meta() Meta {
	return Meta{
		Name:        FuncIfBranch,
		Category:    CategoryFlow,
		Description: "Runs the then branch when the condition is truthy, the else branch otherwise.",
		Parameters: []ParameterDoc{
			{
				Name:        "condition",
				Type:        "any",
				Description: "Condition value; evaluated for truthiness",
				Required:    true,
				Example:     "{{ steps.search.data }}",
			},
		},
		Returns:  "Flow directive selecting branch_key then or else.",
		Examples: []string{`{"function": "if_branch", "params": {"condition": "{{ steps.search.data }}"}, "branches": {"then": [...], "else": [...]}}`},
		Tags:     []string{"branching"},
		Version:  "1.0",
	}
}

func (f *ifBranchFunction) Execute(_ context.Context, _ *Context, params map[string]any) (*Result, error) {
	branch := BranchElse
	if Truthy(params["condition"]) {
		branch = BranchThen
	}
	// An absent else branch with a false condition is a valid terminal
	// outcome for the executor, not an error.
	return &Result{
		Status:  StatusSuccess,
		Message: fmt.Sprintf("selected branch %q", branch),
		Flow:    &FlowDirective{BranchKey: branch},
	}, nil
}

// switchBranchFunction selects the case branch matching the stringified
// value. Matching is exact and case-sensitive; the executor falls back to a
// default branch when no case matches.
type switchBranchFunction struct{}

func (f *switchBranchFunction) Meta() Meta {
	return Meta{
		Name:        FuncSwitchBranch,
		Category:    CategoryFlow,
		Description: "Runs the branch whose name exactly matches the string form of the value.",
		Parameters: []ParameterDoc{
			{
				Name:        "value",
				Type:        "any",
				Description: "Value to match against branch names; coerced to its string form",
				Required:    true,
				Example:     "{{ params.document_type }}",
			},
		},
		Returns: "Flow directive with branch_key set to the string form of the value.",
		Tags:    []string{"branching"},
		Version: "1.0",
	}
}

func (f *switchBranchFunction) Execute(_ context.Context, _ *Context, params map[string]any) (*Result, error) {
	key := stringify(params["value"])
	return &Result{
		Status:  StatusSuccess,
		Message: fmt.Sprintf("selected branch %q", key),
		Flow:    &FlowDirective{BranchKey: key},
	}, nil
}

// parallelFunction declares intent to run all named branches concurrently.
// Branches are independent and must not depend on each other's results.
type parallelFunction struct{}

func (f *parallelFunction) Meta() Meta {
	return Meta{
		Name:        FuncParallel,
		Category:    CategoryFlow,
		Description: "Runs two or more named branches concurrently, optionally bounded by max_concurrency.",
		Parameters: []ParameterDoc{
			{
				Name:        "max_concurrency",
				Type:        "number",
				Description: "Upper bound on branches running at once; 0 runs all branches",
				Required:    false,
				Default:     0,
			},
		},
		Returns: "Flow directive with the max_concurrency hint; the executor dispatches every branch.",
		Tags:    []string{"concurrency"},
		Version: "1.0",
	}
}

func (f *parallelFunction) Execute(_ context.Context, _ *Context, params map[string]any) (*Result, error) {
	bound, err := intParam(params, "max_concurrency", 0)
	if err != nil {
		return nil, err
	}
	if bound < 0 {
		return nil, fmt.Errorf("max_concurrency must be non-negative, got %d", bound)
	}
	return &Result{
		Status:  StatusSuccess,
		Message: "dispatching all branches",
		Flow:    &FlowDirective{MaxConcurrency: bound},
	}, nil
}

// foreachFunction normalizes its items parameter into the sequence the
// executor iterates over the each branch.
type foreachFunction struct{}

func (f *foreachFunction) Meta() Meta {
	return Meta{
		Name:        FuncForeach,
		Category:    CategoryFlow,
		Description: "Runs the each branch once per item, with item and item_index bound in the child context.",
		Parameters: []ParameterDoc{
			{
				Name:        "items",
				Type:        "any",
				Description: "Sequence to iterate; a scalar becomes a one-element sequence, null an empty one",
				// Not marked required: a template resolving to null at run
				// time must yield zero iterations, not a parameter error.
				Required: false,
				Example:  "{{ steps.search.data }}",
			},
			{
				Name:        "concurrency",
				Type:        "number",
				Description: "0 unlimited, 1 strictly sequential, N bounded worker pool",
				Required:    false,
				Default:     1,
			},
			{
				Name:        "condition",
				Type:        "string",
				Description: "Per-item predicate the executor evaluates with item and item_index bound",
				Required:    false,
				Example:     "{{ item.score }} > 0.5",
			},
		},
		Returns: "Flow directive carrying the normalized, unfiltered sequence and concurrency.",
		Tags:    []string{"iteration", "concurrency"},
		Version: "1.0",
	}
}

func (f *foreachFunction) Execute(_ context.Context, _ *Context, params map[string]any) (*Result, error) {
	items := NormalizeItems(params["items"])

	concurrency, err := intParam(params, "concurrency", 1)
	if err != nil {
		return nil, err
	}
	if concurrency < 0 {
		return nil, fmt.Errorf("concurrency must be non-negative, got %d", concurrency)
	}

	// The per-item condition is echoed, not evaluated: evaluating it needs
	// item bound, which only exists once the executor iterates.
	condition, _ := params["condition"].(string)

	return &Result{
		Status:         StatusSuccess,
		Message:        fmt.Sprintf("%d items to iterate", len(items)),
		ItemsProcessed: len(items),
		Flow: &FlowDirective{
			Items:            items,
			Concurrency:      concurrency,
			HasItemCondition: condition != "",
		},
	}, nil
}

// NormalizeItems coerces a foreach items value into a sequence: nil becomes
// an empty sequence and a scalar becomes a one-element sequence.
func NormalizeItems(value any) []any {
	switch v := value.(type) {
	case nil:
		return []any{}
	case []any:
		return v
	case []string:
		items := make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
		return items
	case []map[string]any:
		items := make([]any, len(v))
		for i, m := range v {
			items[i] = m
		}
		return items
	default:
		return []any{value}
	}
}

// stringify renders a switch value for exact, case-sensitive matching.
func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		// YAML/JSON integers decode as float64; render whole numbers without
		// a fraction so branch names like "3" match.
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// intParam reads a numeric parameter, tolerating the numeric types YAML and
// JSON decoding produce.
func intParam(params map[string]any, name string, defaultVal int) (int, error) {
	value, ok := params[name]
	if !ok || value == nil {
		return defaultVal, nil
	}
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("parameter %q must be a number, got %T", name, value)
	}
}
