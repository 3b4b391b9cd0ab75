// Package builtin registers the functions that ship with the framework:
// the four flow-control functions and a small set of utility functions.
// Business functions (search, LLM, delivery) are registered by the host.
package builtin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/opsforge/playbook/internal/jq"
	"github.com/opsforge/playbook/pkg/function"
)

// Register adds the flow-control and utility functions to a registry.
// Registration is idempotent: re-registering overwrites with a warning.
func Register(r *function.Registry) error {
	if err := function.RegisterFlowFunctions(r); err != nil {
		return err
	}
	for _, fn := range []function.Function{
		newTransformFunction(),
		&setVariableFunction{},
		&waitFunction{},
		&logMessageFunction{},
	} {
		if err := r.RegisterFunction(fn); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry builds a registry pre-loaded with all builtin functions.
func NewRegistry(logger *slog.Logger) (*function.Registry, error) {
	r := function.NewRegistry(logger)
	if err := Register(r); err != nil {
		return nil, err
	}
	return r, nil
}

// transformFunction reshapes step data with a jq expression.
type transformFunction struct {
	runner *jq.Runner
}

func newTransformFunction() *transformFunction {
	return &transformFunction{runner: jq.NewRunner(0, 0)}
}

func (f *transformFunction) Meta() function.Meta {
	return function.Meta{
		Name:        "transform",
		Category:    function.CategoryUtility,
		Description: "Applies a jq expression to data and returns the reshaped result.",
		Parameters: []function.ParameterDoc{
			{
				Name:        "data",
				Type:        "any",
				Description: "Input value, usually a previous step's output",
				Required:    true,
				Example:     "{{ steps.search.data }}",
			},
			{
				Name:        "expression",
				Type:        "string",
				Description: "jq expression to evaluate against the input",
				Required:    true,
				Example:     "map(.title)",
			},
		},
		Returns: "The jq evaluation result; a multi-value query returns a list.",
		Tags:    []string{"transform"},
		Version: "1.0",
	}
}

func (f *transformFunction) Execute(ctx context.Context, _ *function.Context, params map[string]any) (*function.Result, error) {
	expression, _ := params["expression"].(string)
	output, err := f.runner.Run(ctx, expression, params["data"])
	if err != nil {
		return nil, err
	}
	return function.Success(output), nil
}

// setVariableFunction stores a named value on the execution context for
// later steps to reference as variables.<name>.
type setVariableFunction struct{}

func (f *setVariableFunction) Meta() function.Meta {
	return function.Meta{
		Name:        "set_variable",
		Category:    function.CategoryUtility,
		Description: "Stores a named value in the run context.",
		Parameters: []function.ParameterDoc{
			{Name: "name", Type: "string", Description: "Variable name", Required: true},
			{Name: "value", Type: "any", Description: "Value to store", Required: true},
		},
		Returns: "The stored value.",
		Version: "1.0",
	}
}

func (f *setVariableFunction) Execute(_ context.Context, fctx *function.Context, params map[string]any) (*function.Result, error) {
	name, ok := params["name"].(string)
	if !ok || name == "" {
		return nil, fmt.Errorf("parameter \"name\" must be a non-empty string")
	}
	fctx.SetVariable(name, params["value"])
	return &function.Result{
		Status:  function.StatusSuccess,
		Data:    params["value"],
		Message: fmt.Sprintf("set variable %q", name),
	}, nil
}

// waitFunction pauses the procedure for a fixed number of seconds.
type waitFunction struct{}

func (f *waitFunction) Meta() function.Meta {
	return function.Meta{
		Name:        "wait",
		Category:    function.CategoryUtility,
		Description: "Pauses for the given number of seconds.",
		Parameters: []function.ParameterDoc{
			{Name: "seconds", Type: "number", Description: "Seconds to wait", Required: true, Example: "5"},
		},
		Returns: "A message stating how long the step waited.",
		IsAsync: true,
		Version: "1.0",
	}
}

func (f *waitFunction) Execute(ctx context.Context, fctx *function.Context, params map[string]any) (*function.Result, error) {
	seconds, err := floatParam(params, "seconds")
	if err != nil {
		return nil, err
	}
	if seconds < 0 {
		return nil, fmt.Errorf("seconds must be non-negative, got %v", seconds)
	}

	if fctx.DryRun {
		return function.Skipped("dry run: would wait %.1fs", seconds), nil
	}

	select {
	case <-time.After(time.Duration(seconds * float64(time.Second))):
		return function.Successf("waited %.1fs", seconds), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// logMessageFunction emits a message into the run log.
type logMessageFunction struct{}

func (f *logMessageFunction) Meta() function.Meta {
	return function.Meta{
		Name:        "log_message",
		Category:    function.CategoryUtility,
		Description: "Writes a message to the run log.",
		Parameters: []function.ParameterDoc{
			{Name: "message", Type: "string", Description: "Message text", Required: true},
			{
				Name:        "level",
				Type:        "string",
				Description: "Log level",
				Required:    false,
				Default:     "info",
				EnumValues:  []string{"debug", "info", "warn"},
			},
		},
		Returns: "The logged message.",
		Version: "1.0",
	}
}

func (f *logMessageFunction) Execute(ctx context.Context, fctx *function.Context, params map[string]any) (*function.Result, error) {
	message := fmt.Sprintf("%v", params["message"])
	level, _ := params["level"].(string)

	switch level {
	case "debug":
		fctx.Logger.Debug(message)
	case "warn":
		fctx.Logger.Warn(message)
	default:
		fctx.Logger.Info(message)
	}
	fctx.LogRunEvent(ctx, "log_message", map[string]any{"message": message, "level": level})

	return &function.Result{Status: function.StatusSuccess, Message: message}, nil
}

func floatParam(params map[string]any, name string) (float64, error) {
	switch v := params[name].(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return 0, fmt.Errorf("parameter %q must be a number, got %T", name, params[name])
	}
}
