// Package function defines the contract every pluggable procedure function
// implements: declared metadata, validated parameters, a timed invocation
// envelope, and a structured result. It also provides the registry that
// catalogs implementations by name and the execution context that carries
// run identity, accumulated step results, and template resolution.
package function

import (
	"context"
	"fmt"
)

// Status is the outcome classification of a single function invocation.
type Status string

const (
	// StatusSuccess indicates the function completed its work.
	StatusSuccess Status = "success"

	// StatusFailed indicates the function could not complete; Error is set.
	StatusFailed Status = "failed"

	// StatusPartial indicates some items succeeded and some failed.
	// ItemsProcessed and ItemsFailed are both non-zero.
	StatusPartial Status = "partial"

	// StatusSkipped indicates the function did not run (condition false,
	// dry run, or executor policy).
	StatusSkipped Status = "skipped"
)

// Category groups functions for discovery and documentation.
type Category string

const (
	CategorySearch   Category = "search"
	CategoryLLM      Category = "llm"
	CategoryOutput   Category = "output"
	CategoryNotify   Category = "notify"
	CategoryCompound Category = "compound"
	CategoryFlow     Category = "flow"
	CategoryLogic    Category = "logic"
	CategoryUtility  Category = "utility"
)

// ValidCategories for validation of registered metadata.
var ValidCategories = map[Category]bool{
	CategorySearch:   true,
	CategoryLLM:      true,
	CategoryOutput:   true,
	CategoryNotify:   true,
	CategoryCompound: true,
	CategoryFlow:     true,
	CategoryLogic:    true,
	CategoryUtility:  true,
}

// ParameterDoc describes one declared parameter of a function.
// It drives both runtime parameter validation and the generated catalog.
type ParameterDoc struct {
	// Name is the parameter identifier within the step's params map
	Name string `json:"name" yaml:"name"`

	// Type is the expected data type (string, number, boolean, object, array, any)
	Type string `json:"type" yaml:"type"`

	// Description explains what this parameter is for
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Required indicates the parameter must be supplied by the step
	Required bool `json:"required" yaml:"required"`

	// Default is applied when an optional parameter is omitted
	Default any `json:"default,omitempty" yaml:"default,omitempty"`

	// EnumValues restricts string parameters to a fixed set of values
	EnumValues []string `json:"enum_values,omitempty" yaml:"enum_values,omitempty"`

	// Example is a representative value for documentation
	Example string `json:"example,omitempty" yaml:"example,omitempty"`
}

// Meta is the static, author-supplied description of a function.
// It is immutable once the function is registered and is consumed both by
// the validator (existence and required-parameter checks) and by
// documentation/codegen tooling through the catalog API.
type Meta struct {
	// Name is the unique registry key (e.g. "search_documents")
	Name string `json:"name" yaml:"name"`

	// Category classifies the function for discovery
	Category Category `json:"category" yaml:"category"`

	// Description is a human/AI-facing summary of what the function does
	Description string `json:"description" yaml:"description"`

	// Parameters declares the accepted parameters in documentation order
	Parameters []ParameterDoc `json:"parameters,omitempty" yaml:"parameters,omitempty"`

	// Returns describes the shape of the result data (free text contract)
	Returns string `json:"returns,omitempty" yaml:"returns,omitempty"`

	// Examples are short usage snippets for documentation
	Examples []string `json:"examples,omitempty" yaml:"examples,omitempty"`

	// Tags classify the function beyond its category
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// RequiresLLM indicates the function calls a language model
	RequiresLLM bool `json:"requires_llm" yaml:"requires_llm"`

	// RequiresSession indicates the function needs an authenticated session
	RequiresSession bool `json:"requires_session" yaml:"requires_session"`

	// IsAsync indicates the function suspends on external calls
	IsAsync bool `json:"is_async" yaml:"is_async"`

	// Version tracks the metadata revision
	Version string `json:"version" yaml:"version"`
}

// Parameter returns the declared parameter with the given name, if any.
func (m *Meta) Parameter(name string) (*ParameterDoc, bool) {
	for i := range m.Parameters {
		if m.Parameters[i].Name == name {
			return &m.Parameters[i], true
		}
	}
	return nil, false
}

// FlowDirective carries executor instructions returned by flow-control
// functions. A Result with a non-nil Flow field is the FlowResult of the
// procedure model: the external executor interprets it to decide which
// branch step-lists to run and under what concurrency.
type FlowDirective struct {
	// BranchKey selects a single branch to run ("then"/"else" for if_branch,
	// the stringified match value for switch_branch)
	BranchKey string `json:"branch_key,omitempty"`

	// Items is the normalized, unfiltered sequence a foreach step iterates
	Items []any `json:"items_to_iterate,omitempty"`

	// SkippedIndices lists item positions the executor filtered out via the
	// per-item condition. The foreach function itself leaves this empty;
	// per-item evaluation requires binding item, which only the executor has.
	SkippedIndices []int `json:"skipped_indices,omitempty"`

	// HasItemCondition signals the executor must evaluate a per-item
	// predicate with item/item_index bound before dispatching each iteration
	HasItemCondition bool `json:"has_item_condition,omitempty"`

	// Concurrency bounds foreach iteration (0 unlimited, 1 sequential, N pool)
	Concurrency int `json:"concurrency,omitempty"`

	// MaxConcurrency bounds how many parallel branches run at once (0 = all)
	MaxConcurrency int `json:"max_concurrency,omitempty"`
}

// Result is the structured outcome of one function invocation.
// It is created once per invocation and never mutated after return.
type Result struct {
	// Status classifies the outcome
	Status Status `json:"status"`

	// Data is the opaque payload produced by the function
	Data any `json:"data,omitempty"`

	// Message is a human-readable summary
	Message string `json:"message,omitempty"`

	// Error holds the failure description when Status is failed
	Error string `json:"error,omitempty"`

	// Metadata carries auxiliary invocation details
	Metadata map[string]any `json:"metadata,omitempty"`

	// ItemsProcessed counts successfully handled items for batch functions
	ItemsProcessed int `json:"items_processed,omitempty"`

	// ItemsFailed counts failed items for batch functions
	ItemsFailed int `json:"items_failed,omitempty"`

	// DurationMs is wall-clock invocation time, stamped by the envelope
	DurationMs int64 `json:"duration_ms"`

	// Flow holds executor directives for flow-control functions
	Flow *FlowDirective `json:"flow,omitempty"`
}

// Succeeded reports whether the invocation completed without failure.
func (r *Result) Succeeded() bool {
	return r.Status == StatusSuccess || r.Status == StatusPartial
}

// Success builds a success result with the given data payload.
func Success(data any) *Result {
	return &Result{Status: StatusSuccess, Data: data}
}

// Successf builds a success result with a formatted message and no data.
func Successf(format string, args ...any) *Result {
	return &Result{Status: StatusSuccess, Message: fmt.Sprintf(format, args...)}
}

// Failed builds a failed result with a formatted error string.
func Failed(format string, args ...any) *Result {
	return &Result{Status: StatusFailed, Error: fmt.Sprintf(format, args...)}
}

// Skipped builds a skipped result with a formatted message.
func Skipped(format string, args ...any) *Result {
	return &Result{Status: StatusSkipped, Message: fmt.Sprintf(format, args...)}
}

// ToMap converts a Result to an untyped map so template paths like
// steps.<name>.data.<field> can traverse it uniformly with plain maps.
func (r *Result) ToMap() map[string]any {
	m := map[string]any{
		"status":      string(r.Status),
		"duration_ms": r.DurationMs,
	}
	if r.Data != nil {
		m["data"] = r.Data
	}
	if r.Message != "" {
		m["message"] = r.Message
	}
	if r.Error != "" {
		m["error"] = r.Error
	}
	if r.Metadata != nil {
		m["metadata"] = r.Metadata
	}
	if r.ItemsProcessed != 0 {
		m["items_processed"] = r.ItemsProcessed
	}
	if r.ItemsFailed != 0 {
		m["items_failed"] = r.ItemsFailed
	}
	if r.Flow != nil {
		m["flow"] = map[string]any{
			"branch_key":         r.Flow.BranchKey,
			"items_to_iterate":   r.Flow.Items,
			"skipped_indices":    r.Flow.SkippedIndices,
			"has_item_condition": r.Flow.HasItemCondition,
			"concurrency":        r.Flow.Concurrency,
			"max_concurrency":    r.Flow.MaxConcurrency,
		}
	}
	return m
}

// Function is the contract every pluggable operation implements.
//
// Execute performs the function's work against the supplied execution
// context and resolved parameters. Implementations return an error only for
// internal failures; the invocation envelope converts any returned error or
// panic into a failed Result, so callers never observe a raw failure.
type Function interface {
	// Meta returns the immutable metadata describing this function.
	Meta() Meta

	// Execute runs the function. Implementations must honor ctx cancellation
	// on blocking calls and must honor fctx.DryRun by skipping side effects.
	Execute(ctx context.Context, fctx *Context, params map[string]any) (*Result, error)
}

// Func adapts a Meta and a closure into a Function. It is the idiomatic way
// to register small functions and test doubles without declaring a type.
type Func struct {
	meta Meta
	fn   func(ctx context.Context, fctx *Context, params map[string]any) (*Result, error)
}

// NewFunc creates a Function from metadata and an execute closure.
func NewFunc(meta Meta, fn func(ctx context.Context, fctx *Context, params map[string]any) (*Result, error)) *Func {
	return &Func{meta: meta, fn: fn}
}

// Meta implements Function.
func (f *Func) Meta() Meta { return f.meta }

// Execute implements Function.
func (f *Func) Execute(ctx context.Context, fctx *Context, params map[string]any) (*Result, error) {
	return f.fn(ctx, fctx, params)
}
