package function

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Variable keys injected by the executor inside foreach branches.
const (
	ItemKey      = "item"
	ItemIndexKey = "item_index"
)

// stepResultPrefix is the variables-map prefix under which step results are
// stored, so template paths like steps.<name>.data resolve uniformly.
const stepResultPrefix = "steps."

// RunEvent is one structured event emitted during a procedure run.
type RunEvent struct {
	RunID       string
	ProcedureID string
	Event       string
	At          time.Time
	Attrs       map[string]any
}

// RunSink receives run events for persistence in run history.
// Implementations must be safe for concurrent use by sibling branches.
type RunSink interface {
	RecordRunEvent(ctx context.Context, event RunEvent)
}

// ContextOptions configures a new execution context.
type ContextOptions struct {
	OrganizationID string
	UserID         string
	RunID          string
	ProcedureID    string

	// Params are the procedure-level arguments
	Params map[string]any

	// DryRun suppresses side effects in every function implementation
	DryRun bool

	Logger   *slog.Logger
	Services *ServiceSet
	Sink     RunSink
}

// Context is the per-invocation execution environment: identity, procedure
// parameters, accumulated step results ("variables"), lazily resolved ambient
// services, and the dry-run flag.
//
// Methods are safe for concurrent reads but NOT safe for concurrent writes.
// The executor isolates sibling branches with Child contexts instead of
// sharing one mutable Context across goroutines.
type Context struct {
	OrganizationID string
	UserID         string
	RunID          string
	ProcedureID    string
	DryRun         bool
	Logger         *slog.Logger

	params    map[string]any
	variables map[string]any
	services  *ServiceSet
	sink      RunSink
}

// NewContext creates an execution context. A run ID is minted when none is
// supplied; logger and service set fall back to usable defaults.
func NewContext(opts ContextOptions) *Context {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Services == nil {
		opts.Services = NewServiceSet()
	}
	params := make(map[string]any, len(opts.Params))
	for k, v := range opts.Params {
		params[k] = v
	}
	return &Context{
		OrganizationID: opts.OrganizationID,
		UserID:         opts.UserID,
		RunID:          opts.RunID,
		ProcedureID:    opts.ProcedureID,
		DryRun:         opts.DryRun,
		Logger:         opts.Logger.With("run_id", opts.RunID),
		params:         params,
		variables:      make(map[string]any),
		services:       opts.Services,
		sink:           opts.Sink,
	}
}

// Param returns a procedure-level parameter value.
func (c *Context) Param(name string) (any, bool) {
	v, ok := c.params[name]
	return v, ok
}

// Params returns the procedure parameters. Callers must treat the returned
// map as read-only.
func (c *Context) Params() map[string]any {
	return c.params
}

// SetVariable stores an arbitrary named value in the context.
func (c *Context) SetVariable(name string, value any) {
	c.variables[name] = value
}

// GetVariable returns a named value from the context.
func (c *Context) GetVariable(name string) (any, bool) {
	v, ok := c.variables[name]
	return v, ok
}

// Variables returns the variables map. Callers must treat the returned map
// as read-only.
func (c *Context) Variables() map[string]any {
	return c.variables
}

// SetStepResult records a completed step's result under steps.<name>.
func (c *Context) SetStepResult(name string, result *Result) {
	c.variables[stepResultPrefix+name] = result
}

// GetStepResult returns the recorded result for a step name.
func (c *Context) GetStepResult(name string) (*Result, bool) {
	v, ok := c.variables[stepResultPrefix+name]
	if !ok {
		return nil, false
	}
	result, ok := v.(*Result)
	return result, ok
}

// BindItem injects the foreach iteration bindings into the context.
// The executor calls this on a child context for every iteration.
func (c *Context) BindItem(item any, index int) {
	c.variables[ItemKey] = item
	c.variables[ItemIndexKey] = index
}

// Child produces a context for nested execution (a parallel branch or a
// foreach iteration). The child shares the lazily resolved service cache, so
// one client pool serves the whole run, but receives its own copy of the
// variables map: sibling branches cannot observe each other's intermediate
// state. paramOverrides are merged over the parent's procedure parameters.
func (c *Context) Child(paramOverrides map[string]any) *Context {
	params := make(map[string]any, len(c.params)+len(paramOverrides))
	for k, v := range c.params {
		params[k] = v
	}
	for k, v := range paramOverrides {
		params[k] = v
	}
	variables := make(map[string]any, len(c.variables))
	for k, v := range c.variables {
		variables[k] = v
	}
	return &Context{
		OrganizationID: c.OrganizationID,
		UserID:         c.UserID,
		RunID:          c.RunID,
		ProcedureID:    c.ProcedureID,
		DryRun:         c.DryRun,
		Logger:         c.Logger,
		params:         params,
		variables:      variables,
		services:       c.services,
		sink:           c.sink,
	}
}

// Service resolves an ambient service by name through the shared service set.
func (c *Context) Service(name string) (any, error) {
	return c.services.Resolve(name)
}

// Search resolves the document search service.
func (c *Context) Search() (SearchService, error) {
	return resolveAs[SearchService](c.services, ServiceSearch)
}

// LLM resolves the language model service.
func (c *Context) LLM() (LLMService, error) {
	return resolveAs[LLMService](c.services, ServiceLLM)
}

// Storage resolves the object storage service.
func (c *Context) Storage() (ObjectStore, error) {
	return resolveAs[ObjectStore](c.services, ServiceStorage)
}

// Notifier resolves the notification delivery service.
func (c *Context) Notifier() (Notifier, error) {
	return resolveAs[Notifier](c.services, ServiceNotify)
}

// LogRunEvent forwards a structured event to the run sink when a run ID is
// present, and always mirrors it to the context logger.
func (c *Context) LogRunEvent(ctx context.Context, event string, attrs map[string]any) {
	c.Logger.Info("run event", "event", event, "attrs", attrs)
	if c.sink == nil || c.RunID == "" {
		return
	}
	c.sink.RecordRunEvent(ctx, RunEvent{
		RunID:       c.RunID,
		ProcedureID: c.ProcedureID,
		Event:       event,
		At:          time.Now().UTC(),
		Attrs:       attrs,
	})
}
