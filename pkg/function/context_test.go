package function

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestNewContextMintsRunID(t *testing.T) {
	fctx := NewContext(ContextOptions{})
	if fctx.RunID == "" {
		t.Error("NewContext() should mint a run ID when none is supplied")
	}

	fctx = NewContext(ContextOptions{RunID: "run-42"})
	if fctx.RunID != "run-42" {
		t.Errorf("NewContext() run ID = %q, want run-42", fctx.RunID)
	}
}

func TestContextVariablesAndStepResults(t *testing.T) {
	fctx := testContext(t, nil)

	fctx.SetVariable("attempts", 3)
	if v, ok := fctx.GetVariable("attempts"); !ok || v != 3 {
		t.Errorf("GetVariable(attempts) = %v, %v", v, ok)
	}

	result := Success("payload")
	fctx.SetStepResult("search", result)

	got, ok := fctx.GetStepResult("search")
	if !ok || got != result {
		t.Errorf("GetStepResult(search) = %v, %v", got, ok)
	}
	if _, ok := fctx.GetStepResult("missing"); ok {
		t.Error("GetStepResult(missing) should report absence")
	}

	// Step results live in the variables map under a prefixed key so
	// template paths resolve uniformly.
	if _, ok := fctx.GetVariable("steps.search"); !ok {
		t.Error("step result should be stored under steps.<name>")
	}
}

func TestChildIsolatesVariables(t *testing.T) {
	parent := testContext(t, map[string]any{"query": "dams"})
	parent.SetVariable("shared", "before")
	parent.SetStepResult("collect", Success(nil))

	child := parent.Child(nil)

	// Child sees the parent's state at fork time.
	if v, ok := child.GetVariable("shared"); !ok || v != "before" {
		t.Errorf("child GetVariable(shared) = %v, %v", v, ok)
	}
	if _, ok := child.GetStepResult("collect"); !ok {
		t.Error("child should inherit recorded step results")
	}

	// Mutations do not cross the boundary in either direction.
	child.SetVariable("shared", "child value")
	child.SetStepResult("branch_step", Success(nil))

	if v, _ := parent.GetVariable("shared"); v != "before" {
		t.Errorf("parent variable mutated by child: %v", v)
	}
	if _, ok := parent.GetStepResult("branch_step"); ok {
		t.Error("parent should not observe child step results")
	}

	parent.SetVariable("late", true)
	if _, ok := child.GetVariable("late"); ok {
		t.Error("child should not observe parent mutations after fork")
	}
}

func TestChildMergesParamOverrides(t *testing.T) {
	parent := testContext(t, map[string]any{"query": "dams", "limit": 10})
	child := parent.Child(map[string]any{"limit": 50})

	if v, _ := child.Param("query"); v != "dams" {
		t.Errorf("child Param(query) = %v, want inherited value", v)
	}
	if v, _ := child.Param("limit"); v != 50 {
		t.Errorf("child Param(limit) = %v, want override 50", v)
	}
	if v, _ := parent.Param("limit"); v != 10 {
		t.Errorf("parent Param(limit) = %v, override leaked upward", v)
	}
}

func TestChildSharesServiceCache(t *testing.T) {
	resolutions := 0
	services := NewServiceSet()
	services.RegisterResolver(ServiceSearch, func() (any, error) {
		resolutions++
		return stubSearch{}, nil
	})

	parent := NewContext(ContextOptions{Services: services})
	child := parent.Child(nil)
	grandchild := child.Child(nil)

	for _, fctx := range []*Context{parent, child, grandchild} {
		if _, err := fctx.Search(); err != nil {
			t.Fatalf("Search() error = %v", err)
		}
	}

	if resolutions != 1 {
		t.Errorf("service resolved %d times across the context tree, want 1", resolutions)
	}
}

func TestServiceSetLazyResolution(t *testing.T) {
	resolutions := 0
	s := NewServiceSet()
	s.RegisterResolver("expensive", func() (any, error) {
		resolutions++
		return "client", nil
	})

	if resolutions != 0 {
		t.Fatal("resolver ran before first access")
	}

	for i := 0; i < 3; i++ {
		svc, err := s.Resolve("expensive")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if svc != "client" {
			t.Errorf("Resolve() = %v", svc)
		}
	}
	if resolutions != 1 {
		t.Errorf("resolver ran %d times, want 1", resolutions)
	}

	if _, err := s.Resolve("unregistered"); err == nil {
		t.Error("Resolve() of unregistered service should fail")
	}
}

func TestServiceSetResolverError(t *testing.T) {
	s := NewServiceSet()
	s.RegisterResolver("flaky", func() (any, error) {
		return nil, errors.New("connection refused")
	})

	if _, err := s.Resolve("flaky"); err == nil {
		t.Error("Resolve() should surface constructor failure")
	}
}

func TestServiceSetConcurrentResolve(t *testing.T) {
	resolutions := 0
	s := NewServiceSet()
	s.RegisterResolver(ServiceLLM, func() (any, error) {
		resolutions++
		return stubLLM{}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Resolve(ServiceLLM); err != nil {
				t.Errorf("Resolve() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if resolutions != 1 {
		t.Errorf("resolver ran %d times under concurrency, want 1", resolutions)
	}
}

func TestTypedServiceAccessors(t *testing.T) {
	services := NewServiceSet()
	services.RegisterService(ServiceSearch, stubSearch{})
	services.RegisterService(ServiceNotify, "not a notifier")

	fctx := NewContext(ContextOptions{Services: services})

	if _, err := fctx.Search(); err != nil {
		t.Errorf("Search() error = %v", err)
	}
	if _, err := fctx.Notifier(); err == nil {
		t.Error("Notifier() should reject a service of the wrong type")
	}
}

func TestLogRunEvent(t *testing.T) {
	sink := &recordingSink{}
	fctx := NewContext(ContextOptions{
		RunID:       "run-7",
		ProcedureID: "proc-1",
		Sink:        sink,
	})

	fctx.LogRunEvent(context.Background(), "step_completed", map[string]any{"step": "search"})

	if len(sink.events) != 1 {
		t.Fatalf("sink received %d events, want 1", len(sink.events))
	}
	event := sink.events[0]
	if event.RunID != "run-7" || event.Event != "step_completed" {
		t.Errorf("recorded event = %+v", event)
	}
	if event.Attrs["step"] != "search" {
		t.Errorf("event attrs = %v", event.Attrs)
	}
}

type stubSearch struct{}

func (stubSearch) Search(context.Context, string, map[string]any) ([]map[string]any, error) {
	return nil, nil
}

type stubLLM struct{}

func (stubLLM) Generate(context.Context, string, map[string]any) (string, error) {
	return "", nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []RunEvent
}

func (s *recordingSink) RecordRunEvent(_ context.Context, event RunEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}
