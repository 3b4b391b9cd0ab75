package function

import (
	"context"
	"reflect"
	"testing"
)

func TestIsFlowFunction(t *testing.T) {
	for _, name := range []string{FuncIfBranch, FuncSwitchBranch, FuncParallel, FuncForeach} {
		if !IsFlowFunction(name) {
			t.Errorf("IsFlowFunction(%q) = false", name)
		}
	}
	if IsFlowFunction("search_documents") {
		t.Error("IsFlowFunction(search_documents) = true")
	}
}

func TestRegisterFlowFunctions(t *testing.T) {
	r := NewRegistry(nil)
	if err := RegisterFlowFunctions(r); err != nil {
		t.Fatalf("RegisterFlowFunctions() error = %v", err)
	}

	for _, name := range []string{FuncIfBranch, FuncSwitchBranch, FuncParallel, FuncForeach} {
		meta, ok := r.Lookup(name)
		if !ok {
			t.Errorf("flow function %q not registered", name)
			continue
		}
		if meta.Category != CategoryFlow {
			t.Errorf("flow function %q category = %q, want flow", name, meta.Category)
		}
	}
}

func TestIfBranch(t *testing.T) {
	tests := []struct {
		name      string
		condition any
		want      string
	}{
		{"true selects then", true, BranchThen},
		{"false selects else", false, BranchElse},
		{"non-empty list is truthy", []any{1}, BranchThen},
		{"empty string is falsy", "", BranchElse},
		{"nil is falsy", nil, BranchElse},
	}

	fn := &ifBranchFunction{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := fn.Execute(context.Background(), nil, map[string]any{"condition": tt.condition})
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if result.Flow == nil {
				t.Fatal("Execute() returned no flow directive")
			}
			if result.Flow.BranchKey != tt.want {
				t.Errorf("branch key = %q, want %q", result.Flow.BranchKey, tt.want)
			}
		})
	}
}

func TestSwitchBranch(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"string value", "report", "report"},
		{"whole float renders as integer", float64(3), "3"},
		{"fractional float", 2.5, "2.5"},
		{"bool", true, "true"},
		{"nil", nil, ""},
		{"int", 7, "7"},
	}

	fn := &switchBranchFunction{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := fn.Execute(context.Background(), nil, map[string]any{"value": tt.value})
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if result.Flow.BranchKey != tt.want {
				t.Errorf("branch key = %q, want %q", result.Flow.BranchKey, tt.want)
			}
		})
	}
}

func TestParallel(t *testing.T) {
	fn := &parallelFunction{}

	result, err := fn.Execute(context.Background(), nil, map[string]any{"max_concurrency": 2})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Flow.MaxConcurrency != 2 {
		t.Errorf("max concurrency = %d, want 2", result.Flow.MaxConcurrency)
	}

	result, err = fn.Execute(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Execute() with no params error = %v", err)
	}
	if result.Flow.MaxConcurrency != 0 {
		t.Errorf("default max concurrency = %d, want 0 (unbounded)", result.Flow.MaxConcurrency)
	}

	if _, err := fn.Execute(context.Background(), nil, map[string]any{"max_concurrency": -1}); err == nil {
		t.Error("Execute() should reject negative max_concurrency")
	}
}

func TestForeach(t *testing.T) {
	fn := &foreachFunction{}

	t.Run("list passes through", func(t *testing.T) {
		result, err := fn.Execute(context.Background(), nil, map[string]any{
			"items":       []any{"a", "b", "c"},
			"concurrency": 4,
		})
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if !reflect.DeepEqual(result.Flow.Items, []any{"a", "b", "c"}) {
			t.Errorf("items = %v", result.Flow.Items)
		}
		if result.Flow.Concurrency != 4 {
			t.Errorf("concurrency = %d, want 4", result.Flow.Concurrency)
		}
		if result.ItemsProcessed != 3 {
			t.Errorf("items processed = %d, want 3", result.ItemsProcessed)
		}
	})

	t.Run("defaults to sequential", func(t *testing.T) {
		result, err := fn.Execute(context.Background(), nil, map[string]any{"items": []any{1}})
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if result.Flow.Concurrency != 1 {
			t.Errorf("default concurrency = %d, want 1", result.Flow.Concurrency)
		}
	})

	t.Run("condition is echoed not evaluated", func(t *testing.T) {
		result, err := fn.Execute(context.Background(), nil, map[string]any{
			"items":     []any{1, 2},
			"condition": "{{ item }} > 1",
		})
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if !result.Flow.HasItemCondition {
			t.Error("HasItemCondition = false, want true")
		}
		if len(result.Flow.Items) != 2 {
			t.Errorf("items were filtered at flow time: %v", result.Flow.Items)
		}
		if len(result.Flow.SkippedIndices) != 0 {
			t.Errorf("skipped indices should be empty at flow time: %v", result.Flow.SkippedIndices)
		}
	})

	t.Run("rejects negative concurrency", func(t *testing.T) {
		if _, err := fn.Execute(context.Background(), nil, map[string]any{
			"items":       []any{1},
			"concurrency": -2,
		}); err == nil {
			t.Error("Execute() should reject negative concurrency")
		}
	})
}

func TestForeachNullItemsThroughEnvelope(t *testing.T) {
	r := NewRegistry(nil)
	if err := RegisterFlowFunctions(r); err != nil {
		t.Fatalf("RegisterFlowFunctions() error = %v", err)
	}

	// A template like {{ steps.search.data }} can resolve to null at run
	// time. The envelope must hand that through to normalization, which
	// yields zero iterations, not a missing-parameter failure.
	tests := []struct {
		name   string
		params map[string]any
	}{
		{"null items", map[string]any{"items": nil}},
		{"absent items", map[string]any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := r.Invoke(context.Background(), nil, FuncForeach, tt.params)
			if result.Status != StatusSuccess {
				t.Fatalf("Invoke() status = %q (%s), want success", result.Status, result.Error)
			}
			if len(result.Flow.Items) != 0 {
				t.Errorf("items = %v, want empty", result.Flow.Items)
			}
			if result.ItemsProcessed != 0 {
				t.Errorf("items processed = %d, want 0", result.ItemsProcessed)
			}
		})
	}
}

func TestNormalizeItems(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  []any
	}{
		{"nil becomes empty", nil, []any{}},
		{"list passes through", []any{1, 2}, []any{1, 2}},
		{"string slice converts", []string{"x", "y"}, []any{"x", "y"}},
		{"map slice converts", []map[string]any{{"k": 1}}, []any{map[string]any{"k": 1}}},
		{"scalar wraps", "single", []any{"single"}},
		{"number wraps", 5, []any{5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeItems(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeItems(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
