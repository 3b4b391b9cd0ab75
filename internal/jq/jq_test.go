package jq

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunBasicExpressions(t *testing.T) {
	r := NewRunner(0, 0)
	ctx := context.Background()

	tests := []struct {
		name       string
		expression string
		input      any
		want       any
	}{
		{
			name:       "identity",
			expression: ".",
			input:      map[string]any{"a": 1},
			want:       map[string]any{"a": 1},
		},
		{
			name:       "field access",
			expression: ".title",
			input:      map[string]any{"title": "Creek Survey"},
			want:       "Creek Survey",
		},
		{
			name:       "map over list",
			expression: "map(.id)",
			input:      []any{map[string]any{"id": 1}, map[string]any{"id": 2}},
			want:       []any{1, 2},
		},
		{
			name:       "empty expression returns input",
			expression: "",
			input:      "unchanged",
			want:       "unchanged",
		},
		{
			name:       "missing field yields nil",
			expression: ".nope",
			input:      map[string]any{"a": 1},
			want:       nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Run(ctx, tt.expression, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunMultipleOutputsReturnList(t *testing.T) {
	r := NewRunner(0, 0)

	got, err := r.Run(context.Background(), ".[]", []any{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, got)
}

func TestRunInvalidExpression(t *testing.T) {
	r := NewRunner(0, 0)

	_, err := r.Run(context.Background(), ".[unclosed", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid jq expression")
}

func TestRunInputSizeLimit(t *testing.T) {
	r := NewRunner(0, 16)

	_, err := r.Run(context.Background(), ".", map[string]any{"key": "a value larger than sixteen bytes"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum")
}

func TestRunTimeout(t *testing.T) {
	r := NewRunner(50*time.Millisecond, 0)

	// An unbounded generator never finishes; the runner must cut it off.
	_, err := r.Run(context.Background(), "[range(infinite)]", nil)
	require.Error(t, err)
}

func TestCheckSyntax(t *testing.T) {
	assert.NoError(t, CheckSyntax(""))
	assert.NoError(t, CheckSyntax("map(.id) | sort"))
	assert.Error(t, CheckSyntax("]["))
}
