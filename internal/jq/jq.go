// Package jq evaluates jq expressions over step data with timeout and
// input-size protection.
package jq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/itchyny/gojq"
)

const (
	// DefaultTimeout bounds a single expression evaluation.
	DefaultTimeout = 1 * time.Second

	// DefaultMaxInputSize bounds the serialized size of transform input (10MB).
	DefaultMaxInputSize = 10 * 1024 * 1024
)

// Runner evaluates jq expressions with a per-run timeout and a maximum
// input size. A zero value for either limit selects the default.
type Runner struct {
	timeout      time.Duration
	maxInputSize int64
}

// NewRunner creates a jq runner.
func NewRunner(timeout time.Duration, maxInputSize int64) *Runner {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if maxInputSize == 0 {
		maxInputSize = DefaultMaxInputSize
	}
	return &Runner{timeout: timeout, maxInputSize: maxInputSize}
}

// Run evaluates an expression against input data. An empty expression
// returns the input unchanged. A query producing one value returns that
// value; multiple values return as a list.
func (r *Runner) Run(ctx context.Context, expression string, input any) (any, error) {
	if expression == "" {
		return input, nil
	}
	if err := r.checkInputSize(input); err != nil {
		return nil, err
	}

	code, err := compile(expression)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	done := make(chan struct{})
	var (
		outputs []any
		runErr  error
	)
	go func() {
		defer close(done)
		iter := code.RunWithContext(runCtx, input)
		for {
			v, ok := iter.Next()
			if !ok {
				return
			}
			if err, isErr := v.(error); isErr {
				runErr = err
				return
			}
			outputs = append(outputs, v)
		}
	}()

	select {
	case <-done:
	case <-runCtx.Done():
		return nil, fmt.Errorf("jq evaluation timed out after %v", r.timeout)
	}
	if runErr != nil {
		return nil, runErr
	}

	switch len(outputs) {
	case 0:
		return nil, nil
	case 1:
		return outputs[0], nil
	default:
		return outputs, nil
	}
}

// CheckSyntax compiles an expression without running it, to surface syntax
// errors at validation time.
func CheckSyntax(expression string) error {
	if expression == "" {
		return nil
	}
	_, err := compile(expression)
	return err
}

func compile(expression string) (*gojq.Code, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("jq compilation failed: %w", err)
	}
	return code, nil
}

func (r *Runner) checkInputSize(input any) error {
	serialized, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("transform input is not serializable: %w", err)
	}
	if int64(len(serialized)) > r.maxInputSize {
		return fmt.Errorf("transform input size (%d bytes) exceeds maximum (%d bytes)",
			len(serialized), r.maxInputSize)
	}
	return nil
}
