// Package procedure defines the declarative procedure model and its static
// validator. A procedure is an ordered list of steps, each invoking a named
// function with a parameter map; flow-control steps embed nested step-lists
// as branches. Definitions are validated once, before storage or execution.
package procedure

import (
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

// ErrorPolicy controls what the executor does when a step's function fails.
type ErrorPolicy string

const (
	// PolicyFail aborts the run on the first failed step.
	PolicyFail ErrorPolicy = "fail"
	// PolicySkip records the failure and moves to the next step.
	PolicySkip ErrorPolicy = "skip"
	// PolicyContinue treats the failure as a non-event and keeps the run
	// marked healthy.
	PolicyContinue ErrorPolicy = "continue"
)

// ValidPolicies enumerates the recognized on_error values.
var ValidPolicies = map[ErrorPolicy]bool{
	PolicyFail:     true,
	PolicySkip:     true,
	PolicyContinue: true,
}

// SlugPattern constrains procedure slugs: lowercase, starting with a letter.
var SlugPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// Definition is a complete procedure as authored.
type Definition struct {
	Name        string         `yaml:"name" json:"name"`
	Slug        string         `yaml:"slug" json:"slug"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	Parameters  []ParameterDef `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Steps       []Step         `yaml:"steps" json:"steps"`
	OnError     ErrorPolicy    `yaml:"on_error,omitempty" json:"on_error,omitempty"`
	Tags        []string       `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// ParameterDef declares a procedure-level parameter that callers supply at
// run time and steps reference as params.<name>.
type ParameterDef struct {
	Name        string `yaml:"name" json:"name"`
	Type        string `yaml:"type,omitempty" json:"type,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Required    bool   `yaml:"required,omitempty" json:"required,omitempty"`
	Default     any    `yaml:"default,omitempty" json:"default,omitempty"`
}

// Step invokes one function. Branches are only meaningful on flow-control
// functions; each branch is a nested step-list validated recursively.
type Step struct {
	Name      string            `yaml:"name" json:"name"`
	Function  string            `yaml:"function" json:"function"`
	Params    map[string]any    `yaml:"params,omitempty" json:"params,omitempty"`
	Condition string            `yaml:"condition,omitempty" json:"condition,omitempty"`
	OnError   ErrorPolicy       `yaml:"on_error,omitempty" json:"on_error,omitempty"`
	Branches  map[string][]Step `yaml:"branches,omitempty" json:"branches,omitempty"`
}

// parameterTypes are the declared types a ParameterDef may carry. An empty
// type means "any".
var parameterTypes = map[string]bool{
	"string":  true,
	"number":  true,
	"boolean": true,
	"object":  true,
	"array":   true,
	"any":     true,
}

// Parse decodes a YAML procedure definition. Parse only reports decode
// failures; structural problems are the validator's job.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse procedure definition: %w", err)
	}
	return &def, nil
}

// EffectivePolicy returns the error policy in force for a step: the step's
// own on_error when set, otherwise the procedure-level policy, defaulting
// to fail.
func (d *Definition) EffectivePolicy(step *Step) ErrorPolicy {
	if step != nil && step.OnError != "" {
		return step.OnError
	}
	if d.OnError != "" {
		return d.OnError
	}
	return PolicyFail
}

// Parameter returns the declared parameter with the given name.
func (d *Definition) Parameter(name string) (ParameterDef, bool) {
	for _, p := range d.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return ParameterDef{}, false
}
