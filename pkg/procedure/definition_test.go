package procedure

import (
	"testing"
)

func TestParse(t *testing.T) {
	data := []byte(`
name: Weekly Digest
slug: weekly-digest
description: Summarize the week's documents.
on_error: skip
tags: [digest, weekly]

parameters:
  - name: query
    type: string
    required: true
  - name: limit
    type: number
    default: 25

steps:
  - name: search
    function: search_documents
    params:
      query: "{{ params.query }}"
      limit: "{{ params.limit }}"
  - name: gate
    function: if_branch
    params:
      condition: "{{ steps.search.data }}"
    condition: "params.limit > 0"
    on_error: continue
    branches:
      then:
        - name: summarize
          function: llm_summarize
          params:
            text: "{{ steps.search.data }}"
`)

	def, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if def.Name != "Weekly Digest" || def.Slug != "weekly-digest" {
		t.Errorf("header = %q / %q", def.Name, def.Slug)
	}
	if def.OnError != PolicySkip {
		t.Errorf("on_error = %q, want skip", def.OnError)
	}
	if len(def.Parameters) != 2 {
		t.Fatalf("parsed %d parameters, want 2", len(def.Parameters))
	}
	if !def.Parameters[0].Required || def.Parameters[0].Name != "query" {
		t.Errorf("parameters[0] = %+v", def.Parameters[0])
	}
	if def.Parameters[1].Default != 25 {
		t.Errorf("parameters[1].Default = %v, want 25", def.Parameters[1].Default)
	}

	if len(def.Steps) != 2 {
		t.Fatalf("parsed %d steps, want 2", len(def.Steps))
	}
	gate := def.Steps[1]
	if gate.Function != "if_branch" || gate.OnError != PolicyContinue {
		t.Errorf("gate step = %+v", gate)
	}
	if gate.Condition != "params.limit > 0" {
		t.Errorf("gate condition = %q", gate.Condition)
	}
	then := gate.Branches["then"]
	if len(then) != 1 || then[0].Name != "summarize" {
		t.Errorf("then branch = %+v", then)
	}
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	if _, err := Parse([]byte("steps: [unterminated")); err == nil {
		t.Error("Parse() should reject malformed YAML")
	}
}

func TestEffectivePolicy(t *testing.T) {
	tests := []struct {
		name       string
		defPolicy  ErrorPolicy
		stepPolicy ErrorPolicy
		want       ErrorPolicy
	}{
		{"defaults to fail", "", "", PolicyFail},
		{"procedure policy applies", PolicySkip, "", PolicySkip},
		{"step overrides procedure", PolicySkip, PolicyContinue, PolicyContinue},
		{"step policy alone", "", PolicySkip, PolicySkip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := &Definition{OnError: tt.defPolicy}
			step := &Step{OnError: tt.stepPolicy}
			if got := def.EffectivePolicy(step); got != tt.want {
				t.Errorf("EffectivePolicy() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParameterLookup(t *testing.T) {
	def := &Definition{
		Parameters: []ParameterDef{
			{Name: "query", Type: "string"},
		},
	}
	if p, ok := def.Parameter("query"); !ok || p.Type != "string" {
		t.Errorf("Parameter(query) = %+v, %v", p, ok)
	}
	if _, ok := def.Parameter("missing"); ok {
		t.Error("Parameter(missing) should report absence")
	}
}

func TestSlugPattern(t *testing.T) {
	valid := []string{"digest", "weekly-digest", "a1", "snake_case", "x-9_y"}
	invalid := []string{"", "Digest", "9lives", "-lead", "_lead", "has space", "dots.bad"}

	for _, slug := range valid {
		if !SlugPattern.MatchString(slug) {
			t.Errorf("SlugPattern rejected valid slug %q", slug)
		}
	}
	for _, slug := range invalid {
		if SlugPattern.MatchString(slug) {
			t.Errorf("SlugPattern accepted invalid slug %q", slug)
		}
	}
}
