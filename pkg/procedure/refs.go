package procedure

import (
	"fmt"
	"sort"
	"strings"

	"github.com/opsforge/playbook/pkg/function"
)

// scope tracks what a step is allowed to reference: the names of steps that
// execute strictly before it at the current nesting level (carried into
// child branches, never across siblings) and the procedure's declared
// parameter names.
type scope struct {
	seen   map[string]bool
	params map[string]bool
}

func newScope(def *Definition) *scope {
	params := make(map[string]bool, len(def.Parameters))
	for _, p := range def.Parameters {
		params[p.Name] = true
	}
	return &scope{
		seen:   make(map[string]bool),
		params: params,
	}
}

// clone copies the seen-set so a branch cannot leak step names back out or
// sideways into a sibling branch. Parameter names are immutable and shared.
func (s *scope) clone() *scope {
	seen := make(map[string]bool, len(s.seen))
	for name := range s.seen {
		seen[name] = true
	}
	return &scope{seen: seen, params: s.params}
}

func (s *scope) markSeen(name string) {
	if name != "" {
		s.seen[name] = true
	}
}

// checkReferences is pass 3: it walks every string value in the step's
// params (recursively through nested maps and lists) and its condition,
// checking each {{ ... }} expression against the scope.
func (v *Validator) checkReferences(step *Step, stepPath string, sc *scope, res *ValidationResult) {
	for _, key := range sortedParamKeys(step.Params) {
		v.checkValueRefs(step.Params[key], stepPath+".params."+key, step.Name, sc, res)
	}
	if step.Condition != "" {
		v.checkStringRefs(step.Condition, stepPath+".condition", step.Name, sc, res)
	}
}

func (v *Validator) checkValueRefs(value any, path, stepName string, sc *scope, res *ValidationResult) {
	switch val := value.(type) {
	case string:
		v.checkStringRefs(val, path, stepName, sc, res)
	case map[string]any:
		for _, key := range sortedParamKeys(val) {
			v.checkValueRefs(val[key], path+"."+key, stepName, sc, res)
		}
	case []any:
		for i, item := range val {
			v.checkValueRefs(item, fmt.Sprintf("%s[%d]", path, i), stepName, sc, res)
		}
	}
}

func (v *Validator) checkStringRefs(s, path, stepName string, sc *scope, res *ValidationResult) {
	for _, expr := range function.TemplateRefs(s) {
		v.checkExpr(expr, path, stepName, sc, res)
	}
}

// checkExpr validates one template expression: syntactic shape, then the
// reference rules for steps.* and params.* roots. Roots the validator does
// not track (variables, item, item_index) pass through; their existence is
// a run-time concern.
func (v *Validator) checkExpr(expr, path, stepName string, sc *scope, res *ValidationResult) {
	if expr == "" {
		res.addError(CodeInvalidTemplateSyntax, path, "empty template expression", nil)
		return
	}
	if expr == "now()" || expr == "today()" {
		return
	}

	parts := strings.Split(expr, ".")
	if !function.IdentifierPattern.MatchString(parts[0]) {
		res.addError(CodeInvalidTemplateSyntax, path,
			fmt.Sprintf("template expression %q must begin with a valid identifier", expr),
			map[string]any{"expression": expr})
		return
	}

	switch parts[0] {
	case "steps":
		if len(parts) < 2 || parts[1] == "" {
			res.addError(CodeInvalidTemplateSyntax, path,
				fmt.Sprintf("template expression %q must name a step, e.g. steps.search", expr),
				map[string]any{"expression": expr})
			return
		}
		ref := parts[1]
		if ref == stepName {
			res.addError(CodeCircularDependency, path,
				fmt.Sprintf("step %q references its own result", stepName),
				map[string]any{"step": stepName, "expression": expr})
			return
		}
		if !sc.seen[ref] {
			res.addError(CodeInvalidStepReference, path,
				fmt.Sprintf("step %q is not defined before this step in the current scope", ref),
				map[string]any{"referenced": ref, "expression": expr})
		}

	case "params":
		if len(parts) < 2 || parts[1] == "" {
			res.addError(CodeInvalidTemplateSyntax, path,
				fmt.Sprintf("template expression %q must name a parameter, e.g. params.query", expr),
				map[string]any{"expression": expr})
			return
		}
		if !sc.params[parts[1]] {
			res.addError(CodeInvalidParamReference, path,
				fmt.Sprintf("parameter %q is not declared by this procedure", parts[1]),
				map[string]any{"parameter": parts[1], "expression": expr})
		}
	}
}

// sortedParamKeys fixes the param visit order for deterministic findings.
func sortedParamKeys(params map[string]any) []string {
	if len(params) == 0 {
		return nil
	}
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
