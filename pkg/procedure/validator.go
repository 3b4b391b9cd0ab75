package procedure

import (
	"fmt"
	"sort"

	"github.com/opsforge/playbook/pkg/function"
)

// Catalog is the registry view the validator needs: name resolution and the
// full name list for error reporting. *function.Registry satisfies it.
type Catalog interface {
	Lookup(name string) (function.Meta, bool)
	Names() []string
}

// Validator statically checks procedure definitions before they are stored
// or executed. It runs four passes: schema shape, function existence and
// required parameters together with branch structure, the template-reference
// graph, and semantic-mismatch advisories. A schema failure short-circuits
// the later passes, which assume a structurally sound tree.
//
// Validation is pure analysis over the in-memory definition. A Validator is
// safe for concurrent use.
type Validator struct {
	catalog Catalog
}

// NewValidator creates a validator backed by a function catalog.
func NewValidator(catalog Catalog) *Validator {
	return &Validator{catalog: catalog}
}

// Validate checks a definition and returns every finding. Warnings never
// affect the Valid flag.
func (v *Validator) Validate(def *Definition) *ValidationResult {
	res := &ValidationResult{}

	if def == nil {
		res.addError(CodeMissingRequiredField, "", "definition is required", nil)
		return res
	}

	v.checkSchema(def, res)
	if len(res.Errors) > 0 {
		return res
	}

	sc := newScope(def)
	v.walkSteps(def.Steps, "steps", sc, res)

	res.Valid = len(res.Errors) == 0
	return res
}

// checkSchema is pass 1: required fields, slug format, policy values,
// parameter declarations, and step name/function presence at every depth.
func (v *Validator) checkSchema(def *Definition, res *ValidationResult) {
	if def.Name == "" {
		res.addError(CodeMissingRequiredField, "name", "procedure name is required", nil)
	}
	if def.Slug == "" {
		res.addError(CodeMissingRequiredField, "slug", "procedure slug is required", nil)
	} else if !SlugPattern.MatchString(def.Slug) {
		res.addError(CodeInvalidSlugFormat, "slug",
			fmt.Sprintf("slug %q must be lowercase, start with a letter, and contain only letters, digits, hyphens, and underscores", def.Slug),
			map[string]any{"slug": def.Slug, "pattern": SlugPattern.String()})
	}
	if def.OnError != "" && !ValidPolicies[def.OnError] {
		res.addError(CodeInvalidOnErrorPolicy, "on_error",
			fmt.Sprintf("on_error must be one of fail, skip, continue; got %q", def.OnError),
			map[string]any{"policy": string(def.OnError)})
	}

	v.checkParameterDefs(def.Parameters, res)

	if len(def.Steps) == 0 {
		res.addError(CodeEmptySteps, "steps", "procedure must have at least one step", nil)
		return
	}
	v.checkStepSchema(def.Steps, "steps", res)
}

func (v *Validator) checkParameterDefs(params []ParameterDef, res *ValidationResult) {
	seen := make(map[string]bool, len(params))
	for i, p := range params {
		path := fmt.Sprintf("parameters[%d]", i)
		if p.Name == "" {
			res.addError(CodeMissingParameterName, path, "parameter name is required", nil)
			continue
		}
		if seen[p.Name] {
			res.addError(CodeDuplicateParameterName, path,
				fmt.Sprintf("duplicate parameter name %q", p.Name),
				map[string]any{"parameter": p.Name})
		}
		seen[p.Name] = true

		if p.Required && p.Default != nil {
			res.addError(CodeContradictoryParameter, path,
				fmt.Sprintf("parameter %q is required but declares a default; a parameter with a default is never missing", p.Name),
				map[string]any{"parameter": p.Name})
		}
		if p.Type != "" && !parameterTypes[p.Type] {
			res.addError(CodeInvalidFieldType, path+".type",
				fmt.Sprintf("unknown parameter type %q", p.Type),
				map[string]any{"parameter": p.Name, "type": p.Type})
		}
	}
}

// checkStepSchema validates name/function presence, name uniqueness within
// each step-list, and on_error values, recursing into branches.
func (v *Validator) checkStepSchema(steps []Step, path string, res *ValidationResult) {
	seen := make(map[string]bool, len(steps))
	for i, step := range steps {
		stepPath := fmt.Sprintf("%s[%d]", path, i)
		if step.Name == "" {
			res.addError(CodeMissingRequiredField, stepPath+".name", "step name is required", nil)
		} else {
			if seen[step.Name] {
				res.addError(CodeDuplicateStepName, stepPath+".name",
					fmt.Sprintf("duplicate step name %q", step.Name),
					map[string]any{"step": step.Name})
			}
			seen[step.Name] = true
		}
		if step.Function == "" {
			res.addError(CodeMissingRequiredField, stepPath+".function", "step function is required", nil)
		}
		if step.OnError != "" && !ValidPolicies[step.OnError] {
			res.addError(CodeInvalidOnErrorPolicy, stepPath+".on_error",
				fmt.Sprintf("on_error must be one of fail, skip, continue; got %q", step.OnError),
				map[string]any{"policy": string(step.OnError)})
		}
		for _, branch := range sortedBranchNames(step.Branches) {
			v.checkStepSchema(step.Branches[branch], stepPath+".branches."+branch, res)
		}
	}
}

// walkSteps is the shared visitor for passes 2 through 4. The scope carries
// the step names that execute strictly before the current step; each branch
// gets its own copy so sibling branches cannot see each other.
func (v *Validator) walkSteps(steps []Step, path string, sc *scope, res *ValidationResult) {
	for i := range steps {
		step := &steps[i]
		stepPath := fmt.Sprintf("%s[%d]", path, i)

		known := v.checkFunction(step, stepPath, res)
		v.checkBranchStructure(step, stepPath, res)
		v.checkReferences(step, stepPath, sc, res)
		if known {
			v.checkAdvisories(step, stepPath, res)
		}

		for _, branch := range sortedBranchNames(step.Branches) {
			child := sc.clone()
			v.walkSteps(step.Branches[branch], stepPath+".branches."+branch, child, res)
		}

		// The step becomes visible to later siblings only, never to its
		// own branches.
		sc.markSeen(step.Name)
	}
}

// checkFunction is pass 2: the function must resolve in the catalog, and
// every required parameter must be supplied unless its value is a template
// expression deferred to run time.
func (v *Validator) checkFunction(step *Step, stepPath string, res *ValidationResult) bool {
	meta, ok := v.catalog.Lookup(step.Function)
	if !ok {
		available := v.catalog.Names()
		sort.Strings(available)
		res.addError(CodeUnknownFunction, stepPath+".function",
			fmt.Sprintf("unknown function %q", step.Function),
			map[string]any{"function": step.Function, "available": available})
		return false
	}

	for _, p := range meta.Parameters {
		if !p.Required {
			continue
		}
		value, present := step.Params[p.Name]
		if present && value != nil {
			continue
		}
		res.addError(CodeMissingRequiredParam, stepPath+".params."+p.Name,
			fmt.Sprintf("function %q requires parameter %q", step.Function, p.Name),
			map[string]any{"function": step.Function, "parameter": p.Name})
	}
	return true
}

// checkBranchStructure enforces the per-flow-function branch rules. A
// non-flow step must not carry branches at all.
func (v *Validator) checkBranchStructure(step *Step, stepPath string, res *ValidationResult) {
	if !function.IsFlowFunction(step.Function) {
		if len(step.Branches) > 0 {
			res.addError(CodeInvalidBranchStructure, stepPath+".branches",
				fmt.Sprintf("function %q does not accept branches; only flow-control functions do", step.Function),
				map[string]any{"function": step.Function})
		}
		return
	}

	branchPath := stepPath + ".branches"
	switch step.Function {
	case function.FuncIfBranch:
		v.requireBranch(step, branchPath, function.BranchThen, res)
		v.forbidExtraBranches(step, branchPath, res, function.BranchThen, function.BranchElse)
		if steps, ok := step.Branches[function.BranchElse]; ok && len(steps) == 0 {
			res.addError(CodeEmptyBranch, branchPath+"."+function.BranchElse,
				"branch must contain at least one step", nil)
		}

	case function.FuncForeach:
		v.requireBranch(step, branchPath, function.BranchEach, res)
		v.forbidExtraBranches(step, branchPath, res, function.BranchEach)

	case function.FuncSwitchBranch:
		cases := 0
		for _, name := range sortedBranchNames(step.Branches) {
			if len(step.Branches[name]) == 0 {
				res.addError(CodeEmptyBranch, branchPath+"."+name,
					"branch must contain at least one step", nil)
			}
			if name != function.BranchDefault {
				cases++
			}
		}
		if cases == 0 {
			res.addError(CodeInsufficientBranches, branchPath,
				"switch_branch requires at least one case branch besides default",
				map[string]any{"required": 1, "found": 0})
		}

	case function.FuncParallel:
		for _, name := range sortedBranchNames(step.Branches) {
			if len(step.Branches[name]) == 0 {
				res.addError(CodeEmptyBranch, branchPath+"."+name,
					"branch must contain at least one step", nil)
			}
		}
		if len(step.Branches) < 2 {
			res.addError(CodeInsufficientBranches, branchPath,
				fmt.Sprintf("parallel requires at least 2 branches, found %d", len(step.Branches)),
				map[string]any{"required": 2, "found": len(step.Branches)})
		}
	}
}

func (v *Validator) requireBranch(step *Step, branchPath, name string, res *ValidationResult) {
	steps, ok := step.Branches[name]
	if !ok {
		res.addError(CodeMissingRequiredBranch, branchPath+"."+name,
			fmt.Sprintf("function %q requires a %q branch", step.Function, name),
			map[string]any{"function": step.Function, "branch": name})
		return
	}
	if len(steps) == 0 {
		res.addError(CodeEmptyBranch, branchPath+"."+name,
			"branch must contain at least one step", nil)
	}
}

func (v *Validator) forbidExtraBranches(step *Step, branchPath string, res *ValidationResult, allowed ...string) {
	permitted := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		permitted[name] = true
	}
	for _, name := range sortedBranchNames(step.Branches) {
		if !permitted[name] {
			res.addError(CodeInvalidBranchStructure, branchPath+"."+name,
				fmt.Sprintf("function %q does not recognize branch %q", step.Function, name),
				map[string]any{"function": step.Function, "branch": name, "allowed": allowed})
		}
	}
}

// sortedBranchNames fixes the branch visit order so findings are reported
// deterministically.
func sortedBranchNames(branches map[string][]Step) []string {
	if len(branches) == 0 {
		return nil
	}
	names := make([]string, 0, len(branches))
	for name := range branches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
