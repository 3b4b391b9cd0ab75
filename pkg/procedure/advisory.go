package procedure

import (
	"fmt"
	"strings"
)

// advisoryRule flags a likely author mistake: a step whose name contains the
// keyword while invoking one of the generic functions listed in insteadOf,
// where the specialized function was almost certainly intended. This class
// of mistake validates and runs cleanly but silently returns zero or wrong
// results, which is why it gets a dedicated advisory pass.
type advisoryRule struct {
	keyword   string
	expected  string
	insteadOf []string
}

var advisoryRules = []advisoryRule{
	{
		keyword:   "forecast",
		expected:  "search_forecasts",
		insteadOf: []string{"search_documents", "search_sam"},
	},
	{
		keyword:   "email",
		expected:  "send_email",
		insteadOf: []string{"generate_document", "webhook"},
	},
	{
		keyword:   "summar",
		expected:  "llm_summarize",
		insteadOf: []string{"llm_generate"},
	},
	{
		keyword:   "notify",
		expected:  "send_email",
		insteadOf: []string{"generate_document"},
	},
}

// checkAdvisories is pass 4. Findings are warnings only and never block
// validity.
func (v *Validator) checkAdvisories(step *Step, stepPath string, res *ValidationResult) {
	name := strings.ToLower(step.Name)
	for _, rule := range advisoryRules {
		if !strings.Contains(name, rule.keyword) {
			continue
		}
		for _, generic := range rule.insteadOf {
			if step.Function != generic {
				continue
			}
			// Only advise a swap to a function that actually exists in
			// this deployment's catalog.
			if _, ok := v.catalog.Lookup(rule.expected); !ok {
				continue
			}
			res.addWarning(CodeFunctionMismatchWarning, stepPath+".function",
				fmt.Sprintf("step %q calls %q; based on its name, %q was likely intended", step.Name, step.Function, rule.expected),
				map[string]any{"step": step.Name, "actual": step.Function, "expected": rule.expected})
			return
		}
	}
}
