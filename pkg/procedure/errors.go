package procedure

import (
	"encoding/json"
	"fmt"
)

// Code identifies one kind of validation finding. The set is closed and
// stable so authoring tools can branch on it.
type Code string

// Schema codes.
const (
	CodeMissingRequiredField   Code = "MISSING_REQUIRED_FIELD"
	CodeInvalidFieldType       Code = "INVALID_FIELD_TYPE"
	CodeInvalidSlugFormat      Code = "INVALID_SLUG_FORMAT"
	CodeEmptySteps             Code = "EMPTY_STEPS"
	CodeDuplicateStepName      Code = "DUPLICATE_STEP_NAME"
	CodeDuplicateParameterName Code = "DUPLICATE_PARAMETER_NAME"
	CodeContradictoryParameter Code = "CONTRADICTORY_PARAMETER"
	CodeMissingParameterName   Code = "MISSING_PARAMETER_NAME"
)

// Function and policy codes.
const (
	CodeUnknownFunction      Code = "UNKNOWN_FUNCTION"
	CodeMissingRequiredParam Code = "MISSING_REQUIRED_PARAM"
	CodeInvalidOnErrorPolicy Code = "INVALID_ON_ERROR_POLICY"
)

// Flow-structure codes.
const (
	CodeMissingRequiredBranch  Code = "MISSING_REQUIRED_BRANCH"
	CodeEmptyBranch            Code = "EMPTY_BRANCH"
	CodeInsufficientBranches   Code = "INSUFFICIENT_BRANCHES"
	CodeInvalidBranchStructure Code = "INVALID_BRANCH_STRUCTURE"
)

// Template-reference codes.
const (
	CodeInvalidStepReference  Code = "INVALID_STEP_REFERENCE"
	CodeInvalidParamReference Code = "INVALID_PARAM_REFERENCE"
	CodeCircularDependency    Code = "CIRCULAR_DEPENDENCY"
	CodeInvalidTemplateSyntax Code = "INVALID_TEMPLATE_SYNTAX"
)

// Advisory codes. These surface as warnings and never block validity.
const (
	CodeFunctionMismatchWarning Code = "FUNCTION_MISMATCH_WARNING"
)

// ValidationError locates one finding in a definition. Path is a
// dotted/indexed locator such as steps[2].branches.then[0].params.query.
type ValidationError struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Path    string         `json:"path"`
	Details map[string]any `json:"details,omitempty"`
}

func (e ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s at %s: %s", e.Code, e.Path, e.Message)
}

// ValidationResult collects every finding from one validation run.
// Warnings never affect Valid.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationError `json:"errors"`
	Warnings []ValidationError `json:"warnings"`
}

// addError records an error finding.
func (r *ValidationResult) addError(code Code, path, message string, details map[string]any) {
	r.Errors = append(r.Errors, ValidationError{
		Code:    code,
		Message: message,
		Path:    path,
		Details: details,
	})
}

// addWarning records an advisory finding.
func (r *ValidationResult) addWarning(code Code, path, message string, details map[string]any) {
	r.Warnings = append(r.Warnings, ValidationError{
		Code:    code,
		Message: message,
		Path:    path,
		Details: details,
	})
}

// validationResultWire is the serialized form consumed by authoring tools.
// The counts are redundant with the slices but kept on the wire so clients
// can display totals without materializing the lists.
type validationResultWire struct {
	Valid        bool              `json:"valid"`
	Errors       []ValidationError `json:"errors"`
	Warnings     []ValidationError `json:"warnings"`
	ErrorCount   int               `json:"error_count"`
	WarningCount int               `json:"warning_count"`
}

// MarshalJSON renders the wire form with error_count and warning_count.
// Empty slices serialize as [] rather than null.
func (r ValidationResult) MarshalJSON() ([]byte, error) {
	wire := validationResultWire{
		Valid:        r.Valid,
		Errors:       r.Errors,
		Warnings:     r.Warnings,
		ErrorCount:   len(r.Errors),
		WarningCount: len(r.Warnings),
	}
	if wire.Errors == nil {
		wire.Errors = []ValidationError{}
	}
	if wire.Warnings == nil {
		wire.Warnings = []ValidationError{}
	}
	return json.Marshal(wire)
}

// UnmarshalJSON accepts the wire form, ignoring the redundant counts.
func (r *ValidationResult) UnmarshalJSON(data []byte) error {
	var wire validationResultWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	r.Valid = wire.Valid
	r.Errors = wire.Errors
	r.Warnings = wire.Warnings
	return nil
}
