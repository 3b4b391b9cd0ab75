// Copyright 2025 OpsForge
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package validate

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/opsforge/playbook/internal/commands/shared"
	"github.com/opsforge/playbook/pkg/function/builtin"
	"github.com/opsforge/playbook/pkg/procedure"
)

// NewCommand creates the validate command
func NewCommand() *cobra.Command {
	var useJSON bool

	cmd := &cobra.Command{
		Use:   "validate <procedure>",
		Short: "Validate a procedure definition",
		Long: `Validate checks that a procedure file has valid YAML syntax and passes
static analysis: every step's function must exist in the catalog, required
parameters must be supplied, branch structures must match their flow
function, and template references must point at parameters or earlier
steps. Warnings flag suspicious-but-legal constructs and never fail
validation.

The exit code is 0 when the definition is valid, 1 when validation finds
errors, and 2 when the file cannot be read or parsed.`,
		Example: `  # Validate a procedure
  playbook validate procedure.yaml

  # Validate with machine-readable output
  playbook validate procedure.yaml --json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args[0], useJSON)
		},
	}

	cmd.Flags().BoolVar(&useJSON, "json", false, "Emit the validation result as JSON")

	return cmd
}

func runValidate(cmd *cobra.Command, path string, useJSON bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return shared.NewInvalidInputError("failed to read procedure file", err)
	}

	def, err := procedure.Parse(data)
	if err != nil {
		return shared.NewInvalidInputError("failed to parse procedure file", err)
	}

	registry, err := builtin.NewRegistry(slog.Default())
	if err != nil {
		return fmt.Errorf("failed to build function registry: %w", err)
	}

	result := procedure.NewValidator(registry).Validate(def)

	if useJSON {
		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode validation result: %w", err)
		}
		cmd.Println(string(encoded))
	} else {
		printResult(cmd, path, result)
	}

	if !result.Valid {
		return shared.NewValidationFailedError("")
	}
	return nil
}

func printResult(cmd *cobra.Command, path string, result *procedure.ValidationResult) {
	if result.Valid {
		cmd.Printf("%s: valid (%d warnings)\n", path, len(result.Warnings))
	} else {
		cmd.Printf("%s: invalid (%d errors, %d warnings)\n", path, len(result.Errors), len(result.Warnings))
	}
	for _, e := range result.Errors {
		fmt.Fprintf(cmd.ErrOrStderr(), "  error [%s] %s: %s\n", e.Code, e.Path, e.Message)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "  warning [%s] %s: %s\n", w.Code, w.Path, w.Message)
	}
}
