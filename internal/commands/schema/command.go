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

package schema

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opsforge/playbook/schemas"
)

// NewCommand creates the schema command
func NewCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the procedure definition JSON Schema",
		Long: `Schema prints the JSON Schema that procedure definitions conform to.
Point an editor or CI linter at it for autocompletion and early
structural feedback before the full validator runs.`,
		Example: `  # Print the schema to stdout
  playbook schema

  # Write it to a file for editor integration
  playbook schema --output procedure.schema.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "" {
				if err := os.WriteFile(output, schemas.GetProcedureSchema(), 0o644); err != nil {
					return fmt.Errorf("failed to write schema: %w", err)
				}
				cmd.Printf("wrote schema to %s\n", output)
				return nil
			}
			cmd.Print(schemas.GetProcedureSchemaString())
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the schema to a file instead of stdout")

	return cmd
}
