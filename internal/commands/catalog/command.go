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

package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/opsforge/playbook/pkg/function"
	"github.com/opsforge/playbook/pkg/function/builtin"
)

// NewCommand creates the catalog command
func NewCommand() *cobra.Command {
	var (
		category string
		useJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the functions available to procedures",
		Long: `Catalog lists every registered function with its category, parameters,
and description. The JSON form is consumed by documentation tooling and
AI-assisted procedure generators.`,
		Example: `  # List every function
  playbook catalog

  # List only flow-control functions
  playbook catalog --category flow

  # Full metadata as JSON
  playbook catalog --json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(cmd, category, useJSON)
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Only list functions in this category")
	cmd.Flags().BoolVar(&useJSON, "json", false, "Emit full function metadata as JSON")

	return cmd
}

func runCatalog(cmd *cobra.Command, category string, useJSON bool) error {
	registry, err := builtin.NewRegistry(slog.Default())
	if err != nil {
		return fmt.Errorf("failed to build function registry: %w", err)
	}

	var metas []function.Meta
	if category != "" {
		if !function.ValidCategories[function.Category(category)] {
			return fmt.Errorf("unknown category %q", category)
		}
		metas = registry.ListByCategory(function.Category(category))
	} else {
		metas = registry.Catalog()
	}

	if useJSON {
		encoded, err := json.MarshalIndent(metas, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode catalog: %w", err)
		}
		cmd.Println(string(encoded))
		return nil
	}

	for _, meta := range metas {
		cmd.Printf("%-16s %-8s %s\n", meta.Name, meta.Category, meta.Description)
		for _, p := range meta.Parameters {
			required := ""
			if p.Required {
				required = " (required)"
			}
			cmd.Printf("    %-14s %-8s%s %s\n", p.Name, p.Type, required, p.Description)
		}
	}
	return nil
}
