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

package examples

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opsforge/playbook/internal/commands/shared"
	"github.com/opsforge/playbook/internal/examples"
)

// NewCommand creates the examples command
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "examples",
		Short: "List and copy bundled example procedures",
		Long: `Examples ships a few ready-made procedure definitions inside the binary.
List them, print one, or copy one out as a starting point for your own
procedure.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newShowCommand())
	cmd.AddCommand(newCopyCommand())

	return cmd
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the bundled examples",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := examples.List()
			if err != nil {
				return err
			}
			for _, ex := range list {
				cmd.Printf("%-24s %s\n", ex.Name, ex.Description)
			}
			return nil
		},
	}
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print an example procedure to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := examples.Get(args[0])
			if err != nil {
				return shared.NewInvalidInputError(fmt.Sprintf("example %q not found", args[0]), nil)
			}
			cmd.Print(string(content))
			return nil
		},
	}
}

func newCopyCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "copy <name>",
		Short: "Copy an example procedure to the current directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if !examples.Exists(name) {
				return shared.NewInvalidInputError(fmt.Sprintf("example %q not found", name), nil)
			}
			dest := output
			if dest == "" {
				dest = name + ".yaml"
			}
			if err := examples.CopyTo(name, dest); err != nil {
				return err
			}
			cmd.Printf("wrote %s\n", dest)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination path for the copied example")

	return cmd
}
