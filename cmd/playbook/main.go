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

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/opsforge/playbook/internal/commands/catalog"
	"github.com/opsforge/playbook/internal/commands/examples"
	"github.com/opsforge/playbook/internal/commands/help"
	"github.com/opsforge/playbook/internal/commands/schema"
	"github.com/opsforge/playbook/internal/commands/shared"
	"github.com/opsforge/playbook/internal/commands/validate"
	"github.com/opsforge/playbook/internal/log"
)

// Version information (injected via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	slog.SetDefault(log.New(log.FromEnv()))

	rootCmd := &cobra.Command{
		Use:   "playbook",
		Short: "Validate and inspect declarative procedures",
		Long: `Playbook works with declarative, step-based procedures whose steps invoke
named functions from a registry. It statically validates procedure
definitions before they are stored or executed and exposes the function
catalog for documentation tooling.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(validate.NewCommand())
	rootCmd.AddCommand(catalog.NewCommand())
	rootCmd.AddCommand(schema.NewCommand())
	rootCmd.AddCommand(examples.NewCommand())
	rootCmd.AddCommand(help.NewCommand(rootCmd))
	rootCmd.AddCommand(newVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		shared.HandleExitError(err)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("playbook %s (commit %s, built %s)\n", version, commit, buildDate)
		},
	}
}
