package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/engine"
)

func newDepsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "deps <package>[=<version>]",
		Short: "Show the resolved install plan for a package",
		Long: `Resolve the dependency graph without touching the store and print
the plan in install order (dependencies first).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := engine.ParseSpec(args[0])
			if err != nil {
				return err
			}

			e := newEngine(cmd.Context())
			defer closeEngine(e)

			plan, err := e.Deps(cmd.Context(), spec)
			if err != nil {
				return err
			}
			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(plan)
			}
			for _, step := range plan {
				fmt.Printf("%s=%s\n", step.Package, step.Version)
			}
			return nil
		},
	}
}
