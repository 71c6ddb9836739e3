package commands

import (
	"github.com/spf13/cobra"

	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/engine"
)

func newInstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "install <package>[=<version>]...",
		Short: "Install packages and their dependencies",
		Long: `Resolve the dependency graph for the given specs, download and
verify each artifact, run its install actions in the sandbox, and
publish it as the package's current version.`,
		Example: `  # Install the latest available version
  hpm install netscan

  # Install an exact version of several packages
  hpm install netscan=2.1 hk-core=1.0`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			specs := make([]engine.Spec, len(args))
			for i, arg := range args {
				spec, err := engine.ParseSpec(arg)
				if err != nil {
					return err
				}
				specs[i] = spec
			}

			e := newEngine(cmd.Context())
			defer closeEngine(e)
			return e.Install(cmd.Context(), specs)
		},
	}
}
