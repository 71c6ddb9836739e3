package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/engine"
)

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run <package>[=<version>] <binary> [args...]",
		Short: "Run a declared binary of an installed package in the sandbox",
		Long: `Execute a binary declared by the package's manifest inside the
sandbox and propagate its exit status. An explicit version runs that
version's artifact; otherwise the current link decides. Running a
version never repoints the current link — only "switch" does.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := engine.ParseSpec(args[0])
			if err != nil {
				return err
			}

			e := newEngine(cmd.Context())
			defer closeEngine(e)

			status, err := e.Run(cmd.Context(), spec, args[1], args[2:])
			if err != nil {
				return err
			}
			if status != 0 {
				closeEngine(e)
				os.Exit(status)
			}
			return nil
		},
	}
}
