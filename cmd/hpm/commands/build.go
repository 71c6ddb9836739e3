package commands

import (
	"os"

	"github.com/spf13/cobra"
)

func newBuildCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "build <name>",
		Short: "Build a package archive from the current directory",
		Long: `Produce <name>.archive from the conventional inputs in the working
directory: the info.hk manifest, the launchers tree and the payload
tree. The resulting digest is printed for publication in an index.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}

			e := newEngine(cmd.Context())
			defer closeEngine(e)
			_, _, err = e.Build(cmd.Context(), cwd, args[0])
			return err
		},
	}
}
