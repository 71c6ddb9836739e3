package commands

import (
	"github.com/spf13/cobra"
)

func newSwitchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "switch <package> <version>",
		Short: "Atomically repoint a package's published version",
		Example: `  # Fall back to an older installed version
  hpm switch netscan 2.0`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := newEngine(cmd.Context())
			defer closeEngine(e)
			return e.Switch(cmd.Context(), args[0], args[1])
		},
	}
}
