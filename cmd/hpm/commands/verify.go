package commands

import (
	"github.com/spf13/cobra"
)

func newVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <package>",
		Short: "Verify a package's published version against its recorded digest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := newEngine(cmd.Context())
			defer closeEngine(e)
			return e.Verify(cmd.Context(), args[0])
		},
	}
}
