package commands

import (
	"github.com/spf13/cobra"
)

func newCleanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Empty the archive cache and prune stale staging directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := newEngine(cmd.Context())
			defer closeEngine(e)
			return e.Clean(cmd.Context())
		},
	}
}
