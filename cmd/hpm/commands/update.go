package commands

import (
	"github.com/spf13/cobra"
)

func newUpdateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Update installed packages to their latest indexed versions",
		Long: `For every installed package, compare the published version against
the index maximum. Strictly newer, unpinned versions are replaced:
the old version is removed and the new one installed under the same
lock.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := newEngine(cmd.Context())
			defer closeEngine(e)
			_, err := e.Update(cmd.Context())
			return err
		},
	}
}
