package commands

import (
	"github.com/spf13/cobra"
)

func newUpgradeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade",
		Short: "Upgrade the engine itself",
		Long: `Fetch the remote engine version and, when strictly newer than the
local one, download the engine and sandbox helper binaries into their
canonical paths. Independent of the package lock.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := newEngine(cmd.Context())
			defer closeEngine(e)
			return e.Upgrade(cmd.Context(), engineVersion)
		},
	}
}
