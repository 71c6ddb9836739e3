package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/ui"
)

func newRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch the remote package index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := newEngine(cmd.Context())
			defer closeEngine(e)

			spin := ui.StartSpinner(os.Stdout, "refreshing package index")
			err := e.Refresh(cmd.Context())
			spin.Stop()
			return err
		},
	}
}
