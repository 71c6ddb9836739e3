package commands

import (
	"github.com/spf13/cobra"
)

func newPinCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pin <package> <version>",
		Short: "Pin an installed version against automatic updates",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := newEngine(cmd.Context())
			defer closeEngine(e)
			return e.Pin(cmd.Context(), args[0], args[1])
		},
	}
}

func newUnpinCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unpin <package>",
		Short: "Clear the pin on a package's published version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := newEngine(cmd.Context())
			defer closeEngine(e)
			return e.Unpin(cmd.Context(), args[0])
		},
	}
}
