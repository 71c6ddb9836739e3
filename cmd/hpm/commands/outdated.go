package commands

import (
	"encoding/json"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newOutdatedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "outdated",
		Short: "Show installed packages with newer indexed versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := newEngine(cmd.Context())
			defer closeEngine(e)

			entries, err := e.Outdated(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(entries)
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.Header([]string{"Package", "Current", "Latest", "Pinned"})
			for _, entry := range entries {
				pinned := ""
				if entry.Pinned {
					pinned = "pin"
				}
				table.Append([]string{entry.Package, entry.Current, entry.Latest, pinned})
			}
			table.Render()
			return nil
		},
	}
}
