package commands

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed packages and versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := newEngine(cmd.Context())
			defer closeEngine(e)

			entries, err := e.List(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(entries)
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.Header([]string{"Package", "Version", "Current", "Pinned", "Installed"})
			for _, entry := range entries {
				current, pinned := "", ""
				if entry.Current {
					current = "*"
				}
				if entry.Pinned {
					pinned = "pin"
				}
				installed := entry.Installed
				if t, err := time.Parse(time.RFC3339, entry.Installed); err == nil {
					installed = humanize.Time(t)
				}
				table.Append([]string{entry.Package, entry.Version, current, pinned, installed})
			}
			table.Render()
			return nil
		},
	}
}
