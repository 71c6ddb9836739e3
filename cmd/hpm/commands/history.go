package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent engine operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := newEngine(cmd.Context())
			defer closeEngine(e)
			if e.History == nil {
				return fmt.Errorf("operation history unavailable")
			}

			ops, err := e.History.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(ops)
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.Header([]string{"When", "Op", "Package", "Version", "Status", "Duration"})
			for _, op := range ops {
				duration := ""
				if op.CompletedAt != nil {
					duration = op.CompletedAt.Sub(op.StartedAt).Round(time.Millisecond).String()
				}
				table.Append([]string{
					humanize.Time(op.StartedAt),
					op.Op,
					op.Package,
					op.Version,
					string(op.Status),
					duration,
				})
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum operations to show")
	return cmd
}
