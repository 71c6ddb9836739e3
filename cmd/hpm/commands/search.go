package commands

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newSearchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search the package index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := newEngine(cmd.Context())
			defer closeEngine(e)

			results, err := e.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(results)
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.Header([]string{"Package", "Latest", "Description"})
			for _, r := range results {
				table.Append([]string{r.Package, r.Latest, r.Description})
			}
			table.Render()
			return nil
		},
	}
}
