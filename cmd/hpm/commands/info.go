package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/ui"
)

func newInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <package>",
		Short: "Show index and install details for a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := newEngine(cmd.Context())
			defer closeEngine(e)

			info, err := e.Info(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(info)
			}

			fmt.Println(ui.Accent.Render(info.Name))
			fmt.Println("  author:     ", info.Entry.Author)
			fmt.Println("  license:    ", info.Entry.License)
			fmt.Println("  description:", info.Entry.Description)

			var available []string
			for _, rec := range info.Entry.Versions {
				available = append(available, rec.Version)
			}
			fmt.Println("  available:  ", strings.Join(available, ", "))
			if len(info.Installed) > 0 {
				fmt.Println("  installed:  ", strings.Join(info.Installed, ", "))
			}
			if info.Current != "" {
				fmt.Println("  current:    ", info.Current)
			}
			return nil
		},
	}
}
