package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/engine"
)

func newRemoveCommand() *cobra.Command {
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "remove <package>[=<version>]",
		Short: "Remove an installed package",
		Long: `Delete installed versions of a package from the store, drop their
launcher scripts, and forget them in the journal. Without a version
every installed version is removed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := engine.ParseSpec(args[0])
			if err != nil {
				return err
			}

			// Removing every version asks first on a terminal; a
			// non-interactive invocation proceeds without a prompt.
			if spec.Version == "" && !assumeYes && isatty.IsTerminal(os.Stdin.Fd()) {
				fmt.Printf("remove all installed versions of %s? [y/N] ", spec.Name)
				reader := bufio.NewReader(os.Stdin)
				answer, _ := reader.ReadString('\n')
				if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
					fmt.Println("aborted")
					return nil
				}
			}

			e := newEngine(cmd.Context())
			defer closeEngine(e)
			return e.Remove(cmd.Context(), spec.Name, spec.Version)
		},
	}

	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
