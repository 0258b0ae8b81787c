package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pdnroute/pkg/board"
)

// checkCommand creates the check command that loads and validates a board
// description without routing it.
func (c *CLI) checkCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "check [board.toml]",
		Short:             "Validate a board description",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeBoards,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := board.Load(args[0])
			if err != nil {
				return err
			}
			printSuccess("%s is valid", args[0])
			printBoardSummary(b)
			printNextStep("Route it with", fmt.Sprintf("%s route %s", appName, args[0]))
			return nil
		},
	}
}
