package clicmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func accumulateCmd() *cobra.Command {
	sf := &sharedFlags{}
	var description string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "accumulate <file> [basket]",
		Short: "Apply a builder basket's periodic BUILDS_FROM accumulation",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := buildInterpreter(args[0], sf)
			if err != nil {
				return err
			}
			names := it.BasketNames()
			if len(args) == 2 {
				names = []string{args[1]}
			}
			for _, name := range names {
				if dryRun {
					amount, err := it.BasketBuildRate(name)
					if err != nil {
						continue
					}
					fmt.Printf("%s would accumulate %.2f\n", name, amount)
					continue
				}
				amount, err := it.AccumulateFromBuildsFrom(name, description)
				if err != nil {
					continue
				}
				fmt.Printf("%s accumulated %.2f\n", name, amount)
			}
			return nil
		},
	}
	addSharedFlags(cmd, sf)
	cmd.Flags().StringVar(&description, "description", "", "ledger entry description")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would accumulate without recording it")
	return cmd
}
