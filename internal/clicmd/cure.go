package clicmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func cureCmd() *cobra.Command {
	sf := &sharedFlags{}
	cmd := &cobra.Command{
		Use:   "cure <file> <covenant> <amount>",
		Short: "Apply a cure to a breached covenant",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := buildInterpreter(args[0], sf)
			if err != nil {
				return err
			}
			amount, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[2], err)
			}
			ok, err := it.ApplyCure(args[1], sf.asOf, amount)
			if err != nil {
				return err
			}
			return emit(sf.jsonOut, map[string]bool{"successful": ok}, func() {
				fmt.Printf("cure applied to %s: successful\n", args[1])
			})
		},
	}
	addSharedFlags(cmd, sf)
	return cmd
}
