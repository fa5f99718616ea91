package clicmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func phaseCmd() *cobra.Command {
	sf := &sharedFlags{}
	cmd := &cobra.Command{
		Use:   "phase <file>",
		Short: "Print the facility's current phase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := buildInterpreter(args[0], sf)
			if err != nil {
				return err
			}
			return emit(sf.jsonOut, map[string]string{"phase": it.CurrentPhase()}, func() {
				fmt.Println(it.CurrentPhase())
			})
		},
	}
	addSharedFlags(cmd, sf)
	return cmd
}
