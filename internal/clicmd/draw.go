package clicmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wch1125/proviso/internal/reportfmt"
)

func drawCmd() *cobra.Command {
	sf := &sharedFlags{}
	cmd := &cobra.Command{
		Use:   "draw <file> <checklist>",
		Short: "Check whether a conditions-precedent checklist allows a draw",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := buildInterpreter(args[0], sf)
			if err != nil {
				return err
			}
			checklist := args[1]
			allowed, err := it.IsDrawAllowed(checklist)
			if err != nil {
				return err
			}
			outstanding, _ := it.OutstandingItems(checklist)
			type result struct {
				Allowed     bool     `json:"allowed"`
				Outstanding []string `json:"outstanding,omitempty"`
			}
			res := result{Allowed: allowed, Outstanding: outstanding}
			if err := emit(sf.jsonOut, res, func() {
				var lines []string
				lines = append(lines, fmt.Sprintf("draw allowed: %t", allowed))
				for _, o := range outstanding {
					lines = append(lines, "outstanding: "+o)
				}
				fmt.Print(reportfmt.Box("Conditions Precedent", lines))
			}); err != nil {
				return err
			}
			if !allowed {
				return fmt.Errorf("draw not allowed: %d outstanding item(s)", len(outstanding))
			}
			return nil
		},
	}
	addSharedFlags(cmd, sf)
	return cmd
}
