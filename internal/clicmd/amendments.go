package clicmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wch1125/proviso/internal/reportfmt"
)

func amendmentsCmd() *cobra.Command {
	sf := &sharedFlags{}
	cmd := &cobra.Command{
		Use:   "amendments <file>",
		Short: "List applied amendments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := buildInterpreter(args[0], sf)
			if err != nil {
				return err
			}
			applied := it.AppliedAmendments()
			type row struct {
				Name      string `json:"name"`
				Effective string `json:"effective"`
				Edits     int    `json:"edits"`
			}
			var rows []row
			for _, a := range applied {
				rows = append(rows, row{Name: a.Ident, Effective: a.Effective, Edits: len(a.Edits)})
			}
			return emit(sf.jsonOut, rows, func() {
				var lines []string
				for _, r := range rows {
					lines = append(lines, fmt.Sprintf("%-20s effective=%-12s edits=%d", r.Name, r.Effective, r.Edits))
				}
				fmt.Print(reportfmt.Box("Applied Amendments", lines))
			})
		},
	}
	addSharedFlags(cmd, sf)
	return cmd
}
