package clicmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wch1125/proviso/internal/reportfmt"
)

func milestonesCmd() *cobra.Command {
	sf := &sharedFlags{}
	cmd := &cobra.Command{
		Use:   "milestones <file>",
		Short: "Report milestone status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := buildInterpreter(args[0], sf)
			if err != nil {
				return err
			}
			type row struct {
				Name   string `json:"name"`
				Status string `json:"status"`
			}
			var rows []row
			for _, name := range it.MilestoneNames() {
				st, err := it.MilestoneState(name)
				if err != nil {
					continue
				}
				rows = append(rows, row{Name: name, Status: string(st)})
			}
			return emit(sf.jsonOut, rows, func() {
				var lines []string
				for _, r := range rows {
					lines = append(lines, fmt.Sprintf("%-25s %s", r.Name, r.Status))
				}
				fmt.Print(reportfmt.Box("Milestone Status", lines))
			})
		},
	}
	addSharedFlags(cmd, sf)
	return cmd
}
