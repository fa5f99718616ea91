package clicmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wch1125/proviso/internal/reportfmt"
)

func reservesCmd() *cobra.Command {
	sf := &sharedFlags{}
	cmd := &cobra.Command{
		Use:   "reserves <file>",
		Short: "Report reserve account status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := buildInterpreter(args[0], sf)
			if err != nil {
				return err
			}
			type row struct {
				Name             string  `json:"name"`
				Balance          float64 `json:"balance"`
				Target           float64 `json:"target"`
				FundedPercent    float64 `json:"fundedPercent"`
				BelowMinimum     bool    `json:"belowMinimum"`
				AvailableRelease float64 `json:"availableForRelease"`
			}
			var rows []row
			for _, name := range it.ReserveNames() {
				bal, err := it.ReserveBalance(name)
				if err != nil {
					continue
				}
				target, _ := it.ReserveTarget(name)
				pct, _ := it.FundedPercent(name)
				below, _ := it.BelowMinimum(name)
				avail, _ := it.AvailableForRelease(name)
				rows = append(rows, row{Name: name, Balance: bal, Target: target, FundedPercent: pct, BelowMinimum: below, AvailableRelease: avail})
			}
			return emit(sf.jsonOut, rows, func() {
				var lines []string
				for _, r := range rows {
					lines = append(lines, fmt.Sprintf("%-20s balance=%.2f target=%.2f funded=%.0f%% available=%.2f", r.Name, r.Balance, r.Target, r.FundedPercent*100, r.AvailableRelease))
				}
				fmt.Print(reportfmt.Box("Reserve Status", lines))
			})
		},
	}
	addSharedFlags(cmd, sf)
	return cmd
}
