package clicmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wch1125/proviso/internal/reportfmt"
)

func waterfallCmd() *cobra.Command {
	sf := &sharedFlags{}
	var revenue float64
	var name string
	cmd := &cobra.Command{
		Use:   "waterfall <file>",
		Short: "Execute a waterfall's tiers against an available revenue amount",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := buildInterpreter(args[0], sf)
			if err != nil {
				return err
			}
			if name == "" {
				names := it.WaterfallNames()
				if len(names) == 0 {
					return fmt.Errorf("no waterfall declared in source")
				}
				name = names[0]
			}
			results, err := it.RunWaterfall(name, revenue)
			if err != nil {
				return err
			}
			return emit(sf.jsonOut, results, func() {
				var lines []string
				for _, r := range results {
					if r.Skipped {
						lines = append(lines, fmt.Sprintf("tier %-3d %-20s SKIPPED", r.Rank, r.Pay))
						continue
					}
					lines = append(lines, fmt.Sprintf("tier %-3d %-20s requested=%.2f paid=%.2f shortfallDrawn=%.2f", r.Rank, r.Pay, r.Requested, r.Paid, r.ShortfallDrawn))
				}
				fmt.Print(reportfmt.Box("Waterfall Run", lines))
			})
		},
	}
	addSharedFlags(cmd, sf)
	cmd.Flags().Float64Var(&revenue, "revenue", 0, "available revenue for this period")
	cmd.Flags().StringVar(&name, "waterfall", "", "waterfall name (defaults to the first declared)")
	return cmd
}
