package clicmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wch1125/proviso/internal/reportfmt"
)

func basketsCmd() *cobra.Command {
	sf := &sharedFlags{}
	var verbose bool
	cmd := &cobra.Command{
		Use:   "baskets <file>",
		Short: "Report basket availability",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := buildInterpreter(args[0], sf)
			if err != nil {
				return err
			}
			type row struct {
				Name      string  `json:"name"`
				Capacity  float64 `json:"capacity"`
				Used      float64 `json:"used"`
				Available float64 `json:"available"`
				Unpriced  bool    `json:"unpriced,omitempty"`
			}
			var rows []row
			for _, name := range it.BasketNames() {
				cap, used, err := it.BasketCapacity(name)
				if err != nil {
					rows = append(rows, row{Name: name, Unpriced: true})
					continue
				}
				avail, err := it.BasketAvailable(name)
				if err != nil {
					rows = append(rows, row{Name: name, Unpriced: true})
					continue
				}
				rows = append(rows, row{Name: name, Capacity: cap, Used: used, Available: avail})
			}
			return emit(sf.jsonOut, rows, func() {
				var lines []string
				for _, r := range rows {
					if r.Unpriced {
						lines = append(lines, fmt.Sprintf("%-30s $0 available (unpriced)", r.Name))
						continue
					}
					line := fmt.Sprintf("%-30s available=%.2f", r.Name, r.Available)
					if verbose {
						line = fmt.Sprintf("%-30s capacity=%.2f used=%.2f available=%.2f", r.Name, r.Capacity, r.Used, r.Available)
					}
					lines = append(lines, line)
				}
				fmt.Print(reportfmt.Box("Basket Availability", lines))
			})
		},
	}
	addSharedFlags(cmd, sf)
	cmd.Flags().BoolVar(&verbose, "verbose", false, "show capacity and used alongside available")
	return cmd
}
