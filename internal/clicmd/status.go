package clicmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wch1125/proviso/internal/reportfmt"
)

func statusCmd() *cobra.Command {
	sf := &sharedFlags{}
	var showCure bool
	cmd := &cobra.Command{
		Use:   "status <file>",
		Short: "Print a full compliance, basket, phase, and reserve report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := buildInterpreter(args[0], sf)
			if err != nil {
				return err
			}

			type covRow struct {
				Name      string  `json:"name"`
				Compliant bool    `json:"compliant"`
				Headroom  float64 `json:"headroom"`
				Cure      string  `json:"cure,omitempty"`
			}
			type report struct {
				Phase     string             `json:"phase"`
				Covenants []covRow           `json:"covenants"`
				Baskets   map[string]float64 `json:"baskets"`
			}
			rep := report{Phase: it.CurrentPhase(), Baskets: map[string]float64{}}

			for _, name := range it.ActiveCovenants() {
				res, err := it.CheckDetailed(name)
				if err != nil {
					rep.Covenants = append(rep.Covenants, covRow{Name: name, Cure: err.Error()})
					continue
				}
				cr := covRow{Name: name, Compliant: res.Compliant, Headroom: res.Headroom}
				if showCure && !res.Compliant {
					if _, cs, err := it.CheckWithCure(name); err == nil && cs != nil {
						if cs.CureAvailable {
							cr.Cure = fmt.Sprintf("available, shortfall=%.2f, uses remaining=%d", cs.Shortfall, cs.UsesRemaining)
						} else {
							cr.Cure = "unavailable"
						}
					}
				}
				rep.Covenants = append(rep.Covenants, cr)
			}
			for _, name := range it.BasketNames() {
				if avail, err := it.BasketAvailable(name); err == nil {
					rep.Baskets[name] = avail
				}
			}

			return emit(sf.jsonOut, rep, func() {
				var lines []string
				lines = append(lines, "phase: "+rep.Phase)
				for _, c := range rep.Covenants {
					status := "FAIL"
					if c.Compliant {
						status = "PASS"
					}
					line := fmt.Sprintf("covenant %-25s %-6s headroom=%.2f", c.Name, status, c.Headroom)
					if c.Cure != "" {
						line += " cure=" + c.Cure
					}
					lines = append(lines, line)
				}
				for name, avail := range rep.Baskets {
					lines = append(lines, fmt.Sprintf("basket   %-25s available=%.2f", name, avail))
				}
				fmt.Print(reportfmt.Box("Status Report", lines))
			})
		},
	}
	addSharedFlags(cmd, sf)
	cmd.Flags().BoolVar(&showCure, "show-cure", false, "include cure availability for breached covenants")
	return cmd
}
