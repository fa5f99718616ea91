package clicmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wch1125/proviso/internal/reportfmt"
)

func historyCmd() *cobra.Command {
	sf := &sharedFlags{}
	var covenantsOnly bool
	cmd := &cobra.Command{
		Use:   "history <file>",
		Short: "Report multi-period compliance history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := buildInterpreter(args[0], sf)
			if err != nil {
				return err
			}
			rows, err := it.ComplianceHistory()
			if err != nil {
				return err
			}
			return emit(sf.jsonOut, rows, func() {
				var lines []string
				for _, r := range rows {
					overall := "FAIL"
					if r.OverallCompliant {
						overall = "PASS"
					}
					line := fmt.Sprintf("%-15s overall=%s", r.Period, overall)
					if !covenantsOnly {
						lines = append(lines, line)
						continue
					}
					for name, ok := range r.Covenants {
						status := "FAIL"
						if ok {
							status = "PASS"
						}
						lines = append(lines, fmt.Sprintf("%-15s %-25s %s", r.Period, name, status))
					}
				}
				fmt.Print(reportfmt.Box("Compliance History", lines))
			})
		},
	}
	addSharedFlags(cmd, sf)
	cmd.Flags().BoolVar(&covenantsOnly, "covenants-only", false, "list per-covenant results instead of the overall verdict")
	return cmd
}
