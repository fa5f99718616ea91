package clicmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wch1125/proviso/internal/reportfmt"
)

func checkCmd() *cobra.Command {
	sf := &sharedFlags{}
	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Check covenant compliance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := buildInterpreter(args[0], sf)
			if err != nil {
				return err
			}
			allCompliant := true
			type row struct {
				Name      string  `json:"name"`
				Actual    float64 `json:"actual"`
				Threshold float64 `json:"threshold"`
				Operator  string  `json:"operator"`
				Compliant bool    `json:"compliant"`
				Headroom  float64 `json:"headroom"`
				Suspended bool    `json:"suspended"`
			}
			var rows []row
			for _, name := range it.ActiveCovenants() {
				res, err := it.CheckDetailed(name)
				if err != nil {
					allCompliant = false
					fmt.Printf("%-30s ERROR: %v\n", name, err)
					continue
				}
				if !res.Suspended && !res.Compliant {
					allCompliant = false
				}
				rows = append(rows, row{
					Name: name, Actual: res.Actual, Threshold: res.Threshold,
					Operator: res.Operator, Compliant: res.Compliant,
					Headroom: res.Headroom, Suspended: res.Suspended,
				})
			}
			err = emit(sf.jsonOut, rows, func() {
				var lines []string
				for _, r := range rows {
					status := "FAIL"
					if r.Compliant {
						status = "PASS"
					}
					if r.Suspended {
						status = "SUSPENDED"
					}
					lines = append(lines, fmt.Sprintf("%-30s %-10s actual=%.4f threshold=%.4f headroom=%.4f", r.Name, status, r.Actual, r.Threshold, r.Headroom))
				}
				fmt.Print(reportfmt.Box("Covenant Compliance", lines))
			})
			if err != nil {
				return err
			}
			if !allCompliant {
				return fmt.Errorf("one or more covenants are non-compliant")
			}
			return nil
		},
	}
	addSharedFlags(cmd, sf)
	return cmd
}
