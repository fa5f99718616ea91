package clicmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wch1125/proviso/internal/reportfmt"
)

func simulateCmd() *cobra.Command {
	sf := &sharedFlags{}
	var changesJSON string
	cmd := &cobra.Command{
		Use:   "simulate <file>",
		Short: "Evaluate the pro-forma effect of hypothetical metric changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := buildInterpreter(args[0], sf)
			if err != nil {
				return err
			}
			changes := map[string]float64{}
			if changesJSON != "" {
				raw := []byte(changesJSON)
				if data, ferr := os.ReadFile(changesJSON); ferr == nil {
					raw = data
				}
				if err := json.Unmarshal(raw, &changes); err != nil {
					return fmt.Errorf("invalid --changes payload: %w", err)
				}
			}
			res, err := it.Simulate(changes)
			if err != nil {
				return err
			}
			return emit(sf.jsonOut, res, func() {
				var lines []string
				for name, ok := range res.Covenants {
					status := "FAIL"
					if ok {
						status = "PASS"
					}
					lines = append(lines, fmt.Sprintf("covenant %-25s %s", name, status))
				}
				for name, avail := range res.Baskets {
					lines = append(lines, fmt.Sprintf("basket   %-25s available=%.2f", name, avail))
				}
				fmt.Print(reportfmt.Box("Pro-forma Simulation", lines))
			})
		},
	}
	addSharedFlags(cmd, sf)
	cmd.Flags().StringVar(&changesJSON, "changes", "", "JSON object of metric overrides, inline or a file path")
	return cmd
}
