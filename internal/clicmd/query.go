package clicmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func queryCmd() *cobra.Command {
	sf := &sharedFlags{}
	var amount float64
	cmd := &cobra.Command{
		Use:   "query <file> <action>",
		Short: "Check whether a prohibited action is currently permitted",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := buildInterpreter(args[0], sf)
			if err != nil {
				return err
			}
			action := args[1]
			blocked, err := it.CheckProhibition(action)
			if err != nil {
				return err
			}
			type result struct {
				Action    string  `json:"action"`
				Amount    float64 `json:"amount,omitempty"`
				Permitted bool    `json:"permitted"`
			}
			res := result{Action: action, Amount: amount, Permitted: !blocked}
			if err := emit(sf.jsonOut, res, func() {
				if res.Permitted {
					fmt.Printf("%s: permitted\n", action)
				} else {
					fmt.Printf("%s: prohibited\n", action)
				}
			}); err != nil {
				return err
			}
			if !res.Permitted {
				return fmt.Errorf("%s is prohibited", action)
			}
			return nil
		},
	}
	addSharedFlags(cmd, sf)
	cmd.Flags().Float64Var(&amount, "amount", 0, "transaction amount under consideration")
	return cmd
}
