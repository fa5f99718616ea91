package clicmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wch1125/proviso/internal/validator"
)

func validateCmd() *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Run semantic diagnostics over a source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, _, err := loadProgram(args[0])
			if err != nil {
				return err
			}
			res := validator.Validate(prog)
			if !quiet {
				for _, d := range res.Errors {
					fmt.Printf("error: %s (%s)\n", d.Message, d.Reference)
				}
				for _, d := range res.Warnings {
					fmt.Printf("warning: %s (%s)\n", d.Message, d.Reference)
				}
			}
			if !res.Valid {
				return fmt.Errorf("validation failed: %d error(s)", len(res.Errors))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&quiet, "quiet", false, "suppress diagnostic output, report exit code only")
	return cmd
}
