package clicmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func parseCmd() *cobra.Command {
	var pretty bool
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a source file and dump its AST",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, _, err := loadProgram(args[0])
			if err != nil {
				return err
			}
			if pretty {
				for _, stmt := range prog.Statements {
					fmt.Printf("%s %s\n", kindName(stmt), stmt.Name())
				}
				return nil
			}
			fmt.Printf("%d statements\n", len(prog.Statements))
			return nil
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "print one line per statement")
	return cmd
}

func kindName(stmt interface{ Name() string }) string {
	return fmt.Sprintf("%T", stmt)
}
