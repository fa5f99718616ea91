package clicmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wch1125/proviso/internal/render"
)

func renderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Render a source file back to prose, article by article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, _, err := loadProgram(args[0])
			if err != nil {
				return err
			}
			doc := render.Render(prog)
			fmt.Print(doc.FullText)
			return nil
		},
	}
	return cmd
}
