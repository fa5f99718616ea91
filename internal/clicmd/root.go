// Package clicmd assembles the proviso CLI's cobra command tree: one
// subcommand per operation in the external interface, each taking a
// source file. The data-driven subcommands also take the shared
// -d/-a/--as-of/--json flags; parse, validate, render and drift do not
// (drift registers its own --json).
package clicmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wch1125/proviso/internal/interpreter"
	"github.com/wch1125/proviso/internal/lang/ast"
	"github.com/wch1125/proviso/internal/lang/parser"
	"github.com/wch1125/proviso/internal/reportfmt"
)

// sharedFlags holds the -d/-a/--as-of/--json flags that addSharedFlags
// registers on the data-driven subcommands.
type sharedFlags struct {
	dataFile   string
	amendments []string
	asOf       string
	jsonOut    bool
}

func addSharedFlags(cmd *cobra.Command, sf *sharedFlags) {
	cmd.Flags().StringVarP(&sf.dataFile, "data", "d", "", "financial data JSON file")
	cmd.Flags().StringArrayVarP(&sf.amendments, "amendment", "a", nil, "amendment source file (repeatable)")
	cmd.Flags().StringVar(&sf.asOf, "as-of", "", "as-of period or date")
	cmd.Flags().BoolVar(&sf.jsonOut, "json", false, "emit JSON instead of plain text")
}

// Root builds the proviso root command.
func Root() *cobra.Command {
	root := &cobra.Command{
		Use:           "proviso",
		Short:         "Parse, validate, and evaluate credit agreement covenants",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		parseCmd(),
		validateCmd(),
		checkCmd(),
		basketsCmd(),
		simulateCmd(),
		statusCmd(),
		historyCmd(),
		queryCmd(),
		amendmentsCmd(),
		cureCmd(),
		ledgerCmd(),
		accumulateCmd(),
		milestonesCmd(),
		reservesCmd(),
		waterfallCmd(),
		drawCmd(),
		phaseCmd(),
		renderCmd(),
		driftCmd(),
	)
	return root
}

// loadProgram reads and parses a source file, printing the fixed
// parse-error layout and returning a non-nil error on failure.
func loadProgram(file string) (*ast.Program, string, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, "", err
	}
	prog, perr := parser.Parse(string(src))
	if perr != nil {
		fmt.Print(reportfmt.FormatParseError(file, string(src), perr))
		return nil, string(src), fmt.Errorf("parse failed")
	}
	return prog, string(src), nil
}

// buildInterpreter loads the program, financial data, and amendments
// described by sf, returning a ready-to-query Interpreter.
func buildInterpreter(file string, sf *sharedFlags) (*interpreter.Interpreter, error) {
	prog, _, err := loadProgram(file)
	if err != nil {
		return nil, err
	}
	it := interpreter.New(prog)

	if sf.dataFile != "" {
		raw, err := os.ReadFile(sf.dataFile)
		if err != nil {
			return nil, err
		}
		obs, err := interpreter.ParseObservation(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid financial data: %w", err)
		}
		it.LoadFinancials(obs)
	}
	if sf.asOf != "" {
		it.SetEvaluationPeriod(sf.asOf)
		it.SetAsOfDate(sf.asOf)
	}
	for _, af := range sf.amendments {
		raw, err := os.ReadFile(af)
		if err != nil {
			return nil, err
		}
		names, err := it.LoadAmendmentSource(string(raw))
		if err != nil {
			return nil, fmt.Errorf("amendment %s: %w", af, err)
		}
		for _, n := range names {
			if err := it.ApplyAmendment(n); err != nil {
				return nil, fmt.Errorf("amendment %s: %w", n, err)
			}
		}
	}
	return it, nil
}

// emit prints v as JSON if jsonOut, else calls plain to print the
// human-readable rendering.
func emit(jsonOut bool, v interface{}, plain func()) error {
	if !jsonOut {
		plain()
		return nil
	}
	out, err := reportfmt.JSON(v)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}
