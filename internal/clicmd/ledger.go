package clicmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wch1125/proviso/internal/interpreter"
	"github.com/wch1125/proviso/internal/ledgerstore"
	"github.com/wch1125/proviso/internal/reportfmt"
)

func ledgerCmd() *cobra.Command {
	sf := &sharedFlags{}
	var basket, since, export, persistDSN, agreement string
	cmd := &cobra.Command{
		Use:   "ledger <file>",
		Short: "Print a basket's append-only usage and accumulation ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := buildInterpreter(args[0], sf)
			if err != nil {
				return err
			}
			names := it.BasketNames()
			if basket != "" {
				names = []string{basket}
			}
			var entries []interpreter.BasketLedgerEntry
			for _, name := range names {
				entries = append(entries, it.BasketLedgerHistory(name)...)
			}
			if since != "" {
				var filtered []interpreter.BasketLedgerEntry
				for _, e := range entries {
					if e.Timestamp.Format("2006-01-02") >= since {
						filtered = append(filtered, e)
					}
				}
				entries = filtered
			}
			if export != "" {
				if err := exportLedgerCSV(export, entries); err != nil {
					return err
				}
			}
			if persistDSN != "" {
				if err := persistBasketLedger(cmd, persistDSN, agreement, it, names); err != nil {
					return err
				}
			}
			return emit(sf.jsonOut, entries, func() {
				var lines []string
				for _, e := range entries {
					kind := "usage"
					if e.Kind == interpreter.EntryAccumulation {
						kind = "accumulation"
					}
					lines = append(lines, fmt.Sprintf("%-20s %-12s amount=%.2f %s", e.Basket, kind, e.Amount, e.Description))
				}
				fmt.Print(reportfmt.Box("Basket Ledger", lines))
			})
		},
	}
	addSharedFlags(cmd, sf)
	cmd.Flags().StringVar(&basket, "basket", "", "limit to a single basket")
	cmd.Flags().StringVar(&since, "since", "", "only entries recorded on or after this date")
	cmd.Flags().StringVar(&export, "export", "", "export the ledger to a CSV file")
	cmd.Flags().StringVar(&persistDSN, "persist-dsn", "", "Postgres DSN to append this ledger to (audit sink, optional)")
	cmd.Flags().StringVar(&agreement, "agreement", "", "agreement identifier to tag persisted rows with")
	return cmd
}

// persistBasketLedger writes each named basket's ledger history to the
// audit sink at persistDSN. It opens a fresh connection per invocation
// rather than holding one open across the process's lifetime, since
// the CLI is a short-lived, one-shot tool.
func persistBasketLedger(cmd *cobra.Command, dsn, agreement string, it *interpreter.Interpreter, names []string) error {
	store, err := ledgerstore.New(dsn)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := store.InitSchema(ctx); err != nil {
		return err
	}
	for _, name := range names {
		if err := store.RecordBasketLedger(ctx, agreement, name, it.BasketLedgerHistory(name)); err != nil {
			return err
		}
	}
	return nil
}

func exportLedgerCSV(path string, entries []interpreter.BasketLedgerEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	fmt.Fprintln(f, "id,basket,kind,amount,description")
	for _, e := range entries {
		kind := "usage"
		if e.Kind == interpreter.EntryAccumulation {
			kind = "accumulation"
		}
		fmt.Fprintf(f, "%s,%s,%s,%.2f,%q\n", e.ID, e.Basket, kind, e.Amount, e.Description)
	}
	return nil
}
