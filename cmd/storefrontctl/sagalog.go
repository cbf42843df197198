package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jcmexdev/storefront-orders/internal/coordinator/sagalog"
	sagasqlite "github.com/jcmexdev/storefront-orders/internal/coordinator/sagalog/sqlite"
)

var sagaLogCmd = &cobra.Command{
	Use:   "saga-log ORDER_ID",
	Short: "Print the placement saga log of an order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.SagaLogPath == "" {
			return errors.New("saga log is disabled, set SAGA_LOG_PATH")
		}
		repo, err := sagasqlite.Open(cfg.SagaLogPath)
		if err != nil {
			return err
		}
		defer repo.Close()

		entries, err := repo.History(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return fmt.Errorf("no saga log for order %s", args[0])
		}
		return printSagaLog(cmd.OutOrStdout(), entries)
	},
}

func printSagaLog(w io.Writer, entries []*sagalog.SagaLog) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tMODE\tSTATUS\tSTEP\tTRACE\tERRORS")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.UpdatedAt.UTC().Format(time.RFC3339Nano), e.Mode, e.Status, e.CurrentStep, e.TraceID, e.ErrorMessages)
	}
	return tw.Flush()
}
