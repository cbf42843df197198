package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jcmexdev/storefront-orders/internal/order-service/adapters/mongodb"
)

var probeTxCmd = &cobra.Command{
	Use:   "probe-tx",
	Short: "Report whether the configured MongoDB deployment supports transactions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		db, err := mongodb.ConnectMongoDB(ctx, cfg.MongoDB.URI, cfg.MongoDB.Database)
		if err != nil {
			return err
		}
		defer db.Client().Disconnect(context.WithoutCancel(ctx))

		ok, err := mongodb.SupportsTransactions(ctx, db)
		if err != nil {
			return err
		}
		mode := "fallback"
		if ok {
			mode = "transactional"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "transactions=%t mode=%s\n", ok, mode)
		return nil
	},
}
