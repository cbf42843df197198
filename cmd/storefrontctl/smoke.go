package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jcmexdev/storefront-orders/internal/pkg/constants"
)

type raceResult struct {
	Key    string
	Status int
	Body   string
}

var (
	smokeBase    string
	smokeProduct string
	smokeN       int

	smokeRaceCmd = &cobra.Command{
		Use:   "smoke-race",
		Short: "Fire concurrent single-unit orders for one product and print each outcome",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if smokeProduct == "" {
				return errors.New("--product is required")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			results, err := raceOrders(ctx, resty.New().SetBaseURL(smokeBase).SetTimeout(15*time.Second), smokeProduct, smokeN)
			if err != nil {
				return err
			}

			created := 0
			for _, r := range results {
				if r.Status == http.StatusCreated {
					created++
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\n", r.Key, r.Status, r.Body)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created=%d of %d\n", created, len(results))
			return nil
		},
	}
)

func init() {
	smokeRaceCmd.Flags().StringVar(&smokeBase, "base", "http://localhost:8080", "order service base URL")
	smokeRaceCmd.Flags().StringVar(&smokeProduct, "product", "", "product id to order")
	smokeRaceCmd.Flags().IntVar(&smokeN, "n", 2, "number of concurrent orders")
}

// raceOrders submits n qty=1 orders at once, each with its own idempotency
// key. Results keep submission order.
func raceOrders(ctx context.Context, client *resty.Client, productID string, n int) ([]raceResult, error) {
	if n < 1 {
		return nil, fmt.Errorf("n must be at least 1, got %d", n)
	}

	results := make([]raceResult, n)
	start := make(chan struct{})
	g, ctx := errgroup.WithContext(ctx)

	for i := range n {
		key := "smoke-" + uuid.NewString()
		g.Go(func() error {
			<-start
			resp, err := client.R().
				SetContext(ctx).
				SetHeader(constants.HeaderIdempotencyKey, key).
				SetBody(map[string]any{
					"items":         []map[string]any{{"productId": productID, "qty": 1}},
					"paymentMethod": "cod",
				}).
				Post("/orders")
			if err != nil {
				return fmt.Errorf("order %d: %w", i, err)
			}
			results[i] = raceResult{Key: key, Status: resp.StatusCode(), Body: resp.String()}
			return nil
		})
	}
	close(start)

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
