package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jcmexdev/storefront-orders/internal/order-service/adapters/mongodb"
	"github.com/jcmexdev/storefront-orders/internal/order-service/domain"
)

type catalogEntry struct {
	Slug        string `yaml:"slug"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Price       string `yaml:"price"`
	Stock       int    `yaml:"stock"`
	Published   bool   `yaml:"published"`
}

var sampleCatalog = []catalogEntry{
	{Slug: "cafe-tostado-250g", Name: "Café tostado 250 g", Price: "32.90", Stock: 40, Published: true},
	{Slug: "taza-ceramica", Name: "Taza de cerámica", Price: "19.99", Stock: 12, Published: true},
	{Slug: "prensa-francesa", Name: "Prensa francesa", Price: "89.00", Stock: 1, Published: true},
	{Slug: "molino-manual", Name: "Molino manual", Price: "120.00", Stock: 5, Published: false},
}

var (
	seedFile string

	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Upsert catalog products by slug",
		RunE:  runSeed,
	}
)

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "YAML list of products (defaults to a small sample catalog)")
}

func runSeed(cmd *cobra.Command, _ []string) error {
	entries := sampleCatalog
	if seedFile != "" {
		var err error
		if entries, err = readCatalog(seedFile); err != nil {
			return err
		}
	}
	products, err := toProducts(entries)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	db, err := mongodb.ConnectMongoDB(ctx, cfg.MongoDB.URI, cfg.MongoDB.Database)
	if err != nil {
		return err
	}
	defer db.Client().Disconnect(context.WithoutCancel(ctx))

	store := mongodb.NewProductStore(db)
	if err := store.CreateIndexes(ctx); err != nil {
		return err
	}
	for _, p := range products {
		saved, err := store.UpsertProduct(ctx, p)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tstock=%d\tprice=%s\n", saved.ID, saved.Slug, saved.Stock, saved.Price.StringFixed(domain.MoneyPlaces))
	}
	logger.Info("catalog seeded", "products", len(products))
	return nil
}

func readCatalog(path string) ([]catalogEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	var entries []catalogEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return entries, nil
}

func toProducts(entries []catalogEntry) ([]domain.Product, error) {
	products := make([]domain.Product, 0, len(entries))
	for i, e := range entries {
		if e.Slug == "" {
			return nil, fmt.Errorf("catalog entry %d: slug is required", i)
		}
		price, err := decimal.NewFromString(e.Price)
		if err != nil {
			return nil, fmt.Errorf("catalog entry %s: price: %w", e.Slug, err)
		}
		if price.IsNegative() || e.Stock < 0 {
			return nil, fmt.Errorf("catalog entry %s: price and stock must not be negative", e.Slug)
		}
		products = append(products, domain.Product{
			Slug:        e.Slug,
			Name:        e.Name,
			Description: e.Description,
			Price:       domain.RoundMoney(price),
			Stock:       e.Stock,
			Published:   e.Published,
		})
	}
	return products, nil
}
