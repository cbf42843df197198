package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jcmexdev/storefront-orders/internal/pkg/config"
	"github.com/jcmexdev/storefront-orders/internal/pkg/telemetry"
)

var (
	configPath string
	cfg        config.Config
	logger     *slog.Logger

	rootCmd = &cobra.Command{
		Use:           "storefrontctl",
		Short:         "Operator tooling for the storefront order service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			logger = telemetry.NewLogger(os.Stderr, cfg.LogLevel)
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")

	rootCmd.AddCommand(seedCmd, probeTxCmd, smokeRaceCmd, sagaLogCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("storefrontctl failed", "error", err)
		os.Exit(1)
	}
}
