package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "foodaccess",
	Short: "Spatial analysis of grocery access across Chicago community areas",
	Long: "Downloads city portal extracts, assembles a region-aligned dataset, tests whether " +
		"grocery access clusters spatially (Moran's I with permutation inference) and fits " +
		"spatial-lag regressions against socioeconomic covariates.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
