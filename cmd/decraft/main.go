package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	verbose    bool
	configDir  string
	dataDir    string
	tuningPath string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "decraft",
	Short: "Inspect and precompute uncrafting grids",
	Long: `decraft loads the item, recipe and ore catalogs plus uncrafting.yaml and
answers "which 3x3 grid produced this item?" offline.

  decraft grid minecraft:torch        resolve one item
  decraft scan                        resolve every recipe, write the table and index
  decraft validate                    check catalogs and config`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "configs", "./configs", "Config directory")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "./data", "Runtime data directory")
	rootCmd.PersistentFlags().StringVar(&tuningPath, "tuning", "", "Path to uncrafting.yaml (default: <configs>/uncrafting.yaml)")

	gridCmd.Flags().StringVar(&gridTable, "table", "", "Answer from a precomputed uncraft table instead of the catalogs")
	gridCmd.Flags().StringVar(&gridTag, "tag", "", "Tag data of the crafted stack, as JSON")
	gridCmd.Flags().BoolVar(&gridDump, "dump", false, "Dump the matched recipe handle")

	scanCmd.Flags().StringVar(&scanOut, "out", "", "Table path (default: <data>/uncraft.table.zst)")
	scanCmd.Flags().BoolVar(&scanNoDB, "no-db", false, "Skip the sqlite index")
	scanCmd.Flags().BoolVar(&scanNoLog, "no-log", false, "Skip the JSONL resolution log")

	rootCmd.AddCommand(gridCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(validateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
