package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cinemarket/market-engine/internal/config"
)

var (
	cfgFile string
	debug   bool
)

var (
	Version   = "dev"
	GitCommit = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "market-engine",
	Short: "CineMarket movie stock-market engine",
	Long: `market-engine prices movies like stocks from their catalog metadata,
simulates live price movement, and runs paper-trading portfolios.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("market-engine %s (%s)\n", Version, GitCommit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads --config, or defaults plus environment overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if debug {
		cfg.Server.Development = true
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
