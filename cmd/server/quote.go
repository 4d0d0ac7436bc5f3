package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cinemarket/market-engine/internal/logger"
	"github.com/cinemarket/market-engine/internal/pricing"
	"github.com/cinemarket/market-engine/internal/symbol"
)

var (
	quoteAt    string
	quoteSteps int
)

var quoteCmd = &cobra.Command{
	Use:   "quote <symbol>",
	Short: "Price one movie from the catalog and print it as JSON",
	Example: `  market-engine quote MOV-27205
  market-engine quote 603 --at 2024-12-24T20:00:00Z --steps 10`,
	Args: cobra.ExactArgs(1),
	RunE: runQuote,
}

func init() {
	quoteCmd.Flags().StringVar(&quoteAt, "at", "", "price as of this RFC 3339 time (default now)")
	quoteCmd.Flags().IntVar(&quoteSteps, "steps", 0, "simulator steps to apply after pricing")
	rootCmd.AddCommand(quoteCmd)
}

func runQuote(cmd *cobra.Command, args []string) error {
	movieID, err := symbol.Parse(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.Must(cfg.Server.Development)
	defer log.Sync()

	var clock pricing.Clock = pricing.SystemClock{}
	if quoteAt != "" {
		at, err := time.Parse(time.RFC3339, quoteAt)
		if err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
		clock = pricing.FixedClock{T: at}
	}
	rng := pricing.NewRand(seedFor(cfg.Market))

	cat := openCatalog(cfg.Catalog.TMDB, log)
	quoter := pricing.NewQuoter(cat, pricing.NewEngine(clock, rng), clock, log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	price, attrs := quoter.QuoteWithAttributes(ctx, movieID)
	sim := pricing.NewSimulator(clock, rng)
	for i := 0; i < quoteSteps; i++ {
		price = sim.Advance(price)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Symbol  string `json:"symbol"`
		Title   string `json:"title,omitempty"`
		Factors any    `json:"factors"`
		Price   any    `json:"price"`
	}{
		Symbol:  symbol.Format(movieID),
		Title:   attrs.Title,
		Factors: pricing.ComputeFactors(attrs, clock.Now()),
		Price:   price,
	})
}
