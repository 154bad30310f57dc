package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/hold"
	"github.com/etnz/hold/renderer"
	"github.com/google/subcommands"
)

// --- Status Command ---

type statusCmd struct {
	date   string
	prices string
	json   bool
}

func (*statusCmd) Name() string     { return "status" }
func (*statusCmd) Synopsis() string { return "show positions, lots and their lock status" }
func (*statusCmd) Usage() string {
	return `hold status [-d <date>] [-prices <file>] [-json]

  Consolidates the lots of every position with the current prices: average cost,
  cost basis, value, P&L and which lots can be sold. A position without a price
  is shown without P&L.
`
}

func (c *statusCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "View date (YYYY-MM-DD), defaults to today")
	f.StringVar(&c.prices, "prices", "", "JSON file of prices by ticker, overrides the configured market source")
	f.BoolVar(&c.json, "json", false, "Print the positions as JSON")
}

func (c *statusCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	on, err := parseDay(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	p, err := decodePortfolio(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	src, err := priceSource(cfg, p.Currency(), c.prices)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	prices, err := src.Prices(ctx, p.Tickers())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching prices: %v\n", err)
		return subcommands.ExitFailure
	}
	views, err := hold.Consolidate(p, prices, on, cfg.Rule())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.json {
		return printJSON(views)
	}
	printMarkdown(renderer.Status(views, p.Cash(), on))
	return subcommands.ExitSuccess
}

// --- Check Command ---

type checkCmd struct {
	date string
	json bool
}

func (*checkCmd) Name() string     { return "check" }
func (*checkCmd) Synopsis() string { return "quick lock status of every position" }
func (*checkCmd) Usage() string {
	return `hold check [-d <date>] [-json]

  Shows for every position the sellable and locked quantities and the next
  unlock date. No price is needed.
`
}

func (c *checkCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "View date (YYYY-MM-DD), defaults to today")
	f.BoolVar(&c.json, "json", false, "Print the positions as JSON")
}

func (c *checkCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	on, err := parseDay(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	p, err := decodePortfolio(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	views, err := hold.Consolidate(p, nil, on, cfg.Rule())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.json {
		return printJSON(views)
	}
	printMarkdown(renderer.Check(views, p.Cash(), on))
	return subcommands.ExitSuccess
}

func printJSON(v any) subcommands.ExitStatus {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Println(string(b))
	return subcommands.ExitSuccess
}
