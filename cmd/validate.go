package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"slices"

	"github.com/etnz/hold"
	"github.com/etnz/hold/config"
	"github.com/etnz/hold/date"
	"github.com/etnz/hold/renderer"
	"github.com/google/subcommands"
)

// --- Validate Command ---

type validateCmd struct {
	actions string
	date    string
	prices  string
	json    bool
}

func (*validateCmd) Name() string     { return "validate" }
func (*validateCmd) Synopsis() string { return "check a sequence of proposed actions against the running cash" }
func (*validateCmd) Usage() string {
	return `hold validate -actions <file> [-d <date>] [-prices <file>] [-json]

  Simulates the actions in order: sells credit their proceeds, buys spend the
  cash available at that point. Every action gets a status. Nothing is recorded.
  The exit status is 1 when an action is invalid. See 'hold topic validation'.
`
}

func (c *validateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.actions, "actions", "", "JSON file of actions, - for stdin")
	f.StringVar(&c.date, "d", "", "Validation date (YYYY-MM-DD), defaults to today")
	f.StringVar(&c.prices, "prices", "", "JSON file of prices by ticker, overrides the configured market source")
	f.BoolVar(&c.json, "json", false, "Print the report as JSON")
}

func (c *validateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.actions == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	on, err := parseDay(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	data, err := readInput(c.actions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading actions: %v\n", err)
		return subcommands.ExitFailure
	}
	actions, err := hold.ParseActions(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
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
	report, err := validate(ctx, cfg, p, actions, c.prices, on)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return printReport(report, c.json)
}

// validate prices the held and traded tickers and runs the validator.
func validate(ctx context.Context, cfg *config.Config, p *hold.Portfolio, actions []hold.Action, pricesFile string, on date.Date) (hold.Report, error) {
	tickers := p.Tickers()
	for _, a := range actions {
		if a.Ticker != "" {
			tickers = append(tickers, a.Ticker)
		}
	}
	slices.Sort(tickers)
	tickers = slices.Compact(tickers)

	src, err := priceSource(cfg, p.Currency(), pricesFile)
	if err != nil {
		return hold.Report{}, err
	}
	prices, err := src.Prices(ctx, tickers)
	if err != nil {
		return hold.Report{}, fmt.Errorf("cannot fetch prices: %w", err)
	}
	return validator(cfg, p.Currency()).Validate(actions, p, prices, on)
}

// validator returns the configured validator in the portfolio currency.
func validator(cfg *config.Config, currency string) hold.Validator {
	v := cfg.Validator()
	v.Fee = hold.M(cfg.TransactionFee, currency)
	v.Tolerance = hold.M(cfg.Tolerance, currency)
	return v
}

func printReport(report hold.Report, asJSON bool) subcommands.ExitStatus {
	status := subcommands.ExitSuccess
	if asJSON {
		status = printJSON(report)
	} else {
		printMarkdown(renderer.Report(report))
	}
	if !report.Valid() {
		return subcommands.ExitFailure
	}
	return status
}
