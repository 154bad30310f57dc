package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/etnz/hold"
	"github.com/etnz/hold/agent"
	"github.com/etnz/hold/date"
	"github.com/google/subcommands"
	"github.com/rs/zerolog/log"
)

// --- Advise Command ---

type adviseCmd struct {
	strategy string
	prices   string
	save     string
	json     bool
}

func (*adviseCmd) Name() string     { return "advise" }
func (*adviseCmd) Synopsis() string { return "ask the advisor for actions and validate them" }
func (*adviseCmd) Usage() string {
	return `hold advise [-strategy <file>] [-prices <file>] [-save <file>] [-json]

  Sends the consolidated positions, the cash, the watchlist prices and your
  strategy to the advisory model, then validates its proposal like
  'hold validate' does. The proposal is never recorded.
`
}

func (c *adviseCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.strategy, "strategy", "", "Strategy rules file, defaults to advisor.strategy_file from the configuration")
	f.StringVar(&c.prices, "prices", "", "JSON file of prices by ticker, overrides the configured market source")
	f.StringVar(&c.save, "save", "", "Write the proposed actions to this file, to validate them again later")
	f.BoolVar(&c.json, "json", false, "Print the proposal and its report as JSON")
}

func (c *adviseCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	strategyFile := c.strategy
	if strategyFile == "" {
		strategyFile = cfg.Advisor.StrategyFile
	}
	strategy, err := os.ReadFile(strategyFile)
	if errors.Is(err, fs.ErrNotExist) && c.strategy == "" {
		log.Warn().Str("file", strategyFile).Msg("no strategy file, the advisor only gets the default rules")
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading strategy: %v\n", err)
		return subcommands.ExitFailure
	}

	src, err := priceSource(cfg, p.Currency(), c.prices)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	prices, err := src.Prices(ctx, agent.Tickers(p, cfg.Watchlist))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching prices: %v\n", err)
		return subcommands.ExitFailure
	}

	on := date.Today()
	snapshot, err := agent.NewSnapshot(p, prices, cfg.Watchlist, on, agent.Settings{
		Rule:                cfg.Rule(),
		Fee:                 hold.M(cfg.TransactionFee, p.Currency()),
		MonthlyBudget:       hold.M(cfg.MonthlyBudget, p.Currency()),
		MaxPositions:        cfg.MaxPositions,
		StopLossPercent:     cfg.StopLossPercent,
		ProfitTargetPercent: cfg.ProfitTargetPercent,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	advisor, err := agent.New(ctx, cfg.Advisor.APIKey, cfg.Advisor.Model, string(strategy))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	proposal, err := advisor.Advise(ctx, snapshot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.save != "" {
		b, err := json.MarshalIndent(proposal.Actions, "", "  ")
		if err == nil {
			err = os.WriteFile(c.save, append(b, '\n'), 0o644)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error saving actions: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	report, err := validator(cfg, p.Currency()).Validate(proposal.Actions, p, prices, on)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.json {
		status := printJSON(struct {
			Proposal agent.Proposal `json:"proposal"`
			Report   hold.Report    `json:"report"`
		}{proposal, report})
		if !report.Valid() {
			return subcommands.ExitFailure
		}
		return status
	}
	if proposal.Summary != "" {
		printMarkdown("# Advice\n\n" + proposal.Summary + "\n")
	}
	return printReport(report, false)
}
