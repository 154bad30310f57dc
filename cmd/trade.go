package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/etnz/hold"
	"github.com/etnz/hold/config"
	"github.com/etnz/hold/renderer"
	"github.com/google/subcommands"
)

// --- Init Command ---

type initCmd struct {
	cash  string
	force bool
}

func (*initCmd) Name() string     { return "init" }
func (*initCmd) Synopsis() string { return "create an empty portfolio state file" }
func (*initCmd) Usage() string {
	return `hold init -cash <amount> [-force]

  Creates the state file with no position and the given cash.
`
}

func (c *initCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.cash, "cash", "0", "Initial cash available")
	f.BoolVar(&c.force, "force", false, "Overwrite an existing state file")
}

func (c *initCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	cash, err := hold.ParseMoney(c.cash, cfg.Currency)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing cash: %v\n", err)
		return subcommands.ExitUsageError
	}
	if _, err := os.Stat(cfg.StateFile); err == nil && !c.force {
		fmt.Fprintf(os.Stderr, "Error: %q already exists, use -force to overwrite it\n", cfg.StateFile)
		return subcommands.ExitFailure
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	p, err := hold.NewPortfolio(cfg.Currency, cash)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := encodePortfolio(cfg, p); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Created %s with %s cash\n", cfg.StateFile, p.Cash())
	return subcommands.ExitSuccess
}

// tradeFlags are the flags shared by buy and sell.
type tradeFlags struct {
	date string
	fee  string
}

func (t *tradeFlags) set(f *flag.FlagSet) {
	f.StringVar(&t.date, "d", "", "Execution date (YYYY-MM-DD), defaults to today")
	f.StringVar(&t.fee, "fee", "", "Fee actually charged, defaults to transaction_fee from the configuration")
}

func (t *tradeFlags) parseFee(cfg *config.Config, currency string) (hold.Money, error) {
	if t.fee == "" {
		return hold.M(cfg.TransactionFee, currency), nil
	}
	return hold.ParseMoney(t.fee, currency)
}

// --- Buy Command ---

type buyCmd struct {
	tradeFlags
	memo string
}

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "record an executed purchase as a new lot" }
func (*buyCmd) Usage() string {
	return `hold buy [-d <date>] [-fee <amount>] [-m <memo>] <ticker> <quantity> <price>

  Records a purchase executed at the broker. A new lot is added and
  quantity x price + fee is debited from the cash.
`
}

func (c *buyCmd) SetFlags(f *flag.FlagSet) {
	c.tradeFlags.set(f)
	f.StringVar(&c.memo, "m", "", "An optional rationale or note for the lot")
}

func (c *buyCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 3 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	on, err := parseDay(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	quantity, err := hold.ParseQuantity(f.Arg(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing quantity: %v\n", err)
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
	price, err := hold.ParseMoney(f.Arg(2), p.Currency())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing price: %v\n", err)
		return subcommands.ExitUsageError
	}
	fee, err := c.parseFee(cfg, p.Currency())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing fee: %v\n", err)
		return subcommands.ExitUsageError
	}

	p, err = cfg.Recorder().Buy(p, f.Arg(0), quantity, price, on, fee, c.memo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error recording buy: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := encodePortfolio(cfg, p); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Bought %s %s at %s, cash available %s\n", quantity, hold.NormalizeTicker(f.Arg(0)), price, p.Cash())
	return subcommands.ExitSuccess
}

// --- Sell Command ---

type sellCmd struct {
	tradeFlags
}

func (*sellCmd) Name() string     { return "sell" }
func (*sellCmd) Synopsis() string { return "record an executed sell, oldest lots first" }
func (*sellCmd) Usage() string {
	return `hold sell [-d <date>] [-fee <amount>] <ticker> <quantity|all> <price>

  Records a sell executed at the broker. Lots are consumed oldest first and
  quantity x price - fee is credited to the cash. Locked shares cannot be sold,
  "all" sells every sellable share.
`
}

func (c *sellCmd) SetFlags(f *flag.FlagSet) { c.tradeFlags.set(f) }

func (c *sellCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 3 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	on, err := parseDay(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	amount, err := hold.ParseAmount(f.Arg(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing quantity: %v\n", err)
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
	price, err := hold.ParseMoney(f.Arg(2), p.Currency())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing price: %v\n", err)
		return subcommands.ExitUsageError
	}
	fee, err := c.parseFee(cfg, p.Currency())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing fee: %v\n", err)
		return subcommands.ExitUsageError
	}

	rec := cfg.Recorder()
	var receipt hold.Receipt
	if amount.All {
		p, receipt, err = rec.SellAll(p, f.Arg(0), price, on, fee)
	} else {
		p, receipt, err = rec.Sell(p, f.Arg(0), amount.Quantity(), price, on, fee)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error recording sell: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := encodePortfolio(cfg, p); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.Receipt(receipt, p.Cash()))
	return subcommands.ExitSuccess
}

// --- Cash Commands ---

type depositCmd struct{}

func (*depositCmd) Name() string     { return "deposit" }
func (*depositCmd) Synopsis() string { return "add cash, like the monthly budget" }
func (*depositCmd) Usage() string {
	return `hold deposit <amount>

  Adds cash to the portfolio.
`
}
func (*depositCmd) SetFlags(*flag.FlagSet) {}
func (*depositCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return adjustCash(f, hold.Recorder.Deposit)
}

type withdrawCmd struct{}

func (*withdrawCmd) Name() string     { return "withdraw" }
func (*withdrawCmd) Synopsis() string { return "remove cash" }
func (*withdrawCmd) Usage() string {
	return `hold withdraw <amount>

  Removes cash from the portfolio, never more than available.
`
}
func (*withdrawCmd) SetFlags(*flag.FlagSet) {}
func (*withdrawCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return adjustCash(f, hold.Recorder.Withdraw)
}

func adjustCash(f *flag.FlagSet, op func(hold.Recorder, *hold.Portfolio, hold.Money) (*hold.Portfolio, error)) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
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
	amount, err := hold.ParseMoney(f.Arg(0), p.Currency())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing amount: %v\n", err)
		return subcommands.ExitUsageError
	}
	if p, err = op(cfg.Recorder(), p, amount); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := encodePortfolio(cfg, p); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Cash available %s\n", p.Cash())
	return subcommands.ExitSuccess
}
