package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/hold"
	"github.com/etnz/hold/renderer"
	"github.com/google/subcommands"
)

type swapCmd struct {
	fee string
}

func (*swapCmd) Name() string     { return "swap" }
func (*swapCmd) Synopsis() string { return "estimate selling shares of a ticker to buy another" }
func (*swapCmd) Usage() string {
	return `hold swap [-fee <amount>] <sell-ticker> <quantity> <sell-price> <buy-ticker> <buy-price>

  Estimates the proceeds, both fees and the whole shares the proceeds buy.
  Neither the state file nor the lock status is read.
`
}

func (c *swapCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.fee, "fee", "", "Fee per trade, defaults to transaction_fee from the configuration")
}

func (c *swapCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 5 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	quantity, err := hold.ParseQuantity(f.Arg(1))
	if err != nil || !quantity.IsPositive() {
		fmt.Fprintf(os.Stderr, "Error: invalid quantity %q\n", f.Arg(1))
		return subcommands.ExitUsageError
	}
	sellPrice, err := hold.ParseMoney(f.Arg(2), cfg.Currency)
	if err != nil || !sellPrice.IsPositive() {
		fmt.Fprintf(os.Stderr, "Error: invalid sell price %q\n", f.Arg(2))
		return subcommands.ExitUsageError
	}
	buyPrice, err := hold.ParseMoney(f.Arg(4), cfg.Currency)
	if err != nil || !buyPrice.IsPositive() {
		fmt.Fprintf(os.Stderr, "Error: invalid buy price %q\n", f.Arg(4))
		return subcommands.ExitUsageError
	}
	fee := cfg.Fee()
	if c.fee != "" {
		if fee, err = hold.ParseMoney(c.fee, cfg.Currency); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing fee: %v\n", err)
			return subcommands.ExitUsageError
		}
	}

	s := hold.EstimateSwap(quantity, sellPrice, buyPrice, fee)
	printMarkdown(renderer.Swap(s, hold.NormalizeTicker(f.Arg(0)), quantity, hold.NormalizeTicker(f.Arg(3))))
	return subcommands.ExitSuccess
}
