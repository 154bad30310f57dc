// Command migrate converts state files written by earlier versions of hold.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/hold"
	"github.com/etnz/hold/date"
	"github.com/etnz/hold/logging"
	"github.com/google/subcommands"
)

func main() {
	// The migrate tool needs its own set of flags, independent of the main hold tool.
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	verbose := flag.Bool("v", false, "Verbose logging.")

	commander := subcommands.NewCommander(flag.CommandLine, "migrate")
	commander.Register(commander.HelpCommand(), "")
	commander.Register(&legacyCmd{}, "")
	commander.Register(&checkCmd{}, "")
	flag.Parse()

	cfg := logging.Default()
	cfg.Level = "info"
	if *verbose {
		cfg.Level = "debug"
	}
	logging.Setup(cfg, os.Stderr)
	os.Exit(int(commander.Execute(context.Background())))
}

// --- legacyCmd ---

type legacyCmd struct {
	in string
}

func (*legacyCmd) Name() string { return "legacy" }
func (*legacyCmd) Synopsis() string {
	return "converts a one entry per purchase state file to the lot layout"
}
func (*legacyCmd) Usage() string {
	return `migrate legacy -in <portfolio.json>

Groups the purchases by ticker into lots sorted by date and rewrites the file in
place. The original is first copied to <portfolio.json>.backup. Nothing is
written when any purchase cannot be read, and a file already in the lot layout
is left untouched.
`
}
func (c *legacyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.in, "in", "", "The path to the state file to migrate.")
}

func (c *legacyCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.in == "" {
		fmt.Fprintln(os.Stderr, "Error: -in flag is required.")
		return subcommands.ExitUsageError
	}
	m, err := hold.MigrateFile(c.in, date.Today())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error migrating: %v\n", err)
		return subcommands.ExitFailure
	}
	if m.Skipped {
		fmt.Printf("%s is already in the lot layout, nothing to do.\n", c.in)
		return subcommands.ExitSuccess
	}
	fmt.Printf("Migrated %d lots into %d positions, the original is in %s\n", m.Lots, m.Positions, m.Backup)
	fmt.Printf("Verify with: migrate check -in %s\n", c.in)
	return subcommands.ExitSuccess
}

// --- checkCmd ---

type checkCmd struct {
	in     string
	backup string
}

func (*checkCmd) Name() string     { return "check" }
func (*checkCmd) Synopsis() string { return "verifies a migration against its backup" }
func (*checkCmd) Usage() string {
	return `migrate check -in <portfolio.json> [-backup <file>]

Compares the migrated file with the legacy backup: the cash, and for every
ticker the quantity and the cost basis must be identical.
`
}

func (c *checkCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.in, "in", "", "The path to the migrated state file.")
	f.StringVar(&c.backup, "backup", "", "The legacy backup, defaults to the -in file with the .backup suffix.")
}

func (c *checkCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.in == "" {
		fmt.Fprintln(os.Stderr, "Error: -in flag is required.")
		return subcommands.ExitUsageError
	}
	if c.backup == "" {
		c.backup = c.in + hold.BackupSuffix
	}

	migrated, err := hold.DecodeFile(c.in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	data, err := os.ReadFile(c.backup)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading backup: %v\n", err)
		return subcommands.ExitFailure
	}
	legacy, err := hold.MigrateLegacy(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading backup: %v\n", err)
		return subcommands.ExitFailure
	}

	diffs := compare(legacy, migrated)
	if len(diffs) > 0 {
		fmt.Fprintf(os.Stderr, "Migration check failed:\n  %s\n", strings.Join(diffs, "\n  "))
		return subcommands.ExitFailure
	}
	fmt.Printf("%s matches %s: %d positions, %s cash\n", c.in, c.backup, len(migrated.Tickers()), migrated.Cash())
	return subcommands.ExitSuccess
}

// compare returns the differences between two portfolios' cash and positions.
func compare(want, got *hold.Portfolio) []string {
	var diffs []string
	if !want.Cash().Decimal().Equal(got.Cash().Decimal()) {
		diffs = append(diffs, fmt.Sprintf("cash: %s, want %s", got.Cash(), want.Cash()))
	}
	for _, t := range want.Tickers() {
		w, _ := want.Position(t)
		g, ok := got.Position(t)
		switch {
		case !ok:
			diffs = append(diffs, fmt.Sprintf("%s: missing", t))
		case !w.TotalQuantity().Equal(g.TotalQuantity()):
			diffs = append(diffs, fmt.Sprintf("%s quantity: %s, want %s", t, g.TotalQuantity(), w.TotalQuantity()))
		case !w.CostBasis().Decimal().Equal(g.CostBasis().Decimal()):
			diffs = append(diffs, fmt.Sprintf("%s cost basis: %s, want %s", t, g.CostBasis(), w.CostBasis()))
		}
	}
	for _, t := range got.Tickers() {
		if _, ok := want.Position(t); !ok {
			diffs = append(diffs, fmt.Sprintf("%s: unexpected", t))
		}
	}
	return diffs
}
