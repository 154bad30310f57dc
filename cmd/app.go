// Package cmd implements the subcommands of the hold CLI.
package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/hold"
	"github.com/etnz/hold/config"
	"github.com/etnz/hold/date"
	"github.com/etnz/hold/logging"
	"github.com/etnz/hold/market"
	"github.com/etnz/hold/market/alpaca"
	"github.com/rs/zerolog/log"
)

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	stateFile  = flag.String("state", "", "Path to the portfolio state file. Defaults to state_file from the configuration.")
	configFile = flag.String("config", "", "Path to the configuration file. Defaults to config.json in . or ./config.")
	Verbose    = flag.Bool("v", false, "Verbose logging.")
)

var appConfig *config.Config

// SetupLogging installs the console logger before the configuration is known.
func SetupLogging() {
	cfg := logging.Default()
	if *Verbose {
		cfg.Level = "debug"
	}
	logging.Setup(cfg, os.Stderr)
}

// loadConfig loads the configuration once and sets up logging accordingly.
func loadConfig() (*config.Config, error) {
	if appConfig != nil {
		return appConfig, nil
	}
	cfg, err := config.Load(*configFile)
	if err != nil {
		return nil, err
	}
	if *Verbose {
		cfg.Log.Level = "debug"
	}
	logging.Setup(cfg.Log, os.Stderr)
	if *stateFile != "" {
		cfg.StateFile = *stateFile
	}
	appConfig = cfg
	return cfg, nil
}

// decodePortfolio loads the state file.
func decodePortfolio(cfg *config.Config) (*hold.Portfolio, error) {
	p, err := hold.DecodeFile(cfg.StateFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("no state file %q, create one with `hold init -cash <amount>`", cfg.StateFile)
	case errors.Is(err, hold.ErrLegacyFormat):
		return nil, fmt.Errorf("%w\nconvert it once with `migrate legacy -in %s`", err, cfg.StateFile)
	case err != nil:
		return nil, err
	}
	if p.Currency() != cfg.Currency {
		log.Warn().Str("state", p.Currency()).Str("config", cfg.Currency).Msg("state file currency differs from the configuration, using the state file's")
	}
	return p, nil
}

// encodePortfolio saves the state file.
func encodePortfolio(cfg *config.Config, p *hold.Portfolio) error {
	if err := hold.EncodeFile(cfg.StateFile, p, date.Today()); err != nil {
		return err
	}
	log.Info().Str("file", cfg.StateFile).Msg("state saved")
	return nil
}

// priceSource returns the configured price source, or a file source when
// pricesFile is set.
func priceSource(cfg *config.Config, currency, pricesFile string) (market.PriceSource, error) {
	if pricesFile != "" {
		return market.FileSource{Name: pricesFile, Currency: currency}, nil
	}
	m := cfg.Market
	switch m.Source {
	case "file":
		return market.FileSource{Name: m.File, Currency: currency}, nil
	case "http":
		s := market.HTTPSource{URLTemplate: m.URLTemplate, PricePath: m.PricePath, Currency: currency}
		if m.Cache {
			s.Client = market.Daily("")
		}
		return s, nil
	case "alpaca":
		if currency != hold.DefaultCurrency {
			return nil, fmt.Errorf("alpaca prices are in %s, the portfolio is in %s", hold.DefaultCurrency, currency)
		}
		return alpaca.New(m.APIKey, m.APISecret, m.BaseURL), nil
	}
	return nil, fmt.Errorf("unknown market source %q", m.Source)
}

// parseDay parses a date flag, empty means today.
func parseDay(s string) (date.Date, error) {
	if s == "" {
		return date.Today(), nil
	}
	return date.Parse(s)
}

// readInput reads a file, "-" for stdin.
func readInput(name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(name)
}

// printMarkdown renders markdown on the terminal, raw when it cannot be rendered.
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Print(out)
			return
		}
	}
	log.Debug().Err(err).Msg("cannot render markdown")
	fmt.Print(md)
}
