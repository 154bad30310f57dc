// Package market provides the current prices the position ledger values
// positions with.
//
// A source returns the prices it could find: a ticker without a price is
// absent from the snapshot, and the ledger reports it as unpriced instead of
// failing.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/etnz/hold"
	"github.com/rs/zerolog/log"
)

// PriceSource returns a price snapshot for tickers.
type PriceSource interface {
	Prices(ctx context.Context, tickers []string) (hold.Prices, error)
}

// Static is an in-memory price snapshot.
type Static hold.Prices

// Prices returns the known prices among tickers.
func (s Static) Prices(ctx context.Context, tickers []string) (hold.Prices, error) {
	return subset(hold.Prices(s), tickers), nil
}

// FileSource reads a JSON object of prices by ticker, like {"MSFT": 512.3}.
type FileSource struct {
	Name     string
	Currency string
}

// Prices reads the file and returns the known prices among tickers.
func (s FileSource) Prices(ctx context.Context, tickers []string) (hold.Prices, error) {
	content, err := os.ReadFile(s.Name)
	if err != nil {
		return nil, fmt.Errorf("cannot read prices: %w", err)
	}
	all, err := ParsePrices(content, s.Currency)
	if err != nil {
		return nil, fmt.Errorf("cannot read prices %q: %w", s.Name, err)
	}
	return subset(all, tickers), nil
}

// ParsePrices parses a JSON object of prices by ticker. Values are numbers or
// strings like "$512.30".
func ParsePrices(data []byte, currency string) (hold.Prices, error) {
	var jprices map[string]json.RawMessage
	if err := json.Unmarshal(data, &jprices); err != nil {
		return nil, fmt.Errorf("prices must be an object of prices by ticker: %w", err)
	}
	prices := make(hold.Prices, len(jprices))
	for ticker, raw := range jprices {
		var m hold.Money
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("invalid price for %s: %w", ticker, err)
		}
		prices[hold.NormalizeTicker(ticker)] = hold.M(m.Decimal(), currency)
	}
	return prices, nil
}

// subset returns the prices of tickers, or all of them when tickers is empty.
func subset(all hold.Prices, tickers []string) hold.Prices {
	if len(tickers) == 0 {
		return all
	}
	prices := make(hold.Prices, len(tickers))
	for _, t := range tickers {
		m, ok := all.Get(t)
		if !ok {
			log.Debug().Str("ticker", t).Msg("no price")
			continue
		}
		prices[hold.NormalizeTicker(t)] = m
	}
	return prices
}
