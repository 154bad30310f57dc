// Package alpaca prices tickers with the latest trade from Alpaca market data.
package alpaca

import (
	"context"
	"fmt"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/etnz/hold"
	"github.com/etnz/hold/market"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var _ market.PriceSource = (*Source)(nil)

// Source is a market.PriceSource backed by the Alpaca market data API.
// Prices are in USD.
type Source struct {
	client *marketdata.Client
}

// New returns a Source. Empty credentials fall back to the APCA_API_KEY_ID and
// APCA_API_SECRET_KEY environment variables read by the Alpaca client.
func New(apiKey, apiSecret, baseURL string) *Source {
	return &Source{client: marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	})}
}

// Prices returns the latest trade price of each ticker. A ticker without a
// trade is logged and left out of the snapshot.
func (s *Source) Prices(ctx context.Context, tickers []string) (hold.Prices, error) {
	prices := make(hold.Prices, len(tickers))
	for _, t := range tickers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t = hold.NormalizeTicker(t)
		trade, err := s.client.GetLatestTrade(t, marketdata.GetLatestTradeRequest{})
		if err != nil {
			return nil, fmt.Errorf("cannot get latest trade for %s: %w", t, err)
		}
		if trade == nil || trade.Price <= 0 {
			log.Warn().Str("ticker", t).Msg("no latest trade")
			continue
		}
		prices[t] = hold.M(decimal.NewFromFloat(trade.Price), hold.DefaultCurrency)
	}
	return prices, nil
}
