package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/hold"
	"github.com/rs/zerolog/log"
)

// DefaultPricePath extracts the price of a {"price": 512.3} response.
const DefaultPricePath = "$.price"

// HTTPSource fetches one JSON document per ticker and extracts the price with
// a JSONPath expression.
type HTTPSource struct {
	URLTemplate string // {ticker} is replaced by the escaped ticker
	PricePath   string // DefaultPricePath when empty
	Currency    string
	Client      *http.Client // http.DefaultClient when nil
}

// Prices fetches each ticker in turn. A ticker that cannot be priced is logged
// and left out of the snapshot.
func (s HTTPSource) Prices(ctx context.Context, tickers []string) (hold.Prices, error) {
	if !strings.Contains(s.URLTemplate, "{ticker}") {
		return nil, fmt.Errorf("url template %q has no {ticker} placeholder", s.URLTemplate)
	}
	prices := make(hold.Prices, len(tickers))
	for _, t := range tickers {
		t = hold.NormalizeTicker(t)
		price, err := s.Price(ctx, t)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn().Err(err).Str("ticker", t).Msg("no price")
			continue
		}
		prices[t] = price
	}
	return prices, nil
}

// Price fetches the price of a single ticker.
func (s HTTPSource) Price(ctx context.Context, ticker string) (hold.Money, error) {
	addr := strings.ReplaceAll(s.URLTemplate, "{ticker}", url.PathEscape(ticker))
	var jobj any
	if err := s.jwget(ctx, addr, &jobj); err != nil {
		return hold.Money{}, fmt.Errorf("error retrieving %q: %w", ticker, err)
	}
	path := s.PricePath
	if path == "" {
		path = DefaultPricePath
	}
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return hold.Money{}, fmt.Errorf("error parsing %q: %q %w", ticker, path, err)
	}
	// filters return a list even for a single match, keep the first one.
	if jlist, ok := jval.([]any); ok {
		if len(jlist) == 0 {
			return hold.Money{}, fmt.Errorf("error parsing %q: %q matches nothing", ticker, path)
		}
		jval = jlist[0]
	}

	var price hold.Money
	switch v := jval.(type) {
	case float64:
		price = hold.M(v, s.Currency)
	case string:
		// some APIs return the value as a string
		if price, err = hold.ParseMoney(v, s.Currency); err != nil {
			return hold.Money{}, fmt.Errorf("cannot read price of %q: %w", ticker, err)
		}
	default:
		return hold.Money{}, fmt.Errorf("cannot read price of %q: %q is neither a number nor a string: %v", ticker, path, jval)
	}
	if !price.IsPositive() {
		return hold.Money{}, fmt.Errorf("empty price for %q: %v", ticker, jval)
	}
	return price, nil
}

// jwget performs an HTTP GET request and unmarshals the JSON response into data.
func (s HTTPSource) jwget(ctx context.Context, addr string, data any) error {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cannot http GET %v%v: %v", resp.Request.URL.Host, resp.Request.URL.Path, resp.Status)
	}
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if len(content) == 0 {
		return errors.New("empty response")
	}
	return json.Unmarshal(content, data)
}
