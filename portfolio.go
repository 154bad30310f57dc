package hold

import (
	"maps"
	"slices"
	"strings"

	"github.com/etnz/hold/date"
	"github.com/rs/zerolog/log"
)

// DefaultCurrency is used when a portfolio does not declare one.
const DefaultCurrency = "USD"

// NormalizeTicker returns the canonical form of a ticker: trimmed and upper case.
// Every grouping and lookup goes through it so that "msft " and "MSFT" are the
// same holding.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// Position is all the lots of one ticker, in FIFO order.
type Position struct {
	Ticker string
	Lots   []Lot
}

// TotalQuantity returns the sum of the lots quantity.
func (p Position) TotalQuantity() Quantity { return lots(p.Lots).total() }

// CostBasis returns the sum of the lots cost.
func (p Position) CostBasis() Money {
	var currency string
	if len(p.Lots) > 0 {
		currency = p.Lots[0].UnitCost.Currency()
	}
	return lots(p.Lots).cost(currency)
}

// AverageCost returns the weighted average unit cost of the position.
func (p Position) AverageCost() Money {
	q := p.TotalQuantity()
	if q.IsZero() {
		return p.CostBasis()
	}
	return p.CostBasis().Div(q)
}

// Portfolio is the single mutable root of the ledger: positions, available
// cash and the day of the last update.
//
// Positions are keyed by normalized ticker and their lots are always in FIFO
// order. A position with no lots does not exist.
type Portfolio struct {
	currency    string
	cash        Money
	lastUpdated date.Date
	positions   map[string][]Lot
}

// NewPortfolio builds a portfolio from positions that may be unsorted, may use
// different case for the same ticker, or may repeat a ticker. Repeated tickers
// are merged into a single position and lots are sorted by purchase date.
//
// It returns a DataIntegrityError if any lot or the cash is malformed.
func NewPortfolio(currency string, cash Money, positions ...Position) (*Portfolio, error) {
	if currency == "" {
		currency = DefaultCurrency
	}
	cash, err := inCurrency(cash, currency)
	if err != nil {
		return nil, integrityf("", "cash in %s in a %s portfolio", cash.Currency(), currency)
	}
	p := &Portfolio{
		currency:  currency,
		cash:      cash,
		positions: make(map[string][]Lot),
	}
	if p.cash.IsNegative() {
		return nil, integrityf("", "negative cash_available %v", cash.Decimal())
	}
	for _, pos := range positions {
		ticker := NormalizeTicker(pos.Ticker)
		if ticker == "" {
			return nil, integrityf("", "position with an empty ticker")
		}
		if len(pos.Lots) == 0 {
			return nil, integrityf(ticker, "position has no lots")
		}
		if _, exists := p.positions[ticker]; exists {
			log.Warn().Str("ticker", ticker).Str("record", pos.Ticker).Msg("merging duplicate position record")
		}
		for i, l := range pos.Lots {
			if err := checkLot(ticker, i, l); err != nil {
				return nil, err
			}
			if l.UnitCost, err = inCurrency(l.UnitCost, currency); err != nil {
				return nil, integrityf(ticker, "lot #%d priced in %s in a %s portfolio", i+1, l.UnitCost.Currency(), currency)
			}
			p.positions[ticker] = append(p.positions[ticker], l)
		}
	}
	for _, l := range p.positions {
		sortLots(l)
	}
	return p, nil
}

func checkLot(ticker string, i int, l Lot) error {
	switch {
	case l.PurchaseDate.IsZero():
		return integrityf(ticker, "lot #%d has no purchase date", i+1)
	case !l.Quantity.IsPositive():
		return integrityf(ticker, "lot #%d has a non positive quantity %v", i+1, l.Quantity)
	case !l.UnitCost.IsPositive():
		return integrityf(ticker, "lot #%d has a non positive purchase price %v", i+1, l.UnitCost.Decimal())
	}
	return nil
}

// inCurrency sets the currency of a money value that has none, and fails on
// an amount in another currency.
func inCurrency(m Money, currency string) (Money, error) {
	if m.cur == "" {
		m.cur = currency
	}
	if m.cur != currency {
		return m, &CurrencyMismatchError{Amount: m, Currency: currency}
	}
	return m, nil
}

// Currency returns the currency of all amounts in the portfolio.
func (p *Portfolio) Currency() string { return p.currency }

// Cash returns the available cash.
func (p *Portfolio) Cash() Money { return p.cash }

// LastUpdated returns the day the portfolio was last persisted.
func (p *Portfolio) LastUpdated() date.Date { return p.lastUpdated }

// Tickers returns the tickers of all positions, sorted.
func (p *Portfolio) Tickers() []string {
	return slices.Sorted(maps.Keys(p.positions))
}

// Position returns a copy of the ticker's position.
func (p *Portfolio) Position(ticker string) (Position, bool) {
	ticker = NormalizeTicker(ticker)
	l, ok := p.positions[ticker]
	if !ok {
		return Position{}, false
	}
	return Position{Ticker: ticker, Lots: slices.Clone(l)}, true
}

// Positions returns a copy of all positions, sorted by ticker.
func (p *Portfolio) Positions() []Position {
	var res []Position
	for _, t := range p.Tickers() {
		pos, _ := p.Position(t)
		res = append(res, pos)
	}
	return res
}

// Clone returns a deep copy of p.
func (p *Portfolio) Clone() *Portfolio {
	c := *p
	c.positions = make(map[string][]Lot, len(p.positions))
	for t, l := range p.positions {
		c.positions[t] = slices.Clone(l)
	}
	return &c
}

// insert adds a lot in FIFO order, after any lot bought the same day.
func (p *Portfolio) insert(ticker string, l Lot) {
	existing := p.positions[ticker]
	i, _ := slices.BinarySearchFunc(existing, l.PurchaseDate.Add(1), func(x Lot, d date.Date) int {
		return x.PurchaseDate.Compare(d)
	})
	p.positions[ticker] = slices.Insert(existing, i, l)
}

// price returns the ticker's price from a snapshot in the portfolio currency.
// A non positive price or a price in another currency is treated as missing.
func (p *Portfolio) price(prices Prices, ticker string) (Money, bool) {
	m, ok := prices.Get(ticker)
	if !ok {
		return Money{}, false
	}
	if !m.IsPositive() {
		log.Warn().Str("ticker", ticker).Str("price", m.value.String()).Msg("ignoring non positive price")
		return Money{}, false
	}
	if c := m.Currency(); c != "" && c != p.currency {
		log.Warn().Str("ticker", ticker).Str("currency", c).Msg("ignoring price in a foreign currency")
		return Money{}, false
	}
	m.cur = p.currency
	return m, true
}

// Prices is a snapshot of current prices by ticker.
type Prices map[string]Money

// Get returns the price of a ticker, matching keys through NormalizeTicker.
func (p Prices) Get(ticker string) (Money, bool) {
	ticker = NormalizeTicker(ticker)
	if m, ok := p[ticker]; ok {
		return m, true
	}
	for k, m := range p {
		if NormalizeTicker(k) == ticker {
			return m, true
		}
	}
	return Money{}, false
}
