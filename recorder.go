package hold

import (
	"fmt"

	"github.com/etnz/hold/date"
)

// Recorder applies trades that were executed elsewhere to a portfolio.
//
// Every operation works on a copy and returns the updated portfolio: on
// error the caller's portfolio is left untouched and is the rollback state.
type Recorder struct {
	Rule HoldRule
}

// Receipt details a recorded sell.
type Receipt struct {
	Ticker   string
	Date     date.Date
	Quantity Quantity
	Price    Money
	Fee      Money
	Proceeds Money // quantity * price - fee
	Lots     []Consumption
}

// CostBasis returns the cost of the sold shares.
func (r Receipt) CostBasis() Money {
	c := M(0, r.Price.Currency())
	for _, l := range r.Lots {
		c = c.Add(l.Cost())
	}
	return c
}

// RealizedGain returns the gain of the sell, fee included.
func (r Receipt) RealizedGain() Money { return r.Proceeds.Sub(r.CostBasis()) }

// Buy records the purchase of quantity shares of ticker at price. A new lot is
// inserted in FIFO order and quantity * price + fee is debited from the cash.
func (rec Recorder) Buy(p *Portfolio, ticker string, quantity Quantity, price Money, on date.Date, fee Money, note string) (*Portfolio, error) {
	ticker = NormalizeTicker(ticker)
	if err := checkTrade(ticker, quantity, price, fee); err != nil {
		return nil, err
	}
	price, fee, err := p.tradeAmounts(price, fee)
	if err != nil {
		return nil, err
	}
	cost := price.Mul(quantity).Add(fee)
	if cost.GreaterThan(p.cash) {
		return nil, &InsufficientFundsError{Required: cost, Available: p.cash}
	}
	q := p.Clone()
	q.insert(ticker, Lot{Quantity: quantity, UnitCost: price, PurchaseDate: on, Note: note})
	q.cash = q.cash.Sub(cost)
	return q, nil
}

// Sell records the sale of quantity shares of ticker at price. Lots are
// consumed oldest first, emptied lots and positions are removed and
// quantity * price - fee is credited to the cash.
//
// Only the quantity sellable on the trade day can be sold, otherwise a
// LockedSharesError lists the locked lots.
func (rec Recorder) Sell(p *Portfolio, ticker string, quantity Quantity, price Money, on date.Date, fee Money) (*Portfolio, Receipt, error) {
	ticker = NormalizeTicker(ticker)
	if err := checkTrade(ticker, quantity, price, fee); err != nil {
		return nil, Receipt{}, err
	}
	price, fee, err := p.tradeAmounts(price, fee)
	if err != nil {
		return nil, Receipt{}, err
	}
	ls, ok := p.positions[ticker]
	if !ok {
		return nil, Receipt{}, &UnknownPositionError{Ticker: ticker}
	}
	plan, err := rec.Rule.Plan(ticker, ls, quantity, on)
	if err != nil {
		return nil, Receipt{}, err
	}
	proceeds := price.Mul(quantity).Sub(fee)
	if p.cash.Add(proceeds).IsNegative() {
		return nil, Receipt{}, &InsufficientFundsError{Required: proceeds.Neg(), Available: p.cash}
	}

	q := p.Clone()
	q.positions[ticker] = lots(ls).sell(quantity)
	if len(q.positions[ticker]) == 0 {
		delete(q.positions, ticker)
	}
	q.cash = q.cash.Add(proceeds)
	return q, Receipt{
		Ticker:   ticker,
		Date:     on,
		Quantity: quantity,
		Price:    price,
		Fee:      fee,
		Proceeds: proceeds,
		Lots:     plan,
	}, nil
}

// SellAll sells the whole sellable quantity of ticker.
func (rec Recorder) SellAll(p *Portfolio, ticker string, price Money, on date.Date, fee Money) (*Portfolio, Receipt, error) {
	ticker = NormalizeTicker(ticker)
	ls, ok := p.positions[ticker]
	if !ok {
		return nil, Receipt{}, &UnknownPositionError{Ticker: ticker}
	}
	res, err := rec.Rule.Resolve(ticker, ls, on)
	if err != nil {
		return nil, Receipt{}, err
	}
	if res.Sellable.IsZero() {
		return nil, Receipt{}, &LockedSharesError{Ticker: ticker, Requested: res.Locked, Locked: res.LockedLots}
	}
	return rec.Sell(p, ticker, res.Sellable, price, on, fee)
}

// Deposit adds cash, for instance the monthly budget.
func (rec Recorder) Deposit(p *Portfolio, amount Money) (*Portfolio, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("deposit amount must be positive, got %v", amount.Decimal())
	}
	amount, err := inCurrency(amount, p.currency)
	if err != nil {
		return nil, err
	}
	q := p.Clone()
	q.cash = q.cash.Add(amount)
	return q, nil
}

// Withdraw removes cash.
func (rec Recorder) Withdraw(p *Portfolio, amount Money) (*Portfolio, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("withdraw amount must be positive, got %v", amount.Decimal())
	}
	amount, err := inCurrency(amount, p.currency)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(p.cash) {
		return nil, &InsufficientFundsError{Required: amount, Available: p.cash}
	}
	q := p.Clone()
	q.cash = q.cash.Sub(amount)
	return q, nil
}

func checkTrade(ticker string, quantity Quantity, price, fee Money) error {
	switch {
	case ticker == "":
		return fmt.Errorf("missing ticker")
	case !quantity.IsPositive():
		return fmt.Errorf("quantity must be positive, got %v", quantity)
	case !price.IsPositive():
		return fmt.Errorf("price must be positive, got %v", price.Decimal())
	case fee.IsNegative():
		return fmt.Errorf("fee must not be negative, got %v", fee.Decimal())
	}
	return nil
}

// tradeAmounts returns price and fee in the portfolio currency.
func (p *Portfolio) tradeAmounts(price, fee Money) (Money, Money, error) {
	price, err := inCurrency(price, p.currency)
	if err != nil {
		return price, fee, err
	}
	fee, err = inCurrency(fee, p.currency)
	return price, fee, err
}
