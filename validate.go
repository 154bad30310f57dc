package hold

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/etnz/hold/date"
	"github.com/rs/zerolog/log"
)

// Status is the outcome of validating one action.
type Status string

const (
	Valid                    Status = "VALID"
	InvalidLocked            Status = "INVALID_LOCKED"
	InvalidInsufficientFunds Status = "INVALID_INSUFFICIENT_FUNDS"
	Warning                  Status = "WARNING"
)

// IsInvalid reports whether the status rejects the action.
func (s Status) IsInvalid() bool { return s == InvalidLocked || s == InvalidInsufficientFunds }

// Result is the validation of one action. Figures that do not apply to the
// action are left zero and omitted from JSON.
type Result struct {
	Action Action
	Status Status
	Detail string

	// SELL: resolved quantity, the lots it notionally consumes and the
	// proceeds credited. BUY: the estimated quantity bought and the cost debited.
	Quantity Quantity
	Lots     []Consumption
	Proceeds Money
	Cost     Money

	// INVALID_LOCKED figures.
	Requested Quantity
	Sellable  Quantity
	Locked    Quantity

	// INVALID_INSUFFICIENT_FUNDS figures.
	Required  Money
	Available Money

	CashAfter Money
}

// Impact is the simulated change of one position.
type Impact struct {
	Ticker         string   `json:"ticker"`
	QuantityBefore Quantity `json:"quantity_before"`
	QuantityAfter  Quantity `json:"quantity_after"`
}

// Report is the validation of an action sequence.
type Report struct {
	CashBefore Money    `json:"cash_before"`
	CashAfter  Money    `json:"cash_after"`
	Results    []Result `json:"results"`
	Impacts    []Impact `json:"impacts"`
}

// Valid reports whether no action was rejected. Warnings do not count.
func (r Report) Valid() bool {
	for _, res := range r.Results {
		if res.Status.IsInvalid() {
			return false
		}
	}
	return true
}

// Count returns the number of results with the given status.
func (r Report) Count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// Validator simulates an ordered sequence of proposed actions against a single
// running cash balance.
type Validator struct {
	Rule HoldRule
	// Fee is charged on every SELL and BUY.
	Fee Money
	// Tolerance bounds the accepted gap between computed and expected
	// proceeds. It also covers the shortfall of a single BUY spending the
	// proceeds of earlier SELLs; that BUY is limited to the cash left.
	Tolerance Money
}

// simulation is the state threaded through a validation run.
type simulation struct {
	v      Validator
	p      *Portfolio // private clone, holds the simulated lots and cash
	prices Prices
	on     date.Date
	sold   map[string]bool // tickers sold earlier in the run

	credited  bool // SELL proceeds were added to the cash
	shortfall bool // a BUY already used the tolerance
}

// Validate checks actions in order; each action sees the cash left by the
// previous ones, so a BUY can spend the proceeds of an earlier SELL. Results
// are returned in input order and nothing is corrected: invalid actions are
// reported for revision and have no effect on the simulated cash.
//
// The running cash never becomes negative. It returns an error when the fee
// or the tolerance is in another currency, or for a DataIntegrityError found
// while resolving a position.
func (v Validator) Validate(actions []Action, p *Portfolio, prices Prices, on date.Date) (Report, error) {
	s := &simulation{
		v:      v,
		p:      p.Clone(),
		prices: prices,
		on:     on,
		sold:   make(map[string]bool),
	}
	var err error
	if s.v.Fee, err = inCurrency(v.Fee, p.currency); err != nil {
		return Report{}, fmt.Errorf("fee: %w", err)
	}
	if s.v.Tolerance, err = inCurrency(v.Tolerance, p.currency); err != nil {
		return Report{}, fmt.Errorf("tolerance: %w", err)
	}

	rep := Report{CashBefore: p.cash}
	var touched []string
	seen := make(map[string]bool)
	for _, a := range actions {
		a.Ticker = NormalizeTicker(a.Ticker)
		if a.Ticker != "" && !seen[a.Ticker] {
			seen[a.Ticker] = true
			touched = append(touched, a.Ticker)
		}
		res, err := s.apply(a)
		if err != nil {
			return Report{}, err
		}
		res.Action = a
		res.CashAfter = s.p.cash
		rep.Results = append(rep.Results, res)
	}
	rep.CashAfter = s.p.cash

	for _, t := range touched {
		before, _ := p.Position(t)
		after, _ := s.p.Position(t)
		rep.Impacts = append(rep.Impacts, Impact{
			Ticker:         t,
			QuantityBefore: before.TotalQuantity(),
			QuantityAfter:  after.TotalQuantity(),
		})
	}
	return rep, nil
}

func (s *simulation) apply(a Action) (Result, error) {
	switch a.Type {
	case ActionHold:
		return Result{Status: Valid, Detail: "no cash effect"}, nil
	case ActionSell:
		return s.sell(a)
	case ActionBuy:
		return s.buy(a), nil
	default:
		return Result{Status: Warning, Detail: fmt.Sprintf("unknown action type %q, ignored", a.Type)}, nil
	}
}

func (s *simulation) sell(a Action) (Result, error) {
	if a.Ticker == "" {
		return Result{Status: Warning, Detail: "missing ticker, ignored"}, nil
	}
	if !a.Amount.IsPositive() {
		return Result{Status: Warning, Detail: fmt.Sprintf("non positive quantity %v, ignored", a.Amount)}, nil
	}
	ls := s.p.positions[a.Ticker]
	if len(ls) == 0 {
		return Result{
			Status:    InvalidLocked,
			Requested: a.Amount.Quantity(),
			Detail:    fmt.Sprintf("no %s shares held, 0 sellable", a.Ticker),
		}, nil
	}
	res, err := s.v.Rule.Resolve(a.Ticker, ls, s.on)
	if err != nil {
		return Result{}, err
	}
	quantity := res.Sellable
	if !a.Amount.All {
		quantity = a.Amount.Quantity()
	}
	if quantity.GreaterThan(res.Sellable) || quantity.IsZero() {
		requested, asked := quantity, quantity.String()
		if a.Amount.All {
			// all of nothing sellable: report what is held.
			requested = lots(ls).total()
			asked = fmt.Sprintf("all %v held", requested)
		}
		r := Result{
			Status:    InvalidLocked,
			Requested: requested,
			Sellable:  res.Sellable,
			Locked:    res.Locked,
			Detail:    fmt.Sprintf("requested %s, sellable %v, locked %v", asked, res.Sellable, res.Locked),
		}
		if d, ok := res.NextUnlockDate(); ok {
			r.Detail += fmt.Sprintf(" (next unlock on %v)", d)
		}
		return r, nil
	}

	plan, _ := lots(ls).plan(quantity)
	r := Result{Status: Valid, Quantity: quantity, Lots: plan}
	price, ok := s.p.price(s.prices, a.Ticker)
	if !ok {
		// The shares are gone but the proceeds are unknown.
		s.p.positions[a.Ticker] = lots(ls).sell(quantity)
		s.cleanup(a.Ticker)
		s.sold[a.Ticker] = true
		r.Status = Warning
		r.Detail = fmt.Sprintf("no current price for %s, proceeds of %v shares not credited", a.Ticker, quantity)
		return r, nil
	}

	proceeds := price.Mul(quantity).Sub(s.v.Fee)
	if s.p.cash.Add(proceeds).IsNegative() {
		return Result{
			Status:    InvalidInsufficientFunds,
			Required:  proceeds.Neg(),
			Available: s.p.cash,
			Detail:    fmt.Sprintf("proceeds %v do not cover the fee with %v available", proceeds, s.p.cash),
		}, nil
	}
	s.p.positions[a.Ticker] = lots(ls).sell(quantity)
	s.cleanup(a.Ticker)
	s.sold[a.Ticker] = true
	s.p.cash = s.p.cash.Add(proceeds)
	s.credited = s.credited || proceeds.IsPositive()
	r.Proceeds = proceeds
	r.Detail = fmt.Sprintf("%v x %v - %v fee = %v", quantity, price, s.v.Fee, proceeds)

	if a.ExpectedProceeds != nil {
		expected, err := inCurrency(*a.ExpectedProceeds, s.p.currency)
		if err != nil {
			r.Status = Warning
			r.Detail += fmt.Sprintf("; expected proceeds in %s ignored", expected.Currency())
			return r, nil
		}
		if gap := expected.Sub(proceeds).Abs(); gap.GreaterThan(s.v.Tolerance) {
			r.Status = Warning
			r.Detail += fmt.Sprintf("; expected proceeds %v differ by %v, computed value used", expected, gap)
			log.Warn().Str("ticker", a.Ticker).Str("expected", expected.String()).Str("computed", proceeds.String()).Msg("proceeds mismatch")
		}
	}
	return r, nil
}

func (s *simulation) buy(a Action) Result {
	if a.Ticker == "" {
		return Result{Status: Warning, Detail: "missing ticker, ignored"}
	}
	if !a.Amount.IsPositive() {
		return Result{Status: Warning, Detail: fmt.Sprintf("non positive amount %v, ignored", a.Amount)}
	}
	var notes []string
	if src := s.unsoldSource(a.CashSource); src != "" {
		notes = append(notes, fmt.Sprintf("warning: cash source %s was not sold earlier in this sequence", src))
	}

	amount := a.Amount.Money(s.p.currency)
	if a.Amount.All {
		amount = s.p.cash.Sub(s.v.Fee)
	}
	cost := amount.Add(s.v.Fee)
	short := cost.GreaterThan(s.p.cash)
	spend := cost
	if short {
		spend = s.p.cash
	}
	if !amount.IsPositive() || !spend.GreaterThan(s.v.Fee) || (short && !s.absorbs(cost)) {
		return Result{
			Status:    InvalidInsufficientFunds,
			Required:  cost,
			Available: s.p.cash,
			Detail:    join(fmt.Sprintf("requires %v (including %v fee), %v available", cost, s.v.Fee, s.p.cash), notes),
		}
	}
	if short {
		s.shortfall = true
		notes = append(notes, fmt.Sprintf("short by %v of the %v requested, within tolerance of the proceeds", cost.Sub(s.p.cash), amount))
	}
	s.p.cash = s.p.cash.Sub(spend)
	r := Result{Status: Valid, Cost: spend}

	price, ok := s.p.price(s.prices, a.Ticker)
	invested := spend.Sub(s.v.Fee)
	if !ok {
		notes = append(notes, fmt.Sprintf("no current price for %s, quantity not estimated", a.Ticker))
	} else if q := invested.DivPrice(price).Round(6); q.IsPositive() {
		r.Quantity = q
		s.p.insert(a.Ticker, Lot{Quantity: q, UnitCost: price, PurchaseDate: s.on})
	}
	detail := fmt.Sprintf("%v + %v fee debited", invested, s.v.Fee)
	if r.Quantity.IsPositive() {
		detail += fmt.Sprintf(", about %v shares at %v", r.Quantity, price)
	}
	r.Detail = join(detail, notes)
	return r
}

// absorbs reports whether a BUY costing cost may still pass on the running
// cash: the gap must be within the tolerance, the cash must hold proceeds of
// an earlier SELL and no other BUY of the run was granted a shortfall.
func (s *simulation) absorbs(cost Money) bool {
	return s.credited && !s.shortfall && cost.Sub(s.p.cash).LessThanOrEqual(s.v.Tolerance)
}

// cleanup deletes a position left without lots.
func (s *simulation) cleanup(ticker string) {
	if len(s.p.positions[ticker]) == 0 {
		delete(s.p.positions, ticker)
	}
}

var tickerWords = regexp.MustCompile(`[A-Za-z][A-Za-z0-9.\-]*`)

// unsoldSource returns the first ticker named by a cash source that is held
// but was not sold earlier in the run.
func (s *simulation) unsoldSource(source string) string {
	for _, w := range tickerWords.FindAllString(source, -1) {
		t := NormalizeTicker(w)
		if s.sold[t] {
			continue
		}
		if _, held := s.p.positions[t]; held {
			return t
		}
	}
	return ""
}

func join(detail string, notes []string) string {
	if len(notes) == 0 {
		return detail
	}
	return detail + "; " + strings.Join(notes, "; ")
}

// MarshalJSON writes only the figures relevant to the result.
func (r Result) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("action", r.Action)
	w.Append("status", r.Status)
	w.Append("detail", r.Detail)
	w.When(r.Quantity.IsPositive(), "quantity", r.Quantity)
	w.When(len(r.Lots) > 0, "lots", r.Lots)
	w.When(!r.Proceeds.IsZero(), "proceeds", r.Proceeds)
	w.When(!r.Cost.IsZero(), "cost", r.Cost)
	if r.Status == InvalidLocked {
		w.Append("requested", r.Requested)
		w.Append("sellable", r.Sellable)
		w.Append("locked", r.Locked)
	}
	if r.Status == InvalidInsufficientFunds {
		w.Append("required", r.Required)
		w.Append("available", r.Available)
	}
	w.Append("cash_after", r.CashAfter)
	return w.MarshalJSON()
}

// MarshalJSON writes the consumption with the persisted lot field names.
func (c Consumption) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("purchase_date", c.PurchaseDate)
	w.Append("quantity", c.Quantity)
	w.Append("purchase_price", c.UnitCost)
	w.Append("remaining", c.Remaining)
	return w.MarshalJSON()
}
