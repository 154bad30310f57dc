package hold

import (
	"github.com/etnz/hold/date"
)

// LotView is a lot enriched with its age and lock status on a given day.
type LotView struct {
	Lot
	DaysHeld          int
	Status            LockStatus
	UnlockDate        date.Date
	DaysUntilSellable int

	// Priced is false when no current price is known, PnLPercent is then meaningless.
	Priced     bool
	PnLPercent Percent
}

// PositionView is the consolidated view of a position on a given day.
type PositionView struct {
	Ticker           string
	TotalQuantity    Quantity
	AverageCost      Money
	CostBasis        Money
	SellableQuantity Quantity
	LockedQuantity   Quantity
	Status           LockStatus
	NextUnlockDate   date.Date // zero when nothing is locked

	// Priced is false when no current price is known. The fields below are
	// then left zero and must not be presented.
	Priced       bool
	CurrentPrice Money
	CurrentValue Money
	TotalPnL     Money
	PnLPercent   Percent

	Lots []LotView
}

// Consolidate derives the position views of a portfolio on a given day,
// sorted by ticker. Prices may be missing for some tickers: their P&L fields
// are omitted rather than computed against a made up price.
//
// It is a pure function of its inputs.
func Consolidate(p *Portfolio, prices Prices, on date.Date, rule HoldRule) ([]PositionView, error) {
	var views []PositionView
	for _, pos := range p.Positions() {
		v, err := consolidate(p, pos, prices, on, rule)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

func consolidate(p *Portfolio, pos Position, prices Prices, on date.Date, rule HoldRule) (PositionView, error) {
	res, err := rule.Resolve(pos.Ticker, pos.Lots, on)
	if err != nil {
		return PositionView{}, err
	}
	v := PositionView{
		Ticker:           pos.Ticker,
		TotalQuantity:    pos.TotalQuantity(),
		AverageCost:      pos.AverageCost(),
		CostBasis:        pos.CostBasis(),
		SellableQuantity: res.Sellable,
		LockedQuantity:   res.Locked,
		Status:           res.Status,
	}
	v.NextUnlockDate, _ = res.NextUnlockDate()

	price, priced := p.price(prices, pos.Ticker)
	if priced {
		v.Priced = true
		v.CurrentPrice = price
		v.CurrentValue = price.Mul(v.TotalQuantity)
		v.TotalPnL = v.CurrentValue.Sub(v.CostBasis)
		v.PnLPercent = percentOf(v.CurrentValue, v.CostBasis)
	}

	for _, l := range pos.Lots {
		lv := LotView{
			Lot:               l,
			DaysHeld:          l.DaysHeld(on),
			Status:            rule.Status(l, on),
			UnlockDate:        rule.UnlockDate(l),
			DaysUntilSellable: rule.DaysUntilSellable(l, on),
		}
		if priced {
			lv.Priced = true
			lv.PnLPercent = percentOf(price, l.UnitCost)
		}
		v.Lots = append(v.Lots, lv)
	}
	return v, nil
}

// MarshalJSON omits the P&L fields of an unpriced lot.
func (v LotView) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("quantity", v.Quantity)
	w.Append("purchase_price", v.UnitCost)
	w.Append("purchase_date", v.PurchaseDate)
	w.Optional("notes", v.Note)
	w.Append("days_held", v.DaysHeld)
	w.Append("status", v.Status)
	w.Append("unlock_date", v.UnlockDate)
	w.Append("days_until_sellable", v.DaysUntilSellable)
	w.When(v.Priced, "pnl_percent", v.PnLPercent)
	return w.MarshalJSON()
}

// MarshalJSON omits the P&L fields of an unpriced position.
func (v PositionView) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("ticker", v.Ticker)
	w.Append("total_quantity", v.TotalQuantity)
	w.Append("average_cost", v.AverageCost)
	w.Append("cost_basis", v.CostBasis)
	w.Append("sellable_quantity", v.SellableQuantity)
	w.Append("locked_quantity", v.LockedQuantity)
	w.Append("lock_status", v.Status)
	w.When(!v.NextUnlockDate.IsZero(), "next_unlock_date", v.NextUnlockDate)
	w.When(v.Priced, "current_price", v.CurrentPrice)
	w.When(v.Priced, "current_value", v.CurrentValue)
	w.When(v.Priced, "total_pnl", v.TotalPnL)
	w.When(v.Priced, "total_pnl_percent", v.PnLPercent)
	w.Append("lots", v.Lots)
	return w.MarshalJSON()
}
