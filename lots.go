package hold

import (
	"slices"

	"github.com/etnz/hold/date"
)

// Lot represents a single purchase of a security.
type Lot struct {
	Quantity     Quantity
	UnitCost     Money // price paid per share, fees excluded
	PurchaseDate date.Date
	Note         string
}

// Cost returns the total cost of the lot (quantity * unit cost).
func (l Lot) Cost() Money { return l.UnitCost.Mul(l.Quantity) }

// DaysHeld returns the number of days the lot has been held on a given day.
func (l Lot) DaysHeld(on date.Date) int { return on.DaysSince(l.PurchaseDate) }

// Consumption is the part of a lot taken by a sell, oldest lot first.
type Consumption struct {
	PurchaseDate date.Date
	Quantity     Quantity
	UnitCost     Money
	Remaining    Quantity // quantity left in the lot after the sell
}

// Cost returns the cost basis of the consumed shares.
func (c Consumption) Cost() Money { return c.UnitCost.Mul(c.Quantity) }

// lots is a list of lots in FIFO order.
type lots []Lot

// sortLots establishes FIFO order. The sort is stable so that lots bought the
// same day keep their recorded order.
func sortLots(l []Lot) {
	slices.SortStableFunc(l, func(a, b Lot) int { return a.PurchaseDate.Compare(b.PurchaseDate) })
}

// total returns the sum of the lots quantity.
func (l lots) total() Quantity {
	var q Quantity
	for _, x := range l {
		q = q.Add(x.Quantity)
	}
	return q
}

// cost returns the sum of the lots cost.
func (l lots) cost(currency string) Money {
	c := M(0, currency)
	for _, x := range l {
		c = c.Add(x.Cost())
	}
	return c
}

// plan returns the lots consumed by selling quantityToSell, oldest first. The
// returned quantity is the part that the lots could not cover.
func (l lots) plan(quantityToSell Quantity) ([]Consumption, Quantity) {
	var plan []Consumption
	for _, currentLot := range l {
		if !quantityToSell.IsPositive() {
			break
		}
		taken := MinQuantity(currentLot.Quantity, quantityToSell)
		plan = append(plan, Consumption{
			PurchaseDate: currentLot.PurchaseDate,
			Quantity:     taken,
			UnitCost:     currentLot.UnitCost,
			Remaining:    currentLot.Quantity.Sub(taken),
		})
		quantityToSell = quantityToSell.Sub(taken)
	}
	return plan, quantityToSell
}

// sell reduces the available lots by a given quantity to sell using the FIFO
// method. Emptied lots are removed.
func (l lots) sell(quantityToSell Quantity) lots {
	var remainingLots lots

	for _, currentLot := range l {
		if !quantityToSell.IsPositive() {
			remainingLots = append(remainingLots, currentLot)
			continue
		}

		if currentLot.Quantity.GreaterThan(quantityToSell) {
			// Partial sale from this lot
			currentLot.Quantity = currentLot.Quantity.Sub(quantityToSell)
			remainingLots = append(remainingLots, currentLot)
			quantityToSell = Quantity{}
		} else {
			// Full sale of this lot
			quantityToSell = quantityToSell.Sub(currentLot.Quantity)
		}
	}
	return remainingLots
}
