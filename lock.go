package hold

import (
	"github.com/etnz/hold/date"
)

// LockStatus tells whether a lot or a position can be sold.
type LockStatus string

const (
	Sellable    LockStatus = "SELLABLE"
	Locked      LockStatus = "LOCKED"
	PartialLock LockStatus = "PARTIAL_LOCK" // only for positions
)

// DefaultMinHoldDays is the usual regulatory minimum holding period.
const DefaultMinHoldDays = 30

// HoldRule is the minimum holding period constraint: a lot can only be sold
// once it has been held for MinHoldDays.
type HoldRule struct {
	MinHoldDays int
}

// IsSellable reports whether the lot can be sold on a given day.
func (r HoldRule) IsSellable(l Lot, on date.Date) bool { return l.DaysHeld(on) >= r.MinHoldDays }

// UnlockDate returns the first day the lot can be sold.
func (r HoldRule) UnlockDate(l Lot) date.Date { return l.PurchaseDate.Add(r.MinHoldDays) }

// DaysUntilSellable returns how many days remain before the lot unlocks, 0 when sellable.
func (r HoldRule) DaysUntilSellable(l Lot, on date.Date) int {
	return max(0, r.MinHoldDays-l.DaysHeld(on))
}

// Status returns the lot's lock status on a given day.
func (r HoldRule) Status(l Lot, on date.Date) LockStatus {
	if r.IsSellable(l, on) {
		return Sellable
	}
	return Locked
}

// Resolution is the FIFO split of a position between what can be sold on a
// given day and what cannot.
type Resolution struct {
	Ticker   string
	Sellable Quantity
	Locked   Quantity
	Status   LockStatus
	// LockedLots lists the locked lots with their unlock date, oldest first.
	LockedLots []LockedLot
}

// NextUnlockDate returns the earliest unlock date among locked lots.
func (r Resolution) NextUnlockDate() (date.Date, bool) {
	if len(r.LockedLots) == 0 {
		return date.Date{}, false
	}
	return r.LockedLots[0].UnlockDate, true
}

// Resolve walks the lots in FIFO order and splits them into sellable and
// locked. Sellable lots must form a prefix of the lots: a locked lot before a
// sellable one, or lots out of date order, is a DataIntegrityError.
func (r HoldRule) Resolve(ticker string, l []Lot, on date.Date) (Resolution, error) {
	res := Resolution{Ticker: ticker}
	if len(l) == 0 {
		return res, &UnknownPositionError{Ticker: ticker}
	}
	for i, x := range l {
		if i > 0 && x.PurchaseDate.Before(l[i-1].PurchaseDate) {
			return Resolution{}, integrityf(ticker, "lot bought on %v stored after a lot bought on %v", x.PurchaseDate, l[i-1].PurchaseDate)
		}
		if r.IsSellable(x, on) {
			if len(res.LockedLots) > 0 {
				return Resolution{}, integrityf(ticker, "sellable lot bought on %v follows a locked lot bought on %v", x.PurchaseDate, res.LockedLots[0].PurchaseDate)
			}
			res.Sellable = res.Sellable.Add(x.Quantity)
			continue
		}
		res.Locked = res.Locked.Add(x.Quantity)
		res.LockedLots = append(res.LockedLots, LockedLot{
			PurchaseDate: x.PurchaseDate,
			Quantity:     x.Quantity,
			UnlockDate:   r.UnlockDate(x),
		})
	}
	switch {
	case len(res.LockedLots) == 0:
		res.Status = Sellable
	case res.Sellable.IsZero():
		res.Status = Locked
	default:
		res.Status = PartialLock
	}
	return res, nil
}

// SellableQuantity returns the quantity that can be sold on a given day.
func (r HoldRule) SellableQuantity(l []Lot, on date.Date) (Quantity, error) {
	res, err := r.Resolve("", l, on)
	return res.Sellable, err
}

// PositionStatus returns the position's lock status on a given day.
func (r HoldRule) PositionStatus(l []Lot, on date.Date) (LockStatus, error) {
	res, err := r.Resolve("", l, on)
	return res.Status, err
}

// Plan returns the lots consumed, oldest first, by selling quantity on a given
// day. It fails with a LockedSharesError when quantity exceeds the sellable
// quantity.
func (r HoldRule) Plan(ticker string, l []Lot, quantity Quantity, on date.Date) ([]Consumption, error) {
	res, err := r.Resolve(ticker, l, on)
	if err != nil {
		return nil, err
	}
	if quantity.GreaterThan(res.Sellable) {
		return nil, &LockedSharesError{Ticker: ticker, Requested: quantity, Sellable: res.Sellable, Locked: res.LockedLots}
	}
	plan, _ := lots(l).plan(quantity)
	return plan, nil
}
