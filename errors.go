package hold

import (
	"errors"
	"fmt"
	"strings"

	"github.com/etnz/hold/date"
)

// Sentinel errors, usable with errors.Is on any error returned by this package.
var (
	ErrDataIntegrity     = errors.New("data integrity violation")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrLockedShares      = errors.New("shares are locked")
	ErrUnknownPosition   = errors.New("unknown position")
	ErrCurrencyMismatch  = errors.New("currency mismatch")
)

// DataIntegrityError reports stored data that breaks a ledger invariant. It is
// never repaired automatically.
type DataIntegrityError struct {
	Ticker string // may be empty when the violation is not about a position
	Reason string
}

func (e *DataIntegrityError) Error() string {
	if e.Ticker == "" {
		return fmt.Sprintf("%v: %s", ErrDataIntegrity, e.Reason)
	}
	return fmt.Sprintf("%v: %s: %s", ErrDataIntegrity, e.Ticker, e.Reason)
}

func (e *DataIntegrityError) Unwrap() error { return ErrDataIntegrity }

func integrityf(ticker, format string, args ...any) error {
	return &DataIntegrityError{Ticker: ticker, Reason: fmt.Sprintf(format, args...)}
}

// InsufficientFundsError is returned when a cash debit would make the cash negative.
type InsufficientFundsError struct {
	Required  Money
	Available Money
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("%v: requires %v but only %v available (short by %v)", ErrInsufficientFunds, e.Required, e.Available, e.Required.Sub(e.Available))
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// LockedLot is a lot that cannot be sold yet.
type LockedLot struct {
	PurchaseDate date.Date
	Quantity     Quantity
	UnlockDate   date.Date
}

// LockedSharesError is returned when selling more than the sellable quantity.
type LockedSharesError struct {
	Ticker    string
	Requested Quantity
	Sellable  Quantity
	Locked    []LockedLot
}

func (e *LockedSharesError) Error() string {
	var lots []string
	for _, l := range e.Locked {
		lots = append(lots, fmt.Sprintf("%v bought on %v unlocks on %v", l.Quantity, l.PurchaseDate, l.UnlockDate))
	}
	msg := fmt.Sprintf("%v: cannot sell %v %s, only %v sellable", ErrLockedShares, e.Requested, e.Ticker, e.Sellable)
	if len(lots) > 0 {
		msg += ": " + strings.Join(lots, "; ")
	}
	return msg
}

func (e *LockedSharesError) Unwrap() error { return ErrLockedShares }

// UnknownPositionError is returned when a ticker has no lots.
type UnknownPositionError struct {
	Ticker string
}

func (e *UnknownPositionError) Error() string {
	return fmt.Sprintf("%v: no lots for %q", ErrUnknownPosition, e.Ticker)
}

func (e *UnknownPositionError) Unwrap() error { return ErrUnknownPosition }

// CurrencyMismatchError is returned when an amount is not in the portfolio currency.
type CurrencyMismatchError struct {
	Amount   Money
	Currency string
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("%v: %s %s amount in a %s portfolio", ErrCurrencyMismatch, e.Amount.Decimal(), e.Amount.Currency(), e.Currency)
}

func (e *CurrencyMismatchError) Unwrap() error { return ErrCurrencyMismatch }
