package hold

import (
	"testing"

	"github.com/etnz/hold/date"
)

// USD is a helper for test to create usd money from const
func USD(v float64) Money { return M(v, "USD") }

// NO is a helper for test to create money from const with no currency set
func NO(v float64) Money { return M(v, "") }

// lot is a helper for test to create a lot bought on a "2006-01-02" day.
func lot(quantity, price float64, on string) Lot {
	return Lot{Quantity: Q(quantity), UnitCost: USD(price), PurchaseDate: date.MustParse(on)}
}

// newTestPortfolio builds a USD portfolio or fails the test.
func newTestPortfolio(t *testing.T, cash float64, positions ...Position) *Portfolio {
	t.Helper()
	p, err := NewPortfolio("USD", USD(cash), positions...)
	if err != nil {
		t.Fatalf("NewPortfolio() error = %v", err)
	}
	return p
}

// msft is the two-lot MSFT position: a first purchase 73 days before
// 2025-10-14 and a second purchase on that day.
func msft() Position {
	return Position{Ticker: "MSFT", Lots: []Lot{
		lot(1.5, 507.60, "2025-08-02"),
		lot(1.0, 434.00, "2025-10-14"),
	}}
}

var (
	today = date.MustParse("2025-10-14")
	rule  = HoldRule{MinHoldDays: 30}
)
