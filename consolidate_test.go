package hold

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/etnz/hold/date"
)

func TestConsolidate_WeightedAverage(t *testing.T) {
	p := newTestPortfolio(t, 0, msft())

	views, err := Consolidate(p, Prices{"MSFT": USD(512.30)}, today, rule)
	if err != nil {
		t.Fatalf("Consolidate() error = %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("len(Consolidate()) = %d, want 1", len(views))
	}
	v := views[0]
	if !v.TotalQuantity.Equal(Q(2.5)) {
		t.Errorf("TotalQuantity = %v, want 2.5", v.TotalQuantity)
	}
	if !v.AverageCost.Equal(USD(478.16)) {
		t.Errorf("AverageCost = %v, want $478.16", v.AverageCost.Decimal())
	}
	if !v.CostBasis.Equal(USD(1195.40)) {
		t.Errorf("CostBasis = %v, want $1,195.40", v.CostBasis)
	}
	if !v.SellableQuantity.Equal(Q(1.5)) || !v.LockedQuantity.Equal(Q(1)) || v.Status != PartialLock {
		t.Errorf("lock = %v sellable %v locked %s, want 1.5 sellable 1 locked PARTIAL_LOCK", v.SellableQuantity, v.LockedQuantity, v.Status)
	}
	if v.NextUnlockDate != date.MustParse("2025-11-13") {
		t.Errorf("NextUnlockDate = %v, want 2025-11-13", v.NextUnlockDate)
	}
	if !v.Priced || !v.CurrentValue.Equal(USD(1280.75)) || !v.TotalPnL.Equal(USD(85.35)) {
		t.Errorf("value = %v pnl %v, want $1,280.75 and $85.35", v.CurrentValue, v.TotalPnL)
	}
	if !v.PnLPercent.Equal(7.1399) {
		t.Errorf("PnLPercent = %v, want 7.14%%", v.PnLPercent)
	}

	if len(v.Lots) != 2 {
		t.Fatalf("len(Lots) = %d, want 2", len(v.Lots))
	}
	first, second := v.Lots[0], v.Lots[1]
	if first.DaysHeld != 73 || first.Status != Sellable || first.DaysUntilSellable != 0 {
		t.Errorf("first lot = %d days %s, want 73 days SELLABLE", first.DaysHeld, first.Status)
	}
	if second.DaysHeld != 0 || second.Status != Locked || second.DaysUntilSellable != 30 {
		t.Errorf("second lot = %d days %s, want 0 days LOCKED", second.DaysHeld, second.Status)
	}
}

func TestConsolidate_MissingPrice(t *testing.T) {
	p := newTestPortfolio(t, 0, msft(), Position{Ticker: "AAPL", Lots: []Lot{lot(2, 200, "2025-01-02")}})

	views, err := Consolidate(p, Prices{"aapl": USD(250)}, today, rule)
	if err != nil {
		t.Fatalf("Consolidate() error = %v", err)
	}
	if len(views) != 2 || views[0].Ticker != "AAPL" || views[1].Ticker != "MSFT" {
		t.Fatalf("Consolidate() = %v, want AAPL then MSFT", views)
	}
	if !views[0].Priced || !views[0].TotalPnL.Equal(USD(100)) {
		t.Errorf("AAPL matched through a lower case price: priced %v pnl %v", views[0].Priced, views[0].TotalPnL)
	}

	unpriced := views[1]
	if unpriced.Priced {
		t.Errorf("MSFT Priced = true, want false")
	}
	b, err := json.Marshal(unpriced)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	for _, field := range []string{"current_value", "total_pnl", "pnl_percent", "current_price"} {
		if strings.Contains(string(b), field) {
			t.Errorf("unpriced view has %q: %s", field, b)
		}
	}
	if !strings.Contains(string(b), `"average_cost":478.16`) {
		t.Errorf("unpriced view lacks the average cost: %s", b)
	}
}

func TestConsolidate_CaseVariants(t *testing.T) {
	// two records for the same holding with different case must not split it.
	p := newTestPortfolio(t, 0,
		Position{Ticker: "msft", Lots: []Lot{lot(1.0, 434.00, "2025-10-14")}},
		Position{Ticker: " MSFT", Lots: []Lot{lot(1.5, 507.60, "2025-08-02")}},
	)
	views, err := Consolidate(p, nil, today, rule)
	if err != nil {
		t.Fatalf("Consolidate() error = %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("len(Consolidate()) = %d, want 1", len(views))
	}
	if got := views[0].Lots[0].PurchaseDate; got != date.MustParse("2025-08-02") {
		t.Errorf("first lot bought on %v, want the oldest 2025-08-02", got)
	}
	if !views[0].AverageCost.Equal(USD(478.16)) {
		t.Errorf("AverageCost = %v, want $478.16", views[0].AverageCost)
	}
}
