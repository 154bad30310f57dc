package hold

import (
	"errors"
	"testing"

	"github.com/etnz/hold/date"
)

func TestHoldRule_Lot(t *testing.T) {
	l := lot(1, 100, "2025-09-14")
	tests := []struct {
		on        string
		daysHeld  int
		status    LockStatus
		daysUntil int
	}{
		{"2025-09-14", 0, Locked, 30},
		{"2025-10-13", 29, Locked, 1},
		{"2025-10-14", 30, Sellable, 0},
		{"2025-12-01", 78, Sellable, 0},
		{"2025-09-01", -13, Locked, 43}, // bought in the future
	}
	for _, tt := range tests {
		t.Run(tt.on, func(t *testing.T) {
			on := date.MustParse(tt.on)
			if got := l.DaysHeld(on); got != tt.daysHeld {
				t.Errorf("DaysHeld() = %d, want %d", got, tt.daysHeld)
			}
			if got := rule.Status(l, on); got != tt.status {
				t.Errorf("Status() = %s, want %s", got, tt.status)
			}
			if got := rule.DaysUntilSellable(l, on); got != tt.daysUntil {
				t.Errorf("DaysUntilSellable() = %d, want %d", got, tt.daysUntil)
			}
		})
	}
	if got, want := rule.UnlockDate(l), date.MustParse("2025-10-14"); got != want {
		t.Errorf("UnlockDate() = %v, want %v", got, want)
	}
}

func TestHoldRule_PartialLock(t *testing.T) {
	lots := msft().Lots

	sellable, err := rule.SellableQuantity(lots, today)
	if err != nil {
		t.Fatalf("SellableQuantity() error = %v", err)
	}
	if !sellable.Equal(Q(1.5)) {
		t.Errorf("SellableQuantity() = %v, want 1.5", sellable)
	}
	status, err := rule.PositionStatus(lots, today)
	if err != nil {
		t.Fatalf("PositionStatus() error = %v", err)
	}
	if status != PartialLock {
		t.Errorf("PositionStatus() = %s, want %s", status, PartialLock)
	}

	res, err := rule.Resolve("MSFT", lots, today)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !res.Locked.Equal(Q(1)) {
		t.Errorf("Locked = %v, want 1", res.Locked)
	}
	next, ok := res.NextUnlockDate()
	if !ok || next != date.MustParse("2025-11-13") {
		t.Errorf("NextUnlockDate() = %v, %v, want 2025-11-13", next, ok)
	}
}

func TestHoldRule_PositionStatus(t *testing.T) {
	tests := []struct {
		name string
		on   string
		want LockStatus
	}{
		{"all locked", "2025-08-03", Locked},
		{"partial", "2025-10-14", PartialLock},
		{"all sellable", "2025-11-13", Sellable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rule.PositionStatus(msft().Lots, date.MustParse(tt.on))
			if err != nil {
				t.Fatalf("PositionStatus() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("PositionStatus() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestHoldRule_Resolve_Integrity(t *testing.T) {
	// lots out of FIFO order can only come from a caller bypassing NewPortfolio.
	unsorted := []Lot{lot(1, 434, "2025-10-14"), lot(1.5, 507.6, "2025-08-02")}
	_, err := rule.Resolve("MSFT", unsorted, today)
	if !errors.Is(err, ErrDataIntegrity) {
		t.Fatalf("Resolve() error = %v, want %v", err, ErrDataIntegrity)
	}
	var die *DataIntegrityError
	if !errors.As(err, &die) || die.Ticker != "MSFT" {
		t.Errorf("Resolve() error = %#v, want a DataIntegrityError on MSFT", err)
	}

	if _, err := rule.Resolve("MSFT", nil, today); !errors.Is(err, ErrUnknownPosition) {
		t.Errorf("Resolve(nil) error = %v, want %v", err, ErrUnknownPosition)
	}
}

func TestHoldRule_Plan(t *testing.T) {
	lots := []Lot{
		lot(1, 100, "2025-01-01"),
		lot(2, 110, "2025-02-01"),
		lot(3, 120, "2025-10-10"),
	}
	plan, err := rule.Plan("X", lots, Q(2.5), today)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(plan) != 2 {
		t.Fatalf("len(Plan()) = %d, want 2", len(plan))
	}
	if !plan[0].Quantity.Equal(Q(1)) || !plan[0].Remaining.IsZero() {
		t.Errorf("plan[0] = %v remaining %v, want 1 remaining 0", plan[0].Quantity, plan[0].Remaining)
	}
	if !plan[1].Quantity.Equal(Q(1.5)) || !plan[1].Remaining.Equal(Q(0.5)) {
		t.Errorf("plan[1] = %v remaining %v, want 1.5 remaining 0.5", plan[1].Quantity, plan[1].Remaining)
	}

	_, err = rule.Plan("X", lots, Q(4), today)
	var lse *LockedSharesError
	if !errors.As(err, &lse) {
		t.Fatalf("Plan(4) error = %v, want a LockedSharesError", err)
	}
	if !lse.Sellable.Equal(Q(3)) || len(lse.Locked) != 1 || lse.Locked[0].UnlockDate != date.MustParse("2025-11-09") {
		t.Errorf("Plan(4) error = %v", lse)
	}
}
