package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/etnz/hold"
	"github.com/etnz/hold/date"
)

const legacyState = `{
  "positions": [
    {"ticker": "MSFT", "quantity": 1.0, "purchase_price": 434.00, "purchase_date": "2025-10-14"},
    {"ticker": "msft", "quantity": 1.5, "purchase_price": 507.60, "purchase_date": "2025-08-02"}
  ],
  "cash_available": 120.5
}`

func TestCompare(t *testing.T) {
	name := filepath.Join(t.TempDir(), "portfolio.json")
	if err := os.WriteFile(name, []byte(legacyState), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := hold.MigrateFile(name, date.MustParse("2025-10-14")); err != nil {
		t.Fatalf("MigrateFile() error = %v", err)
	}
	migrated, err := hold.DecodeFile(name)
	if err != nil {
		t.Fatal(err)
	}
	legacy, err := hold.MigrateLegacy([]byte(legacyState))
	if err != nil {
		t.Fatal(err)
	}
	if diffs := compare(legacy, migrated); len(diffs) > 0 {
		t.Errorf("compare() = %v, want no difference", diffs)
	}

	sold, _, err := hold.Recorder{Rule: hold.HoldRule{MinHoldDays: 30}}.Sell(migrated, "MSFT", hold.Q(0.5), hold.M(500, "USD"), date.MustParse("2025-10-14"), hold.M(0, "USD"))
	if err != nil {
		t.Fatal(err)
	}
	diffs := compare(legacy, sold)
	got := strings.Join(diffs, "\n")
	if !strings.Contains(got, "cash:") || !strings.Contains(got, "MSFT quantity: 2, want 2.5") {
		t.Errorf("compare() = %v, want cash and quantity differences", diffs)
	}
}
