package renderer

import (
	"slices"
	"strings"
	"testing"

	"github.com/etnz/hold"
	"github.com/etnz/hold/date"
)

var (
	today = date.MustParse("2025-10-14")
	rule  = hold.HoldRule{MinHoldDays: 30}
)

func usd(v float64) hold.Money { return hold.M(v, "USD") }

func testPortfolio(t *testing.T) *hold.Portfolio {
	t.Helper()
	p, err := hold.NewPortfolio("USD", usd(0), hold.Position{Ticker: "MSFT", Lots: []hold.Lot{
		{Quantity: hold.Q(1.5), UnitCost: usd(507.60), PurchaseDate: date.MustParse("2025-08-02"), Note: "first | buy"},
		{Quantity: hold.Q(1.0), UnitCost: usd(434.00), PurchaseDate: today},
	}})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func views(t *testing.T, prices hold.Prices) []hold.PositionView {
	t.Helper()
	v, err := hold.Consolidate(testPortfolio(t), prices, today, rule)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

// tableRows returns the trimmed cells of every table line in a document,
// padding aside.
func tableRows(doc string) [][]string {
	var rows [][]string
	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "|") {
			continue
		}
		line = strings.ReplaceAll(line, `\|`, "\x00")
		parts := strings.Split(strings.Trim(line, "|"), "|")
		for i, c := range parts {
			parts[i] = strings.ReplaceAll(strings.TrimSpace(c), "\x00", `\|`)
		}
		rows = append(rows, parts)
	}
	return rows
}

// assertRows checks that every wanted row starts a table row of got.
func assertRows(t *testing.T, got string, want ...[]string) {
	t.Helper()
	rows := tableRows(got)
	for _, w := range want {
		found := false
		for _, r := range rows {
			if len(r) >= len(w) && slices.Equal(r[:len(w)], w) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("no table row %q in:\n%s", w, got)
		}
	}
}

func assertContains(t *testing.T, got string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(got, w) {
			t.Errorf("output does not contain %q:\n%s", w, got)
		}
	}
}

func TestStatus(t *testing.T) {
	got := Status(views(t, hold.Prices{"MSFT": usd(512.30)}), usd(120.5), today)
	assertContains(t, got,
		"# Portfolio on 2025-10-14",
		"Cash available: **$120.50**",
		"Total value: **$1,401.25**",
		"## MSFT",
		"1.5 shares sellable, 1 locked, next unlock on 2025-11-13.",
	)
	assertRows(t, got,
		[]string{"MSFT", "2.5", "$478.16", "$1,195.40", "$512.30", "$1,280.75", "+$85.35", "+7.14%", "PARTIAL_LOCK"},
		[]string{"2025-08-02", "1.5", "$507.60", "73", "SELLABLE", "-", "+0.93%", `first \| buy`},
		[]string{"2025-10-14", "1", "$434.00", "0", "LOCKED", "2025-11-13 (30d)", "+18.04%"},
	)
}

func TestStatusUnpriced(t *testing.T) {
	got := Status(views(t, nil), usd(0), today)
	assertContains(t, got, "Total value: n/a")
	assertRows(t, got, []string{"MSFT", "2.5", "$478.16", "$1,195.40", "n/a", "n/a", "n/a", "n/a", "PARTIAL_LOCK"})
	if strings.Contains(got, "+$") {
		t.Errorf("unpriced status shows a P&L:\n%s", got)
	}
}

func TestCheck(t *testing.T) {
	got := Check(views(t, nil), usd(0), today)
	assertRows(t, got, []string{"MSFT", "2.5", "1.5", "1", "PARTIAL_LOCK", "2025-11-13"})

	empty, err := hold.NewPortfolio("USD", usd(10))
	if err != nil {
		t.Fatal(err)
	}
	v, _ := hold.Consolidate(empty, nil, today, rule)
	assertContains(t, Check(v, empty.Cash(), today), "No positions.")
}

func TestReport(t *testing.T) {
	v := hold.Validator{Rule: rule, Fee: usd(10), Tolerance: usd(50)}
	actions := []hold.Action{
		{Type: hold.ActionSell, Ticker: "MSFT", Amount: hold.A(1.5), Reasoning: "take profit"},
		{Type: hold.ActionSell, Ticker: "MSFT", Amount: hold.A(1)},
		{Type: hold.ActionBuy, Ticker: "AAPL", Amount: hold.A(600)},
	}
	r, err := v.Validate(actions, testPortfolio(t), hold.Prices{"MSFT": usd(465.95), "AAPL": usd(230)}, today)
	if err != nil {
		t.Fatal(err)
	}
	got := Report(r)
	assertContains(t, got,
		"# Action Validation",
		"Cash before: **$0.00**",
		"✅ VALID",
		"❌ INVALID_LOCKED",
		"## Reasoning",
		"**SELL MSFT 1.5** (action 1): take profit",
		"## Lots Sold",
		"## Position Impact",
		"**1 of 3 actions are invalid**",
	)
	assertRows(t, got,
		[]string{"SELL MSFT 1.5", "2025-08-02", "1.5", "$507.60", "0"},
		[]string{"MSFT", "2.5", "1"},
	)

	assertContains(t, Report(hold.Report{}), "No actions proposed.")
}

func TestReceipt(t *testing.T) {
	rec := hold.Recorder{Rule: rule}
	p, receipt, err := rec.Sell(testPortfolio(t), "MSFT", hold.Q(1.5), usd(465.95), today, usd(10))
	if err != nil {
		t.Fatal(err)
	}
	got := Receipt(receipt, p.Cash())
	assertContains(t, got,
		"# Sold 1.5 MSFT on 2025-10-14",
		"= **$688.93**",
		"Cost basis: $761.40, realized gain: **-$72.48**",
	)
	assertRows(t, got, []string{"2025-08-02", "1.5", "$507.60", "$761.40", "0"})
}

func TestSwap(t *testing.T) {
	got := Swap(hold.EstimateSwap(hold.Q(1.5), usd(465.95), usd(120), usd(10)), "MSFT", hold.Q(1.5), "AAPL")
	assertContains(t, got, "# Swap 1.5 MSFT for AAPL")
	assertRows(t, got,
		[]string{"**Proceeds**", "**$688.93**"},
		[]string{"Shares of AAPL", "5"},
		[]string{"Leftover cash", "$78.93"},
	)
}
