// Package renderer renders the ledger views and reports as markdown.
package renderer

import (
	"bytes"
	"fmt"

	"github.com/etnz/hold"
	"github.com/etnz/hold/date"
	md "github.com/nao1215/markdown"
)

// Status renders the consolidated positions with their lots.
func Status(views []hold.PositionView, cash hold.Money, on date.Date) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Portfolio on %s", on))
	paragraph(doc, "Cash available: "+md.Bold(cash.String()))
	if len(views) == 0 {
		doc.PlainText("No positions.")
		return doc.String()
	}

	total := cash
	allPriced := true
	table := md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignLeft,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
			md.AlignLeft,
		},
		Header: []string{"Ticker", "Shares", "Avg Cost", "Cost Basis", "Price", "Value", "P&L", "P&L %", "Status"},
	}
	for _, v := range views {
		table.Rows = append(table.Rows, texts(v.Ticker, v.TotalQuantity, v.AverageCost, v.CostBasis,
			priced(v.CurrentPrice, v.Priced), priced(v.CurrentValue, v.Priced),
			signed(v.TotalPnL, v.Priced), pnl(v.PnLPercent, v.Priced), v.Status))
		if v.Priced {
			total = total.Add(v.CurrentValue)
		} else {
			allPriced = false
		}
	}
	doc.Table(table)

	if allPriced {
		doc.PlainText("Total value: " + md.Bold(total.String()))
	} else {
		doc.PlainText("Total value: n/a, some positions have no price.")
	}

	for _, v := range views {
		doc.H2(v.Ticker)
		sellable := fmt.Sprintf("%s shares sellable, %s locked", v.SellableQuantity, v.LockedQuantity)
		if !v.NextUnlockDate.IsZero() {
			sellable += fmt.Sprintf(", next unlock on %s", v.NextUnlockDate)
		}
		paragraph(doc, sellable+".")
		doc.Table(lotsTable(v.Lots))
	}
	return doc.String()
}

func lotsTable(lots []hold.LotView) md.TableSet {
	table := md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignLeft,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
			md.AlignLeft,
			md.AlignLeft,
			md.AlignRight,
			md.AlignLeft,
		},
		Header: []string{"Purchased", "Shares", "Price", "Days Held", "Status", "Unlock", "P&L %", "Notes"},
	}
	for _, l := range lots {
		unlock := "-"
		if l.Status == hold.Locked {
			unlock = fmt.Sprintf("%s (%dd)", l.UnlockDate, l.DaysUntilSellable)
		}
		table.Rows = append(table.Rows, texts(l.PurchaseDate, l.Quantity, l.UnitCost, l.DaysHeld, l.Status, unlock, pnl(l.PnLPercent, l.Priced), l.Note))
	}
	return table
}

// Check renders the lock status summary, no price needed.
func Check(views []hold.PositionView, cash hold.Money, on date.Date) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Lock status on %s", on))
	paragraph(doc, "Cash available: "+md.Bold(cash.String()))
	if len(views) == 0 {
		doc.PlainText("No positions.")
		return doc.String()
	}
	table := md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignLeft,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
			md.AlignLeft,
			md.AlignLeft,
		},
		Header: []string{"Ticker", "Shares", "Sellable", "Locked", "Status", "Next Unlock"},
	}
	for _, v := range views {
		table.Rows = append(table.Rows, texts(v.Ticker, v.TotalQuantity, v.SellableQuantity, v.LockedQuantity, v.Status, dateOrDash(v.NextUnlockDate)))
	}
	doc.Table(table)
	return doc.String()
}

// Report renders the validation of an action sequence.
func Report(r hold.Report) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Action Validation")
	paragraph(doc, fmt.Sprintf("Cash before: %s, cash after: %s", md.Bold(r.CashBefore.String()), md.Bold(r.CashAfter.String())))
	if len(r.Results) == 0 {
		doc.PlainText("No actions proposed.")
		return doc.String()
	}

	results := md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignRight,
			md.AlignLeft,
			md.AlignLeft,
			md.AlignLeft,
			md.AlignRight,
		},
		Header: []string{"#", "Action", "Status", "Detail", "Cash After"},
	}
	var reasons []string
	sold := md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignLeft,
			md.AlignLeft,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
		},
		Header: []string{"Action", "Purchased", "Shares", "Price", "Remaining"},
	}
	for i, res := range r.Results {
		results.Rows = append(results.Rows, texts(i+1, res.Action, statusIcon(res.Status), res.Detail, res.CashAfter))
		if res.Action.Reasoning != "" {
			reasons = append(reasons, fmt.Sprintf("%s (action %d): %s", md.Bold(res.Action.String()), i+1, res.Action.Reasoning))
		}
		for _, c := range res.Lots {
			sold.Rows = append(sold.Rows, texts(res.Action, c.PurchaseDate, c.Quantity, c.UnitCost, c.Remaining))
		}
	}
	doc.Table(results)

	if len(reasons) > 0 {
		doc.H2("Reasoning")
		doc.OrderedList(reasons...)
	}
	if len(sold.Rows) > 0 {
		doc.H2("Lots Sold")
		doc.Table(sold)
	}
	if len(r.Impacts) > 0 {
		doc.H2("Position Impact")
		impacts := md.TableSet{
			Alignment: []md.TableAlignment{
				md.AlignLeft,
				md.AlignRight,
				md.AlignRight,
			},
			Header: []string{"Ticker", "Before", "After"},
		}
		for _, im := range r.Impacts {
			impacts.Rows = append(impacts.Rows, texts(im.Ticker, im.QuantityBefore, im.QuantityAfter))
		}
		doc.Table(impacts)
	}

	invalid := r.Count(hold.InvalidLocked) + r.Count(hold.InvalidInsufficientFunds)
	switch {
	case invalid > 0:
		doc.PlainText(md.Bold(fmt.Sprintf("%d of %d actions are invalid", invalid, len(r.Results))) + " and must not be executed as proposed.")
	case r.Count(hold.Warning) > 0:
		doc.PlainText(fmt.Sprintf("All actions are executable, review the %d warnings.", r.Count(hold.Warning)))
	default:
		doc.PlainText("All actions are valid.")
	}
	return doc.String()
}

// Receipt renders a recorded sell.
func Receipt(r hold.Receipt, cash hold.Money) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Sold %s %s on %s", r.Quantity, r.Ticker, r.Date))
	paragraph(doc, fmt.Sprintf("%s x %s - %s fee = %s", r.Quantity, r.Price, r.Fee, md.Bold(r.Proceeds.String())))
	table := md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignLeft,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
		},
		Header: []string{"Purchased", "Shares", "Price", "Cost", "Remaining"},
	}
	for _, c := range r.Lots {
		table.Rows = append(table.Rows, texts(c.PurchaseDate, c.Quantity, c.UnitCost, c.Cost(), c.Remaining))
	}
	doc.Table(table)
	paragraph(doc, fmt.Sprintf("Cost basis: %s, realized gain: %s", r.CostBasis(), md.Bold(r.RealizedGain().SignedString())))
	doc.PlainText("Cash available: " + md.Bold(cash.String()))
	return doc.String()
}

// Swap renders a swap estimate.
func Swap(s hold.Swap, sell string, sellQuantity hold.Quantity, buy string) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Swap %s %s for %s", sellQuantity, sell, buy))
	doc.Table(md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignLeft,
			md.AlignRight,
		},
		Header: []string{md.Bold("Proceeds"), md.Bold(s.Proceeds.String())},
		Rows: [][]string{
			texts("Fees", s.Fees),
			texts("Available for buy", s.AvailableForBuy),
			texts("Shares of "+buy, s.NewQuantity),
			texts("Leftover cash", s.LeftoverCash),
		},
	})
	return doc.String()
}
