package renderer

import (
	"fmt"
	"strings"

	"github.com/etnz/hold"
	"github.com/etnz/hold/date"
	md "github.com/nao1215/markdown"
)

// paragraph ends text with an empty line so that a table that follows is not
// read as part of the paragraph.
func paragraph(doc *md.Markdown, text string) {
	doc.PlainText(text)
	doc.PlainText("")
}

// texts formats the cells of a table row.
func texts(values ...any) []string {
	s := make([]string, len(values))
	for i, v := range values {
		s[i] = cell(fmt.Sprint(v))
	}
	return s
}

// cell escapes pipes so that free text does not break the table.
func cell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
}

func dateOrDash(d date.Date) string {
	if d.IsZero() {
		return "-"
	}
	return d.String()
}

func pnl(p hold.Percent, priced bool) string {
	if !priced {
		return "n/a"
	}
	return p.SignedString()
}

func signed(m hold.Money, priced bool) string {
	if !priced {
		return "n/a"
	}
	return m.SignedString()
}

func priced(m hold.Money, priced bool) string {
	if !priced {
		return "n/a"
	}
	return m.String()
}

func statusIcon(s hold.Status) string {
	switch s {
	case hold.Valid:
		return "✅ " + string(s)
	case hold.Warning:
		return "⚠️ " + string(s)
	default:
		return "❌ " + string(s)
	}
}
