package hold

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Percent is a ratio expressed in percent, like a P&L of +12.5%.
type Percent float64

// percentOf returns (value - base) / base in percent.
func percentOf(value, base Money) Percent {
	if base.IsZero() {
		return 0
	}
	p := value.value.Sub(base.value).Div(base.value).Mul(decimal.NewFromInt(100))
	return Percent(p.Round(4).InexactFloat64())
}

func (p Percent) Equal(q Percent) bool {
	// it has to be compared with some precision
	const precision = 0.0001
	diff := p - q
	if diff < 0 {
		diff = -diff
	}
	return diff < precision
}

func (p Percent) String() string {
	return fmt.Sprintf("%.2f%%", p)
}

func (p Percent) SignedString() string {
	res := fmt.Sprintf("%+.2f%%", p)
	if res == "+0.00%" {
		return "-"
	}
	return res
}
