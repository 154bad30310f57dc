package hold

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ActionType is the kind of a proposed action.
type ActionType string

const (
	ActionBuy  ActionType = "BUY"
	ActionSell ActionType = "SELL"
	ActionHold ActionType = "HOLD"
)

// UnmarshalJSON accepts any case, "buy" is BUY.
func (t *ActionType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid action type %s: %w", data, err)
	}
	*t = ActionType(strings.ToUpper(strings.TrimSpace(s)))
	return nil
}

// Amount is a currency amount for a BUY, a quantity or "all" for a SELL.
type Amount struct {
	All   bool
	value decimal.Decimal
}

// AllShares is the "all" amount of a SELL.
var AllShares = Amount{All: true}

// A returns an Amount with the given value.
func A[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T) Amount {
	return Amount{value: newDecimal(value)}
}

// ParseAmount parses "all", a number, or a currency string like "$1,234.50".
func ParseAmount(s string) (Amount, error) {
	if strings.EqualFold(strings.TrimSpace(s), "all") {
		return AllShares, nil
	}
	d, err := parseAmount(s)
	if err != nil {
		return Amount{}, err
	}
	return Amount{value: d}, nil
}

// Quantity returns the amount as a number of shares.
func (a Amount) Quantity() Quantity { return Quantity{value: a.value} }

// Money returns the amount in the given currency.
func (a Amount) Money(currency string) Money { return Money{value: a.value, cur: currency} }

// IsPositive reports whether the amount is "all" or strictly positive.
func (a Amount) IsPositive() bool { return a.All || a.value.IsPositive() }

func (a Amount) String() string {
	if a.All {
		return "all"
	}
	return a.value.String()
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if a.All {
		return []byte(`"all"`), nil
	}
	return []byte(a.value.String()), nil
}

// UnmarshalJSON accepts JSON numbers, numeric strings, "$1,234.50" style
// strings and "all". null is a zero amount, as proposed for HOLD actions.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if string(data) == "null" {
		*a = Amount{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		s = string(data)
	}
	x, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = x
	return nil
}

// Action is a proposed operation. Actions coming from the advisory service are
// untrusted: ExpectedProceeds and CashSource are only used to report
// discrepancies.
type Action struct {
	Type             ActionType `json:"type"`
	Ticker           string     `json:"ticker"`
	Amount           Amount     `json:"amount"`
	Reasoning        string     `json:"reasoning,omitempty"`
	ExpectedProceeds *Money     `json:"expected_proceeds,omitempty"`
	CashSource       string     `json:"cash_source,omitempty"`
}

func (a Action) String() string {
	if a.Type == ActionHold {
		return fmt.Sprintf("%s %s", a.Type, a.Ticker)
	}
	return fmt.Sprintf("%s %s %v", a.Type, a.Ticker, a.Amount)
}

// ParseActions decodes an action list: either a JSON array or an object with
// an "actions" array.
func ParseActions(data []byte) ([]Action, error) {
	data = bytes.TrimSpace(data)
	var actions []Action
	if len(data) > 0 && data[0] == '{' {
		var wrapper struct {
			Actions []Action `json:"actions"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, fmt.Errorf("cannot parse actions: %w", err)
		}
		actions = wrapper.Actions
	} else if err := json.Unmarshal(data, &actions); err != nil {
		return nil, fmt.Errorf("cannot parse actions: %w", err)
	}
	for i := range actions {
		actions[i].Ticker = NormalizeTicker(actions[i].Ticker)
	}
	return actions, nil
}
