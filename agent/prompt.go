package agent

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/etnz/hold"
	"github.com/etnz/hold/date"
)

const systemInstruction = `You advise a retail investor on a small stock portfolio.

You receive a JSON snapshot of the portfolio: cash, consolidated positions with
their purchase lots, the lock status of every lot, current prices and the
watchlist. Shares can only be sold once held for min_hold_days, lots are sold
oldest first (FIFO), and every trade costs transaction_fee.

Rules:
- Never sell more than a position's sellable_quantity. Locked shares cannot be sold.
- List sells before the buys they fund. A buy can only spend the cash available
  plus the proceeds of the sells listed before it.
- Do not exceed max_positions tickers.
- Prefer holding over trading when the expected gain does not cover the fees.

Answer with a single JSON object:
{
  "summary": "a short markdown explanation of your recommendation",
  "actions": [
    {"type": "SELL", "ticker": "MSFT", "amount": 1.5, "reasoning": "...", "expected_proceeds": 688.93},
    {"type": "BUY", "ticker": "AAPL", "amount": 600, "reasoning": "...", "cash_source": "MSFT sale"},
    {"type": "HOLD", "ticker": "NVDA", "reasoning": "..."}
  ]
}
For SELL the amount is a number of shares or "all". For BUY the amount is the
cash to invest, before the fee. Use an empty actions list to change nothing.`

// Snapshot is the portfolio state sent to the advisor.
type Snapshot struct {
	Date                date.Date              `json:"date"`
	Currency            string                 `json:"currency"`
	Cash                hold.Money             `json:"cash_available"`
	MinHoldDays         int                    `json:"min_hold_days"`
	TransactionFee      hold.Money             `json:"transaction_fee"`
	MonthlyBudget       hold.Money             `json:"monthly_budget"`
	MaxPositions        int                    `json:"max_positions"`
	StopLossPercent     float64                `json:"stop_loss_percent"`
	ProfitTargetPercent float64                `json:"profit_target_percent"`
	Positions           []hold.PositionView    `json:"positions"`
	Watchlist           map[string]*hold.Money `json:"watchlist"` // nil when unpriced
}

// Settings are the trading limits the advisor must respect.
type Settings struct {
	Rule                hold.HoldRule
	Fee                 hold.Money
	MonthlyBudget       hold.Money
	MaxPositions        int
	StopLossPercent     float64
	ProfitTargetPercent float64
}

// NewSnapshot consolidates the portfolio with prices and adds the watchlist prices.
func NewSnapshot(p *hold.Portfolio, prices hold.Prices, watchlist []string, on date.Date, s Settings) (Snapshot, error) {
	views, err := hold.Consolidate(p, prices, on, s.Rule)
	if err != nil {
		return Snapshot{}, err
	}
	watched := make(map[string]*hold.Money, len(watchlist))
	for _, t := range watchlist {
		t = hold.NormalizeTicker(t)
		if m, ok := prices.Get(t); ok {
			watched[t] = &m
		} else {
			watched[t] = nil
		}
	}
	return Snapshot{
		Date:                on,
		Currency:            p.Currency(),
		Cash:                p.Cash(),
		MinHoldDays:         s.Rule.MinHoldDays,
		TransactionFee:      s.Fee,
		MonthlyBudget:       s.MonthlyBudget,
		MaxPositions:        s.MaxPositions,
		StopLossPercent:     s.StopLossPercent,
		ProfitTargetPercent: s.ProfitTargetPercent,
		Positions:           views,
		Watchlist:           watched,
	}, nil
}

// Tickers returns the held and watched tickers, the ones worth pricing.
func Tickers(p *hold.Portfolio, watchlist []string) []string {
	tickers := p.Tickers()
	for _, t := range watchlist {
		tickers = append(tickers, hold.NormalizeTicker(t))
	}
	slices.Sort(tickers)
	return slices.Compact(tickers)
}

// JSON returns the indented snapshot.
func (s Snapshot) JSON() ([]byte, error) {
	content, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("cannot encode the snapshot: %w", err)
	}
	return content, nil
}

// Proposal is the advisor's answer.
type Proposal struct {
	Summary string        `json:"summary"`
	Actions []hold.Action `json:"actions"`
}

// ParseProposal reads a proposal, a bare action list is accepted too. A
// markdown code fence around the JSON is ignored.
func ParseProposal(text string) (Proposal, error) {
	text = unfence(text)
	var jprop struct {
		Summary string          `json:"summary"`
		Actions json.RawMessage `json:"actions"`
	}
	if strings.HasPrefix(text, "[") {
		jprop.Actions = json.RawMessage(text)
	} else if err := json.Unmarshal([]byte(text), &jprop); err != nil {
		return Proposal{}, fmt.Errorf("invalid proposal: %w", err)
	}
	if len(jprop.Actions) == 0 || string(jprop.Actions) == "null" {
		return Proposal{Summary: jprop.Summary}, nil
	}
	actions, err := hold.ParseActions(jprop.Actions)
	if err != nil {
		return Proposal{}, fmt.Errorf("invalid proposal: %w", err)
	}
	return Proposal{Summary: jprop.Summary, Actions: actions}, nil
}

func unfence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimPrefix(text, "json")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
