package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/etnz/hold"
	"github.com/etnz/hold/date"
	"github.com/google/go-cmp/cmp"
	"google.golang.org/genai"
)

// fakeModels answers every request with a fixed text and records the request.
type fakeModels struct {
	answer   string
	err      error
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model, f.contents, f.config = model, contents, config
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{{Text: f.answer}}},
	}}}, nil
}

var today = date.MustParse("2025-10-14")

func testPortfolio(t *testing.T) *hold.Portfolio {
	t.Helper()
	p, err := hold.NewPortfolio("USD", hold.M(0, "USD"), hold.Position{Ticker: "MSFT", Lots: []hold.Lot{
		{Quantity: hold.Q(1.5), UnitCost: hold.M(507.60, "USD"), PurchaseDate: date.MustParse("2025-08-02")},
		{Quantity: hold.Q(1.0), UnitCost: hold.M(434.00, "USD"), PurchaseDate: today},
	}})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func testSnapshot(t *testing.T) Snapshot {
	t.Helper()
	prices := hold.Prices{"MSFT": hold.M(465.95, "USD"), "AAPL": hold.M(230, "USD")}
	s, err := NewSnapshot(testPortfolio(t), prices, []string{"aapl", "NVDA"}, today, Settings{
		Rule:         hold.HoldRule{MinHoldDays: 30},
		Fee:          hold.M(10, "USD"),
		MaxPositions: 5,
	})
	if err != nil {
		t.Fatalf("NewSnapshot() error = %v", err)
	}
	return s
}

func TestSnapshot(t *testing.T) {
	content, err := testSnapshot(t).JSON()
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		MinHoldDays int                        `json:"min_hold_days"`
		Watchlist   map[string]json.RawMessage `json:"watchlist"`
		Positions   []struct {
			Ticker   string          `json:"ticker"`
			Sellable json.RawMessage `json:"sellable_quantity"`
			Status   string          `json:"lock_status"`
		} `json:"positions"`
	}
	if err := json.Unmarshal(content, &got); err != nil {
		t.Fatalf("snapshot is not valid JSON: %v\n%s", err, content)
	}
	if got.MinHoldDays != 30 {
		t.Errorf("min_hold_days = %d, want 30", got.MinHoldDays)
	}
	if len(got.Positions) != 1 || got.Positions[0].Ticker != "MSFT" || string(got.Positions[0].Sellable) != "1.5" || got.Positions[0].Status != "PARTIAL_LOCK" {
		t.Errorf("positions = %+v", got.Positions)
	}
	if string(got.Watchlist["AAPL"]) != "230" || string(got.Watchlist["NVDA"]) != "null" {
		t.Errorf("watchlist = %s", content)
	}
}

func TestTickers(t *testing.T) {
	got := Tickers(testPortfolio(t), []string{"aapl", "MSFT", "NVDA"})
	if diff := cmp.Diff([]string{"AAPL", "MSFT", "NVDA"}, got); diff != "" {
		t.Errorf("Tickers() mismatch (-want +got):\n%s", diff)
	}
}

func TestAdvise(t *testing.T) {
	fake := &fakeModels{answer: "```json\n" + `{
  "summary": "Take the MSFT gain and rotate into AAPL.",
  "actions": [
    {"type": "sell", "ticker": "msft", "amount": "all", "expected_proceeds": 688.93},
    {"type": "BUY", "ticker": "AAPL", "amount": 600, "cash_source": "MSFT sale"}
  ]
}` + "\n```"}
	a := NewWith(fake, "", "Never hold more than three positions.")

	prop, err := a.Advise(context.Background(), testSnapshot(t))
	if err != nil {
		t.Fatalf("Advise() error = %v", err)
	}
	if fake.model != DefaultModel {
		t.Errorf("model = %q, want %q", fake.model, DefaultModel)
	}
	if fake.config.ResponseMIMEType != "application/json" {
		t.Errorf("ResponseMIMEType = %q", fake.config.ResponseMIMEType)
	}
	if !strings.Contains(fake.config.SystemInstruction.Parts[0].Text, "Never hold more than three positions.") {
		t.Error("system instruction lacks the strategy")
	}
	if !strings.Contains(fake.contents[0].Parts[0].Text, `"cash_available"`) {
		t.Error("request lacks the snapshot")
	}

	if prop.Summary != "Take the MSFT gain and rotate into AAPL." {
		t.Errorf("Summary = %q", prop.Summary)
	}
	if len(prop.Actions) != 2 {
		t.Fatalf("got %d actions, want 2", len(prop.Actions))
	}
	sell, buy := prop.Actions[0], prop.Actions[1]
	if sell.Type != hold.ActionSell || sell.Ticker != "MSFT" || !sell.Amount.All {
		t.Errorf("sell = %v", sell)
	}
	if buy.Type != hold.ActionBuy || !buy.Amount.Money("USD").Equal(hold.M(600, "USD")) || buy.CashSource != "MSFT sale" {
		t.Errorf("buy = %v", buy)
	}
}

func TestAdviseErrors(t *testing.T) {
	s := testSnapshot(t)
	if _, err := NewWith(&fakeModels{err: errors.New("quota")}, "", "").Advise(context.Background(), s); err == nil {
		t.Error("Advise() error = nil on a failed request")
	}
	if _, err := NewWith(&fakeModels{answer: ""}, "", "").Advise(context.Background(), s); err == nil {
		t.Error("Advise() error = nil on an empty answer")
	}
	if _, err := NewWith(&fakeModels{answer: "I think you should sell."}, "", "").Advise(context.Background(), s); err == nil {
		t.Error("Advise() error = nil on a prose answer")
	}
}

func TestParseProposal(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		actions int
		wantErr bool
	}{
		{"object", `{"summary":"hold","actions":[]}`, 0, false},
		{"no actions", `{"summary":"hold"}`, 0, false},
		{"array", `[{"type":"HOLD","ticker":"MSFT"}]`, 1, false},
		{"fenced", "```\n[{\"type\":\"HOLD\",\"ticker\":\"MSFT\"}]\n```", 1, false},
		{"bad amount", `{"actions":[{"type":"SELL","ticker":"MSFT","amount":"lots"}]}`, 0, true},
		{"not json", `sell everything`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prop, err := ParseProposal(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseProposal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(prop.Actions) != tt.actions {
				t.Errorf("got %d actions, want %d", len(prop.Actions), tt.actions)
			}
		})
	}
}
