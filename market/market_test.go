package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/etnz/hold"
)

func usd(v float64) hold.Money { return hold.M(v, "USD") }

func checkPrices(t *testing.T, got hold.Prices, want map[string]float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Errorf("got %d prices %v, want %d", len(got), got, len(want))
	}
	for ticker, v := range want {
		m, ok := got[ticker]
		if !ok {
			t.Errorf("no price for %s", ticker)
			continue
		}
		if !m.Equal(usd(v)) {
			t.Errorf("price of %s = %v, want %v", ticker, m, usd(v))
		}
	}
}

func TestStatic(t *testing.T) {
	s := Static{"MSFT": usd(512.3), "AAPL": usd(230)}
	got, err := s.Prices(context.Background(), []string{"msft", "NVDA"})
	if err != nil {
		t.Fatal(err)
	}
	checkPrices(t, got, map[string]float64{"MSFT": 512.3})

	all, _ := s.Prices(context.Background(), nil)
	checkPrices(t, all, map[string]float64{"MSFT": 512.3, "AAPL": 230})
}

func TestFileSource(t *testing.T) {
	name := filepath.Join(t.TempDir(), "prices.json")
	if err := os.WriteFile(name, []byte(`{"MSFT": 512.3, "aapl": "$230.10"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := FileSource{Name: name, Currency: "USD"}.Prices(context.Background(), []string{"MSFT", "AAPL"})
	if err != nil {
		t.Fatalf("Prices() error = %v", err)
	}
	checkPrices(t, got, map[string]float64{"MSFT": 512.3, "AAPL": 230.1})

	if _, err := (FileSource{Name: filepath.Join(t.TempDir(), "none.json")}).Prices(context.Background(), nil); err == nil {
		t.Error("Prices() of a missing file succeeded")
	}
}

func TestParsePricesInvalid(t *testing.T) {
	for _, in := range []string{`[512.3]`, `{"MSFT": true}`, `{"MSFT": "abc"}`} {
		if _, err := ParsePrices([]byte(in), "USD"); err == nil {
			t.Errorf("ParsePrices(%s) error = nil", in)
		}
	}
}

func quoteServer(t *testing.T, hits *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/quote/MSFT":
			w.Write([]byte(`{"symbol":"MSFT","quote":{"last":512.3}}`))
		case "/quote/AAPL":
			w.Write([]byte(`{"symbol":"AAPL","quote":{"last":"230.10"}}`))
		case "/quote/ZERO":
			w.Write([]byte(`{"symbol":"ZERO","quote":{"last":0}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPSource(t *testing.T) {
	var hits int
	srv := quoteServer(t, &hits)
	s := HTTPSource{
		URLTemplate: srv.URL + "/quote/{ticker}",
		PricePath:   "$.quote.last",
		Currency:    "USD",
	}
	got, err := s.Prices(context.Background(), []string{"msft", "AAPL", "ZERO", "NVDA"})
	if err != nil {
		t.Fatalf("Prices() error = %v", err)
	}
	// ZERO has an empty price and NVDA is unknown
	checkPrices(t, got, map[string]float64{"MSFT": 512.3, "AAPL": 230.1})
}

func TestHTTPSourceTemplate(t *testing.T) {
	if _, err := (HTTPSource{URLTemplate: "https://quotes.example/MSFT"}).Prices(context.Background(), []string{"MSFT"}); err == nil {
		t.Error("Prices() without a {ticker} placeholder succeeded")
	}
}

func TestDailyCache(t *testing.T) {
	var hits int
	srv := quoteServer(t, &hits)
	s := HTTPSource{
		URLTemplate: srv.URL + "/quote/{ticker}",
		PricePath:   "$.quote.last",
		Currency:    "USD",
		Client:      Daily(t.TempDir()),
	}
	for range 3 {
		p, err := s.Price(context.Background(), "MSFT")
		if err != nil {
			t.Fatalf("Price() error = %v", err)
		}
		if !p.Equal(usd(512.3)) {
			t.Errorf("Price() = %v, want $512.30", p)
		}
	}
	if hits != 1 {
		t.Errorf("server hit %d times, want 1", hits)
	}

	// errors are not cached
	for range 2 {
		if _, err := s.Price(context.Background(), "NVDA"); err == nil {
			t.Error("Price() of an unknown ticker succeeded")
		}
	}
	if hits != 3 {
		t.Errorf("server hit %d times, want 3", hits)
	}
}
