package hold

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/etnz/hold/date"
)

func TestDecode(t *testing.T) {
	in := `{
  "positions": [
    {"ticker": "msft", "lots": [
      {"quantity": 1.0, "purchase_price": 434.00, "purchase_date": "2025-10-14"},
      {"quantity": 1.5, "purchase_price": 507.60, "purchase_date": "2025-08-02", "notes": "first"}
    ]},
    {"ticker": "AAPL", "lots": [{"quantity": "2", "purchase_price": "200.5", "purchase_date": "2025-1-2"}]},
    {"ticker": "MSFT ", "lots": [{"quantity": 0.5, "purchase_price": 450, "purchase_date": "2025-09-01"}]}
  ],
  "cash_available": 120.5,
  "last_updated": "2025-10-14"
}`
	p, err := Decode(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got := p.Tickers(); len(got) != 2 || got[0] != "AAPL" || got[1] != "MSFT" {
		t.Fatalf("Tickers() = %v, want [AAPL MSFT]", got)
	}
	pos, _ := p.Position("MSFT")
	var dates []string
	for _, l := range pos.Lots {
		dates = append(dates, l.PurchaseDate.String())
	}
	if strings.Join(dates, " ") != "2025-08-02 2025-09-01 2025-10-14" {
		t.Errorf("MSFT lots bought on %v, want the duplicate record merged in FIFO order", dates)
	}
	if pos.Lots[0].Note != "first" {
		t.Errorf("Note = %q, want %q", pos.Lots[0].Note, "first")
	}
	if !p.Cash().Equal(USD(120.5)) || p.LastUpdated() != today {
		t.Errorf("cash %v updated %v, want $120.50 on 2025-10-14", p.Cash(), p.LastUpdated())
	}
}

func TestDecode_Integrity(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"missing date", `{"positions":[{"ticker":"X","lots":[{"quantity":1,"purchase_price":1}]}],"cash_available":0}`},
		{"invalid date", `{"positions":[{"ticker":"X","lots":[{"quantity":1,"purchase_price":1,"purchase_date":"14/10/2025"}]}],"cash_available":0}`},
		{"zero quantity", `{"positions":[{"ticker":"X","lots":[{"quantity":0,"purchase_price":1,"purchase_date":"2025-10-14"}]}],"cash_available":0}`},
		{"negative price", `{"positions":[{"ticker":"X","lots":[{"quantity":1,"purchase_price":-1,"purchase_date":"2025-10-14"}]}],"cash_available":0}`},
		{"empty lots", `{"positions":[{"ticker":"X","lots":[]}],"cash_available":0}`},
		{"negative cash", `{"positions":[],"cash_available":-1}`},
		{"missing cash", `{"positions":[]}`},
		{"not json", `positions`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.in))
			if !errors.Is(err, ErrDataIntegrity) {
				t.Errorf("Decode() error = %v, want %v", err, ErrDataIntegrity)
			}
		})
	}
}

func TestDecode_Legacy(t *testing.T) {
	in := `{"positions":[{"ticker":"MSFT","quantity":1.5,"purchase_price":507.6,"purchase_date":"2025-08-02"}],"cash_available":0}`
	if _, err := Decode(strings.NewReader(in)); !errors.Is(err, ErrLegacyFormat) {
		t.Errorf("Decode() error = %v, want %v", err, ErrLegacyFormat)
	}
}

func TestEncode(t *testing.T) {
	p := newTestPortfolio(t, 120.5, msft())
	var buf bytes.Buffer
	if err := Encode(&buf, p, today); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	want := `{
  "positions": [
    {
      "ticker": "MSFT",
      "lots": [
        {
          "quantity": 1.5,
          "purchase_price": 507.6,
          "purchase_date": "2025-08-02"
        },
        {
          "quantity": 1,
          "purchase_price": 434,
          "purchase_date": "2025-10-14"
        }
      ]
    }
  ],
  "cash_available": 120.5,
  "last_updated": "2025-10-14"
}
`
	if got := buf.String(); got != want {
		t.Errorf("Encode() =\n%s\nwant\n%s", got, want)
	}

	q, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode(Encode()) error = %v", err)
	}
	pos, _ := q.Position("MSFT")
	if !pos.AverageCost().Equal(USD(478.16)) {
		t.Errorf("AverageCost() = %v after a round trip, want $478.16", pos.AverageCost())
	}
}

func TestEncodeFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "portfolio.json")
	if err := os.WriteFile(name, []byte("previous"), 0o644); err != nil {
		t.Fatal(err)
	}
	p := newTestPortfolio(t, 10, msft())
	if err := EncodeFile(name, p, date.MustParse("2025-10-15")); err != nil {
		t.Fatalf("EncodeFile() error = %v", err)
	}
	q, err := DecodeFile(name)
	if err != nil {
		t.Fatalf("DecodeFile() error = %v", err)
	}
	if q.LastUpdated() != date.MustParse("2025-10-15") {
		t.Errorf("LastUpdated() = %v, want 2025-10-15", q.LastUpdated())
	}
	entries, _ := os.ReadDir(filepath.Dir(name))
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want the state file only", len(entries))
	}
}

func TestEncodeFile_KeepsMode(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name     string
		existing bool
		mode     os.FileMode
	}{
		{"new file", false, 0o644},
		{"group writable", true, 0o664},
		{"private", true, 0o600},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".json")
			if tt.existing {
				if err := os.WriteFile(name, []byte("previous"), tt.mode); err != nil {
					t.Fatal(err)
				}
				// WriteFile is subject to the umask.
				if err := os.Chmod(name, tt.mode); err != nil {
					t.Fatal(err)
				}
			}
			if err := EncodeFile(name, newTestPortfolio(t, 10), today); err != nil {
				t.Fatalf("EncodeFile() error = %v", err)
			}
			fi, err := os.Stat(name)
			if err != nil {
				t.Fatal(err)
			}
			if got := fi.Mode().Perm(); got != tt.mode {
				t.Errorf("mode = %v, want %v", got, tt.mode)
			}
		})
	}
}
