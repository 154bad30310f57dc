package hold

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/etnz/hold/date"
	"github.com/shopspring/decimal"
)

// ErrLegacyFormat is returned when decoding a state file that still has one
// record per purchase. It must be converted with the migrate tool first.
var ErrLegacyFormat = errors.New("legacy state format, run 'migrate legacy' first")

// The state file only persists raw lots: totals, averages, lock status and
// P&L are always recomputed when loading.
//
// to parse a json, we use a dedicated local struct with tag annotation.
type jlot struct {
	Quantity      json.Number `json:"quantity"`
	PurchasePrice json.Number `json:"purchase_price"`
	PurchaseDate  string      `json:"purchase_date"`
	Notes         string      `json:"notes,omitempty"`
}

type jposition struct {
	Ticker string `json:"ticker"`
	Lots   []jlot `json:"lots"`
}

type jstate struct {
	Currency      string      `json:"currency,omitempty"`
	Positions     []jposition `json:"positions"`
	CashAvailable json.Number `json:"cash_available"`
	LastUpdated   string      `json:"last_updated,omitempty"`
}

// Decode reads a portfolio from its JSON state.
//
// Tickers are normalized, repeated tickers merged and lots sorted by purchase
// date whatever their stored order. A malformed record is a
// DataIntegrityError, a legacy file is ErrLegacyFormat.
func Decode(r io.Reader) (*Portfolio, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	legacy, err := IsLegacy(data)
	if err != nil {
		return nil, err
	}
	if legacy {
		return nil, ErrLegacyFormat
	}

	var js jstate
	if err := json.Unmarshal(data, &js); err != nil {
		return nil, integrityf("", "malformed state: %v", err)
	}
	if js.CashAvailable == "" {
		return nil, integrityf("", "missing cash_available")
	}
	cash, err := decimal.NewFromString(js.CashAvailable.String())
	if err != nil {
		return nil, integrityf("", "invalid cash_available %q", js.CashAvailable)
	}
	currency := js.Currency
	if currency == "" {
		currency = DefaultCurrency
	}

	var positions []Position
	for _, jp := range js.Positions {
		pos := Position{Ticker: jp.Ticker}
		for i, jl := range jp.Lots {
			l, err := decodeLot(jp.Ticker, i, jl, currency)
			if err != nil {
				return nil, err
			}
			pos.Lots = append(pos.Lots, l)
		}
		positions = append(positions, pos)
	}
	p, err := NewPortfolio(currency, M(cash, currency), positions...)
	if err != nil {
		return nil, err
	}
	if js.LastUpdated != "" {
		if p.lastUpdated, err = date.Parse(js.LastUpdated); err != nil {
			return nil, integrityf("", "invalid last_updated: %v", err)
		}
	}
	return p, nil
}

func decodeLot(ticker string, i int, jl jlot, currency string) (Lot, error) {
	ticker = NormalizeTicker(ticker)
	q, err := decimal.NewFromString(jl.Quantity.String())
	if err != nil {
		return Lot{}, integrityf(ticker, "lot #%d has an invalid quantity %q", i+1, jl.Quantity)
	}
	price, err := decimal.NewFromString(jl.PurchasePrice.String())
	if err != nil {
		return Lot{}, integrityf(ticker, "lot #%d has an invalid purchase_price %q", i+1, jl.PurchasePrice)
	}
	if jl.PurchaseDate == "" {
		return Lot{}, integrityf(ticker, "lot #%d has no purchase_date", i+1)
	}
	on, err := date.Parse(jl.PurchaseDate)
	if err != nil {
		return Lot{}, integrityf(ticker, "lot #%d: %v", i+1, err)
	}
	return Lot{
		Quantity:     Q(q),
		UnitCost:     M(price, currency).exact(),
		PurchaseDate: on,
		Note:         jl.Notes,
	}, nil
}

// Encode writes the portfolio JSON state, with last_updated set to on.
func Encode(w io.Writer, p *Portfolio, on date.Date) error {
	js := jstate{
		Positions:     []jposition{},
		CashAvailable: json.Number(p.cash.exact().number()),
		LastUpdated:   on.String(),
	}
	if p.currency != DefaultCurrency {
		js.Currency = p.currency
	}
	for _, pos := range p.Positions() {
		jp := jposition{Ticker: pos.Ticker}
		for _, l := range pos.Lots {
			jp.Lots = append(jp.Lots, jlot{
				Quantity:      json.Number(l.Quantity.String()),
				PurchasePrice: json.Number(l.UnitCost.exact().number()),
				PurchaseDate:  l.PurchaseDate.String(),
				Notes:         l.Note,
			})
		}
		js.Positions = append(js.Positions, jp)
	}
	b, err := json.MarshalIndent(js, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

// DecodeFile reads a portfolio from a state file.
func DecodeFile(name string) (*Portfolio, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("cannot load %q: %w", name, err)
	}
	return p, nil
}

// EncodeFile persists the portfolio to a state file. The previous file is
// only replaced once the new content is fully on disk.
func EncodeFile(name string, p *Portfolio, on date.Date) error {
	var buf bytes.Buffer
	if err := Encode(&buf, p, on); err != nil {
		return fmt.Errorf("cannot encode %q: %w", name, err)
	}
	return writeFileAtomic(name, buf.Bytes(), fileMode(name))
}

// fileMode returns the permissions of an existing file, 0644 otherwise.
func fileMode(name string) fs.FileMode {
	if fi, err := os.Stat(name); err == nil {
		return fi.Mode().Perm()
	}
	return 0o644
}

// writeFileAtomic writes to a temporary file in the same directory, syncs it
// and renames it over name with the given permissions.
func writeFileAtomic(name string, content []byte, mode fs.FileMode) error {
	dir := filepath.Dir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, filepath.Base(name)+".*.tmp")
	if err != nil {
		return fmt.Errorf("cannot create temporary file for %q: %w", name, err)
	}
	tmp := f.Name()
	// the temp file is removed on any failure, after the rename it no longer exists.
	defer os.Remove(tmp)

	// CreateTemp uses 0600.
	if err := f.Chmod(mode); err != nil {
		f.Close()
		return fmt.Errorf("cannot set the mode of %q: %w", tmp, err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return fmt.Errorf("cannot write %q: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("cannot sync %q: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("cannot close %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, name); err != nil {
		return fmt.Errorf("cannot replace %q: %w", name, err)
	}
	return nil
}
