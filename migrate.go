package hold

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/etnz/hold/date"
	"github.com/rs/zerolog/log"
)

// BackupSuffix is appended to the state file name to back it up before a migration.
const BackupSuffix = ".backup"

// jlegacy is one purchase in the legacy layout, where a ticker is repeated
// for every purchase.
type jlegacy struct {
	Ticker        string      `json:"ticker"`
	Quantity      json.Number `json:"quantity"`
	PurchasePrice json.Number `json:"purchase_price"`
	PurchaseDate  string      `json:"purchase_date"`
	Notes         string      `json:"notes,omitempty"`
}

type jlegacyState struct {
	Positions     []json.RawMessage `json:"positions"`
	CashAvailable json.Number       `json:"cash_available"`
	LastUpdated   string            `json:"last_updated,omitempty"`
	Currency      string            `json:"currency,omitempty"`
}

// IsLegacy reports whether data is a state in the legacy layout: either a bare
// list of purchases or a state whose positions have no "lots".
func IsLegacy(data []byte) (bool, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return true, nil
	}
	var js jlegacyState
	if err := json.Unmarshal(data, &js); err != nil {
		return false, integrityf("", "malformed state: %v", err)
	}
	for _, raw := range js.Positions {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return false, integrityf("", "malformed position %s: %v", raw, err)
		}
		if _, ok := fields["lots"]; !ok {
			return true, nil
		}
	}
	return false, nil
}

// MigrateLegacy converts a legacy state into a portfolio: purchases are grouped
// by normalized ticker and sorted by purchase date, notes are preserved. Any
// purchase that cannot be parsed fails the whole migration.
func MigrateLegacy(data []byte) (*Portfolio, error) {
	data = bytes.TrimSpace(data)
	var js jlegacyState
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &js.Positions); err != nil {
			return nil, integrityf("", "malformed legacy list: %v", err)
		}
		js.CashAvailable = "0"
	} else if err := json.Unmarshal(data, &js); err != nil {
		return nil, integrityf("", "malformed legacy state: %v", err)
	}
	if js.CashAvailable == "" {
		js.CashAvailable = "0"
	}
	currency := js.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	cash, err := ParseMoney(js.CashAvailable.String(), currency)
	if err != nil {
		return nil, integrityf("", "invalid cash_available: %v", err)
	}

	// explicit grouping: every purchase is appended to its ticker's single entry.
	var order []string
	groups := make(map[string]*Position)
	for i, raw := range js.Positions {
		var jl jlegacy
		if err := json.Unmarshal(raw, &jl); err != nil {
			return nil, integrityf("", "entry #%d: %v", i+1, err)
		}
		ticker := NormalizeTicker(jl.Ticker)
		if ticker == "" {
			return nil, integrityf("", "entry #%d has no ticker", i+1)
		}
		l, err := decodeLot(ticker, i, jlot{
			Quantity:      jl.Quantity,
			PurchasePrice: jl.PurchasePrice,
			PurchaseDate:  jl.PurchaseDate,
			Notes:         jl.Notes,
		}, currency)
		if err != nil {
			return nil, err
		}
		if err := checkLot(ticker, i, l); err != nil {
			return nil, err
		}
		g, ok := groups[ticker]
		if !ok {
			g = &Position{Ticker: ticker}
			groups[ticker] = g
			order = append(order, ticker)
		}
		g.Lots = append(g.Lots, l)
	}
	var positions []Position
	for _, t := range order {
		positions = append(positions, *groups[t])
	}
	p, err := NewPortfolio(currency, cash, positions...)
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

// Migration is the outcome of MigrateFile.
type Migration struct {
	Skipped   bool   // the file was already in the lot layout
	Backup    string // backup file name, empty when skipped
	Positions int
	Lots      int
}

// MigrateFile converts a legacy state file in place.
//
// A file already in the lot layout is left untouched. Otherwise the original
// is copied to name+BackupSuffix before anything is written, and when a
// purchase cannot be parsed nothing is written at all.
func MigrateFile(name string, on date.Date) (Migration, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return Migration{}, err
	}
	legacy, err := IsLegacy(data)
	if err != nil {
		return Migration{}, fmt.Errorf("cannot migrate %q: %w", name, err)
	}
	if !legacy {
		log.Info().Str("file", name).Msg("already in lot format, nothing to migrate")
		return Migration{Skipped: true}, nil
	}
	p, err := MigrateLegacy(data)
	if err != nil {
		return Migration{}, fmt.Errorf("cannot migrate %q: %w", name, err)
	}

	backup := name + BackupSuffix
	if err := writeFileAtomic(backup, data, fileMode(name)); err != nil {
		return Migration{}, fmt.Errorf("cannot back up %q: %w", name, err)
	}
	log.Info().Str("file", backup).Msg("backup written")

	last := p.lastUpdated
	if last.IsZero() {
		last = on
	}
	if err := EncodeFile(name, p, last); err != nil {
		return Migration{}, err
	}
	m := Migration{Backup: backup, Positions: len(p.positions)}
	for _, l := range p.positions {
		m.Lots += len(l)
	}
	return m, nil
}
