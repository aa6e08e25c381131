package portfolio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// The ledger is persisted as a single human-readable JSON document with a
// stable field order, so that it round-trips exactly and stays git-friendly.
// Saving is write-to-temp then rename: a crash mid-run never corrupts the
// previous snapshot.

// jledger mirrors the persisted schema for decoding.
type jledger struct {
	AsOf           string                     `json:"asOf"`
	Cash           jmoney                     `json:"cash"`
	Policy         string                     `json:"policy"`
	MinCashReserve jmoney                     `json:"minCashReserve"`
	SmartThreshold float64                    `json:"smartThreshold"`
	Holdings       map[string]decimal.Decimal `json:"holdings"`
	Risk           map[string]jrisk           `json:"risk"`
	Opening        jopening                   `json:"opening"`
}

type jrisk struct {
	StopLoss     float64 `json:"stopLoss"`
	ProfitTarget float64 `json:"profitTarget"`
}

type jopening struct {
	On       string                     `json:"on"`
	Cash     jmoney                     `json:"cash"`
	Holdings map[string]decimal.Decimal `json:"holdings"`
}

// MarshalJSON implements the json.Marshaler interface for Ledger.
func (l *Ledger) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("asOf", l.asOf.Format(time.RFC3339Nano))
	w.Append("cash", l.cash)
	w.Append("policy", l.policy.String())
	w.Append("minCashReserve", l.params.MinCashReserve)
	w.Append("smartThreshold", l.params.SmartThreshold)
	w.Append("holdings", holdingsObject(l.holdings))
	w.Append("risk", riskObject(l.risk))

	var o jsonObjectWriter
	o.Append("on", l.opening.On.Format(time.RFC3339Nano))
	o.Append("cash", l.opening.Cash)
	o.Append("holdings", holdingsObject(l.opening.Holdings))
	w.Append("opening", &o)
	return w.MarshalJSON()
}

// holdingsObject writes a holdings map with tickers in alphabetical order.
func holdingsObject(holdings map[string]Quantity) *jsonObjectWriter {
	var w jsonObjectWriter
	for _, t := range slices.Sorted(maps.Keys(holdings)) {
		w.Append(t, holdings[t])
	}
	return &w
}

// riskObject writes the risk map with tickers in alphabetical order.
func riskObject(risk map[string]RiskParams) *jsonObjectWriter {
	var w jsonObjectWriter
	for _, t := range slices.Sorted(maps.Keys(risk)) {
		var e jsonObjectWriter
		e.Append("stopLoss", float64(risk[t].StopLoss))
		e.Append("profitTarget", float64(risk[t].ProfitTarget))
		w.Append(t, &e)
	}
	return &w
}

// DecodeLedger decodes a ledger snapshot from a JSON document.
func DecodeLedger(r io.Reader) (*Ledger, error) {
	var j jledger
	dec := json.NewDecoder(r)
	if err := dec.Decode(&j); err != nil {
		return nil, fmt.Errorf("could not decode ledger: %w", err)
	}
	asOf, err := time.Parse(time.RFC3339Nano, j.AsOf)
	if err != nil {
		return nil, fmt.Errorf("invalid ledger asOf timestamp %q: %w", j.AsOf, err)
	}
	policy, err := ParseFillPolicy(j.Policy)
	if err != nil {
		return nil, err
	}
	openingOn, err := time.Parse(time.RFC3339Nano, j.Opening.On)
	if err != nil {
		return nil, fmt.Errorf("invalid opening timestamp %q: %w", j.Opening.On, err)
	}

	l := &Ledger{
		holdings: decodeHoldings(j.Holdings),
		cash:     j.Cash.Money(),
		asOf:     asOf,
		policy:   policy,
		params: PolicyParams{
			MinCashReserve: j.MinCashReserve.Money(),
			SmartThreshold: j.SmartThreshold,
		},
		risk: make(map[string]RiskParams, len(j.Risk)),
		opening: Opening{
			On:       openingOn,
			Cash:     j.Opening.Cash.Money(),
			Holdings: decodeHoldings(j.Opening.Holdings),
		},
	}
	for t, r := range j.Risk {
		l.risk[t] = RiskParams{StopLoss: Percent(r.StopLoss), ProfitTarget: Percent(r.ProfitTarget)}
	}

	// Re-validate the invariant on load: a hand-edited file must not smuggle
	// negative balances in.
	if l.cash.IsNegative() {
		return nil, fmt.Errorf("invalid ledger: negative cash %s", l.cash)
	}
	for t, q := range l.holdings {
		if q.IsNegative() {
			return nil, fmt.Errorf("invalid ledger: negative position %s for %s", q, t)
		}
	}
	return l, nil
}

func decodeHoldings(src map[string]decimal.Decimal) map[string]Quantity {
	holdings := make(map[string]Quantity, len(src))
	for t, q := range src {
		holdings[t] = Q(q)
	}
	return holdings
}

// EncodeLedger writes a ledger snapshot as an indented JSON document.
func EncodeLedger(w io.Writer, l *Ledger) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("could not encode ledger: %w", err)
	}
	var indented []byte
	if indented, err = indent(data); err != nil {
		return err
	}
	if _, err := w.Write(indented); err != nil {
		return fmt.Errorf("could not write ledger: %w", err)
	}
	return nil
}

func indent(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, fmt.Errorf("could not indent ledger json: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// LoadLedger reads the ledger snapshot file.
func LoadLedger(path string) (*Ledger, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open ledger file %q: %w", path, err)
	}
	defer f.Close()
	return DecodeLedger(f)
}

// SaveLedger persists the ledger atomically: the snapshot is fully written to
// a temporary file in the same directory, then renamed over the previous one.
func SaveLedger(path string, l *Ledger) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("could not create ledger directory %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("could not create temporary ledger file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if err := EncodeLedger(tmp, l); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("could not close temporary ledger file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("could not replace ledger file %q: %w", path, err)
	}
	return nil
}
