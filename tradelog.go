package portfolio

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Status is the terminal state of a processed order, as recorded in the
// trade log.
type Status string

const (
	Executed          Status = "EXECUTED"
	PartiallyExecuted Status = "PARTIALLY_EXECUTED"
	Rejected          Status = "REJECTED"
	Deferred          Status = "DEFERRED"
)

// TradeResult is the immutable record of one processed order. Exactly one is
// appended to the trade log per terminal order; the log is never rewritten,
// only extended, and is the audit trail the performance validator replays.
type TradeResult struct {
	On         time.Time
	Ticker     string
	Action     Action
	Requested  Quantity
	Filled     Quantity
	Price      Money
	CashDelta  Money
	ShareDelta Quantity
	Status     Status
	Reason     string
	SourceLine int
}

// Key identifies a result for idempotence checks: re-committing a result with
// an identical (timestamp, ticker, action) must not double-apply.
func (r TradeResult) Key() string {
	return fmt.Sprintf("%s|%s|%s", r.On.Format(time.RFC3339Nano), r.Ticker, r.Action)
}

// MarshalJSON implements the json.Marshaler interface for TradeResult.
func (r TradeResult) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("on", r.On.Format(time.RFC3339Nano))
	w.Append("ticker", r.Ticker)
	w.Append("action", r.Action)
	w.Append("requested", r.Requested)
	w.Append("filled", r.Filled)
	w.Append("price", r.Price)
	w.Append("cashDelta", r.CashDelta)
	w.Append("shareDelta", r.ShareDelta)
	w.Append("status", r.Status)
	w.Optional("reason", r.Reason)
	w.Optional("line", r.SourceLine)
	return w.MarshalJSON()
}

// jresult is the decoding counterpart of TradeResult's custom marshaling.
type jresult struct {
	On         string   `json:"on"`
	Ticker     string   `json:"ticker"`
	Action     Action   `json:"action"`
	Requested  Quantity `json:"requested"`
	Filled     Quantity `json:"filled"`
	Price      jmoney   `json:"price"`
	CashDelta  jmoney   `json:"cashDelta"`
	ShareDelta Quantity `json:"shareDelta"`
	Status     Status   `json:"status"`
	Reason     string   `json:"reason"`
	Line       int      `json:"line"`
}

// jmoney reads the two-field money encoding.
type jmoney struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func (j jmoney) Money() Money { return M(j.Amount, j.Currency) }

// UnmarshalJSON implements the json.Unmarshaler interface for TradeResult.
func (r *TradeResult) UnmarshalJSON(data []byte) error {
	var j jresult
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	on, err := time.Parse(time.RFC3339Nano, j.On)
	if err != nil {
		return fmt.Errorf("invalid trade result timestamp %q: %w", j.On, err)
	}
	*r = TradeResult{
		On:         on,
		Ticker:     j.Ticker,
		Action:     j.Action,
		Requested:  j.Requested,
		Filled:     j.Filled,
		Price:      j.Price.Money(),
		CashDelta:  j.CashDelta.Money(),
		ShareDelta: j.ShareDelta,
		Status:     j.Status,
		Reason:     j.Reason,
		SourceLine: j.Line,
	}
	return nil
}

// EncodeTradeResult writes a single result as one JSONL line.
func EncodeTradeResult(w io.Writer, r TradeResult) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal trade result: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write trade result: %w", err)
	}
	return nil
}

// DecodeTradeLog reads the whole trade log from a stream of JSONL data.
func DecodeTradeLog(r io.Reader) ([]TradeResult, error) {
	var results []TradeResult
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var res TradeResult
		if err := json.Unmarshal(line, &res); err != nil {
			return nil, fmt.Errorf("could not decode trade log line %q: %w", string(line), err)
		}
		results = append(results, res)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading trade log: %w", err)
	}
	return results, nil
}

// LoadTradeLog reads the trade log file. A missing file is an empty log, not
// an error.
func LoadTradeLog(path string) ([]TradeResult, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not open trade log %q: %w", path, err)
	}
	defer f.Close()
	return DecodeTradeLog(f)
}

// AppendTradeLog appends results to the trade log file, creating it if
// needed. Existing records are never touched.
func AppendTradeLog(path string, results []TradeResult) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("could not open trade log %q for append: %w", path, err)
	}
	defer f.Close()
	for _, r := range results {
		if err := EncodeTradeResult(f, r); err != nil {
			return err
		}
	}
	return nil
}

// Replay applies the trade log to an opening state and returns the resulting
// holdings and cash. Results with an identical key are applied once, and
// non-mutating results (rejected, deferred) have zero deltas by construction.
func Replay(opening Opening, results []TradeResult) (holdings map[string]Quantity, cash Money) {
	holdings = maps.Clone(opening.Holdings)
	if holdings == nil {
		holdings = make(map[string]Quantity)
	}
	cash = opening.Cash
	seen := make(map[string]bool, len(results))
	for _, r := range results {
		if seen[r.Key()] {
			continue
		}
		seen[r.Key()] = true
		cash = cash.Add(r.CashDelta)
		if r.Ticker == "" || r.ShareDelta.IsZero() {
			continue
		}
		q := holdings[r.Ticker].Add(r.ShareDelta)
		if q.IsZero() {
			delete(holdings, r.Ticker)
		} else {
			holdings[r.Ticker] = q
		}
	}
	return holdings, cash
}
