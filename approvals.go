package portfolio

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// The ASK_CONFIRMATION policy defers underfunded buys instead of filling or
// rejecting them. Resolution happens out-of-band, between runs: the operator
// records an approval (tsub approve), and on the next run the planner treats
// a matching deferred order as released. There is no synchronous user
// interaction mid-run.

// Approval releases one deferred order identified by ticker, action and
// requested quantity.
type Approval struct {
	Ticker   string
	Action   Action
	Quantity Quantity
	On       time.Time
}

// MarshalJSON implements the json.Marshaler interface for Approval.
func (a Approval) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("on", a.On.Format(time.RFC3339Nano))
	w.Append("ticker", a.Ticker)
	w.Append("action", a.Action)
	w.Append("quantity", a.Quantity)
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Approval.
func (a *Approval) UnmarshalJSON(data []byte) error {
	var j struct {
		On       string   `json:"on"`
		Ticker   string   `json:"ticker"`
		Action   Action   `json:"action"`
		Quantity Quantity `json:"quantity"`
	}
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	on, err := time.Parse(time.RFC3339Nano, j.On)
	if err != nil {
		return fmt.Errorf("invalid approval timestamp %q: %w", j.On, err)
	}
	*a = Approval{Ticker: j.Ticker, Action: j.Action, Quantity: j.Quantity, On: on}
	return nil
}

// Approvals is the set of recorded approvals.
type Approvals []Approval

// Match finds an approval for the order. An approval matches on ticker,
// action and, for explicit share counts, the exact requested quantity.
func (as Approvals) Match(o Order) (Approval, bool) {
	for _, a := range as {
		if a.Ticker != o.Ticker || a.Action != o.Action {
			continue
		}
		if o.Quantity.Kind == QtyShares && !a.Quantity.Equal(o.Quantity.Shares) {
			continue
		}
		return a, true
	}
	return Approval{}, false
}

// DecodeApprovals reads approvals from a stream of JSONL data.
func DecodeApprovals(r io.Reader) (Approvals, error) {
	var as Approvals
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var a Approval
		if err := json.Unmarshal(line, &a); err != nil {
			return nil, fmt.Errorf("could not decode approval line %q: %w", string(line), err)
		}
		as = append(as, a)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading approvals: %w", err)
	}
	return as, nil
}

// LoadApprovals reads the approvals file. A missing file is an empty set.
func LoadApprovals(path string) (Approvals, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not open approvals file %q: %w", path, err)
	}
	defer f.Close()
	return DecodeApprovals(f)
}

// AppendApproval records one approval at the end of the approvals file.
func AppendApproval(path string, a Approval) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("could not open approvals file %q for append: %w", path, err)
	}
	defer f.Close()
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal approval: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write approval: %w", err)
	}
	return nil
}
