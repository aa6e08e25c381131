package portfolio

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"time"
)

// Ledger is the persisted source of truth for the portfolio: holdings, cash
// and the partial-fill policy. It is exclusively owned by the execution
// engine during a run; every other component works on a read-only Snapshot.
//
// Holdings and cash are only ever mutated through Commit, which re-validates
// the non-negativity invariant before anything is written.
type Ledger struct {
	holdings map[string]Quantity
	cash     Money
	asOf     time.Time

	policy FillPolicy
	params PolicyParams

	risk map[string]RiskParams

	// opening anchors trade-log replay. It is written once when the ledger
	// is created and never mutated afterwards.
	opening Opening
}

// Opening is the known starting state of the ledger, the baseline the
// performance validator replays the trade log from.
type Opening struct {
	On       time.Time
	Cash     Money
	Holdings map[string]Quantity
}

// RiskParams are the per-ticker risk levels mutated by SET-style orders.
type RiskParams struct {
	StopLoss     Percent
	ProfitTarget Percent
}

// Delta is one (ticker, share, cash) change of a batch commit. A zero Ticker
// means a pure cash movement.
type Delta struct {
	Ticker string
	Shares Quantity
	Cash   Money
}

// InvariantError reports a commit that would drive cash or a share count
// negative. The whole batch is rejected and the ledger left unchanged.
type InvariantError struct {
	Ticker string // empty for a cash violation
	Have   string
	Want   string
}

func (e *InvariantError) Error() string {
	if e.Ticker == "" {
		return fmt.Sprintf("commit would drive cash negative: have %s, want %s", e.Have, e.Want)
	}
	return fmt.Sprintf("commit would drive %s shares negative: have %s, want %s", e.Ticker, e.Have, e.Want)
}

// NewLedger creates a ledger with an opening cash deposit and no holdings.
func NewLedger(openingCash Money, on time.Time) *Ledger {
	return &Ledger{
		holdings: make(map[string]Quantity),
		cash:     openingCash,
		asOf:     on,
		policy:   FillAutomatic,
		params:   DefaultPolicyParams(),
		risk:     make(map[string]RiskParams),
		opening: Opening{
			On:       on,
			Cash:     openingCash,
			Holdings: make(map[string]Quantity),
		},
	}
}

// OpenLedger creates a ledger whose current state is the given opening
// block, for bootstrapping from an existing brokerage position.
func OpenLedger(op Opening) *Ledger {
	if op.Holdings == nil {
		op.Holdings = make(map[string]Quantity)
	}
	return &Ledger{
		holdings: maps.Clone(op.Holdings),
		cash:     op.Cash,
		asOf:     op.On,
		policy:   FillAutomatic,
		params:   DefaultPolicyParams(),
		risk:     make(map[string]RiskParams),
		opening:  op,
	}
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() Money { return l.cash }

// AsOf returns the timestamp of the last mutation.
func (l *Ledger) AsOf() time.Time { return l.asOf }

// Policy returns the partial-fill policy and its parameters.
func (l *Ledger) Policy() (FillPolicy, PolicyParams) { return l.policy, l.params }

// SetPolicy changes the partial-fill policy and its parameters.
func (l *Ledger) SetPolicy(p FillPolicy, params PolicyParams) {
	l.policy, l.params = p, params
}

// Opening returns the immutable opening state.
func (l *Ledger) Opening() Opening { return l.opening }

// Position returns the current share count for a ticker, zero if not held.
func (l *Ledger) Position(ticker string) Quantity {
	return l.holdings[ticker]
}

// Holds reports whether the ticker has a non-zero position.
func (l *Ledger) Holds(ticker string) bool {
	q, ok := l.holdings[ticker]
	return ok && !q.IsZero()
}

// Positions iterates over holdings in ticker order.
func (l *Ledger) Positions() iter.Seq2[string, Quantity] {
	return func(yield func(string, Quantity) bool) {
		tickers := slices.Collect(maps.Keys(l.holdings))
		slices.Sort(tickers)
		for _, t := range tickers {
			if !yield(t, l.holdings[t]) {
				return
			}
		}
	}
}

// Risk returns the risk parameters recorded for a ticker.
func (l *Ledger) Risk(ticker string) (RiskParams, bool) {
	r, ok := l.risk[ticker]
	return r, ok
}

// SetRisk updates risk parameters for a held ticker. Nil fields are left
// untouched.
func (l *Ledger) SetRisk(ticker string, stopLoss, profitTarget *Percent) error {
	if !l.Holds(ticker) {
		return fmt.Errorf("cannot set risk parameters: %s not held", ticker)
	}
	r := l.risk[ticker]
	if stopLoss != nil {
		r.StopLoss = *stopLoss
	}
	if profitTarget != nil {
		r.ProfitTarget = *profitTarget
	}
	l.risk[ticker] = r
	return nil
}

// Commit applies a batch of deltas atomically. Every delta is validated
// against the non-negativity invariant first; if any single delta would
// violate it the entire call fails and nothing is written.
func (l *Ledger) Commit(deltas []Delta) error {
	// Validation pass on scratch state.
	cash := l.cash
	scratch := make(map[string]Quantity, len(deltas))
	for _, d := range deltas {
		cash = cash.Add(d.Cash)
		if cash.IsNegative() {
			return &InvariantError{Have: l.cash.String(), Want: cash.String()}
		}
		if d.Ticker == "" {
			continue
		}
		q, ok := scratch[d.Ticker]
		if !ok {
			q = l.holdings[d.Ticker]
		}
		q = q.Add(d.Shares)
		if q.IsNegative() {
			return &InvariantError{Ticker: d.Ticker, Have: l.Position(d.Ticker).String(), Want: q.String()}
		}
		scratch[d.Ticker] = q
	}

	// Write pass.
	l.cash = cash
	for t, q := range scratch {
		if q.IsZero() {
			delete(l.holdings, t) // entries with zero shares are removed
		} else {
			l.holdings[t] = q
		}
	}
	l.asOf = time.Now()
	return nil
}

// Snapshot is a read-only copy of the ledger state handed to the parser and
// the planner. Mutating a snapshot never affects the ledger.
type Snapshot struct {
	Holdings map[string]Quantity
	Cash     Money
	AsOf     time.Time
	Policy   FillPolicy
	Params   PolicyParams
}

// Snapshot returns a deep copy of the current state.
func (l *Ledger) Snapshot() Snapshot {
	return Snapshot{
		Holdings: maps.Clone(l.holdings),
		Cash:     l.cash,
		AsOf:     l.asOf,
		Policy:   l.policy,
		Params:   l.params,
	}
}

// Position returns the share count for a ticker in the snapshot.
func (s Snapshot) Position(ticker string) Quantity {
	return s.Holdings[ticker]
}

// Holds reports whether the snapshot has a non-zero position for the ticker.
func (s Snapshot) Holds(ticker string) bool {
	q, ok := s.Holdings[ticker]
	return ok && !q.IsZero()
}
