package portfolio

import (
	"fmt"
	"maps"
	"slices"
)

// The performance validator recomputes the portfolio's net asset value by
// independent methods and compares the answers. It exists to catch silent
// state drift: manual edits, partial writes, anything that desynchronizes
// the persisted ledger from the audit trail. It never corrects state; it
// reports and lets the operator decide.

// ValuationMethod names one independent NAV recomputation.
type ValuationMethod string

const (
	// MethodLedger values current ledger holdings at the latest prices and
	// adds cash.
	MethodLedger ValuationMethod = "ledger"
	// MethodReplay replays the entire trade log from the ledger's opening
	// state and values the resulting positions at the same prices.
	MethodReplay ValuationMethod = "replay"
	// MethodHistory takes the NAV recorded by the last completed run in the
	// history export.
	MethodHistory ValuationMethod = "history"
)

// Valuation is one method's answer.
type Valuation struct {
	Method ValuationMethod
	NAV    Money
	Detail string
}

// ConsensusFailure reports two methods disagreeing beyond tolerance.
type ConsensusFailure struct {
	A, B     ValuationMethod
	DeltaAbs Money
	Detail   string
}

func (f ConsensusFailure) String() string {
	return fmt.Sprintf("CONSENSUS_FAILURE: %s and %s disagree by %s (%s)", f.A, f.B, f.DeltaAbs, f.Detail)
}

// ValidationReport is the outcome of one validation pass.
type ValidationReport struct {
	Valuations []Valuation
	Failures   []ConsensusFailure
	// Drift lists per-ticker position differences between the ledger and the
	// trade-log replay, independent of prices.
	Drift []string
}

// Consensus reports whether all methods agreed within tolerance.
func (r ValidationReport) Consensus() bool { return len(r.Failures) == 0 }

// Validate cross-checks the ledger against the trade log and the history
// export. Prices are used consistently across methods so that any
// disagreement points at state, not at market movement. Validation is
// read-only and idempotent: the same inputs produce the same report.
func Validate(l *Ledger, results []TradeResult, history []HistoryRecord, quotes map[string]Quote) ValidationReport {
	var report ValidationReport

	// Method 1: current ledger holdings at latest prices, plus cash.
	ledgerNAV := nav(l.Snapshot().Holdings, l.Cash(), quotes)
	report.Valuations = append(report.Valuations, Valuation{
		Method: MethodLedger,
		NAV:    ledgerNAV,
		Detail: fmt.Sprintf("cash %s", l.Cash()),
	})

	// Method 2: replay the audit trail from the opening state.
	replayed, replayedCash := Replay(l.Opening(), results)
	replayNAV := nav(replayed, replayedCash, quotes)
	report.Valuations = append(report.Valuations, Valuation{
		Method: MethodReplay,
		NAV:    replayNAV,
		Detail: fmt.Sprintf("%d trade log records, cash %s", len(results), replayedCash),
	})

	report.Drift = positionDrift(l.Snapshot().Holdings, replayed)

	if f, bad := compare(MethodLedger, ledgerNAV, MethodReplay, replayNAV); bad {
		report.Failures = append(report.Failures, f)
	}

	// Method 3: the last recorded history export, when one exists. NAV moves
	// with the market between runs, so the consensus check here is on the
	// recorded cash balance, which must match the ledger exactly.
	if len(history) > 0 {
		last := history[len(history)-1]
		report.Valuations = append(report.Valuations, Valuation{
			Method: MethodHistory,
			NAV:    last.NAV,
			Detail: fmt.Sprintf("recorded %s, cash %s", last.On.Format("2006-01-02"), last.Cash),
		})
		if f, bad := compare(MethodLedger, l.Cash(), MethodHistory, last.Cash); bad {
			f.Detail = "recorded cash does not match ledger cash: " + f.Detail
			report.Failures = append(report.Failures, f)
		}
	}
	return report
}

// nav values holdings at the given prices and adds cash. Tickers without a
// quote contribute nothing; both methods share the same quotes so the
// omission cancels out in the comparison.
func nav(holdings map[string]Quantity, cash Money, quotes map[string]Quote) Money {
	total := cash
	for _, t := range slices.Sorted(maps.Keys(holdings)) {
		if q, ok := quotes[t]; ok {
			total = total.Add(q.Price.Mul(holdings[t]))
		}
	}
	return total
}

// compare checks two valuations against the divergence tolerance: an
// absolute epsilon of $0.01 or a relative one of 0.01%, whichever is larger.
func compare(ma ValuationMethod, a Money, mb ValuationMethod, b Money) (ConsensusFailure, bool) {
	delta := a.Sub(b).Abs()
	epsilon := USD(0.01)
	if rel := a.Abs().Mul(Q(0.0001)); rel.GreaterThan(epsilon) {
		epsilon = rel
	}
	if delta.LessThanOrEqual(epsilon) {
		return ConsensusFailure{}, false
	}
	return ConsensusFailure{
		A:        ma,
		B:        mb,
		DeltaAbs: delta,
		Detail:   fmt.Sprintf("%s=%s %s=%s", ma, a, mb, b),
	}, true
}

// positionDrift lists the tickers whose share counts differ between the
// ledger and the replayed trade log.
func positionDrift(ledger, replayed map[string]Quantity) []string {
	var drift []string
	tickers := make(map[string]bool)
	for t := range ledger {
		tickers[t] = true
	}
	for t := range replayed {
		tickers[t] = true
	}
	for _, t := range slices.Sorted(maps.Keys(tickers)) {
		if !ledger[t].Equal(replayed[t]) {
			drift = append(drift, fmt.Sprintf("%s: ledger=%s replay=%s", t, ledger[t], replayed[t]))
		}
	}
	return drift
}
