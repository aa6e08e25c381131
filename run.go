package portfolio

import (
	"fmt"
	"maps"
	"slices"
)

// RunOutcome gathers everything a run produced, for rendering and
// persistence. Every order that appeared in the input document is accounted
// for, either as a trade result or as a parse error: silence is never an
// acceptable outcome.
type RunOutcome struct {
	Orders      []Order
	ParseErrors []ParseError
	Warnings    []ParseWarning
	Schedule    *Schedule
	Results     []TradeResult
	Validation  ValidationReport
	Quotes      map[string]Quote
	NAV         Money
	DryRun      bool
}

// Run executes the full pipeline against a ledger: parse, plan and, unless
// dryRun is set, execute and cross-validate. Persistence is the caller's
// concern; the ledger is mutated in memory only.
//
// prior is the existing trade log (for idempotence and replay), history the
// existing history export.
func Run(doc []byte, l *Ledger, feed PriceFeed, approvals Approvals, prior []TradeResult, history []HistoryRecord, dryRun bool) (*RunOutcome, error) {
	orders, perrs, warns, err := ParseDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("cannot parse advisory document: %w", err)
	}

	snap := l.Snapshot()
	quotes, quoteErrs := FetchQuotes(feed, runTickers(orders, snap))
	schedule := Plan(orders, snap, quotes, quoteErrs, approvals)

	out := &RunOutcome{
		Orders:      orders,
		ParseErrors: perrs,
		Warnings:    warns,
		Schedule:    schedule,
		Quotes:      quotes,
		DryRun:      dryRun,
	}
	if dryRun {
		out.NAV = nav(snap.Holdings, snap.Cash, quotes)
		return out, nil
	}

	engine := NewEngine(l, prior)
	out.Results = engine.Execute(schedule)

	full := append(slices.Clone(prior), out.Results...)
	out.Validation = Validate(l, full, history, quotes)
	out.NAV = nav(l.Snapshot().Holdings, l.Cash(), quotes)
	return out, nil
}

// runTickers collects every ticker a run needs a quote for: the parsed
// orders plus all current holdings (the validator values those too).
func runTickers(orders []Order, snap Snapshot) []string {
	set := make(map[string]bool)
	for _, o := range orders {
		set[o.Ticker] = true
	}
	for t := range snap.Holdings {
		set[t] = true
	}
	return slices.Sorted(maps.Keys(set))
}
