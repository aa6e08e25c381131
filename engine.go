package portfolio

import (
	"errors"
	"fmt"
	"log"
	"time"
)

// The execution engine applies a schedule to the ledger, one order at a
// time. Each order moves PENDING -> VALIDATED -> one of the four terminal
// states recorded in its TradeResult. Mutation is per-order atomic: an order
// either fully applies its computed delta through a single Commit, or not at
// all.
//
// The run as a whole is deliberately not transactional across orders: when
// order 5 of 8 cannot be applied, orders 1-4 stay committed and the engine
// proceeds to order 6. Rolling back would mean undoing the cash effects of
// already-settled sells, which is not meaningful once those funds are
// considered generated. This is the chosen semantics, not a bug.

// Engine applies execution schedules to a ledger. The ledger is exclusively
// owned by the engine for the duration of a run.
type Engine struct {
	ledger *Ledger
	// prior holds the keys of already-logged results so that re-committing
	// an identical (timestamp, ticker, action) never double-applies.
	prior map[string]bool
	now   func() time.Time
}

// NewEngine creates an engine owning the ledger. The prior trade log is used
// to detect and skip already-applied results.
func NewEngine(ledger *Ledger, prior []TradeResult) *Engine {
	seen := make(map[string]bool, len(prior))
	for _, r := range prior {
		seen[r.Key()] = true
	}
	return &Engine{ledger: ledger, prior: seen, now: time.Now}
}

// Execute applies the schedule sequentially: sells first, then buys, then
// adjustments. It returns one TradeResult per scheduled order, in execution
// order. The caller appends the results to the trade log and persists the
// ledger once all orders have reached a terminal state.
func (e *Engine) Execute(s *Schedule) []TradeResult {
	var results []TradeResult
	for _, so := range s.Orders() {
		r := TradeResult{
			On:         e.now(),
			Ticker:     so.Ticker,
			Action:     so.Action,
			Requested:  so.Resolved,
			Filled:     Q(0),
			Price:      so.Quote.Price,
			Status:     so.Decision.Status,
			Reason:     so.Decision.Reason,
			SourceLine: so.SourceLine,
		}
		// The skip happens before any mutation so a replayed schedule can
		// never double-apply a delta.
		if e.prior[r.Key()] {
			log.Printf("skipping already-applied result %s", r.Key())
			continue
		}
		r = e.apply(so, r)
		e.prior[r.Key()] = true
		results = append(results, r)
	}
	return results
}

// apply brings one validated order to a terminal state, committing its delta
// when the decision calls for one.
func (e *Engine) apply(so ScheduledOrder, r TradeResult) TradeResult {

	// Rejected and deferred orders are terminal without any mutation.
	if so.Decision.Status == Rejected || so.Decision.Status == Deferred {
		return r
	}

	switch {
	case so.Action.IsSell():
		delta := Delta{
			Ticker: so.Ticker,
			Shares: Q(0).Sub(so.Decision.Fill),
			Cash:   so.Quote.Price.Mul(so.Decision.Fill),
		}
		if err := e.ledger.Commit([]Delta{delta}); err != nil {
			return e.reject(r, err)
		}
		r.Filled = so.Decision.Fill
		r.CashDelta = delta.Cash
		r.ShareDelta = delta.Shares

	case so.Action == ActionBuy:
		delta := Delta{
			Ticker: so.Ticker,
			Shares: so.Decision.Fill,
			Cash:   so.Quote.Price.Mul(so.Decision.Fill).Neg(),
		}
		if err := e.ledger.Commit([]Delta{delta}); err != nil {
			return e.reject(r, err)
		}
		r.Filled = so.Decision.Fill
		r.CashDelta = delta.Cash
		r.ShareDelta = delta.Shares

	case so.Action == ActionHold:
		// No state change; the fill reports the current position.
		r.Filled = so.Decision.Fill

	case so.Action == ActionSetStopLoss:
		p := so.Quantity.Percent
		if err := e.ledger.SetRisk(so.Ticker, &p, nil); err != nil {
			return e.reject(r, err)
		}

	case so.Action == ActionUpdateProfitTarget:
		p := so.Quantity.Percent
		if err := e.ledger.SetRisk(so.Ticker, nil, &p); err != nil {
			return e.reject(r, err)
		}
	}
	return r
}

// reject turns a commit failure into a terminal REJECTED result. The ledger
// is unchanged for this order; the run continues with the next one.
func (e *Engine) reject(r TradeResult, err error) TradeResult {
	log.Printf("order %s %s rejected: %v", r.Action, r.Ticker, err)
	note := err.Error()
	var inv *InvariantError
	if errors.As(err, &inv) {
		note = fmt.Sprintf("INVARIANT_VIOLATION: %v", err)
	}
	r.Status = Rejected
	r.Filled = Q(0)
	r.CashDelta = Money{}
	r.ShareDelta = Q(0)
	r.Reason = joinReason(r.Reason, note)
	return r
}
